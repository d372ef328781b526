package cmd

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zalepa/escolas/api"
	"github.com/zalepa/escolas/guard"
	"github.com/zalepa/escolas/loader"
	"github.com/zalepa/escolas/school"
	"github.com/zalepa/escolas/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Web implements the "web" subcommand: serve the login-gated dashboard.
func Web(args []string) {
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (defaults to ESCOLAS_ADDR or :8080)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: escolas web [-addr :8080]\n\nStart the web dashboard.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	e := setup()
	defer e.log.Sync()
	if *addr == "" {
		*addr = e.cfg.Addr
	}

	srv, err := newWebServer(e.client, session.NewCookies(e.cfg.SessionKey, e.cfg.SecureCookies, e.log), e.log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading templates: %v\n", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              *addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		httpSrv.Shutdown(shutdownCtx)
	}()

	e.log.Info("serving dashboard", zap.String("addr", *addr), zap.String("api", e.cfg.APIBaseURL))
	fmt.Printf("serving on http://localhost%s\n", *addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

type webServer struct {
	client  *api.Client
	cookies *session.Cookies
	log     *zap.Logger
	tmpl    *template.Template
}

func newWebServer(client *api.Client, cookies *session.Cookies, log *zap.Logger) (*webServer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &webServer{client: client, cookies: cookies, log: log, tmpl: tmpl}, nil
}

func (s *webServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.loginPage)
	r.Post("/login", s.login)
	r.Get("/register", s.registerPage)
	r.Post("/register", s.register)
	r.Post("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(guard.Require(guard.Dashboard, s.hasToken))
		r.Get("/dashboard", s.dashboardPage)
		r.Get("/api/dashboard", s.dashboardData)
	})
	return r
}

func (s *webServer) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *webServer) hasToken(r *http.Request) bool {
	_, ok := s.cookies.For(nil, r).Token()
	return ok
}

type formPage struct {
	Email  string
	Error  string
	Notice string
}

func (s *webServer) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("rendering template", zap.String("template", name), zap.Error(err))
	}
}

func (s *webServer) loginPage(w http.ResponseWriter, r *http.Request) {
	var page formPage
	if r.URL.Query().Get("registered") != "" {
		page.Notice = "Account created! Now log in."
	}
	s.render(w, http.StatusOK, "login.html", page)
}

func (s *webServer) login(w http.ResponseWriter, r *http.Request) {
	creds := api.Credentials{Email: r.FormValue("email"), Password: r.FormValue("password")}
	page := formPage{Email: creds.Email}

	store := s.cookies.For(w, r)
	if err := login(r.Context(), s.client.WithTokens(store), store, creds); err != nil {
		s.log.Warn("login failed", zap.String("email", creds.Email), zap.Error(err))
		page.Error = "Invalid email or password."
		s.render(w, loginFailureStatus(err), "login.html", page)
		return
	}
	http.Redirect(w, r, guard.Dashboard, http.StatusSeeOther)
}

func loginFailureStatus(err error) int {
	var se *api.StatusError
	switch {
	case api.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errors.As(err, &se):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}

func (s *webServer) registerPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "register.html", formPage{})
}

func (s *webServer) register(w http.ResponseWriter, r *http.Request) {
	creds := api.Credentials{Email: r.FormValue("email"), Password: r.FormValue("password")}
	if err := s.client.Register(r.Context(), creds); err != nil {
		s.log.Warn("registration failed", zap.String("email", creds.Email), zap.Error(err))
		s.render(w, http.StatusBadRequest, "register.html", formPage{Email: creds.Email, Error: "Could not create the account."})
		return
	}
	http.Redirect(w, r, guard.EntryView+"?registered=1", http.StatusSeeOther)
}

func (s *webServer) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.cookies.For(w, r).Clear(); err != nil {
		s.log.Error("clearing session", zap.Error(err))
	}
	http.Redirect(w, r, guard.EntryView, http.StatusSeeOther)
}

func (s *webServer) dashboardPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "dashboard.html", nil)
}

type dashboardResponse struct {
	Loading        bool                `json:"loading"`
	Failed         bool                `json:"failed"`
	Schools        []school.School     `json:"schools"`
	ByDependency   school.Distribution `json:"byDependency"`
	ByMunicipality school.Distribution `json:"byMunicipality"`
	PieOption      echartsOption       `json:"pieOption"`
	BarOption      echartsOption       `json:"barOption"`
}

// dashboardData mounts a loader for the lifetime of this request. If the
// client goes away first the loader is torn down and nothing is written.
func (s *webServer) dashboardData(w http.ResponseWriter, r *http.Request) {
	store := s.cookies.For(w, r)
	log := s.log.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	l := loader.New(s.client.WithTokens(store), log)
	if err := l.Activate(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer l.Teardown()
	if err := l.Wait(r.Context()); err != nil {
		log.Debug("client left before schools loaded", zap.Error(err))
		return
	}

	st := l.State()
	byDep, byMuni := school.Aggregate(st.Data)
	resp := dashboardResponse{
		Loading:        st.Loading,
		Failed:         st.Failed,
		Schools:        st.Data,
		ByDependency:   byDep,
		ByMunicipality: byMuni,
		PieOption:      pieOption(byDep),
		BarOption:      barOption(byMuni),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

type echartsOption map[string]any

var chartTitleStyle = map[string]any{"color": "#fff", "fontSize": 16}

// pieOption is the donut chart of schools per administrative dependency.
func pieOption(d school.Distribution) echartsOption {
	return echartsOption{
		"backgroundColor": "transparent",
		"title":           map[string]any{"text": dependencyTitle, "left": "center", "textStyle": chartTitleStyle},
		"tooltip":         map[string]any{"trigger": "item"},
		"legend":          map[string]any{"bottom": "0%", "textStyle": map[string]any{"color": "#ccc"}},
		"series": []any{map[string]any{
			"name":              "Dependency",
			"type":              "pie",
			"radius":            []string{"40%", "70%"},
			"avoidLabelOverlap": false,
			"itemStyle":         map[string]any{"borderRadius": 10, "borderColor": "#1f2937", "borderWidth": 2},
			"label":             map[string]any{"show": false, "position": "center"},
			"emphasis": map[string]any{
				"label": map[string]any{"show": true, "fontSize": 18, "fontWeight": "bold", "color": "#fff"},
			},
			"data": d.PieData(),
		}},
	}
}

// barOption is the bar chart of schools per municipality.
func barOption(d school.Distribution) echartsOption {
	categories, values := d.BarSeries()
	axisLine := map[string]any{"lineStyle": map[string]any{"color": "#374151"}}
	return echartsOption{
		"backgroundColor": "transparent",
		"title":           map[string]any{"text": municipalityTitle, "left": "center", "textStyle": chartTitleStyle},
		"tooltip":         map[string]any{"trigger": "axis", "axisPointer": map[string]any{"type": "shadow"}},
		"grid":            map[string]any{"left": "3%", "right": "4%", "bottom": "3%", "containLabel": true},
		"xAxis": []any{map[string]any{
			"type":      "category",
			"data":      categories,
			"axisTick":  map[string]any{"alignWithLabel": true},
			"axisLabel": map[string]any{"color": "#ccc"},
			"axisLine":  axisLine,
		}},
		"yAxis": []any{map[string]any{
			"type":      "value",
			"axisLabel": map[string]any{"color": "#ccc"},
			"splitLine": axisLine,
		}},
		"series": []any{map[string]any{
			"name":      "Schools",
			"type":      "bar",
			"barWidth":  "60%",
			"data":      values,
			"itemStyle": map[string]any{"color": "#3b82f6", "borderRadius": []int{4, 4, 0, 0}},
		}},
	}
}
