package session

import (
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// CookieName is the name of the browser session cookie.
const CookieName = "escolas-session"

// Cookies issues per-request Stores backed by a signed gorilla session cookie.
type Cookies struct {
	store sessions.Store
}

// NewCookies builds the cookie store. An empty key gets a random one, which
// means sessions do not survive a restart. secure marks cookies Secure with
// SameSite=None; otherwise Lax is used so plain-HTTP localhost works.
func NewCookies(key string, secure bool, logger *zap.Logger) *Cookies {
	var raw []byte
	switch {
	case key == "":
		raw = securecookie.GenerateRandomKey(32)
		logger.Warn("no session key configured; generated a random one, sessions will not survive a restart")
	case len(key) < 32:
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
		raw = []byte(key)
	default:
		raw = []byte(key)
	}

	cs := sessions.NewCookieStore(raw)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		cs.Options.SameSite = http.SameSiteNoneMode
	}
	return &Cookies{store: cs}
}

// For binds a Store to one request/response pair. Writes are saved to the
// response immediately, so they must happen before the body is written.
func (c *Cookies) For(w http.ResponseWriter, r *http.Request) *Request {
	return &Request{cookies: c, w: w, r: r}
}

// Request is the Store for a single HTTP request.
type Request struct {
	cookies *Cookies
	w       http.ResponseWriter
	r       *http.Request
}

func (s *Request) session() (*sessions.Session, error) {
	// Get returns a fresh session alongside a decode error for stale cookies.
	return s.cookies.store.Get(s.r, CookieName)
}

// Token reports the token held in the request's session cookie.
func (s *Request) Token() (string, bool) {
	sess, _ := s.session()
	if sess == nil {
		return "", false
	}
	tok, _ := sess.Values[Key].(string)
	return tok, tok != ""
}

// SetToken stores token in the session and writes the cookie.
func (s *Request) SetToken(token string) error {
	sess, _ := s.session()
	if sess == nil {
		return errors.New("session unavailable")
	}
	if token == "" {
		delete(sess.Values, Key)
	} else {
		sess.Values[Key] = token
	}
	if err := sess.Save(s.r, s.w); err != nil {
		return errors.Wrap(err, "saving session")
	}
	return nil
}

// Clear expires the session cookie.
func (s *Request) Clear() error {
	sess, _ := s.session()
	if sess == nil {
		return errors.New("session unavailable")
	}
	delete(sess.Values, Key)
	sess.Options.MaxAge = -1
	if err := sess.Save(s.r, s.w); err != nil {
		return errors.Wrap(err, "clearing session")
	}
	return nil
}
