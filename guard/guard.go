// Package guard decides whether a protected view may be shown. The only
// check is whether a session token is present; expiry and signatures are
// the remote API's business.
//
// Known gap: a token the API later rejects (401) is not detected here, and
// callers do not re-redirect on such responses. The view simply stays empty.
package guard

import (
	"net/http"
	"strings"
)

// EntryView is where users without a session are sent.
const EntryView = "/"

// Dashboard is the protected view.
const Dashboard = "/dashboard"

// Action is the outcome of a guard decision.
type Action int

const (
	Render Action = iota
	Redirect
)

func (a Action) String() string {
	switch a {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// Decision says what to do with a navigation.
type Decision struct {
	Action Action
	Target string
}

// protected lists views that require a session token.
var protected = map[string]bool{
	Dashboard: true,
}

// IsProtected reports whether view requires a session token.
func IsProtected(view string) bool {
	return protected[view]
}

// Decide renders view, unless it is protected and there is no token, in
// which case it redirects to EntryView.
func Decide(hasToken bool, view string) Decision {
	if IsProtected(view) && !hasToken {
		return Decision{Action: Redirect, Target: EntryView}
	}
	return Decision{Action: Render, Target: view}
}

// Require wraps the handlers serving view. When view is protected and has
// reports no token:
//   - API calls (see isAPICall): 401 Unauthorized with a plain error body
//   - anything else: 303 redirect to EntryView
//
// and next is not called.
func Require(view string, has func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := Decide(has(r), view)
			if d.Action == Render {
				next.ServeHTTP(w, r)
				return
			}
			if isAPICall(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, d.Target, http.StatusSeeOther)
		})
	}
}

// isAPICall reports whether r comes from a script rather than a browser
// navigation: a path under /api/ or an explicit JSON Accept header.
func isAPICall(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
