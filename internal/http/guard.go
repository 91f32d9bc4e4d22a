package httpx

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	protectedPrefix = "/dashboard"
	loginPath       = "/login"
	returnToParam   = "return_to"
)

// guardPage enforces authentication ahead of protected page delivery. Paths
// under the protected prefix without a valid session get a redirect to the
// login page carrying the original path, so the client can resume after
// login. The guard mutates nothing; it only decides.
func (r *Router) guardPage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !strings.HasPrefix(req.URL.Path, protectedPrefix) {
			next(w, req)
			return
		}
		raw, err := r.sessionToken(req)
		if err == nil {
			_, _, authErr := r.auth.Authorize(req.Context(), raw)
			if authErr == nil {
				next(w, req)
				return
			}
			r.logger.Warn("guard rejected session", "error", authErr, "path", req.URL.Path)
		}
		redirectToLogin(w, req)
	}
}

func redirectToLogin(w http.ResponseWriter, req *http.Request) {
	v := url.Values{}
	v.Set(returnToParam, req.URL.Path)
	http.Redirect(w, req, loginPath+"?"+v.Encode(), http.StatusFound)
}

// sanitizeReturnTo keeps redirect targets on this site. Anything that is not
// a local absolute path falls back to the dashboard landing page.
func sanitizeReturnTo(raw string) string {
	if raw == "" {
		return protectedPrefix
	}
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return protectedPrefix
	}
	return raw
}
