package guard

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Middleware lets allowed sessions through and redirects everyone else to the
// passkey prompt.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := "", false
		if c, err := r.Cookie(CookieName); err == nil {
			token, present = c.Value, true
		}

		s := g.Evaluate(token, present)
		if s.Decision != Allowed {
			http.Redirect(w, r, s.Redirect, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthorized rejects requests without a valid admin token with 401.
func (g *Guard) RequireAuthorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.Authorize(r); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type passkeyRequest struct {
	Passkey string `json:"passkey"`
}

// LoginHandler accepts the typed passkey as JSON or a form field and, when it
// matches exactly as typed, stores the encrypted token in the accessKey cookie.
func (g *Guard) LoginHandler(secure bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var passkey string
		if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			var req passkeyRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "could not parse JSON", http.StatusBadRequest)
				return
			}
			passkey = req.Passkey
		} else {
			passkey = r.FormValue("passkey")
		}

		token, ok, err := g.Issue(passkey)
		if err != nil {
			g.log.Error("issue admin token", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "invalid passkey", http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	}
}

// LogoutHandler drops the accessKey cookie.
func (g *Guard) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
