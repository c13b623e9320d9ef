package builtins

import (
	"net/http"

	"github.com/Ryan-Har/truckbook/pkg/enforcer"
	"github.com/Ryan-Har/truckbook/pkg/flash"
	"github.com/Ryan-Har/truckbook/pkg/models"
	"github.com/Ryan-Har/truckbook/web/templates"
)

const (
	msgSignedUp        = "welcome aboard, your account is ready"
	msgLoggedIn        = "you are now logged in"
	msgLoggedOut       = "you have been logged out"
	msgLoggedOutAll    = "you have been logged out on every device"
	msgPasswordsDiffer = "passwords do not match"
)

func (h *Handler) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// "/" is the catch-all pattern
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/signup", http.StatusFound)
	}
}

// redirectIfSignedIn sends callers with a live session straight home.
func redirectIfSignedIn(w http.ResponseWriter, r *http.Request) bool {
	if p, ok := enforcer.PrincipalFrom(r.Context()); ok && p.Session != nil {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return true
	}
	return false
}

func (h *Handler) handleSignupGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redirectIfSignedIn(w, r) {
			return
		}
		h.render(w, r, http.StatusOK, "Sign up", h.flashes.Pop(w, r), templates.SignupPage(""))
	}
}

func (h *Handler) handleSignupPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			h.log.DebugContext(r.Context(), "parsing form from POST /signup", "err", err)
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		email := r.PostFormValue("email")
		password := r.PostFormValue("password")
		confirm := r.PostFormValue("confirm")

		var notices flash.Notices
		if password != confirm {
			notices.Error(msgPasswordsDiffer)
			h.render(w, r, http.StatusUnprocessableEntity, "Sign up", notices, templates.SignupPage(email))
			return
		}

		sesh, err := h.auth.SignUp(r.Context(), email, password, clientOf(r))
		if err != nil {
			status, msg := outcome(err)
			notices.Error(msg)
			h.render(w, r, status, "Sign up", notices, templates.SignupPage(email))
			return
		}

		h.setSessionCookie(w, sesh)
		notices.Success(msgSignedUp)
		h.flashes.Set(w, notices)
		http.Redirect(w, r, "/home", http.StatusSeeOther)
	}
}

func (h *Handler) handleLoginGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redirectIfSignedIn(w, r) {
			return
		}
		h.render(w, r, http.StatusOK, "Log in", h.flashes.Pop(w, r), templates.LoginPage(""))
	}
}

func (h *Handler) handleLoginPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			h.log.DebugContext(r.Context(), "parsing form from POST /login", "err", err)
			http.Error(w, "invalid form", http.StatusBadRequest)
			return
		}

		email := r.PostFormValue("email")
		password := r.PostFormValue("password")

		var notices flash.Notices
		sesh, _, err := h.auth.Login(r.Context(), email, password, clientOf(r))
		if err != nil {
			status, msg := outcome(err)
			notices.Error(msg)
			h.render(w, r, status, "Log in", notices, templates.LoginPage(email))
			return
		}

		// Replace whatever session the browser held before
		if old, err := r.Cookie(h.cookie.Name); err == nil && old.Value != "" && old.Value != sesh.ID {
			if err := h.auth.Logout(r.Context(), old.Value); err != nil {
				h.log.WarnContext(r.Context(), "unable to revoke previous session", "err", err)
			}
		}

		h.setSessionCookie(w, sesh)
		notices.Success(msgLoggedIn)
		h.flashes.Set(w, notices)
		http.Redirect(w, r, "/home", http.StatusSeeOther)
	}
}

// handleLogout always clears the cookie and lands on /login. ?all=1 revokes
// every session of the signed-in account.
func (h *Handler) handleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var notices flash.Notices
		var err error

		p, signedIn := enforcer.PrincipalFrom(r.Context())
		switch {
		case r.URL.Query().Get("all") == "1" && signedIn:
			err = h.auth.LogoutEverywhere(r.Context(), p.AccountID)
			if err == nil {
				notices.Success(msgLoggedOutAll)
			}
		default:
			var token string
			if c, cErr := r.Cookie(h.cookie.Name); cErr == nil {
				token = c.Value
			}
			err = h.auth.Logout(r.Context(), token)
			if err == nil {
				notices.Success(msgLoggedOut)
			}
		}
		if err != nil {
			notices.Error(models.PublicPersistenceMessage)
		}

		h.clearSessionCookie(w)
		h.flashes.Set(w, notices)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

func (h *Handler) handleHomeGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := enforcer.PrincipalFrom(r.Context())
		if !ok {
			// Only reachable if the route was registered without its policy
			h.log.ErrorContext(r.Context(), "home reached without a principal", "path", r.URL.Path)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		h.render(w, r, http.StatusOK, "Home", h.flashes.Pop(w, r), templates.HomePage(p.Email))
	}
}
