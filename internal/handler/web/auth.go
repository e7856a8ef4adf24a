package web

import (
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/validation"
	"github.com/handidevproject/pos-dashboard/templates/pages"
)

// LoginPage renders the login page.
func (h *WebHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	data := pages.LoginPageData{
		Layout:    h.layout(w, r, "Sign in"),
		State:     models.Idle(),
		Providers: h.cfg.Auth.OAuthProviders,
	}
	templ.Handler(pages.LoginPage(data)).ServeHTTP(w, r)
}

// Login handles the login form submission.
func (h *WebHandler) Login(w http.ResponseWriter, r *http.Request) {
	fd, err := validation.FormDataFromRequest(r, h.cfg.MaxUploadBytes)
	if err != nil {
		h.renderLogin(w, r, "", models.Failed(map[string][]string{validation.FormKey: {"Invalid form data"}}))
		return
	}

	client, err := h.serverClient(w, r, false)
	if err != nil {
		h.handleError(w, r, "login", err)
		return
	}

	st := h.authService.Login(r.Context(), client.Auth, models.Idle(), fd)
	if st.Status() != models.StatusSuccess {
		h.renderLogin(w, r, fd.Get("email"), st)
		return
	}
	redirect(w, r, h.cfg.Auth.HomePath)
}

func (h *WebHandler) renderLogin(w http.ResponseWriter, r *http.Request, email string, st models.FormState) {
	data := pages.LoginPageData{
		Email:     email,
		State:     st,
		Providers: h.cfg.Auth.OAuthProviders,
	}
	if isHTMX(r) {
		renderForm(w, r, pages.LoginForm(data), st)
		return
	}
	data.Layout = h.layout(w, r, "Sign in")
	renderForm(w, r, pages.LoginPage(data), st)
}

// Logout ends the session and goes back to the login page.
func (h *WebHandler) Logout(w http.ResponseWriter, r *http.Request) {
	client, err := h.serverClient(w, r, false)
	if err != nil {
		h.handleError(w, r, "logout", err)
		return
	}

	if err := h.authService.Logout(r.Context(), client.Auth); err != nil {
		h.setFlash(w, r, "error", "Sign out did not reach the server, your local session was cleared")
	} else {
		h.setFlash(w, r, "success", "Signed out")
	}
	redirect(w, r, h.cfg.Auth.LoginPath)
}

// OAuthStart initiates the OAuth flow for the given provider.
func (h *WebHandler) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	if !slices.Contains(h.cfg.Auth.OAuthProviders, provider) {
		h.setFlash(w, r, "error", "Sign-in provider is not available")
		redirect(w, r, h.cfg.Auth.LoginPath)
		return
	}

	client, err := h.serverClient(w, r, false)
	if err != nil {
		h.handleError(w, r, "oauth_start", err)
		return
	}

	authURL, err := client.Auth.OAuthURL(provider, h.siteURL(r)+"/auth/callback")
	if err != nil {
		h.logger.Error("failed to start oauth", slog.String("provider", provider), slog.String("error", err.Error()))
		h.setFlash(w, r, "error", "Failed to start sign-in")
		redirect(w, r, h.cfg.Auth.LoginPath)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// OAuthCallback finishes the OAuth flow by exchanging the code for a session.
func (h *WebHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if desc := q.Get("error_description"); desc != "" || q.Get("error") != "" {
		if desc == "" {
			desc = q.Get("error")
		}
		h.setFlash(w, r, "error", desc)
		redirect(w, r, h.cfg.Auth.LoginPath)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.setFlash(w, r, "error", "Sign-in was not completed")
		redirect(w, r, h.cfg.Auth.LoginPath)
		return
	}

	client, err := h.serverClient(w, r, false)
	if err != nil {
		h.handleError(w, r, "oauth_callback", err)
		return
	}

	if _, err := client.Auth.ExchangeCodeForSession(r.Context(), code); err != nil {
		h.logger.Warn("oauth code exchange failed", slog.String("error", err.Error()))
		h.setFlash(w, r, "error", "Sign-in failed, try again")
		redirect(w, r, h.cfg.Auth.LoginPath)
		return
	}

	redirect(w, r, h.cfg.Auth.HomePath)
}

// siteURL is the public origin used for OAuth redirects.
func (h *WebHandler) siteURL(r *http.Request) string {
	if h.cfg.Auth.SiteURL != "" {
		return strings.TrimRight(h.cfg.Auth.SiteURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
