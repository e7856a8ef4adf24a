// Package web provides the HTTP handlers of the dashboard.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/handidevproject/pos-dashboard/internal/config"
	"github.com/handidevproject/pos-dashboard/internal/middleware"
	"github.com/handidevproject/pos-dashboard/internal/models"
	apierrors "github.com/handidevproject/pos-dashboard/internal/pkg/errors"
	"github.com/handidevproject/pos-dashboard/internal/pkg/response"
	"github.com/handidevproject/pos-dashboard/internal/repository"
	"github.com/handidevproject/pos-dashboard/internal/service"
	"github.com/handidevproject/pos-dashboard/internal/supabase"
	"github.com/handidevproject/pos-dashboard/templates/pages"
)

// FlashSessionName is the cookie holding one-shot messages between redirects.
const FlashSessionName = "pos_flash"

const defaultMaxUpload = 4 << 20

// Config holds what the handlers need from the application configuration.
type Config struct {
	Supabase       config.SupabaseConfig
	Auth           config.AuthConfig
	Cookie         supabase.CookieOptions
	MaxUploadBytes int64
}

// WebHandler handles HTTP requests for the web dashboard.
type WebHandler struct {
	cfg          Config
	httpClient   *http.Client
	authService  service.AuthService
	userService  service.UserService
	sessionStore sessions.Store
	logger       *slog.Logger
}

// NewWebHandler creates a new WebHandler. httpClient is shared by the
// per-request Supabase clients so they share one circuit breaker.
func NewWebHandler(
	cfg Config,
	httpClient *http.Client,
	authService service.AuthService,
	userService service.UserService,
	sessionStore sessions.Store,
	logger *slog.Logger,
) *WebHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.Auth.LoginPath == "" {
		cfg.Auth.LoginPath = "/login"
	}
	if cfg.Auth.HomePath == "" {
		cfg.Auth.HomePath = "/"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebHandler{
		cfg:          cfg,
		httpClient:   httpClient,
		authService:  authService,
		userService:  userService,
		sessionStore: sessionStore,
		logger:       logger,
	}
}

// Routes returns the chi router with all web routes configured. The session
// guard runs in front of it.
func (h *WebHandler) Routes() chi.Router {
	r := chi.NewRouter()

	fileServer := http.FileServer(http.Dir("static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/auth/callback", h.OAuthCallback)
	r.Get("/auth/{provider}", h.OAuthStart)

	r.Get("/", h.Dashboard)

	r.Route("/admin/user", func(r chi.Router) {
		r.Get("/", h.UsersPage)
		r.Get("/rows", h.UserRows)
		r.Get("/data", h.UsersData)
		r.Get("/data/{id}", h.UserData)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireRole(models.RoleAdmin))
			r.Post("/", h.CreateUser)
			r.Get("/{id}/edit", h.EditUser)
			r.Post("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
		})
	})

	return r
}

// RequireRole rejects users whose metadata role is not one of roles.
func (h *WebHandler) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := middleware.UserFromContext(r.Context())
			if user == nil {
				response.Unauthorized(w)
				return
			}
			if !slices.Contains(roles, user.MetadataString("role")) {
				h.logger.Warn("role rejected",
					slog.String("user_id", user.ID),
					slog.String("path", r.URL.Path),
				)
				response.Error(w, apierrors.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// serverClient creates the request-scoped Supabase client. The admin client
// uses the service role key and never touches the session cookies.
func (h *WebHandler) serverClient(w http.ResponseWriter, r *http.Request, admin bool) (*supabase.Client, error) {
	opts := []supabase.Option{supabase.WithLogger(h.logger)}
	if h.httpClient != nil {
		opts = append(opts, supabase.WithHTTPClient(h.httpClient))
	}
	return supabase.NewServerClient(
		h.cfg.Supabase,
		supabase.NewRequestCookies(w, r),
		supabase.ServerOptions{Admin: admin, Cookie: h.cfg.Cookie},
		opts...,
	)
}

// profiles returns the profile repository for the signed-in user.
func (h *WebHandler) profiles(w http.ResponseWriter, r *http.Request) (repository.ProfileRepository, error) {
	client, err := h.serverClient(w, r, false)
	if err != nil {
		return nil, err
	}
	return repository.NewProfileRepository(client), nil
}

// layout builds the page chrome, consuming any pending flash message.
func (h *WebHandler) layout(w http.ResponseWriter, r *http.Request, title string) pages.Layout {
	l := pages.Layout{Title: title}
	if user := middleware.UserFromContext(r.Context()); user != nil {
		l.User = &pages.UserView{
			Name:      user.MetadataString("name"),
			Email:     user.Email,
			AvatarURL: user.MetadataString("avatar_url"),
		}
	}
	l.FlashKind, l.Flash = h.popFlash(w, r)
	return l
}

func (h *WebHandler) setFlash(w http.ResponseWriter, r *http.Request, kind, message string) {
	session, _ := h.sessionStore.Get(r, FlashSessionName)
	session.AddFlash(kind+":"+message)
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to save flash", slog.String("error", err.Error()))
	}
}

func (h *WebHandler) popFlash(w http.ResponseWriter, r *http.Request) (kind, message string) {
	session, err := h.sessionStore.Get(r, FlashSessionName)
	if err != nil {
		return "", ""
	}
	flashes := session.Flashes()
	if len(flashes) == 0 {
		return "", ""
	}
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to clear flash", slog.String("error", err.Error()))
	}
	s, _ := flashes[0].(string)
	if kind, message, ok := strings.Cut(s, ":"); ok {
		return kind, message
	}
	return "success", s
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect navigates the browser, using HX-Redirect for htmx requests.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// renderForm renders a form result. Invalid submissions get 422 unless htmx
// asked, since htmx does not swap error responses.
func renderForm(w http.ResponseWriter, r *http.Request, c templ.Component, st models.FormState) {
	status := http.StatusOK
	if st.Status() == models.StatusError && !isHTMX(r) {
		status = http.StatusUnprocessableEntity
	}
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}

// toast asks the page to show a message and fires events on the body.
func toast(w http.ResponseWriter, kind, message string, events ...string) {
	trigger := map[string]any{"toast": map[string]string{"message": message, "type": kind}}
	for _, e := range events {
		trigger[e] = true
	}
	data, _ := json.Marshal(trigger)
	w.Header().Set("HX-Trigger", string(data))
}

// duplicateUserCodes are the GoTrue error codes for an email already in use.
var duplicateUserCodes = []string{"user_already_exists", "email_exists"}

// handleError writes err as a JSON error envelope, mapping provider failures.
func (h *WebHandler) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	middleware.IncrementProviderErrors(op)
	h.logger.Error("request failed",
		slog.String("op", op),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)

	var apiErr *apierrors.APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, supabase.ErrProviderUnavailable):
		apiErr = apierrors.ErrServiceUnavailable
	case errors.Is(err, repository.ErrProfileNotFound):
		apiErr = apierrors.ErrNotFound
	default:
		sbErr, ok := supabase.AsError(err)
		switch {
		case ok && slices.Contains(duplicateUserCodes, sbErr.Code):
			apiErr = apierrors.ErrConflict.WithMessage(sbErr.Message)
		case ok:
			apiErr = apierrors.NewProviderError(sbErr.StatusCode, sbErr.Code, sbErr.Message)
		default:
			apiErr = apierrors.ErrInternal
		}
	}

	if isHTMX(r) {
		toast(w, "error", apiErr.Message)
	}
	response.Error(w, apiErr)
}
