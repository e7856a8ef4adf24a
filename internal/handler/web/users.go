package web

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/handidevproject/pos-dashboard/internal/middleware"
	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/pkg/pagination"
	"github.com/handidevproject/pos-dashboard/internal/pkg/response"
	"github.com/handidevproject/pos-dashboard/internal/repository"
	"github.com/handidevproject/pos-dashboard/internal/validation"
	"github.com/handidevproject/pos-dashboard/templates/pages"
)

const recentUsers = 5

// Dashboard renders the home page.
func (h *WebHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := pages.DashboardData{}

	profiles, err := h.profiles(w, r)
	if err == nil {
		var list *models.ProfileList
		list, err = h.userService.ListUsers(r.Context(), profiles, repository.ProfileQuery{
			Page: pagination.New().WithLimit(recentUsers),
		})
		if err == nil {
			data.TotalUsers = list.Total
			data.Recent = list.Profiles
		}
	}
	if err != nil {
		middleware.IncrementProviderErrors("list_profiles")
		h.logger.Warn("dashboard without user stats", slog.String("error", err.Error()))
	}

	data.Layout = h.layout(w, r, "Dashboard")
	templ.Handler(pages.DashboardPage(data)).ServeHTTP(w, r)
}

// listUsers loads the rows selected by the request's q, page and limit.
func (h *WebHandler) listUsers(w http.ResponseWriter, r *http.Request) (pages.UserRowsData, error) {
	q := r.URL.Query()
	rows := pages.UserRowsData{
		Search: q.Get("q"),
		Page:   pagination.FromQuery(q),
	}

	profiles, err := h.profiles(w, r)
	if err != nil {
		return rows, err
	}
	list, err := h.userService.ListUsers(r.Context(), profiles, repository.ProfileQuery{Search: rows.Search, Page: rows.Page})
	if err != nil {
		return rows, err
	}
	// A page past the end shows the last page instead.
	if clamped := rows.Page.Clamp(list.Total); list.Total > 0 && clamped != rows.Page {
		rows.Page = clamped
		list, err = h.userService.ListUsers(r.Context(), profiles, repository.ProfileQuery{Search: rows.Search, Page: rows.Page})
		if err != nil {
			return rows, err
		}
	}

	rows.Profiles = list.Profiles
	rows.Total = list.Total
	return rows, nil
}

// UsersPage renders the users page.
func (h *WebHandler) UsersPage(w http.ResponseWriter, r *http.Request) {
	rows, err := h.listUsers(w, r)
	layout := h.layout(w, r, "Users")
	if err != nil {
		middleware.IncrementProviderErrors("list_profiles")
		h.logger.Warn("failed to list users", slog.String("error", err.Error()))
		layout.Flash, layout.FlashKind = "Users could not be loaded", "error"
	}

	data := pages.UsersPageData{
		Layout: layout,
		Rows:   rows,
		Form:   pages.UserFormData{State: models.Idle(), Roles: models.Roles},
	}
	templ.Handler(pages.UsersPage(data)).ServeHTTP(w, r)
}

// UserRows renders the users table partial for search and pagination.
func (h *WebHandler) UserRows(w http.ResponseWriter, r *http.Request) {
	rows, err := h.listUsers(w, r)
	if err != nil {
		h.handleError(w, r, "list_profiles", err)
		return
	}
	templ.Handler(pages.UserRows(rows)).ServeHTTP(w, r)
}

// UsersData returns the users page as JSON.
func (h *WebHandler) UsersData(w http.ResponseWriter, r *http.Request) {
	rows, err := h.listUsers(w, r)
	if err != nil {
		h.handleError(w, r, "list_profiles", err)
		return
	}

	profiles := rows.Profiles
	if profiles == nil {
		profiles = []models.Profile{}
	}
	response.JSONWithMeta(w, http.StatusOK, profiles, &response.Meta{
		Page:       rows.Page.Page,
		Limit:      rows.Page.Limit,
		Total:      rows.Total,
		TotalPages: rows.TotalPages(),
	})
}

// CreateUser handles the create user form.
func (h *WebHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	fd, err := validation.FormDataFromRequest(r, h.cfg.MaxUploadBytes)
	if err != nil {
		h.renderUserForm(w, r, "", fd, models.Failed(map[string][]string{validation.FormKey: {"Invalid form data"}}))
		return
	}

	admin, err := h.serverClient(w, r, true)
	if err != nil {
		h.handleError(w, r, "create_user", err)
		return
	}

	st := h.userService.CreateUser(r.Context(), admin.Auth, models.Idle(), fd)
	if st.Status() != models.StatusSuccess {
		if st.HasError(validation.FormKey) {
			middleware.IncrementProviderErrors("sign_up")
		}
		h.renderUserForm(w, r, "", fd, st)
		return
	}

	middleware.IncrementUsersCreated()
	if !isHTMX(r) {
		h.setFlash(w, r, "success", "User created")
		redirect(w, r, "/admin/user")
		return
	}
	toast(w, "success", "User created", "user-changed")
	h.renderUserForm(w, r, "", validation.FormData{}, models.Idle())
}

// UpdateUser handles the edit user form.
func (h *WebHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	fd, err := validation.FormDataFromRequest(r, h.cfg.MaxUploadBytes)
	if err != nil {
		h.renderUserForm(w, r, id.String(), fd, models.Failed(map[string][]string{validation.FormKey: {"Invalid form data"}}))
		return
	}

	admin, err := h.serverClient(w, r, true)
	if err != nil {
		h.handleError(w, r, "update_user", err)
		return
	}

	st := h.userService.UpdateUser(r.Context(), admin.Admin, repository.NewProfileRepository(admin), id, models.Idle(), fd)
	if st.Status() == models.StatusSuccess {
		if !isHTMX(r) {
			h.setFlash(w, r, "success", "User updated")
			redirect(w, r, "/admin/user")
			return
		}
		toast(w, "success", "User updated", "user-changed")
	}
	h.renderUserForm(w, r, id.String(), fd, st)
}

// DeleteUser removes a user. htmx swaps the row out with the empty body.
func (h *WebHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	if user := middleware.UserFromContext(r.Context()); user != nil && user.ID == id.String() {
		response.BadRequest(w, "You cannot delete your own account")
		return
	}

	admin, err := h.serverClient(w, r, true)
	if err != nil {
		h.handleError(w, r, "delete_user", err)
		return
	}

	if err := h.userService.DeleteUser(r.Context(), admin.Admin, id); err != nil {
		h.handleError(w, r, "delete_user", err)
		return
	}

	if isHTMX(r) {
		toast(w, "success", "User deleted")
		w.WriteHeader(http.StatusOK)
		return
	}
	response.NoContent(w)
}

// EditUser renders the edit form filled from the stored profile.
func (h *WebHandler) EditUser(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r, "get_profile")
	if !ok {
		return
	}

	values := url.Values{
		"name":       {profile.Name},
		"role":       {profile.Role},
		"avatar_url": {profile.AvatarURL},
	}
	form := pages.UserFormData{ID: profile.ID.String(), Values: values, State: models.Idle(), Roles: models.Roles}
	renderForm(w, r, pages.UserForm(form), form.State)
}

// UserData returns one profile as JSON.
func (h *WebHandler) UserData(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.loadProfile(w, r, "get_profile")
	if !ok {
		return
	}
	response.OK(w, profile)
}

// loadProfile reads the profile named by the id path parameter. It writes the
// error response itself and reports false when there is no profile.
func (h *WebHandler) loadProfile(w http.ResponseWriter, r *http.Request, op string) (*models.Profile, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return nil, false
	}

	profiles, err := h.profiles(w, r)
	if err != nil {
		h.handleError(w, r, op, err)
		return nil, false
	}
	profile, err := h.userService.GetUser(r.Context(), profiles, id)
	if err != nil {
		h.handleError(w, r, op, err)
		return nil, false
	}
	return profile, true
}

func (h *WebHandler) renderUserForm(w http.ResponseWriter, r *http.Request, id string, fd validation.FormData, st models.FormState) {
	values := fd.Values
	if values != nil {
		values = cloneWithoutSecrets(values)
	}
	form := pages.UserFormData{ID: id, Values: values, State: st, Roles: models.Roles}
	renderForm(w, r, pages.UserForm(form), st)
}

// cloneWithoutSecrets copies submitted values for re-rendering, dropping the password.
func cloneWithoutSecrets(values map[string][]string) map[string][]string {
	out := make(map[string][]string, len(values))
	for k, v := range values {
		if k == "password" {
			continue
		}
		out[k] = v
	}
	return out
}
