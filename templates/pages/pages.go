// Package pages renders the dashboard's HTML pages and htmx partials as templ
// components.
package pages

import (
	"context"
	"embed"
	"html/template"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/pkg/pagination"
)

//go:embed html/*.html
var files embed.FS

var tmpl = template.Must(template.New("pages").Funcs(template.FuncMap{
	"errs": func(st models.FormState, field string) []string { return st.FieldErrors(field) },
	"date": func(p models.Profile) string { return p.CreatedAt.Format("2006-01-02") },
}).ParseFS(files, "html/*.html"))

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return tmpl.ExecuteTemplate(w, name, data)
	})
}

// Layout is the page chrome shared by every full page.
type Layout struct {
	Title     string
	User      *UserView
	Flash     string
	FlashKind string // success, error
}

// UserView is the signed-in user shown in the header.
type UserView struct {
	Name      string
	Email     string
	AvatarURL string
}

// Initials returns the placeholder letters for the user's avatar.
func (u UserView) Initials() string {
	name := u.Name
	if name == "" {
		name = u.Email
	}
	return models.Profile{Name: name}.Initials()
}

// LoginPageData is the data of the login page.
type LoginPageData struct {
	Layout
	Email     string
	State     models.FormState
	Providers []string
}

// LoginPage renders the login page.
func LoginPage(data LoginPageData) templ.Component {
	return render("login", data)
}

// LoginForm renders the login form alone, for htmx re-renders.
func LoginForm(data LoginPageData) templ.Component {
	return render("login_form", data)
}

// DashboardData is the data of the home page.
type DashboardData struct {
	Layout
	TotalUsers int64
	Recent     []models.Profile
}

// DashboardPage renders the home page.
func DashboardPage(data DashboardData) templ.Component {
	return render("dashboard", data)
}

// UserFormData is the create or edit user form. ID is empty when creating.
type UserFormData struct {
	ID     string
	Values url.Values
	State  models.FormState
	Roles  []string
}

// Action returns the form's target URL.
func (f UserFormData) Action() string {
	if f.ID == "" {
		return "/admin/user"
	}
	return "/admin/user/" + f.ID
}

// Value returns a previously submitted value.
func (f UserFormData) Value(field string) string {
	return f.Values.Get(field)
}

// UserForm renders the create or edit form.
func UserForm(data UserFormData) templ.Component {
	return render("user_form", data)
}

// UserRowsData is one page of the users table.
type UserRowsData struct {
	Profiles []models.Profile
	Search   string
	Page     pagination.State
	Total    int64
}

// TotalPages returns the page count, at least 1.
func (d UserRowsData) TotalPages() int {
	return d.Page.TotalPages(d.Total)
}

// HasPrev reports whether a previous page exists.
func (d UserRowsData) HasPrev() bool {
	return d.Page.HasPrev()
}

// HasNext reports whether a next page exists.
func (d UserRowsData) HasNext() bool {
	return d.Page.HasNext(d.Total)
}

// PageURL returns the rows URL of page p.
func (d UserRowsData) PageURL(p int) string {
	return d.url(d.Page.WithPage(p))
}

// PrevURL returns the rows URL of the previous page.
func (d UserRowsData) PrevURL() string {
	return d.PageURL(d.Page.Page - 1)
}

// NextURL returns the rows URL of the next page.
func (d UserRowsData) NextURL() string {
	return d.PageURL(d.Page.Page + 1)
}

// LimitURL returns the rows URL for page size l. It starts on the first page.
func (d UserRowsData) LimitURL(l int) string {
	return d.url(d.Page.WithLimit(l))
}

// Limits returns the page sizes of the limit selector.
func (d UserRowsData) Limits() []int {
	return pagination.Limits
}

// Showing returns the "from-to of total" label.
func (d UserRowsData) Showing() string {
	total := strconv.FormatInt(d.Total, 10)
	if len(d.Profiles) == 0 {
		return "0 of " + total
	}
	from, _ := d.Page.Range()
	to := from + len(d.Profiles)
	return strconv.Itoa(from+1) + "-" + strconv.Itoa(to) + " of " + total
}

func (d UserRowsData) url(s pagination.State) string {
	base := url.Values{}
	if d.Search != "" {
		base.Set("q", d.Search)
	}
	return "/admin/user/rows?" + s.Values(base).Encode()
}

// UserRows renders the users table body with its pagination controls.
func UserRows(data UserRowsData) templ.Component {
	return render("user_rows", data)
}

// UsersPageData is the data of the users page.
type UsersPageData struct {
	Layout
	Rows UserRowsData
	Form UserFormData
}

// UsersPage renders the users page.
func UsersPage(data UsersPageData) templ.Component {
	return render("users", data)
}
