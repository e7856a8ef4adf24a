// Package validation holds the form schemas of the dashboard and turns
// validator failures into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "github.com/handidevproject/pos-dashboard/internal/pkg/errors"
)

// MaxAvatarBytes is the largest accepted avatar upload.
const MaxAvatarBytes = 2 << 20

// FieldErrors maps a form field to its messages. FormKey holds errors that
// belong to the whole form.
type FieldErrors map[string][]string

// FormKey is the key for general form errors.
const FormKey = apierrors.FormKey

// Add appends a message for field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// HasErrors reports whether any field carries a message.
func (fe FieldErrors) HasErrors() bool {
	for _, msgs := range fe {
		if len(msgs) > 0 {
			return true
		}
	}
	return false
}

// Error implements the error interface.
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for f, msgs := range fe {
		if len(msgs) > 0 {
			fields = append(fields, f)
		}
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their form name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// messages are the texts per validation tag. %s is the field label.
var messages = map[string]string{
	"required": "%s is required",
	"email":    "Invalid email format",
	"http_url": "%s must be a valid http(s) URL",
	"min":      "%s is too short",
	"max":      "%s is too long",
	"oneof":    "%s has an unknown value",
}

// labels are the human names of form fields.
var labels = map[string]string{
	"email":      "Email",
	"password":   "Password",
	"name":       "Name",
	"role":       "Role",
	"avatar_url": "Avatar",
	"avatar":     "Avatar",
}

func parseMessage(e validator.FieldError) string {
	label, ok := labels[e.Field()]
	if !ok {
		label = e.Field()
	}
	msg, ok := messages[e.Tag()]
	if !ok {
		return fmt.Sprintf("%s is invalid", label)
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, label)
	}
	return msg
}

// Struct validates s and returns its field errors. The validator stops at the
// first failing rule of a field, so each field gets one message.
func Struct(s any) FieldErrors {
	fe := FieldErrors{}

	err := validate.Struct(s)
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, e := range validationErrs {
			fe.Add(e.Field(), parseMessage(e))
		}
	} else if err != nil {
		fe.Add(FormKey, err.Error())
	}
	return fe
}

// FormData is an untyped form submission: text values plus uploaded files.
type FormData struct {
	Values url.Values
	Files  map[string][]*multipart.FileHeader
}

// FormDataFromRequest parses a url-encoded or multipart request body.
func FormDataFromRequest(r *http.Request, maxMemory int64) (FormData, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return FormData{}, fmt.Errorf("failed to parse multipart form: %w", err)
		}
		return FormData{Values: r.PostForm, Files: r.MultipartForm.File}, nil
	}

	if err := r.ParseForm(); err != nil {
		return FormData{}, fmt.Errorf("failed to parse form: %w", err)
	}
	return FormData{Values: r.PostForm}, nil
}

// Get returns the trimmed text value of field.
func (fd FormData) Get(field string) string {
	return strings.TrimSpace(fd.Values.Get(field))
}

// File returns the first non-empty upload of field, or nil.
func (fd FormData) File(field string) *multipart.FileHeader {
	for _, fh := range fd.Files[field] {
		if fh != nil && fh.Size > 0 {
			return fh
		}
	}
	return nil
}
