// Package models contains the data types shared by services and handlers.
package models

import (
	"encoding/json"
)

// FormStatus is the outcome of a form submission.
type FormStatus int

const (
	// StatusIdle means the form has not been submitted yet.
	StatusIdle FormStatus = iota
	// StatusSuccess means the submission was accepted.
	StatusSuccess
	// StatusError means validation or the provider rejected the submission.
	StatusError
)

func (s FormStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// FormState is threaded through validate, submit and re-render. Only the
// error state carries messages; the constructors keep it that way.
type FormState struct {
	status FormStatus
	errors map[string][]string
}

// Idle returns the state of an untouched form. The given fields start with
// empty message lists.
func Idle(fields ...string) FormState {
	errs := make(map[string][]string, len(fields))
	for _, f := range fields {
		errs[f] = []string{}
	}
	return FormState{status: StatusIdle, errors: errs}
}

// Success returns the state of an accepted submission.
func Success() FormState {
	return FormState{status: StatusSuccess, errors: map[string][]string{}}
}

// Failed returns an error state carrying errs.
func Failed(errs map[string][]string) FormState {
	copied := make(map[string][]string, len(errs))
	for k, v := range errs {
		copied[k] = append([]string{}, v...)
	}
	return FormState{status: StatusError, errors: copied}
}

// Status returns the outcome.
func (f FormState) Status() FormStatus {
	return f.status
}

// Errors returns a copy of the messages by field.
func (f FormState) Errors() map[string][]string {
	out := make(map[string][]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = append([]string{}, v...)
	}
	return out
}

// FieldErrors returns the messages of one field.
func (f FormState) FieldErrors(field string) []string {
	return f.errors[field]
}

// HasError reports whether field has a message.
func (f FormState) HasError(field string) bool {
	return len(f.errors[field]) > 0
}

// MarshalJSON encodes the state as {"status": ..., "errors": {...}}.
func (f FormState) MarshalJSON() ([]byte, error) {
	errs := f.errors
	if errs == nil {
		errs = map[string][]string{}
	}
	return json.Marshal(struct {
		Status string              `json:"status"`
		Errors map[string][]string `json:"errors"`
	}{
		Status: f.status.String(),
		Errors: errs,
	})
}
