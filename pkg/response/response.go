// Package response writes JSON bodies and error problems for plain
// http.Handlers. Handlers built on pkg/ctx get the same shapes through
// Context.JSON and Context.Fail.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Problem is the error body returned by every endpoint.
type Problem struct {
	Status   int                 `json:"status"`
	Title    string              `json:"title"`
	Detail   string              `json:"detail"`
	Instance string              `json:"instance"`
	Errors   map[string][]string `json:"errors,omitempty"`
}

// ProblemError is implemented by errors that know how they should be shown.
type ProblemError interface {
	error
	HTTPStatus() int
	Title() string
	Detail() string
	FieldErrors() map[string][]string
}

const (
	titleInternal   = "An error occurred while processing your request"
	detailInternal  = "An unexpected error occurred."
	titleValidation = "Validation Error"
)

// NewProblem builds the body for err. Errors that do not implement
// ProblemError become an opaque 500.
func NewProblem(r *http.Request, err error) Problem {
	p := Problem{
		Status:   http.StatusInternalServerError,
		Title:    titleInternal,
		Detail:   detailInternal,
		Instance: r.URL.Path,
	}
	var pe ProblemError
	if errors.As(err, &pe) {
		p.Status = pe.HTTPStatus()
		p.Title = pe.Title()
		p.Detail = pe.Detail()
		if fe := pe.FieldErrors(); len(fe) > 0 {
			p.Errors = fe
		}
	}
	return p
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// Error writes the problem for err.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	p := NewProblem(r, err)
	JSON(w, p.Status, p)
}

// ValidationError sends a 400 with field-level errors.
func ValidationError(w http.ResponseWriter, r *http.Request, detail string, errs map[string][]string) {
	JSON(w, http.StatusBadRequest, Problem{
		Status:   http.StatusBadRequest,
		Title:    titleValidation,
		Detail:   detail,
		Instance: r.URL.Path,
		Errors:   errs,
	})
}

// Unauthorized sends a 401.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	JSON(w, http.StatusUnauthorized, Problem{
		Status:   http.StatusUnauthorized,
		Title:    "Unauthorized",
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// Forbidden sends a 403.
func Forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	JSON(w, http.StatusForbidden, Problem{
		Status:   http.StatusForbidden,
		Title:    "Forbidden",
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// Conflict sends a 409.
func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	JSON(w, http.StatusConflict, Problem{
		Status:   http.StatusConflict,
		Title:    "Conflict",
		Detail:   detail,
		Instance: r.URL.Path,
	})
}

// InternalError sends an opaque 500.
func InternalError(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusInternalServerError, Problem{
		Status:   http.StatusInternalServerError,
		Title:    titleInternal,
		Detail:   detailInternal,
		Instance: r.URL.Path,
	})
}

// NotFound sends a 404 for unmatched routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusNotFound, Problem{
		Status:   http.StatusNotFound,
		Title:    "Resource Not Found",
		Detail:   "No route matches " + r.Method + " " + r.URL.Path + ".",
		Instance: r.URL.Path,
	})
}

// MethodNotAllowed sends a 405.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusMethodNotAllowed, Problem{
		Status:   http.StatusMethodNotAllowed,
		Title:    "Method Not Allowed",
		Detail:   r.Method + " is not supported on " + r.URL.Path + ".",
		Instance: r.URL.Path,
	})
}
