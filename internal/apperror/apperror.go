// Package apperror provides the error types shared by the upstream clients and
// the mapping of validation errors into loggable field lists.
package apperror

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	errRequired = errors.New("is required")
	errNotURL   = errors.New("must be a valid URL")
)

var customErrors = map[string]error{
	"CallEvent.Event.required":          errRequired,
	"CallEvent.Data.ID.required":        errRequired,
	"Config.PipedriveAPIToken.required": errRequired,
	"Config.AircallAPIID.required":      errRequired,
	"Config.AircallAPIToken.required":   errRequired,
	"Config.PipedriveBaseURL.url":       errNotURL,
	"Config.PipedriveAppURL.url":        errNotURL,
	"Config.AircallBaseURL.url":         errNotURL,
}

// CustomValidationError converts validator errors into a list of {field: message} pairs.
func CustomValidationError(err error) []map[string]string {
	errList := make([]map[string]string, 0)

	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		return errList
	}

	for _, e := range validationErr {
		field := e.StructNamespace()
		key := field + "." + e.Tag()

		errMsg := fmt.Sprintf("%s is invalid", field)
		if v, ok := customErrors[key]; ok {
			errMsg = v.Error()
		}

		errList = append(errList, map[string]string{e.Field(): errMsg})
	}
	return errList
}

// APIError is returned when an upstream REST API answers with a non-2xx status.
type APIError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s %s: HTTP %d", e.Service, e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s %s: HTTP %d: %s", e.Service, e.Method, e.Path, e.StatusCode, e.Body)
}

// StatusCode returns the upstream status carried by err, or 0 when err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
