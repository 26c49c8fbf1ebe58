package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/conduit-lang/boardstore/internal/errs"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// StatusOf maps an error to its HTTP status by kind
func StatusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.KindConfig:
		return http.StatusBadRequest
	case errs.KindDataShape:
		return http.StatusUnprocessableEntity
	case errs.KindIO:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RenderError renders err with the status of its kind. Classified errors
// report their own code.
func RenderError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	code := errs.CodeOf(err)
	if code == "" {
		code = errorCodeFromStatus(status)
	}
	RenderErrorWithCode(w, status, err, code)
}

// RenderErrorWithCode renders an error with a specific error code
func RenderErrorWithCode(w http.ResponseWriter, statusCode int, err error, code string) {
	if code == "" {
		code = errorCodeFromStatus(statusCode)
	}

	response := &ErrorResponse{
		Error:   errs.KindOf(err).String(),
		Message: err.Error(),
		Code:    code,
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, message string) {
	RenderErrorWithCode(w, http.StatusBadRequest, fmt.Errorf("%s", message), "")
}

// RenderInternalError renders a 500 Internal Server Error
func RenderInternalError(w http.ResponseWriter, err error) {
	message := "Internal server error"
	if err != nil {
		message = err.Error()
	}
	RenderErrorWithCode(w, http.StatusInternalServerError, fmt.Errorf("%s", message), "")
}

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusBadGateway:
		return "bad_gateway"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}
