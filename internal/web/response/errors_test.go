package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/conduit-lang/boardstore/internal/errs"
)

func TestRenderError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		errorKey string
	}{
		{"config", errs.Config(errs.CodeUnknownBoard, "unknown board %q", "x"), http.StatusBadRequest, "unknown_board", "config"},
		{"wrapped config", fmt.Errorf("parse: %w", errs.Config(errs.CodeUnknownOperator, "bad")), http.StatusBadRequest, "unknown_operator", "config"},
		{"data shape", errs.DataShape("bad_date", "not a date"), http.StatusUnprocessableEntity, "bad_date", "data_shape"},
		{"io", errs.IO(errs.CodeFindFailed, errors.New("timeout"), "find"), http.StatusBadGateway, "find_failed", "io"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal_error", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RenderError(w, tt.err)

			if w.Code != tt.status {
				t.Errorf("status code = %v, want %v", w.Code, tt.status)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Code != tt.code {
				t.Errorf("code = %v, want %v", resp.Code, tt.code)
			}
			if resp.Error != tt.errorKey {
				t.Errorf("error = %v, want %v", resp.Error, tt.errorKey)
			}
			if resp.Message != tt.err.Error() {
				t.Errorf("message = %v, want %v", resp.Message, tt.err.Error())
			}
		})
	}
}

func TestRenderErrorWithCode(t *testing.T) {
	w := httptest.NewRecorder()
	RenderErrorWithCode(w, http.StatusBadRequest, fmt.Errorf("custom error"), "custom_code")

	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)

	if resp.Code != "custom_code" {
		t.Errorf("code = %v, want 'custom_code'", resp.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %v", ct)
	}
}

func TestRenderBadRequest(t *testing.T) {
	w := httptest.NewRecorder()
	RenderBadRequest(w, "missing key")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %v, want %v", w.Code, http.StatusBadRequest)
	}
	var resp ErrorResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != "bad_request" || resp.Message != "missing key" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestRenderOK(t *testing.T) {
	w := httptest.NewRecorder()
	RenderOK(w, map[string]interface{}{"count": 2})

	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["ok"] != true || body["count"] != float64(2) {
		t.Errorf("unexpected body %v", body)
	}
}
