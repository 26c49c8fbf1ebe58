package response

import (
	"encoding/json"
	"net/http"
)

// RenderJSON writes v as a JSON body with the given status
func RenderJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RenderOK writes {"ok": true} with extra fields merged in
func RenderOK(w http.ResponseWriter, fields map[string]interface{}) {
	body := map[string]interface{}{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	RenderJSON(w, http.StatusOK, body)
}
