package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/booktrack/server/apperr"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: encode response: %v", err)
	}
}

// writeError maps a service error to an HTTP response. Typed errors carry
// their own status and a message safe to show; anything else is logged and
// returned as an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.HTTPStatus(), map[string]string{"error": appErr.Message})
		return
	}
	log.Printf("handlers: internal error: %v", err)
	http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		http.Error(w, `{"error":"validation failed: `+validationDetail(err)+`"}`, http.StatusBadRequest)
		return false
	}
	return true
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field() + " " + verrs[0].Tag()
	}
	return "invalid fields"
}
