package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/diewo77/housing-app/internal/httpx"
)

var validate = validator.New()

var likeSanitizer = regexp.MustCompile(`[^a-zA-Z0-9 @.\-_]`)

// listParams reads the pagination query params shared by every list screen.
func listParams(r *http.Request) (limit, offset int, q string) {
	limit = 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	q = strings.TrimSpace(r.URL.Query().Get("q"))
	return
}

// searchLike builds a sanitized case-insensitive LIKE pattern.
func searchLike(q string) string {
	safe := likeSanitizer.ReplaceAllString(q, "")
	return "%" + strings.ToLower(safe) + "%"
}

// decodeJSON decodes the body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return false
	}
	return true
}

// validateStruct runs validator tags over dst, writing a 400 with per-field
// details on failure.
func validateStruct(w http.ResponseWriter, dst any) bool {
	err := validate.Struct(dst)
	if err == nil {
		return true
	}
	details := map[string]string{}
	if errs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range errs {
			details[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	httpx.JSONError(w, http.StatusBadRequest, "validation_failed", details)
	return false
}

// idQuery reads the ?id= query param shared by the update/delete endpoints.
func idQuery(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := r.URL.Query().Get("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}
