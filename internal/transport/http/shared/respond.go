package shared

import (
	"encoding/json"
	"net/http"

	dErrors "attestor/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Internal
// errors omit the description so storage details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if msg := dErrors.MessageOf(err); msg != "" {
			body["error_description"] = msg
		}
	}
	WriteJSON(w, dErrors.HTTPStatus(code), body)
}

// Decode reads the request body into dst. Returns a bad-request domain error
// on malformed JSON.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
