package response

import (
	"encoding/json"
	"net/http"
)

// Error kinds used as the key of the error object, e.g.
// {"error": {"Not Found": "..."}}.
const (
	KindNotFound            = "Not Found"
	KindBadRequest          = "Bad Request"
	KindValidation          = "Validation Error"
	KindUnauthenticated     = "Unauthenticated"
	KindInvalidIdentity     = "Invalid Identity"
	KindIdentityUnreachable = "Identity Unreachable"
	KindCalendarRejected    = "Calendar Rejected"
	KindCalendarUnreachable = "Calendar Unreachable"
	KindInternal            = "Internal Error"
)

func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func Error(w http.ResponseWriter, status int, kind, message string) {
	JSON(w, status, map[string]map[string]string{
		"error": {kind: message},
	})
}
