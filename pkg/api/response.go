package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// routeError is the body of 404 and 405 replies, which chi produces before
// any handler runs. It shares the status/timestamp envelope of the handlers.
type routeError struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error"`
}

func writeRouteError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(routeError{
		Status:    "error",
		Timestamp: time.Now().UTC(),
		Error:     msg,
	})
}
