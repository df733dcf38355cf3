// Package httputil provides the JSON response helpers shared by every HTTP
// handler.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "http")

// ErrorJson is the error response body: {"error": "<reason>"}.
type ErrorJson struct {
	Error string `json:"error"`
}

// HandleError writes an error response with the given status code.
func HandleError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(&ErrorJson{Error: message}); err != nil {
		log.WithError(err).Error("Could not write error response")
	}
}

// WriteJson writes data as a 200 JSON response.
func WriteJson(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("Could not write JSON response")
	}
}
