package lifo

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewStatusHandler returns an HTTP handler that reports on dev:
//
//	GET /healthz  -> "ok"
//	GET /stats    -> DeviceStats as JSON
func NewStatusHandler(dev *Device) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, dev.Stats())
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
