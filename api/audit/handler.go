// Package audit exposes the audit trail over HTTP.
package audit

import (
	"encoding/json"
	"net/http"
	"time"

	coreaudit "github.com/kilianp07/walletfactory/core/audit"
	"github.com/kilianp07/walletfactory/core/model"
)

// NewHandler returns an HTTP handler exposing audit records via GET /api/audit.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewHandler(store coreaudit.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		params := r.URL.Query()
		q := coreaudit.Query{
			Operation: params.Get("operation"),
			Outcome:   params.Get("outcome"),
		}
		if s := params.Get("start"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.Start = t
			}
		}
		if s := params.Get("end"); s != "" {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				q.End = t
			}
		}
		if s := params.Get("user"); s != "" {
			u, err := model.ParseUserID(s)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			q.User = u
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []coreaudit.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
