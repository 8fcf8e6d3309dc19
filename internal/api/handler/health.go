package handler

import (
	"net/http"

	"github.com/agrilok/crop-assist/internal/api/response"
	"github.com/agrilok/crop-assist/internal/repository/mongo"
	"github.com/agrilok/crop-assist/internal/repository/postgres"
)

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including datastore connectivity
func ReadyCheck(db *postgres.DB, mongoClient *mongo.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "database not ready")
			return
		}
		if err := mongoClient.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "attachment store not ready")
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}
