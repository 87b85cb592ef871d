package booking

import (
	"encoding/json"
	"net/http"

	"github.com/keepitcut/booking-api/internal/catalog"
	"github.com/keepitcut/booking-api/pkg/logging"
)

// Version is reported by the health endpoint.
const Version = "1.2.0"

// Handler exposes the booking service over HTTP.
type Handler struct {
	svc          *Service
	environment  string
	locationName string
	locationID   string
	logger       *logging.Logger
}

// NewHandler creates the booking HTTP handler.
func NewHandler(svc *Service, environment, locationName, locationID string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:          svc,
		environment:  environment,
		locationName: locationName,
		locationID:   locationID,
		logger:       logger,
	}
}

// HandleBook processes POST /book. All booking outcomes, success or
// failure, respond 200 with the success flag in the body.
func (h *Handler) HandleBook(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid booking request body", "error", err)
		writeJSON(w, http.StatusBadRequest, BookResult{Success: false, Error: "invalid request body"})
		return
	}

	h.logger.Info("booking request received",
		"client_id", req.ClientID,
		"service", req.Service,
		"datetime", req.DateTime,
		"additional_services", len(req.AdditionalServices),
	)

	result := h.svc.Book(r.Context(), req)
	writeJSON(w, http.StatusOK, result)
}

// HealthCheck returns static status and location metadata.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"environment": h.environment,
		"location":    h.locationName,
		"location_id": h.locationID,
		"service":     "booking-api",
		"version":     Version,
	})
}

// ListServices returns the primary and add-on service reference maps.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"environment": h.environment,
		"location":    h.locationName,
		"services": map[string]any{
			"primary": catalog.Primary(),
			"addons":  catalog.Addons(),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
