// Package meevo is a client for the Meevo public API: OAuth token
// acquisition, service booking, appointment lookup, and cancellation.
package meevo

import "fmt"

// BookServiceParams are the inputs for a single create-booking call.
type BookServiceParams struct {
	ServiceID  string
	StartTime  string // Meevo datetime string, e.g. "2026-01-15T10:00:00"
	ClientID   string
	EmployeeID string // optional stylist
}

// BookedService is the normalized result of one create-booking call.
// EndTime is the upstream-computed service end, used as the next
// back-to-back start time.
type BookedService struct {
	AppointmentID        string
	AppointmentServiceID string
	StartTime            string
	EndTime              string
}

// Appointment is one record from the client appointment history.
type Appointment struct {
	AppointmentID        string `json:"appointmentId"`
	AppointmentServiceID string `json:"appointmentServiceId"`
	ServiceID            string `json:"serviceId"`
	StartTime            string `json:"startTime"`
	IsCancelled          bool   `json:"isCancelled"`
	DataVersion          int    `json:"dataVersion"`
}

// APIError is a non-success Meevo response. Message carries the upstream
// error text verbatim; the booking flow inspects it for conflict handling.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("meevo: status %d: %s", e.StatusCode, e.Message)
}
