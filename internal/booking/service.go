// Package booking orchestrates appointment creation against the Meevo API:
// service-name resolution, sequential back-to-back scheduling of a primary
// service plus add-ons, and one-shot auto-recovery from stale-appointment
// conflicts.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keepitcut/booking-api/internal/catalog"
	"github.com/keepitcut/booking-api/internal/meevo"
	"github.com/keepitcut/booking-api/internal/observability/metrics"
	"github.com/keepitcut/booking-api/pkg/logging"
)

// upstream is the slice of the Meevo client the orchestrator needs.
type upstream interface {
	BookService(ctx context.Context, p meevo.BookServiceParams) (*meevo.BookedService, error)
	ListClientAppointments(ctx context.Context, clientID, startDate string) ([]meevo.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentServiceID string, dataVersion int) error
}

// BookRequest is the inbound booking payload.
type BookRequest struct {
	ClientID           string   `json:"client_id"`
	Service            string   `json:"service"`
	Stylist            string   `json:"stylist,omitempty"`
	DateTime           string   `json:"datetime"`
	AdditionalServices []string `json:"additional_services,omitempty"`
}

// BookedServiceRecord is one successfully booked service, primary or add-on.
type BookedServiceRecord struct {
	Service              string `json:"service"`
	ServiceID            string `json:"service_id"`
	AppointmentID        string `json:"appointment_id"`
	AppointmentServiceID string `json:"appointment_service_id"`
	StartTime            string `json:"start_time"`
	EndTime              string `json:"end_time"`
	IsAddon              bool   `json:"is_addon,omitempty"`
	AutoRecovered        bool   `json:"auto_recovered,omitempty"`
}

// BookResult is the response envelope for a booking operation. Failures
// are carried in the envelope, never as a transport-level error.
type BookResult struct {
	Success             bool                  `json:"success"`
	AppointmentID       string                `json:"appointment_id,omitempty"`
	ServiceID           string                `json:"service_id,omitempty"`
	TotalServicesBooked int                   `json:"total_services_booked,omitempty"`
	BookedServices      []BookedServiceRecord `json:"booked_services,omitempty"`
	Message             string                `json:"message,omitempty"`
	Error               string                `json:"error,omitempty"`
}

// bookingState names each step of the booking flow so transitions stay
// auditable instead of living in nested error branches.
type bookingState int

const (
	stateValidating bookingState = iota
	stateResolvingPrimary
	stateBookingPrimary
	stateBookingAddons
	stateCompleted
	stateFailed
)

// Service runs the booking flow.
type Service struct {
	client  upstream
	logger  *logging.Logger
	metrics *metrics.BookingMetrics
	now     func() time.Time
}

// NewService creates the booking orchestrator.
func NewService(client upstream, logger *logging.Logger, m *metrics.BookingMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		client:  client,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

type bookingRun struct {
	req       BookRequest
	state     bookingState
	serviceID string
	result    *BookResult

	// nextStart is the back-to-back cursor: each successful booking
	// advances it to that booking's reported end time.
	nextStart string
}

// Book executes the full booking flow. It never returns a Go error; every
// outcome is a structured BookResult.
func (s *Service) Book(ctx context.Context, req BookRequest) *BookResult {
	run := &bookingRun{req: req, state: stateValidating}

	for {
		switch run.state {
		case stateValidating:
			s.validate(run)
		case stateResolvingPrimary:
			s.resolvePrimary(run)
		case stateBookingPrimary:
			s.bookPrimary(ctx, run)
		case stateBookingAddons:
			s.bookAddons(ctx, run)
		case stateCompleted:
			s.metrics.ObserveBooking("success")
			return run.result
		case stateFailed:
			s.metrics.ObserveBooking("failure")
			return run.result
		}
	}
}

func (s *Service) validate(run *bookingRun) {
	if run.req.ClientID == "" || run.req.Service == "" || run.req.DateTime == "" {
		run.result = &BookResult{
			Success: false,
			Error:   "Missing required fields: client_id, service, and datetime are required",
		}
		run.state = stateFailed
		return
	}
	run.state = stateResolvingPrimary
}

func (s *Service) resolvePrimary(run *bookingRun) {
	id, err := catalog.Resolve(run.req.Service)
	if err != nil {
		run.result = &BookResult{
			Success: false,
			Error:   fmt.Sprintf("Invalid service: %q. Use a valid service UUID or name like \"haircut_standard\", \"wash\", etc.", run.req.Service),
		}
		run.state = stateFailed
		return
	}
	run.serviceID = id
	run.state = stateBookingPrimary
}

func (s *Service) bookPrimary(ctx context.Context, run *bookingRun) {
	booked, recovered, err := s.bookWithRecovery(ctx, meevo.BookServiceParams{
		ServiceID:  run.serviceID,
		StartTime:  run.req.DateTime,
		ClientID:   run.req.ClientID,
		EmployeeID: run.req.Stylist,
	})
	if err != nil {
		s.logger.Error("primary booking failed",
			"client_id", run.req.ClientID,
			"service_id", run.serviceID,
			"error", err,
		)
		run.result = &BookResult{Success: false, Error: upstreamMessage(err)}
		run.state = stateFailed
		return
	}

	record := BookedServiceRecord{
		Service:              run.req.Service,
		ServiceID:            run.serviceID,
		AppointmentID:        booked.AppointmentID,
		AppointmentServiceID: booked.AppointmentServiceID,
		StartTime:            booked.StartTime,
		EndTime:              booked.EndTime,
		AutoRecovered:        recovered,
	}
	run.result = &BookResult{
		Success:        true,
		AppointmentID:  booked.AppointmentID,
		ServiceID:      run.serviceID,
		BookedServices: []BookedServiceRecord{record},
	}
	run.nextStart = booked.EndTime
	run.state = stateBookingAddons

	s.logger.Info("primary service booked",
		"appointment_id", booked.AppointmentID,
		"service_id", run.serviceID,
		"auto_recovered", recovered,
	)
}

func (s *Service) bookAddons(ctx context.Context, run *bookingRun) {
	addonsBooked := 0

	for _, name := range run.req.AdditionalServices {
		addonID, err := catalog.Resolve(name)
		if err != nil {
			s.logger.Warn("add-on not resolved, skipping", "service", name)
			s.metrics.ObserveAddon("skipped")
			continue
		}
		if run.nextStart == "" {
			s.logger.Warn("no end time reported for previous booking, skipping remaining add-ons")
			s.metrics.ObserveAddon("skipped")
			continue
		}

		booked, recovered, err := s.bookWithRecovery(ctx, meevo.BookServiceParams{
			ServiceID:  addonID,
			StartTime:  run.nextStart,
			ClientID:   run.req.ClientID,
			EmployeeID: run.req.Stylist,
		})
		if err != nil {
			// An add-on failure never aborts the primary result or
			// the remaining add-ons.
			s.logger.Warn("add-on booking failed, skipping",
				"service", name,
				"service_id", addonID,
				"error", err,
			)
			s.metrics.ObserveAddon("skipped")
			continue
		}

		run.result.BookedServices = append(run.result.BookedServices, BookedServiceRecord{
			Service:              name,
			ServiceID:            addonID,
			AppointmentID:        booked.AppointmentID,
			AppointmentServiceID: booked.AppointmentServiceID,
			StartTime:            booked.StartTime,
			EndTime:              booked.EndTime,
			IsAddon:              true,
			AutoRecovered:        recovered,
		})
		run.nextStart = booked.EndTime
		addonsBooked++
		s.metrics.ObserveAddon("booked")

		s.logger.Info("add-on booked back-to-back",
			"service", name,
			"appointment_id", booked.AppointmentID,
			"start_time", booked.StartTime,
		)
	}

	run.result.TotalServicesBooked = len(run.result.BookedServices)
	if addonsBooked > 0 {
		run.result.Message = fmt.Sprintf("Appointment booked successfully with %d add-on service(s)", addonsBooked)
	} else {
		run.result.Message = "Appointment booked successfully"
	}
	run.state = stateCompleted
}

// bookWithRecovery issues one booking call with the one-shot
// stale-conflict recovery path: on a recognized past-date conflict it
// cancels the stale appointment and retries exactly once. Whenever
// recovery or the retry fails, the error from the original attempt is the
// one surfaced.
func (s *Service) bookWithRecovery(ctx context.Context, p meevo.BookServiceParams) (*meevo.BookedService, bool, error) {
	booked, err := s.client.BookService(ctx, p)
	if err == nil {
		return booked, false, nil
	}

	var apiErr *meevo.APIError
	if !errors.As(err, &apiErr) {
		return nil, false, err
	}

	desc, ok := classifyConflict(apiErr.Message, s.now())
	if !ok {
		return nil, false, err
	}

	s.logger.Info("stale appointment conflict detected",
		"client_id", p.ClientID,
		"service_id", p.ServiceID,
		"conflict_date", desc.Date.Format("2006-01-02"),
	)

	if !s.recoverStaleAppointment(ctx, p.ClientID, p.ServiceID) {
		return nil, false, err
	}

	retried, retryErr := s.client.BookService(ctx, p)
	if retryErr != nil {
		s.logger.Warn("booking retry after recovery failed", "error", retryErr)
		return nil, false, err
	}
	return retried, true, nil
}

// upstreamMessage keeps Meevo's own error text verbatim in the response
// envelope; anything else (transport, auth) surfaces as its error string.
func upstreamMessage(err error) string {
	var apiErr *meevo.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
