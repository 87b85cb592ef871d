package booking

import (
	"context"
	"time"
)

// historyStartDate bounds the appointment-history lookup when hunting for
// a stale appointment.
const historyStartDate = "2020-01-01"

var appointmentTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// recoverStaleAppointment finds the client's first non-cancelled past
// appointment for the given service and cancels it. Lookup and cancel
// errors are logged and reported as a failed recovery, never propagated.
func (s *Service) recoverStaleAppointment(ctx context.Context, clientID, serviceID string) bool {
	appts, err := s.client.ListClientAppointments(ctx, clientID, historyStartDate)
	if err != nil {
		s.logger.Warn("recovery: appointment lookup failed", "client_id", clientID, "error", err)
		s.metrics.ObserveRecovery("lookup_failed")
		return false
	}

	now := s.now()
	for _, a := range appts {
		if a.IsCancelled || a.ServiceID != serviceID {
			continue
		}
		start, ok := parseAppointmentTime(a.StartTime)
		if !ok || !start.Before(now) {
			continue
		}

		if err := s.client.CancelAppointment(ctx, a.AppointmentServiceID, a.DataVersion); err != nil {
			s.logger.Warn("recovery: cancel failed",
				"appointment_service_id", a.AppointmentServiceID,
				"error", err,
			)
			s.metrics.ObserveRecovery("cancel_failed")
			return false
		}

		s.logger.Info("recovery: cancelled stale appointment",
			"appointment_id", a.AppointmentID,
			"appointment_service_id", a.AppointmentServiceID,
			"start_time", a.StartTime,
		)
		s.metrics.ObserveRecovery("recovered")
		return true
	}

	s.logger.Info("recovery: no stale appointment found", "client_id", clientID, "service_id", serviceID)
	s.metrics.ObserveRecovery("not_found")
	return false
}

func parseAppointmentTime(value string) (time.Time, bool) {
	for _, layout := range appointmentTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
