package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepitcut/booking-api/internal/catalog"
	"github.com/keepitcut/booking-api/internal/meevo"
)

// fakeUpstream scripts Meevo responses per test.
type fakeUpstream struct {
	bookFn   func(p meevo.BookServiceParams) (*meevo.BookedService, error)
	listFn   func(clientID, startDate string) ([]meevo.Appointment, error)
	cancelFn func(appointmentServiceID string, dataVersion int) error

	bookCalls   []meevo.BookServiceParams
	listCalls   int
	cancelCalls []string
}

func (f *fakeUpstream) BookService(_ context.Context, p meevo.BookServiceParams) (*meevo.BookedService, error) {
	f.bookCalls = append(f.bookCalls, p)
	return f.bookFn(p)
}

func (f *fakeUpstream) ListClientAppointments(_ context.Context, clientID, startDate string) ([]meevo.Appointment, error) {
	f.listCalls++
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(clientID, startDate)
}

func (f *fakeUpstream) CancelAppointment(_ context.Context, appointmentServiceID string, dataVersion int) error {
	f.cancelCalls = append(f.cancelCalls, appointmentServiceID)
	if f.cancelFn == nil {
		return nil
	}
	return f.cancelFn(appointmentServiceID, dataVersion)
}

// bookSequential returns a bookFn that books every request at its asked
// start time with a 30-minute reported duration.
func bookSequential() func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
	n := 0
	return func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
		n++
		start, err := time.Parse("2006-01-02T15:04:05", p.StartTime)
		if err != nil {
			return nil, fmt.Errorf("bad start time %q: %w", p.StartTime, err)
		}
		return &meevo.BookedService{
			AppointmentID:        fmt.Sprintf("apt-%d", n),
			AppointmentServiceID: fmt.Sprintf("asvc-%d", n),
			StartTime:            p.StartTime,
			EndTime:              start.Add(30 * time.Minute).Format("2006-01-02T15:04:05"),
		}, nil
	}
}

func newTestService(f *fakeUpstream) *Service {
	svc := NewService(f, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.Local) }
	return svc
}

func TestBookValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		req  BookRequest
	}{
		{"missing client_id", BookRequest{Service: "haircut", DateTime: "2026-09-01T10:00:00"}},
		{"missing service", BookRequest{ClientID: "c1", DateTime: "2026-09-01T10:00:00"}},
		{"missing datetime", BookRequest{ClientID: "c1", Service: "haircut"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeUpstream{}
			res := newTestService(f).Book(context.Background(), tt.req)

			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "Missing required fields")
			assert.Empty(t, f.bookCalls, "no upstream call may be attempted")
			assert.Zero(t, f.listCalls)
		})
	}
}

func TestBookUnresolvedPrimaryFails(t *testing.T) {
	f := &fakeUpstream{}
	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID: "c1",
		Service:  "perm",
		DateTime: "2026-09-01T10:00:00",
	})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Invalid service")
	assert.Empty(t, f.bookCalls)
}

func TestBookPrimaryOnly(t *testing.T) {
	f := &fakeUpstream{bookFn: bookSequential()}
	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID: "c1",
		Service:  "skin fade",
		DateTime: "2026-09-01T10:00:00",
	})

	require.True(t, res.Success)
	assert.Equal(t, "apt-1", res.AppointmentID)
	assert.Equal(t, catalog.HaircutSkinFadeID, res.ServiceID)
	assert.Equal(t, 1, res.TotalServicesBooked)
	require.Len(t, res.BookedServices, 1)
	assert.False(t, res.BookedServices[0].IsAddon)
	assert.False(t, res.BookedServices[0].AutoRecovered)
	assert.Equal(t, "Appointment booked successfully", res.Message)
}

func TestBookBackToBackChaining(t *testing.T) {
	f := &fakeUpstream{bookFn: bookSequential()}
	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID:           "c1",
		Service:            "haircut",
		Stylist:            "emp-9",
		DateTime:           "2026-09-01T10:00:00",
		AdditionalServices: []string{"wash", "grooming", "shampoo"},
	})

	require.True(t, res.Success)
	require.Len(t, res.BookedServices, 4)
	assert.Equal(t, 4, res.TotalServicesBooked)
	assert.Equal(t, "Appointment booked successfully with 3 add-on service(s)", res.Message)

	// Each add-on starts exactly where the previous service ended.
	for i := 1; i < len(res.BookedServices); i++ {
		assert.Equal(t, res.BookedServices[i-1].EndTime, res.BookedServices[i].StartTime,
			"add-on %d must start at the previous end time", i)
		assert.True(t, res.BookedServices[i].IsAddon)
	}

	// Stylist is shared across every booking call.
	for _, call := range f.bookCalls {
		assert.Equal(t, "emp-9", call.EmployeeID)
	}
}

func TestBookSingleAddonChaining(t *testing.T) {
	f := &fakeUpstream{bookFn: bookSequential()}
	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID:           "c1",
		Service:            "haircut",
		DateTime:           "2026-09-01T10:00:00",
		AdditionalServices: []string{"wash"},
	})

	require.True(t, res.Success)
	require.Len(t, res.BookedServices, 2)
	assert.Equal(t, "2026-09-01T10:30:00", res.BookedServices[1].StartTime)
	assert.Equal(t, "2026-09-01T11:00:00", res.BookedServices[1].EndTime)
}

func TestBookUnresolvedAddonSkipped(t *testing.T) {
	f := &fakeUpstream{bookFn: bookSequential()}
	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID:           "c1",
		Service:            "haircut",
		DateTime:           "2026-09-01T10:00:00",
		AdditionalServices: []string{"manicure", "wash"},
	})

	require.True(t, res.Success)
	require.Len(t, res.BookedServices, 2)
	assert.Equal(t, "wash", res.BookedServices[1].Service)
	// The valid add-on still chains off the primary end time.
	assert.Equal(t, res.BookedServices[0].EndTime, res.BookedServices[1].StartTime)
	assert.Equal(t, "Appointment booked successfully with 1 add-on service(s)", res.Message)
}

func TestBookFailedAddonDoesNotAbort(t *testing.T) {
	seq := bookSequential()
	f := &fakeUpstream{}
	f.bookFn = func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
		if p.ServiceID == catalog.WashID {
			return nil, &meevo.APIError{StatusCode: 409, Message: "Employee is not available at the requested time"}
		}
		return seq(p)
	}

	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID:           "c1",
		Service:            "haircut",
		DateTime:           "2026-09-01T10:00:00",
		AdditionalServices: []string{"wash", "grooming"},
	})

	require.True(t, res.Success)
	require.Len(t, res.BookedServices, 2)
	assert.Equal(t, "grooming", res.BookedServices[1].Service)
	// Grooming chains off the primary because wash never booked.
	assert.Equal(t, res.BookedServices[0].EndTime, res.BookedServices[1].StartTime)
	assert.Zero(t, f.listCalls, "a non-conflict failure must not trigger recovery")
}

func TestBookPrimaryConflictAutoRecovery(t *testing.T) {
	seq := bookSequential()
	attempts := 0
	f := &fakeUpstream{}
	f.bookFn = func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
		attempts++
		if attempts == 1 {
			return nil, &meevo.APIError{StatusCode: 409, Message: "Client is already booked on 01/02/2020."}
		}
		return seq(p)
	}
	f.listFn = func(clientID, startDate string) ([]meevo.Appointment, error) {
		assert.Equal(t, "2020-01-01", startDate)
		return []meevo.Appointment{
			{AppointmentID: "apt-cancelled", AppointmentServiceID: "asvc-x", ServiceID: catalog.HaircutStandardID, StartTime: "2020-01-02T09:00:00", IsCancelled: true, DataVersion: 1},
			{AppointmentID: "apt-stale", AppointmentServiceID: "asvc-stale", ServiceID: catalog.HaircutStandardID, StartTime: "2020-01-02T10:00:00", DataVersion: 4},
		}, nil
	}

	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID: "c1",
		Service:  "haircut",
		DateTime: "2026-09-01T10:00:00",
	})

	require.True(t, res.Success)
	require.Len(t, res.BookedServices, 1)
	assert.True(t, res.BookedServices[0].AutoRecovered)
	assert.Equal(t, []string{"asvc-stale"}, f.cancelCalls, "only the non-cancelled stale appointment is cancelled")
	assert.Equal(t, 2, attempts, "exactly one retry after recovery")
}

func TestBookFutureConflictNoRecovery(t *testing.T) {
	f := &fakeUpstream{}
	f.bookFn = func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
		return nil, &meevo.APIError{StatusCode: 409, Message: "Client is already booked on 12/25/2026."}
	}

	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID: "c1",
		Service:  "haircut",
		DateTime: "2026-09-01T10:00:00",
	})

	assert.False(t, res.Success)
	assert.Equal(t, "Client is already booked on 12/25/2026.", res.Error)
	assert.Zero(t, f.listCalls)
	assert.Len(t, f.bookCalls, 1, "no retry for unrecognized conflicts")
}

func TestBookRecoveryNotFoundSurfacesOriginalError(t *testing.T) {
	f := &fakeUpstream{}
	f.bookFn = func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
		return nil, &meevo.APIError{StatusCode: 409, Message: "Client is already booked on 01/02/2020."}
	}
	f.listFn = func(clientID, startDate string) ([]meevo.Appointment, error) {
		// History holds nothing for this service.
		return []meevo.Appointment{
			{AppointmentServiceID: "asvc-other", ServiceID: catalog.WashID, StartTime: "2020-01-02T10:00:00"},
		}, nil
	}

	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID: "c1",
		Service:  "haircut",
		DateTime: "2026-09-01T10:00:00",
	})

	assert.False(t, res.Success)
	assert.Equal(t, "Client is already booked on 01/02/2020.", res.Error)
	assert.Empty(t, f.cancelCalls)
	assert.Len(t, f.bookCalls, 1)
}

func TestBookRecoveryCancelFailureSurfacesOriginalError(t *testing.T) {
	f := &fakeUpstream{}
	f.bookFn = func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
		return nil, &meevo.APIError{StatusCode: 409, Message: "Client is already booked on 01/02/2020."}
	}
	f.listFn = func(clientID, startDate string) ([]meevo.Appointment, error) {
		return []meevo.Appointment{
			{AppointmentServiceID: "asvc-stale", ServiceID: catalog.HaircutStandardID, StartTime: "2020-01-02T10:00:00", DataVersion: 4},
		}, nil
	}
	f.cancelFn = func(string, int) error {
		return &meevo.APIError{StatusCode: 409, Message: "DataVersion mismatch"}
	}

	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID: "c1",
		Service:  "haircut",
		DateTime: "2026-09-01T10:00:00",
	})

	assert.False(t, res.Success)
	assert.Equal(t, "Client is already booked on 01/02/2020.", res.Error, "original error, not the cancel error")
	assert.Len(t, f.bookCalls, 1)
}

func TestBookRetryAfterRecoveryFailsWholeRequest(t *testing.T) {
	f := &fakeUpstream{}
	f.bookFn = func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
		return nil, &meevo.APIError{StatusCode: 409, Message: "Client is already booked on 01/02/2020."}
	}
	f.listFn = func(clientID, startDate string) ([]meevo.Appointment, error) {
		return []meevo.Appointment{
			{AppointmentServiceID: "asvc-stale", ServiceID: catalog.HaircutStandardID, StartTime: "2020-01-02T10:00:00", DataVersion: 4},
		}, nil
	}

	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID: "c1",
		Service:  "haircut",
		DateTime: "2026-09-01T10:00:00",
	})

	assert.False(t, res.Success)
	assert.Equal(t, "Client is already booked on 01/02/2020.", res.Error)
	assert.Len(t, f.bookCalls, 2, "exactly one retry, no loop")
	assert.Equal(t, 1, f.listCalls, "recovery runs once")
}

func TestBookAddonConflictRecoversIndependently(t *testing.T) {
	seq := bookSequential()
	washAttempts := 0
	f := &fakeUpstream{}
	f.bookFn = func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
		if p.ServiceID == catalog.WashID {
			washAttempts++
			if washAttempts == 1 {
				return nil, &meevo.APIError{StatusCode: 409, Message: "Client is already booked on 01/02/2020."}
			}
		}
		return seq(p)
	}
	f.listFn = func(clientID, startDate string) ([]meevo.Appointment, error) {
		return []meevo.Appointment{
			{AppointmentServiceID: "asvc-stale-wash", ServiceID: catalog.WashID, StartTime: "2020-01-02T10:00:00", DataVersion: 2},
		}, nil
	}

	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID:           "c1",
		Service:            "haircut",
		DateTime:           "2026-09-01T10:00:00",
		AdditionalServices: []string{"wash"},
	})

	require.True(t, res.Success)
	require.Len(t, res.BookedServices, 2)
	assert.False(t, res.BookedServices[0].AutoRecovered)
	assert.True(t, res.BookedServices[1].AutoRecovered)
	assert.Equal(t, []string{"asvc-stale-wash"}, f.cancelCalls)
}

func TestBookNonAPIErrorNoClassification(t *testing.T) {
	f := &fakeUpstream{}
	f.bookFn = func(p meevo.BookServiceParams) (*meevo.BookedService, error) {
		return nil, fmt.Errorf("meevo: http request: connection refused")
	}

	res := newTestService(f).Book(context.Background(), BookRequest{
		ClientID: "c1",
		Service:  "haircut",
		DateTime: "2026-09-01T10:00:00",
	})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "connection refused")
	assert.Zero(t, f.listCalls)
}
