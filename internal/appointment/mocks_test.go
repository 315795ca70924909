package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/izzypositivetech-001/IzzyCare/internal/logging"
	"github.com/izzypositivetech-001/IzzyCare/internal/notify"
	"github.com/izzypositivetech-001/IzzyCare/internal/patient"
	"github.com/izzypositivetech-001/IzzyCare/internal/store"
)

var errBackendDown = errors.New("backend unavailable")

// trace records side effects in the order they happen.
type trace struct {
	mu     sync.Mutex
	events []string
}

func (t *trace) add(e string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *trace) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

type fakeDispatcher struct {
	trace *trace
	err   error
	block bool

	mu     sync.Mutex
	calls  int
	bodies []string
	to     []string
}

func (f *fakeDispatcher) Send(ctx context.Context, recipientID, body string) (notify.Receipt, error) {
	f.mu.Lock()
	f.calls++
	f.bodies = append(f.bodies, body)
	f.to = append(f.to, recipientID)
	f.mu.Unlock()

	if f.trace != nil {
		f.trace.add("notify")
	}
	if err := ctx.Err(); err != nil {
		return notify.Receipt{}, &notify.DispatchError{Channel: "fake", Recipient: recipientID, Err: err}
	}
	if f.block {
		<-ctx.Done()
		return notify.Receipt{}, &notify.DispatchError{Channel: "fake", Recipient: recipientID, Err: ctx.Err()}
	}
	if f.err != nil {
		return notify.Receipt{}, f.err
	}
	return notify.Receipt{ID: "SM123", Channel: "fake", Recipient: recipientID, SentAt: time.Now()}, nil
}

func (f *fakeDispatcher) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		return ""
	}
	return f.bodies[len(f.bodies)-1]
}

// spyInvalidator fails on a done context like the Redis cache does.
type spyInvalidator struct {
	trace *trace
	err   error

	mu    sync.Mutex
	names []string
	dead  int
}

func (s *spyInvalidator) Invalidate(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		s.mu.Lock()
		s.dead++
		s.mu.Unlock()
		return err
	}
	s.mu.Lock()
	s.names = append(s.names, name)
	s.mu.Unlock()
	if s.trace != nil {
		s.trace.add("invalidate:" + name)
	}
	return s.err
}

func (s *spyInvalidator) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

// faultyBackend wraps a real backend and fails selected operations.
type faultyBackend struct {
	store.Backend
	trace *trace

	failCreate bool
	failUpdate bool
	failList   bool
	// beforeUpdate runs once before the first Update reaches the backend.
	beforeUpdate func()
	// afterCreate and afterUpdate run once after the first successful
	// appointment write.
	afterCreate func()
	afterUpdate func()

	creates int
	updates int
}

func (b *faultyBackend) Create(ctx context.Context, collection, id string, fields store.Fields, refs ...store.Ref) (*store.Record, error) {
	if collection == AppointmentsCollection {
		b.creates++
		if b.failCreate {
			return nil, errBackendDown
		}
		rec, err := b.Backend.Create(ctx, collection, id, fields, refs...)
		if err == nil && b.afterCreate != nil {
			hook := b.afterCreate
			b.afterCreate = nil
			hook()
		}
		return rec, err
	}
	return b.Backend.Create(ctx, collection, id, fields, refs...)
}

func (b *faultyBackend) Update(ctx context.Context, collection, id string, fields store.Fields, expectedVersion int64) (*store.Record, error) {
	b.updates++
	if b.trace != nil {
		b.trace.add("persist")
	}
	if b.beforeUpdate != nil {
		hook := b.beforeUpdate
		b.beforeUpdate = nil
		hook()
	}
	if b.failUpdate {
		return nil, errBackendDown
	}
	rec, err := b.Backend.Update(ctx, collection, id, fields, expectedVersion)
	if err == nil && b.afterUpdate != nil {
		hook := b.afterUpdate
		b.afterUpdate = nil
		hook()
	}
	return rec, err
}

func (b *faultyBackend) List(ctx context.Context, collection string, q store.Query) ([]store.Record, error) {
	if b.failList {
		return nil, errBackendDown
	}
	return b.Backend.List(ctx, collection, q)
}

type harness struct {
	engine     *Engine
	backend    *faultyBackend
	mem        *store.MemoryBackend
	dispatcher *fakeDispatcher
	views      *spyInvalidator
	trace      *trace
}

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	cur := start
	return func() time.Time {
		t := cur
		cur = cur.Add(step)
		return t
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	tr := &trace{}
	mem := store.NewMemoryBackend().WithClock(steppingClock(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC), time.Second))
	backend := &faultyBackend{Backend: mem, trace: tr}
	dispatcher := &fakeDispatcher{trace: tr}
	views := &spyInvalidator{trace: tr}

	ctx := context.Background()
	if _, err := mem.Create(ctx, patient.UsersCollection, "user-1", store.Fields{"name": "Ada", "phone": "+2348012345678"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if _, err := mem.Create(ctx, patient.PatientsCollection, "patient-1", store.Fields{"userId": "user-1", "name": "Ada"}); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	for _, id := range []string{"dr-smith", "dr-jones"} {
		if _, err := mem.Create(ctx, ProvidersCollection, id, store.Fields{"name": id}); err != nil {
			t.Fatalf("seed provider: %v", err)
		}
	}

	engine := NewEngine(NewRepository(backend), dispatcher, views, Options{
		ClinicName:    "IzzyCare",
		NotifyTimeout: time.Second,
		Logger:        logging.Discard(),
	})

	return &harness{
		engine:     engine,
		backend:    backend,
		mem:        mem,
		dispatcher: dispatcher,
		views:      views,
		trace:      tr,
	}
}

func june1() time.Time {
	return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
}

func (h *harness) create(t *testing.T) *Appointment {
	t.Helper()
	appt, err := h.engine.CreateAppointment(context.Background(), CreateParams{
		UserID:           "user-1",
		PatientID:        "patient-1",
		PrimaryPhysician: "dr-smith",
		Schedule:         june1(),
		Reason:           "annual checkup",
	})
	if err != nil {
		t.Fatalf("CreateAppointment failed: %v", err)
	}
	return appt
}
