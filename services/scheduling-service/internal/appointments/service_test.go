package appointments

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/events"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/locks"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/scheduling-service/internal/storage"
)

func newTestService(t *testing.T, cfg Config) (*Service, *storage.MemoryStore, *events.Recorder) {
	t.Helper()
	store := storage.NewMemoryStore()
	rec := &events.Recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, locks.NewMemoryLocker(time.Minute, time.Second), rec, logger, cfg)
	return svc, store, rec
}

func physioDraft() Draft {
	return Draft{
		ClientID:       "client-1",
		ClientName:     "Priya Patel",
		PractitionerID: "staff-tom",
		Date:           "2026-10-16",
		StartTime:      "08:50",
		Duration:       45,
		ServiceID:      "svc-physio",
		ServiceType:    "Physiotherapy Session",
		LocationMode:   model.LocationInPerson,
		CentreID:       "centre-manchester",
		Price:          70,
	}
}

func TestCreate_DerivesFields(t *testing.T) {
	svc, _, rec := newTestService(t, Config{})
	appt, err := svc.Create(context.Background(), physioDraft(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.EndTime != "09:35" {
		t.Fatalf("expected end 09:35, got %s", appt.EndTime)
	}
	if appt.Status != model.StatusScheduled || appt.PaymentStatus != model.PaymentPending || appt.ReminderSent {
		t.Fatalf("unexpected initial state %+v", appt)
	}
	if appt.ID == "" || appt.CreatedAt.IsZero() || !appt.CreatedAt.Equal(appt.UpdatedAt) {
		t.Fatalf("expected id and matching timestamps, got %+v", appt)
	}
	if got := rec.Types(); !reflect.DeepEqual(got, []string{events.AppointmentBooked}) {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestCreate_VirtualDropsCentre(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	d := physioDraft()
	d.LocationMode = model.LocationVirtual
	appt, err := svc.Create(context.Background(), d, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.CentreID != "" {
		t.Fatalf("virtual appointment kept centre %q", appt.CentreID)
	}
}

func TestCreate_Rejects(t *testing.T) {
	svc, store, _ := newTestService(t, Config{})
	cases := map[string]func(*Draft){
		"no name":         func(d *Draft) { d.ClientName = " " },
		"bad date":        func(d *Draft) { d.Date = "16/10/2026" },
		"bad time":        func(d *Draft) { d.StartTime = "8.50" },
		"zero duration":   func(d *Draft) { d.Duration = 0 },
		"past midnight":   func(d *Draft) { d.StartTime = "23:30" },
		"no centre":       func(d *Draft) { d.CentreID = "" },
		"unknown mode":    func(d *Draft) { d.LocationMode = "phone" },
		"negative price":  func(d *Draft) { d.Price = -1 },
		"no practitioner": func(d *Draft) { d.PractitionerID = "" },
	}
	for name, mutate := range cases {
		d := physioDraft()
		mutate(&d)
		if _, err := svc.Create(context.Background(), d, ""); !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: expected ErrInvalid, got %v", name, err)
		}
	}
	if all, _ := store.List(context.Background()); len(all) != 0 {
		t.Fatalf("rejected drafts were stored: %d", len(all))
	}
}

func TestCreate_Idempotent(t *testing.T) {
	svc, store, rec := newTestService(t, Config{})
	ctx := context.Background()
	first, err := svc.Create(ctx, physioDraft(), "req-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	again, err := svc.Create(ctx, physioDraft(), "req-1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("retry created a new appointment %s != %s", again.ID, first.ID)
	}
	all, _ := store.List(ctx)
	if len(all) != 1 || len(rec.Events()) != 1 {
		t.Fatalf("expected one appointment and one event, got %d/%d", len(all), len(rec.Events()))
	}
}

func TestCreate_SlotTaken(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()
	if _, err := svc.Create(ctx, physioDraft(), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, physioDraft(), ""); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	other := physioDraft()
	other.PractitionerID = "staff-amira"
	if _, err := svc.Create(ctx, other, ""); err != nil {
		t.Fatalf("other practitioner should be free: %v", err)
	}
}

func TestCreate_OverlapMode(t *testing.T) {
	svc, _, _ := newTestService(t, Config{ConflictMode: availability.ConflictOverlap})
	ctx := context.Background()
	if _, err := svc.Create(ctx, physioDraft(), ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	d := physioDraft()
	d.StartTime = "09:00"
	if _, err := svc.Create(ctx, d, ""); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected overlap conflict, got %v", err)
	}
	d.StartTime = "09:35"
	if _, err := svc.Create(ctx, d, ""); err != nil {
		t.Fatalf("back-to-back booking rejected: %v", err)
	}
}

func TestCreate_ConcurrentSameSlot(t *testing.T) {
	svc, store, _ := newTestService(t, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, physioDraft(), "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSlotTaken):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	all, _ := store.List(ctx)
	if ok != 1 || len(all) != 1 {
		t.Fatalf("expected exactly one booking, got ok=%d stored=%d", ok, len(all))
	}
}

func TestUpdate_NotFoundLeavesCollection(t *testing.T) {
	svc, store, _ := newTestService(t, Config{})
	ctx := context.Background()
	created, err := svc.Create(ctx, physioDraft(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before, _ := store.List(ctx)

	name := "Someone Else"
	if _, err := svc.Update(ctx, "missing", Patch{ClientName: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	after, _ := store.List(ctx)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("collection changed: before=%+v after=%+v", before, after)
	}
	if after[0].ID != created.ID {
		t.Fatal("unexpected appointment")
	}
}

func TestUpdate_MergesAndRefreshes(t *testing.T) {
	svc, _, rec := newTestService(t, Config{})
	ctx := context.Background()
	created, err := svc.Create(ctx, physioDraft(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	later := created.UpdatedAt.Add(time.Minute)
	svc.now = func() time.Time { return later }

	notes := "bring referral letter"
	start := "10:00"
	updated, err := svc.Update(ctx, created.ID, Patch{Notes: &notes, StartTime: &start})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Notes != notes || updated.StartTime != "10:00" || updated.EndTime != "10:45" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if !updated.UpdatedAt.Equal(later) || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("timestamps not maintained: %+v", updated)
	}
	if updated.Status != model.StatusScheduled {
		t.Fatalf("status changed by update: %s", updated.Status)
	}
	if got := rec.Types(); got[len(got)-1] != events.AppointmentUpdated {
		t.Fatalf("expected updated event, got %v", got)
	}
}

func TestCancel(t *testing.T) {
	svc, _, rec := newTestService(t, Config{})
	ctx := context.Background()
	created, _ := svc.Create(ctx, physioDraft(), "")

	cancelled, err := svc.Cancel(ctx, created.ID, "client unwell")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != model.StatusCancelled || cancelled.Notes != "Cancelled: client unwell" {
		t.Fatalf("unexpected cancel result %+v", cancelled)
	}
	if _, err := svc.Cancel(ctx, created.ID, "again"); err != nil {
		t.Fatalf("second cancel should be a no-op: %v", err)
	}
	if n := len(rec.Events()); n != 2 {
		t.Fatalf("expected booked+cancelled events, got %d", n)
	}

	// The slot is free again.
	if _, err := svc.Create(ctx, physioDraft(), ""); err != nil {
		t.Fatalf("rebook cancelled slot: %v", err)
	}
	if _, err := svc.Cancel(ctx, "missing", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReschedule_KeepsDuration(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()
	created, _ := svc.Create(ctx, physioDraft(), "")

	moved, err := svc.Reschedule(ctx, created.ID, "2026-10-20", "14:15")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if moved.Date != "2026-10-20" || moved.StartTime != "14:15" || moved.EndTime != "15:00" || moved.Duration != 45 {
		t.Fatalf("unexpected reschedule %+v", moved)
	}

	blocker := physioDraft()
	blocker.StartTime = "11:00"
	if _, err := svc.Create(ctx, blocker, ""); err != nil {
		t.Fatalf("create blocker: %v", err)
	}
	if _, err := svc.Reschedule(ctx, created.ID, "2026-10-16", "11:00"); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	// Moving onto its own current slot is not a conflict.
	if _, err := svc.Reschedule(ctx, created.ID, "2026-10-20", "14:15"); err != nil {
		t.Fatalf("reschedule onto own slot: %v", err)
	}
}

func TestComplete(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	ctx := context.Background()
	created, _ := svc.Create(ctx, physioDraft(), "")

	done, err := svc.Complete(ctx, created.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.StatusCompleted || done.PaymentStatus != model.PaymentPaid {
		t.Fatalf("unexpected completion %+v", done)
	}
	if _, err := svc.Complete(ctx, created.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Cancel(ctx, created.ID, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := svc.Reschedule(ctx, created.ID, "2026-10-17", "09:00"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransition(t *testing.T) {
	svc, _, rec := newTestService(t, Config{})
	ctx := context.Background()
	created, _ := svc.Create(ctx, physioDraft(), "")

	for _, to := range []model.AppointmentStatus{model.StatusConfirmed, model.StatusInProgress} {
		appt, err := svc.Transition(ctx, created.ID, to)
		if err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
		if appt.Status != to {
			t.Fatalf("expected %s, got %s", to, appt.Status)
		}
	}
	if _, err := svc.Transition(ctx, created.ID, model.StatusNoShow); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for in-progress -> no-show, got %v", err)
	}
	if _, err := svc.Transition(ctx, created.ID, model.StatusScheduled); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition going backwards, got %v", err)
	}
	if _, err := svc.Transition(ctx, created.ID, "archived"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown status, got %v", err)
	}
	appt, err := svc.Transition(ctx, created.ID, model.StatusCompleted)
	if err != nil || appt.PaymentStatus != model.PaymentPaid {
		t.Fatalf("complete via transition: %+v %v", appt, err)
	}
	want := []string{
		events.AppointmentBooked,
		events.AppointmentStatusChanged,
		events.AppointmentStatusChanged,
		events.AppointmentCompleted,
	}
	if got := rec.Types(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestEndTime(t *testing.T) {
	cases := []struct {
		start   string
		minutes int
		want    string
		wantErr bool
	}{
		{"08:50", 45, "09:35", false},
		{"09:00", 60, "10:00", false},
		{"23:00", 60, "24:00", false},
		{"23:30", 45, "", true},
		{"9.00", 30, "", true},
		{"09:00", 0, "", true},
	}
	for _, tc := range cases {
		got, err := EndTime(tc.start, tc.minutes)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("EndTime(%s, %d) = %q, %v", tc.start, tc.minutes, got, err)
		}
	}
}

// slowStore pauses after reads so concurrent writers overlap unless a lock
// keeps them apart.
type slowStore struct {
	*storage.MemoryStore
	pause time.Duration
}

func (s slowStore) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	list, err := s.MemoryStore.ListByDate(ctx, date)
	time.Sleep(s.pause)
	return list, err
}

func (s slowStore) Get(ctx context.Context, id string) (model.Appointment, error) {
	appt, err := s.MemoryStore.Get(ctx, id)
	time.Sleep(s.pause)
	return appt, err
}

func newSlowService(cfg Config) (*Service, *storage.MemoryStore) {
	mem := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(slowStore{MemoryStore: mem, pause: 50 * time.Millisecond},
		locks.NewMemoryLocker(time.Minute, 2*time.Second), &events.Recorder{}, logger, cfg)
	return svc, mem
}

func TestCreate_ConcurrentOverlappingStarts(t *testing.T) {
	svc, store := newSlowService(Config{ConflictMode: availability.ConflictOverlap})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, start := range []string{"09:00", "09:30"} {
		wg.Add(1)
		go func(start string) {
			defer wg.Done()
			d := physioDraft()
			d.StartTime = start
			d.Duration = 60
			_, err := svc.Create(ctx, d, "")
			errs <- err
		}(start)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSlotTaken):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	all, _ := store.List(ctx)
	if ok != 1 || len(all) != 1 {
		t.Fatalf("overlapping bookings both stored: ok=%d stored=%d", ok, len(all))
	}
}

func TestCreate_ConcurrentRetriesReplay(t *testing.T) {
	svc, store, rec := newTestService(t, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 6)
	errs := make(chan error, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			appt, err := svc.Create(ctx, physioDraft(), "retry-key")
			if err != nil {
				errs <- err
				return
			}
			ids <- appt.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Fatalf("retry with the same key failed: %v", err)
	}
	first := ""
	for id := range ids {
		if first == "" {
			first = id
		}
		if id != first {
			t.Fatalf("retries returned different appointments %s and %s", first, id)
		}
	}
	all, _ := store.List(ctx)
	if len(all) != 1 || len(rec.Events()) != 1 {
		t.Fatalf("expected one booking and one event, got %d and %d", len(all), len(rec.Events()))
	}
}

func TestCancel_NotOverwrittenByConcurrentUpdate(t *testing.T) {
	svc, store := newSlowService(Config{})
	ctx := context.Background()
	created, err := svc.Create(ctx, physioDraft(), "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	notes := "bring referral letter"
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := svc.Update(ctx, created.ID, Patch{Notes: &notes}); err != nil {
			t.Errorf("update: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := svc.Cancel(ctx, created.ID, "unwell"); err != nil {
			t.Errorf("cancel: %v", err)
		}
	}()
	wg.Wait()

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Fatalf("cancellation lost: status %s", got.Status)
	}
}
