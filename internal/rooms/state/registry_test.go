package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	roomserrors "roomly/internal/rooms/errors"
	"roomly/pkg/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry() (*Registry, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	r := NewRegistry(120)
	r.now = clock.Now
	r.Load([]model.Room{
		{ID: "r1", Name: "A1", Capacity: 6, QRToken: "abc123"},
		{ID: "r2", Name: "B2", Capacity: 4, QRToken: "def456"},
	})
	return r, clock
}

func TestCheckInHappyPath(t *testing.T) {
	r, clock := newTestRegistry()

	occ, err := r.CheckIn("r1", "u1", "abc123", "Team A", 4, 120*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if occ.HolderUserID != "u1" || occ.GroupName != "Team A" || occ.Seats != 4 {
		t.Errorf("unexpected occupancy: %+v", occ)
	}
	if !occ.BookingEnd.Equal(clock.Now().Add(120 * time.Minute)) {
		t.Errorf("bookingEnd must be start + duration exactly, got %s", occ.BookingEnd)
	}
	if !occ.BookingEnd.Equal(occ.BookingStart.Add(120 * time.Minute)) {
		t.Errorf("bookingEnd - bookingStart must equal the duration")
	}

	status, err := r.Snapshot("r1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Status != model.RoomOccupied {
		t.Errorf("room must read occupied after check-in, got %s", status.Status)
	}
}

func TestCheckInUnknownRoom(t *testing.T) {
	r, _ := newTestRegistry()

	_, err := r.CheckIn("ghost", "u1", "abc123", "Team A", 1, time.Hour)
	if !errors.Is(err, roomserrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckInProofMismatchDoesNotMutate(t *testing.T) {
	r, _ := newTestRegistry()

	before, _ := r.Snapshot("r1")

	_, err := r.CheckIn("r1", "u1", "wrong-token", "Team A", 1, time.Hour)
	if !errors.Is(err, roomserrors.ErrProofMismatch) {
		t.Fatalf("expected ErrProofMismatch, got %v", err)
	}

	after, _ := r.Snapshot("r1")
	if before.Status != after.Status || after.Status != model.RoomAvailable {
		t.Errorf("failed check-in must leave room state untouched: before=%s after=%s", before.Status, after.Status)
	}
}

func TestCheckInProofIsCaseSensitive(t *testing.T) {
	r, _ := newTestRegistry()

	_, err := r.CheckIn("r1", "u1", "ABC123", "Team A", 1, time.Hour)
	if !errors.Is(err, roomserrors.ErrProofMismatch) {
		t.Errorf("proof comparison must be case-sensitive, got %v", err)
	}
}

func TestCheckInDurationBounds(t *testing.T) {
	r, _ := newTestRegistry()

	if _, err := r.CheckIn("r1", "u1", "abc123", "Team A", 1, 0); !errors.Is(err, roomserrors.ErrInvalidDuration) {
		t.Errorf("zero duration must be rejected, got %v", err)
	}
	if _, err := r.CheckIn("r1", "u1", "abc123", "Team A", 1, 121*time.Minute); !errors.Is(err, roomserrors.ErrInvalidDuration) {
		t.Errorf("duration above the cap must be rejected, got %v", err)
	}
	if _, err := r.CheckIn("r1", "u1", "abc123", "Team A", 1, 120*time.Minute); err != nil {
		t.Errorf("120 minutes is within (0,120], got %v", err)
	}
}

func TestCheckInSeatsExceedCapacity(t *testing.T) {
	r, _ := newTestRegistry()

	_, err := r.CheckIn("r2", "u1", "def456", "Team B", 5, time.Hour)
	if !errors.Is(err, roomserrors.ErrSeatsExceedCapacity) {
		t.Errorf("expected ErrSeatsExceedCapacity, got %v", err)
	}
}

func TestOccupiedRoomRejectsSecondCheckIn(t *testing.T) {
	r, _ := newTestRegistry()

	if _, err := r.CheckIn("r1", "u1", "abc123", "Team A", 2, 120*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := r.CheckIn("r1", "u2", "abc123", "Team B", 2, time.Hour)
	if !errors.Is(err, roomserrors.ErrOccupied) {
		t.Errorf("second check-in must conflict, got %v", err)
	}

	// Re-entrant booking is rejected even for the current holder.
	_, err = r.CheckIn("r1", "u1", "abc123", "Team A", 2, time.Hour)
	if !errors.Is(err, roomserrors.ErrOccupied) {
		t.Errorf("holder re-check-in must conflict, got %v", err)
	}
}

func TestConcurrentCheckInsSingleWinner(t *testing.T) {
	r, _ := newTestRegistry()

	const attempts = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	conflicts := 0

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			_, err := r.CheckIn("r1", "u1", "abc123", "Team A", 1, time.Hour)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, roomserrors.ErrOccupied):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("expected exactly one winner, got %d", successes)
	}
	if conflicts != attempts-1 {
		t.Errorf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
}

func TestPassiveExpiryFreesRoom(t *testing.T) {
	r, clock := newTestRegistry()

	if _, err := r.CheckIn("r1", "u1", "abc123", "Team A", 1, 30*time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(30 * time.Minute)

	status, _ := r.Snapshot("r1")
	if status.Status != model.RoomAvailable {
		t.Fatalf("room must read available once bookingEnd passes, got %s", status.Status)
	}

	// A new claim succeeds without any explicit release.
	if _, err := r.CheckIn("r1", "u2", "abc123", "Team B", 1, time.Hour); err != nil {
		t.Errorf("re-claim after lapse must succeed, got %v", err)
	}
}

func TestExplicitRelease(t *testing.T) {
	r, _ := newTestRegistry()

	if _, err := r.CheckIn("r1", "u1", "abc123", "Team A", 1, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := r.Release("r1", "u2"); !errors.Is(err, roomserrors.ErrNotHolder) {
		t.Errorf("non-holder release must be rejected, got %v", err)
	}

	released, err := r.Release("r1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released.Status != model.OccupancyReleased {
		t.Errorf("released occupancy must carry released status, got %s", released.Status)
	}

	if _, err := r.Release("r1", "u1"); !errors.Is(err, roomserrors.ErrNotOccupied) {
		t.Errorf("releasing a free room must be rejected, got %v", err)
	}

	status, _ := r.Snapshot("r1")
	if status.Status != model.RoomAvailable {
		t.Errorf("room must be available after release, got %s", status.Status)
	}
}

func TestIndependentRoomsDoNotInterfere(t *testing.T) {
	r, _ := newTestRegistry()

	if _, err := r.CheckIn("r1", "u1", "abc123", "Team A", 1, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.CheckIn("r2", "u2", "def456", "Team B", 1, time.Hour); err != nil {
		t.Errorf("claiming r2 must not be affected by r1, got %v", err)
	}

	statuses := r.List()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(statuses))
	}
	for _, st := range statuses {
		if st.Status != model.RoomOccupied {
			t.Errorf("room %s should be occupied", st.Room.ID)
		}
	}
}

func TestLoadKeepsLiveOccupancy(t *testing.T) {
	r, _ := newTestRegistry()

	if _, err := r.CheckIn("r1", "u1", "abc123", "Team A", 1, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Change-feed reload refreshes metadata but keeps the live claim.
	r.Load([]model.Room{{ID: "r1", Name: "A1 renamed", Capacity: 6, QRToken: "abc123"}})

	status, _ := r.Snapshot("r1")
	if status.Room.Name != "A1 renamed" {
		t.Errorf("metadata refresh lost: %s", status.Room.Name)
	}
	if status.Status != model.RoomOccupied {
		t.Errorf("reload must not drop a live occupancy")
	}
}
