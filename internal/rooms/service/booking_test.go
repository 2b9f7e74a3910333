package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"roomly/internal/rooms/state"
	"roomly/internal/rooms/validator"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/kafka"
	"roomly/pkg/logger"
	"roomly/pkg/model"
)

type mockRepository struct {
	rooms []model.Room

	listErr      error
	insertErr    error
	releaseErr   error
	inserted     []*model.Occupancy
	releasedIDs  []string
	listCalls    int
	upsertedRoom *model.Room
}

func (m *mockRepository) ListRooms(ctx context.Context) ([]model.Room, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.rooms, nil
}

func (m *mockRepository) UpsertRoom(ctx context.Context, room *model.Room) error {
	m.upsertedRoom = room
	return nil
}

func (m *mockRepository) InsertOccupancy(ctx context.Context, occ *model.Occupancy) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, occ)
	return nil
}

func (m *mockRepository) MarkReleased(ctx context.Context, occupancyID string) error {
	if m.releaseErr != nil {
		return m.releaseErr
	}
	m.releasedIDs = append(m.releasedIDs, occupancyID)
	return nil
}

func (m *mockRepository) Watch(ctx context.Context, onChange func()) error { return nil }

func (m *mockRepository) EnsureIndexes(ctx context.Context) error { return nil }

type mockCache struct {
	stored      []model.RoomStatus
	hit         []model.RoomStatus
	getErr      error
	setErr      error
	invalidated int
}

func (m *mockCache) SetAll(ctx context.Context, statuses []model.RoomStatus) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.stored = statuses
	return nil
}

func (m *mockCache) GetAll(ctx context.Context) ([]model.RoomStatus, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.hit, nil
}

func (m *mockCache) Invalidate(ctx context.Context) error {
	m.invalidated++
	return nil
}

type mockPublisher struct {
	messages   []kafka.Message
	publishErr error
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.messages = append(m.messages, msg)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{Level: "error", Service: "test"}),
	}
}

func newTestService(repo *mockRepository, c *mockCache, pub EventPublisher) (RoomService, *state.Registry) {
	cfg := testConfig()
	registry := state.NewRegistry(120)
	registry.Load([]model.Room{
		{ID: "r1", Name: "Fishbowl", Capacity: 4, QRToken: "abc123"},
		{ID: "r2", Name: "Boardroom", Capacity: 10, QRToken: "def456"},
	})
	svc := NewRoomService(registry, repo, c, validator.NewCheckInValidator(cfg.Log), pub, cfg)
	return svc, registry
}

func checkInRequest() *model.CheckInRequest {
	return &model.CheckInRequest{
		RoomID:          "r1",
		QRPayload:       "abc123",
		GroupName:       "Team A",
		DurationMinutes: 60,
		Seats:           2,
	}
}

func TestCheckInSuccess(t *testing.T) {
	repo := &mockRepository{}
	c := &mockCache{}
	pub := &mockPublisher{}
	svc, _ := newTestService(repo, c, pub)

	before := time.Now()
	occ, err := svc.CheckIn(context.Background(), "alice", checkInRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if occ.RoomID != "r1" || occ.HolderUserID != "alice" {
		t.Errorf("occupancy = %+v", occ)
	}
	want := occ.BookingStart.Add(60 * time.Minute)
	if !occ.BookingEnd.Equal(want) {
		t.Errorf("bookingEnd = %v, want start+60m = %v", occ.BookingEnd, want)
	}
	if occ.BookingStart.Before(before) {
		t.Errorf("bookingStart %v predates the call", occ.BookingStart)
	}

	if len(repo.inserted) != 1 {
		t.Errorf("persisted %d occupancies, want 1", len(repo.inserted))
	}
	if c.invalidated != 1 {
		t.Errorf("cache invalidated %d times, want 1", c.invalidated)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.messages))
	}
	if string(pub.messages[0].Key) != "r1" {
		t.Errorf("event key = %q, want room id", pub.messages[0].Key)
	}
}

func TestCheckInOccupiedRoomConflicts(t *testing.T) {
	repo := &mockRepository{}
	svc, _ := newTestService(repo, &mockCache{}, nil)

	if _, err := svc.CheckIn(context.Background(), "alice", checkInRequest()); err != nil {
		t.Fatalf("first check-in failed: %v", err)
	}

	_, err := svc.CheckIn(context.Background(), "bob", checkInRequest())
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("second check-in error = %v, want CONFLICT", err)
	}
	if len(repo.inserted) != 1 {
		t.Errorf("conflict must not persist a second occupancy, got %d", len(repo.inserted))
	}
}

func TestCheckInWrongProofDoesNotMutate(t *testing.T) {
	repo := &mockRepository{}
	pub := &mockPublisher{}
	svc, _ := newTestService(repo, &mockCache{}, pub)

	req := checkInRequest()
	req.QRPayload = "ABC123"
	_, err := svc.CheckIn(context.Background(), "alice", req)
	if !apperrors.HasCode(err, apperrors.CodeProofMismatch) {
		t.Fatalf("error = %v, want PROOF_MISMATCH", err)
	}
	if len(repo.inserted) != 0 || len(pub.messages) != 0 {
		t.Error("rejected check-in must not persist or publish")
	}

	// The room stays claimable with the correct proof.
	if _, err := svc.CheckIn(context.Background(), "alice", checkInRequest()); err != nil {
		t.Errorf("room should still be available: %v", err)
	}
}

func TestCheckInRequiresIdentity(t *testing.T) {
	svc, _ := newTestService(&mockRepository{}, &mockCache{}, nil)

	_, err := svc.CheckIn(context.Background(), "", checkInRequest())
	if !apperrors.HasCode(err, apperrors.CodeUnauthenticated) {
		t.Errorf("error = %v, want UNAUTHENTICATED", err)
	}
}

func TestCheckInUnknownRoom(t *testing.T) {
	svc, _ := newTestService(&mockRepository{}, &mockCache{}, nil)

	req := checkInRequest()
	req.RoomID = "nope"
	_, err := svc.CheckIn(context.Background(), "alice", req)
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestCheckInInvalidDuration(t *testing.T) {
	svc, _ := newTestService(&mockRepository{}, &mockCache{}, nil)

	req := checkInRequest()
	req.DurationMinutes = 121
	_, err := svc.CheckIn(context.Background(), "alice", req)
	if !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("error = %v, want VALIDATION_ERROR", err)
	}
}

func TestCheckInDefaultsSeatsToOne(t *testing.T) {
	svc, _ := newTestService(&mockRepository{}, &mockCache{}, nil)

	req := checkInRequest()
	req.Seats = 0
	occ, err := svc.CheckIn(context.Background(), "alice", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if occ.Seats != 1 {
		t.Errorf("seats = %d, want default 1", occ.Seats)
	}
}

func TestCheckInSurvivesPersistenceFailure(t *testing.T) {
	repo := &mockRepository{insertErr: errors.New("mongo down")}
	svc, registry := newTestService(repo, &mockCache{}, nil)

	if _, err := svc.CheckIn(context.Background(), "alice", checkInRequest()); err != nil {
		t.Fatalf("check-in must succeed despite persistence failure: %v", err)
	}

	status, err := registry.Snapshot("r1")
	if err != nil {
		t.Fatal(err)
	}
	if status.Status != "occupied" {
		t.Errorf("room status = %q, want occupied", status.Status)
	}
}

func TestReleaseByHolder(t *testing.T) {
	repo := &mockRepository{}
	pub := &mockPublisher{}
	svc, registry := newTestService(repo, &mockCache{}, pub)

	occ, err := svc.CheckIn(context.Background(), "alice", checkInRequest())
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Release(context.Background(), "alice", "r1"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if len(repo.releasedIDs) != 1 || repo.releasedIDs[0] != occ.ID {
		t.Errorf("released ids = %v, want [%s]", repo.releasedIDs, occ.ID)
	}
	if len(pub.messages) != 2 {
		t.Errorf("published %d events, want check-in + release", len(pub.messages))
	}

	status, _ := registry.Snapshot("r1")
	if status.Status != "available" {
		t.Errorf("room status = %q, want available", status.Status)
	}
}

func TestReleaseByNonHolderConflicts(t *testing.T) {
	svc, _ := newTestService(&mockRepository{}, &mockCache{}, nil)

	if _, err := svc.CheckIn(context.Background(), "alice", checkInRequest()); err != nil {
		t.Fatal(err)
	}

	err := svc.Release(context.Background(), "bob", "r1")
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("error = %v, want CONFLICT", err)
	}
}

func TestReleaseVacantRoomConflicts(t *testing.T) {
	svc, _ := newTestService(&mockRepository{}, &mockCache{}, nil)

	err := svc.Release(context.Background(), "alice", "r1")
	if !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("error = %v, want CONFLICT", err)
	}
}

func TestListRoomsPrefersCache(t *testing.T) {
	c := &mockCache{hit: []model.RoomStatus{{Status: "occupied"}}}
	svc, _ := newTestService(&mockRepository{}, c, nil)

	statuses, err := svc.ListRooms(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 || statuses[0].Status != "occupied" {
		t.Errorf("statuses = %+v, want the cached entry", statuses)
	}
}

func TestListRoomsFallsBackToRegistry(t *testing.T) {
	c := &mockCache{getErr: errors.New("redis down")}
	svc, _ := newTestService(&mockRepository{}, c, nil)

	statuses, err := svc.ListRooms(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d rooms, want 2", len(statuses))
	}
	for _, s := range statuses {
		if s.Status != "available" {
			t.Errorf("room %s status = %q, want available", s.Room.ID, s.Status)
		}
	}
}

func TestListRoomsWarmsCacheOnMiss(t *testing.T) {
	c := &mockCache{}
	svc, _ := newTestService(&mockRepository{}, c, nil)

	if _, err := svc.ListRooms(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(c.stored) != 2 {
		t.Errorf("cache stored %d statuses, want 2", len(c.stored))
	}
}

func TestReloadLoadsRoomsAndInvalidates(t *testing.T) {
	repo := &mockRepository{rooms: []model.Room{
		{ID: "r3", Name: "Nook", Capacity: 2, QRToken: "zzz"},
	}}
	c := &mockCache{}
	svc, registry := newTestService(repo, c, nil)

	if err := svc.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.Snapshot("r3"); err != nil {
		t.Errorf("reloaded room not in registry: %v", err)
	}
	if c.invalidated != 1 {
		t.Errorf("cache invalidated %d times, want 1", c.invalidated)
	}
}

func TestReloadPropagatesRepositoryError(t *testing.T) {
	repo := &mockRepository{listErr: errors.New("mongo down")}
	svc, _ := newTestService(repo, &mockCache{}, nil)

	err := svc.Reload(context.Background())
	if !apperrors.HasCode(err, apperrors.CodeInternal) {
		t.Errorf("error = %v, want INTERNAL_ERROR", err)
	}
}
