package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"roomly/internal/rooms/cache"
	roomserrors "roomly/internal/rooms/errors"
	"roomly/internal/rooms/repository"
	"roomly/internal/rooms/state"
	"roomly/internal/rooms/validator"
	"roomly/pkg/config"
	apperrors "roomly/pkg/errors"
	"roomly/pkg/model"
)

type RoomService interface {
	CheckIn(ctx context.Context, userID string, req *model.CheckInRequest) (*model.Occupancy, error)
	Release(ctx context.Context, userID, roomID string) error
	ListRooms(ctx context.Context) ([]model.RoomStatus, error)
	Reload(ctx context.Context) error
}

type roomService struct {
	registry  *state.Registry
	repo      repository.RoomRepository
	cache     cache.StatusCache
	validator *validator.CheckInValidator
	events    EventPublisher
	cfg       *config.Config
}

func NewRoomService(
	registry *state.Registry,
	repo repository.RoomRepository,
	statusCache cache.StatusCache,
	checkInValidator *validator.CheckInValidator,
	events EventPublisher,
	cfg *config.Config,
) RoomService {
	return &roomService{
		registry:  registry,
		repo:      repo,
		cache:     statusCache,
		validator: checkInValidator,
		events:    events,
		cfg:       cfg,
	}
}

// CheckIn runs the full claim flow: identity, input validation, then the
// guarded transition. Proof and availability are re-checked by the state
// machine inside the room's critical section, so nothing validated here can
// go stale between the check and the commit. A failed check-in leaves every
// entity in its pre-call state.
func (s *roomService) CheckIn(ctx context.Context, userID string, req *model.CheckInRequest) (*model.Occupancy, error) {
	if userID == "" {
		return nil, apperrors.Unauthenticated("Requester identity is required")
	}

	s.applyDefaults(req)
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Check-in validation failed", "room_id", req.RoomID, "error", err)
		return nil, apperrors.Validation("Invalid check-in request", map[string]any{"error": err.Error()})
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	occ, err := s.registry.CheckIn(req.RoomID, userID, req.QRPayload, req.GroupName, req.Seats, duration)
	if err != nil {
		return nil, s.mapCheckInError(err, req.RoomID)
	}

	// The claim is committed in-core; the writes below mirror it outward and
	// must not undo it on failure.
	if err := s.repo.InsertOccupancy(ctx, occ); err != nil {
		s.cfg.Log.Error("Failed to persist occupancy", "room_id", occ.RoomID, "occupancy_id", occ.ID, "error", err)
	}
	s.invalidateCache(ctx)
	s.publishEvent(ctx, EventCheckedIn, occ)

	s.cfg.Log.Info("Room checked in",
		"room_id", occ.RoomID,
		"user_id", occ.HolderUserID,
		"group_name", occ.GroupName,
		"seats", occ.Seats,
		"booking_end", occ.BookingEnd,
	)
	return occ, nil
}

func (s *roomService) Release(ctx context.Context, userID, roomID string) error {
	if userID == "" {
		return apperrors.Unauthenticated("Requester identity is required")
	}
	if roomID == "" {
		return apperrors.InvalidInput("Room ID cannot be empty")
	}

	released, err := s.registry.Release(roomID, userID)
	if err != nil {
		switch {
		case errors.Is(err, roomserrors.ErrNotFound):
			return apperrors.NotFoundWithID("Room", roomID)
		case errors.Is(err, roomserrors.ErrNotOccupied):
			return apperrors.Conflict("Room is not occupied")
		case errors.Is(err, roomserrors.ErrNotHolder):
			return apperrors.Conflict("Room is held by another user")
		default:
			return apperrors.Internal("Failed to release room", err)
		}
	}

	if err := s.repo.MarkReleased(ctx, released.ID); err != nil {
		s.cfg.Log.Error("Failed to persist release", "room_id", roomID, "occupancy_id", released.ID, "error", err)
	}
	s.invalidateCache(ctx)
	s.publishEvent(ctx, EventReleased, released)

	s.cfg.Log.Info("Room released", "room_id", roomID, "user_id", userID)
	return nil
}

// ListRooms serves the floor-plan read model, preferring the warm cache.
func (s *roomService) ListRooms(ctx context.Context) ([]model.RoomStatus, error) {
	if s.cache != nil {
		cached, err := s.cache.GetAll(ctx)
		if err != nil {
			s.cfg.Log.Warn("Room status cache read failed", "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	statuses := s.registry.List()

	if s.cache != nil {
		if err := s.cache.SetAll(ctx, statuses); err != nil {
			s.cfg.Log.Warn("Room status cache write failed", "error", err)
		}
	}
	return statuses, nil
}

// Reload re-fetches room definitions from the durable store into the
// registry. Fired at startup and on every change-feed tick.
func (s *roomService) Reload(ctx context.Context) error {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return apperrors.Internal("Failed to load rooms", err)
	}

	s.registry.Load(rooms)
	s.invalidateCache(ctx)

	s.cfg.Log.Debug("Room definitions reloaded", "count", len(rooms))
	return nil
}

func (s *roomService) applyDefaults(req *model.CheckInRequest) {
	req.GroupName = strings.TrimSpace(req.GroupName)
	if req.Seats <= 0 {
		req.Seats = 1
	}
}

func (s *roomService) mapCheckInError(err error, roomID string) error {
	switch {
	case errors.Is(err, roomserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Room", roomID)
	case errors.Is(err, roomserrors.ErrProofMismatch):
		return apperrors.ProofMismatch(roomID)
	case errors.Is(err, roomserrors.ErrInvalidDuration):
		return apperrors.InvalidInput("Booking duration must be between 1 and 120 minutes")
	case errors.Is(err, roomserrors.ErrSeatsExceedCapacity):
		return apperrors.InvalidInput("Seat count exceeds room capacity")
	case errors.Is(err, roomserrors.ErrOccupied):
		return apperrors.Conflict("Room is already occupied")
	default:
		return apperrors.Internal("Failed to check in", err)
	}
}

func (s *roomService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.cfg.Log.Warn("Room status cache invalidation failed", "error", err)
	}
}
