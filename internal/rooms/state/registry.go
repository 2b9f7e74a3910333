package state

import (
	"sort"
	"sync"
	"time"

	roomserrors "roomly/internal/rooms/errors"
	"roomly/pkg/model"

	"github.com/google/uuid"
)

// Registry is the in-memory room state machine. Rooms are pre-provisioned
// (loaded from the durable store, never created here); the registry owns each
// room's occupancy transitions.
//
// Locking discipline: the registry mutex only guards the map; every
// transition runs under the room's own mutex, so check-ins on the same room
// serialize while different rooms proceed independently. No I/O happens
// inside a room's critical section.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*roomState

	maxDuration time.Duration
	now         func() time.Time
}

type roomState struct {
	mu        sync.Mutex
	room      model.Room
	occupancy *model.Occupancy
}

func NewRegistry(maxBookingMin int) *Registry {
	return &Registry{
		rooms:       make(map[string]*roomState),
		maxDuration: time.Duration(maxBookingMin) * time.Minute,
		now:         time.Now,
	}
}

// Load upserts room definitions from the durable store. Metadata (name,
// capacity, proof token, coordinates) is refreshed; a live occupancy on a
// retained room is kept untouched.
func (r *Registry) Load(rooms []model.Room) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, room := range rooms {
		if existing, ok := r.rooms[room.ID]; ok {
			existing.mu.Lock()
			existing.room = room
			existing.mu.Unlock()
			continue
		}
		r.rooms[room.ID] = &roomState{room: room}
	}
}

// CheckIn attempts the Available -> Occupied transition. All guards are
// evaluated inside the room's critical section, immediately before the
// commit, so a stale earlier validation can never leak through: proof must
// equal the room's current token (exact, case-sensitive), the duration must
// be in (0, max], seats must fit, and the room must presently be available
// after lazy expiry of a stale occupancy. BookingEnd is computed from the
// commit instant, not the request instant.
func (r *Registry) CheckIn(roomID, userID, proof, groupName string, seats int, duration time.Duration) (*model.Occupancy, error) {
	rs := r.lookup(roomID)
	if rs == nil {
		return nil, roomserrors.ErrNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	r.releaseIfEndedLocked(rs)

	if duration <= 0 || duration > r.maxDuration {
		return nil, roomserrors.ErrInvalidDuration
	}
	if proof != rs.room.QRToken {
		return nil, roomserrors.ErrProofMismatch
	}
	if seats > rs.room.Capacity {
		return nil, roomserrors.ErrSeatsExceedCapacity
	}
	if rs.occupancy != nil {
		// No re-entrant booking, not even for the current holder.
		return nil, roomserrors.ErrOccupied
	}

	now := r.now()
	rs.occupancy = &model.Occupancy{
		ID:           uuid.NewString(),
		RoomID:       rs.room.ID,
		HolderUserID: userID,
		GroupName:    groupName,
		Seats:        seats,
		BookingStart: now,
		BookingEnd:   now.Add(duration),
		Status:       model.OccupancyActive,
		CreatedAt:    now,
	}

	snapshot := *rs.occupancy
	return &snapshot, nil
}

// Release performs the explicit Occupied -> Available transition. Only the
// current holder may release; a room whose occupancy already lapsed reads as
// not occupied.
func (r *Registry) Release(roomID, userID string) (*model.Occupancy, error) {
	rs := r.lookup(roomID)
	if rs == nil {
		return nil, roomserrors.ErrNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	r.releaseIfEndedLocked(rs)

	if rs.occupancy == nil {
		return nil, roomserrors.ErrNotOccupied
	}
	if rs.occupancy.HolderUserID != userID {
		return nil, roomserrors.ErrNotHolder
	}

	released := *rs.occupancy
	released.Status = model.OccupancyReleased
	rs.occupancy = nil
	return &released, nil
}

// Snapshot returns a room's current status, applying passive expiry.
func (r *Registry) Snapshot(roomID string) (model.RoomStatus, error) {
	rs := r.lookup(roomID)
	if rs == nil {
		return model.RoomStatus{}, roomserrors.ErrNotFound
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	r.releaseIfEndedLocked(rs)
	return r.statusLocked(rs), nil
}

// List returns every room's status sorted by name, applying passive expiry.
func (r *Registry) List() []model.RoomStatus {
	r.mu.RLock()
	states := make([]*roomState, 0, len(r.rooms))
	for _, rs := range r.rooms {
		states = append(states, rs)
	}
	r.mu.RUnlock()

	statuses := make([]model.RoomStatus, 0, len(states))
	for _, rs := range states {
		rs.mu.Lock()
		r.releaseIfEndedLocked(rs)
		statuses = append(statuses, r.statusLocked(rs))
		rs.mu.Unlock()
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Room.Name < statuses[j].Room.Name
	})
	return statuses
}

func (r *Registry) lookup(roomID string) *roomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

// releaseIfEndedLocked applies passive expiry: once now reaches BookingEnd
// the occupancy lapses. Must be called with the room lock held.
func (r *Registry) releaseIfEndedLocked(rs *roomState) {
	if rs.occupancy != nil && !r.now().Before(rs.occupancy.BookingEnd) {
		rs.occupancy = nil
	}
}

func (r *Registry) statusLocked(rs *roomState) model.RoomStatus {
	status := model.RoomStatus{
		Room:   rs.room,
		Status: model.RoomAvailable,
	}
	if rs.occupancy != nil {
		occ := *rs.occupancy
		status.Status = model.RoomOccupied
		status.Occupancy = &occ
	}
	return status
}
