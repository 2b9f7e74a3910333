package model

import "time"

const (
	RoomAvailable = "available"
	RoomOccupied  = "occupied"
)

// Room is a pre-provisioned physical room. QRToken is the proof-of-presence
// string bound to the printed code inside the room.
type Room struct {
	ID       string  `json:"id" bson:"_id"`
	Name     string  `json:"name" bson:"name"`
	Capacity int     `json:"capacity" bson:"capacity"`
	CoordX   float64 `json:"coordinatesX" bson:"coordinates_x"`
	CoordY   float64 `json:"coordinatesY" bson:"coordinates_y"`
	QRToken  string  `json:"-" bson:"qr_token"`
}

// Occupancy records who holds a room and until when. At most one active
// occupancy exists per room at any time.
type Occupancy struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty"`
	RoomID       string    `json:"roomId" bson:"room_id"`
	HolderUserID string    `json:"userId" bson:"user_id"`
	GroupName    string    `json:"groupName" bson:"group_name"`
	Seats        int       `json:"seats" bson:"seats"`
	BookingStart time.Time `json:"bookingStart" bson:"booking_start"`
	BookingEnd   time.Time `json:"bookingEnd" bson:"booking_end"`
	Status       string    `json:"status" bson:"status"`
	CreatedAt    time.Time `json:"createdAt,omitempty" bson:"created_at"`
}

// Occupancy persistence status values.
const (
	OccupancyActive   = "active"
	OccupancyReleased = "released"
)

// RoomStatus is the read model served to the floor plan: a room plus its
// live occupancy state.
type RoomStatus struct {
	Room      Room       `json:"room"`
	Status    string     `json:"status"`
	Occupancy *Occupancy `json:"occupancy,omitempty"`
}

// CheckInRequest is the transient payload of one check-in attempt. The
// requester's identity comes from the bearer credential, never from the body.
type CheckInRequest struct {
	RoomID          string `json:"roomId" validate:"required"`
	QRPayload       string `json:"qrPayload" validate:"required"`
	GroupName       string `json:"groupName" validate:"required,min=1,max=100"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,min=1,max=120"`
	Seats           int    `json:"seats" validate:"omitempty,min=1"`
}
