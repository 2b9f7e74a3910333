package service

import (
	"context"
	"time"

	"roomly/pkg/kafka"
	"roomly/pkg/model"
)

const (
	EventCheckedIn = "room.checked_in"
	EventReleased  = "room.released"

	EventTopic = "room-events"
)

// EventPublisher is satisfied by kafka.Producer; nil disables publishing.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type occupancyEvent struct {
	RoomID       string    `json:"roomId"`
	HolderUserID string    `json:"userId"`
	GroupName    string    `json:"groupName,omitempty"`
	Seats        int       `json:"seats,omitempty"`
	BookingStart time.Time `json:"bookingStart"`
	BookingEnd   time.Time `json:"bookingEnd"`
}

func (s *roomService) publishEvent(ctx context.Context, eventType string, occ *model.Occupancy) {
	if s.events == nil {
		return
	}

	msg, err := kafka.NewEventMessage(eventType, occ.RoomID, occupancyEvent{
		RoomID:       occ.RoomID,
		HolderUserID: occ.HolderUserID,
		GroupName:    occ.GroupName,
		Seats:        occ.Seats,
		BookingStart: occ.BookingStart,
		BookingEnd:   occ.BookingEnd,
	})
	if err != nil {
		s.cfg.Log.Error("Failed to build room event", "event", eventType, "room_id", occ.RoomID, "error", err)
		return
	}

	if err := s.events.Publish(ctx, msg); err != nil {
		s.cfg.Log.Error("Failed to publish room event", "event", eventType, "room_id", occ.RoomID, "error", err)
	}
}
