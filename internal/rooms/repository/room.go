package repository

import (
	"context"
	"fmt"
	"time"

	"roomly/pkg/config"
	"roomly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	RoomCollection      = "rooms"
	OccupancyCollection = "occupancies"
)

// RoomRepository is the durable store behind the in-memory registry. Rooms
// are pre-provisioned documents; occupancies are appended on check-in and
// marked released afterwards, mirroring the in-core state for audit and for
// other consumers of the database.
type RoomRepository interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	UpsertRoom(ctx context.Context, room *model.Room) error
	InsertOccupancy(ctx context.Context, occ *model.Occupancy) error
	MarkReleased(ctx context.Context, occupancyID string) error
	Watch(ctx context.Context, onChange func()) error
	EnsureIndexes(ctx context.Context) error
}

type mongoRoomRepository struct {
	cfg         *config.Config
	rooms       *mongo.Collection
	occupancies *mongo.Collection
}

func NewMongoRoomRepository(cfg *config.Config) RoomRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoomRepository{
		cfg:         cfg,
		rooms:       db.Collection(RoomCollection),
		occupancies: db.Collection(OccupancyCollection),
	}
}

func (r *mongoRoomRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoRoomRepository) ListRooms(ctx context.Context) ([]model.Room, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.rooms.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var rooms []model.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}
	return rooms, nil
}

func (r *mongoRoomRepository) UpsertRoom(ctx context.Context, room *model.Room) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.rooms.ReplaceOne(ctx,
		bson.M{"_id": room.ID},
		room,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert room %s: %w", room.ID, err)
	}
	return nil
}

func (r *mongoRoomRepository) InsertOccupancy(ctx context.Context, occ *model.Occupancy) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.occupancies.InsertOne(ctx, occ); err != nil {
		return fmt.Errorf("failed to insert occupancy for room %s: %w", occ.RoomID, err)
	}
	return nil
}

func (r *mongoRoomRepository) MarkReleased(ctx context.Context, occupancyID string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.occupancies.UpdateOne(ctx,
		bson.M{"_id": occupancyID},
		bson.M{"$set": bson.M{"status": model.OccupancyReleased}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark occupancy %s released: %w", occupancyID, err)
	}
	return nil
}

// Watch tails the room collection's change stream and fires onChange for
// every event, so re-provisioned rooms and rotated proof tokens reach the
// registry without a restart. The callback carries no payload; the caller
// re-fetches whatever it needs. Blocks until ctx is cancelled or the stream
// breaks.
func (r *mongoRoomRepository) Watch(ctx context.Context, onChange func()) error {
	stream, err := r.rooms.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return fmt.Errorf("failed to open room change stream: %w", err)
	}
	defer stream.Close(ctx)

	for stream.Next(ctx) {
		onChange()
	}
	return stream.Err()
}

// EnsureIndexes installs the partial unique index that rejects a second
// active occupancy for the same room at the database layer, backing up the
// in-core conflict guard.
func (r *mongoRoomRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.occupancies.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": model.OccupancyActive}),
	})
	if err != nil {
		return fmt.Errorf("failed to create occupancy index: %w", err)
	}
	return nil
}
