package main

import (
	"context"
	"time"

	"roomly/internal/identity"
	"roomly/internal/rooms/cache"
	roomshandler "roomly/internal/rooms/handler"
	"roomly/internal/rooms/repository"
	roomsservice "roomly/internal/rooms/service"
	"roomly/internal/rooms/state"
	"roomly/internal/rooms/validator"
	sessionshandler "roomly/internal/sessions/handler"
	sessionsservice "roomly/internal/sessions/service"
	"roomly/internal/sessions/store"
	"roomly/pkg/app"
	"roomly/pkg/config"
	"roomly/pkg/kafka"
	kafka_config "roomly/pkg/kafka/config"
)

const ServiceName = "rooms"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Rooms service")

	serverApp := app.NewApplication()

	events := initEvents(cfg, serverApp)
	roomService, roomRepo := initRoomService(cfg, events)
	sessionStore, sessionService := initSessionService(cfg)

	serverApp.OnShutdown(sessionStore.Stop)
	serverApp.OnShutdown(cfg.GracefulShutdown)

	loadRooms(cfg, roomService, roomRepo)
	watchRooms(cfg, roomService, roomRepo)

	provider := identity.NewStaticProvider(cfg.IdentityTokens)
	serverApp.SetApp(cfg,
		roomshandler.NewRoomHandler(roomService, provider, cfg.Log),
		sessionshandler.NewSessionHandler(sessionService, cfg.Log),
	)
	serverApp.Run()
}

func initEvents(cfg *config.Config, serverApp *app.Application) roomsservice.EventPublisher {
	kafkaCfg := kafka_config.Load()
	if !kafkaCfg.Enabled() {
		cfg.Log.Info("Kafka brokers not configured, event publishing disabled")
		return nil
	}

	producer, err := kafka.NewProducer(kafkaCfg, roomsservice.EventTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}
	serverApp.OnShutdown(func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	})

	cfg.Log.Info("Kafka producer initialized", "topic", roomsservice.EventTopic)
	return producer
}

func initRoomService(cfg *config.Config, events roomsservice.EventPublisher) (roomsservice.RoomService, repository.RoomRepository) {
	registry := state.NewRegistry(cfg.MaxBookingMin)
	roomRepo := repository.NewMongoRoomRepository(cfg)
	statusCache := cache.NewStatusCache(cfg.Client.Redis, cfg.RedisCacheTTL)
	checkInValidator := validator.NewCheckInValidator(cfg.Log)

	roomService := roomsservice.NewRoomService(
		registry,
		roomRepo,
		statusCache,
		checkInValidator,
		events,
		cfg,
	)

	cfg.Log.Info("Room service initialized", "database", cfg.MongoDatabaseName)
	return roomService, roomRepo
}

func initSessionService(cfg *config.Config) (*store.Store, sessionsservice.SessionService) {
	sessionStore := store.New(cfg.SessionTTL)
	sessionStore.StartJanitor(cfg.SessionTTL)

	sessionService := sessionsservice.NewSessionService(sessionStore, cfg)

	cfg.Log.Info("Session service initialized", "session_ttl", cfg.SessionTTL)
	return sessionStore, sessionService
}

// loadRooms seeds the in-core registry from the durable store. The service
// cannot run without room definitions, so failure here is fatal.
func loadRooms(cfg *config.Config, roomService roomsservice.RoomService, roomRepo repository.RoomRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := roomRepo.EnsureIndexes(ctx); err != nil {
		cfg.Log.Fatal("Failed to ensure indexes", "error", err)
	}
	if err := roomService.Reload(ctx); err != nil {
		cfg.Log.Fatal("Failed to load room definitions", "error", err)
	}
}

// watchRooms follows the room collection's change feed so re-provisioned
// rooms show up without a restart. The feed is best-effort: if the
// deployment does not support change streams the service keeps running on
// the startup snapshot.
func watchRooms(cfg *config.Config, roomService roomsservice.RoomService, roomRepo repository.RoomRepository) {
	go func() {
		err := roomRepo.Watch(context.Background(), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := roomService.Reload(ctx); err != nil {
				cfg.Log.Error("Room reload after change event failed", "error", err)
			}
		})
		if err != nil {
			cfg.Log.Warn("Room change feed unavailable", "error", err)
		}
	}()
}
