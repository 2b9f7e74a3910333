package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"roomly/internal/rooms/repository"
	"roomly/pkg/config"
	"roomly/pkg/model"
	"roomly/pkg/qrtoken"
)

const JobName = "room-provision"

// provision seeds the room collection from a JSON definition file and issues
// a fresh proof token per room. The printed tokens go into the physical QR
// labels; rerunning the job rotates every token it touches.
func main() {
	roomsFile := flag.String("rooms", "rooms.json", "path to the room definitions file")
	validity := flag.Duration("validity", 365*24*time.Hour, "proof token validity window")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting room provisioning job", "rooms_file", *roomsFile)
	defer cfg.GracefulShutdown()

	rooms, err := readRooms(*roomsFile)
	if err != nil {
		cfg.Log.Fatal("Failed to read room definitions", "file", *roomsFile, "error", err)
	}

	audit, err := qrtoken.NewAuditLog(cfg.AuditLogPath, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to open audit log", "path", cfg.AuditLogPath, "error", err)
	}
	defer audit.Close()

	generator := qrtoken.NewGenerator(cfg.ProofTokenChars, *validity, audit)
	repo := repository.NewMongoRoomRepository(cfg)

	for _, room := range rooms {
		issued, err := generator.Issue(room.ID)
		if err != nil {
			cfg.Log.Fatal("Failed to issue proof token", "room_id", room.ID, "error", err)
		}
		room.QRToken = issued.Token

		if err := repo.UpsertRoom(ctx, &room); err != nil {
			cfg.Log.Fatal("Failed to upsert room", "room_id", room.ID, "error", err)
		}

		cfg.Log.Info("Room provisioned",
			"room_id", room.ID,
			"name", room.Name,
			"token_expires_at", issued.ExpiresAt,
		)
		fmt.Printf("%s\t%s\t%s\n", room.ID, room.Name, issued.Token)
	}

	fmt.Printf("Provisioned %d room(s).\n", len(rooms))
}

func readRooms(path string) ([]model.Room, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rooms []model.Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("%s contains no rooms", path)
	}
	for i, room := range rooms {
		if room.ID == "" || room.Name == "" || room.Capacity <= 0 {
			return nil, fmt.Errorf("room at index %d is missing id, name, or capacity", i)
		}
	}
	return rooms, nil
}
