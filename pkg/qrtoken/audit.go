package qrtoken

import (
	"encoding/json"
	"os"
	"sync"

	"roomly/pkg/logger"
)

// AuditLog is the append-only issuance log: one JSON record per line with
// roomId, token, issuedAt and expiresAt. Write failures are logged and never
// fail the issuance itself.
type AuditLog struct {
	mu   sync.Mutex
	file *os.File
	log  *logger.Logger
}

func NewAuditLog(path string, log *logger.Logger) (*AuditLog, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &AuditLog{file: file, log: log}, nil
}

func (a *AuditLog) Record(issued *IssuedToken) {
	line, err := json.Marshal(issued)
	if err != nil {
		a.log.Error("Failed to encode token issuance record", "room_id", issued.RoomID, "error", err)
		return
	}
	line = append(line, '\n')

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.file.Write(line); err != nil {
		a.log.Error("Failed to append token issuance record", "room_id", issued.RoomID, "error", err)
	}
}

func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
