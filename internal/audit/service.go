package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"eltro-backend/internal/logger"
	"github.com/rs/zerolog"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Entry is one recorded mutation. Payload holds the request body or the
// affected record as JSON.
type Entry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Section     string    `gorm:"size:10;index" json:"section"`
	EntityType  string    `gorm:"size:50;index" json:"entity_type"`
	Action      Action    `gorm:"size:20" json:"action"`
	Description string    `gorm:"size:255" json:"description"`
	Payload     string    `json:"payload"`
}

func (Entry) TableName() string { return "audit_entries" }

// Recorder writes mutation entries to an embedded sqlite database.
// A nil Recorder is valid and records nothing.
type Recorder struct {
	db  *gorm.DB
	log zerolog.Logger
}

func Open(path string) (*Recorder, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return &Recorder{db: db, log: logger.WithComponent("audit")}, nil
}

// Write records a mutation. Best effort: a failed insert is logged and
// never fails the request that triggered it.
func (r *Recorder) Write(section, entityType string, action Action, description string, payload any) {
	if r == nil || r.db == nil {
		return
	}

	payloadStr := "null"
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			payloadStr = string(b)
		}
	}

	entry := Entry{
		Section:     section,
		EntityType:  entityType,
		Action:      action,
		Description: description,
		Payload:     payloadStr,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		r.log.Warn().Err(err).Str("entity", entityType).Msg("audit write failed")
	}
}

// Recent returns the newest entries, optionally filtered by entity type.
func (r *Recorder) Recent(entityType string, limit int) ([]Entry, error) {
	if r == nil || r.db == nil {
		return []Entry{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := r.db.Model(&Entry{})
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}

	var entries []Entry
	if err := q.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
