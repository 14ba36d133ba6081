package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&Recording{})
}

// Recording is the persisted summary of one capture session.
type Recording struct {
	gorm.Model
	UUID    string `gorm:"uniqueIndex"`
	Query   string
	Output  string
	Encoder string
	Source  string
	State   string

	Width, Height int
	FPS           int

	Iterations int
	Encoded    int
	Skipped    int
	Packets    int
	Bytes      int64

	StartedAt time.Time
	ElapsedMs int64
}

func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if len(r.UUID) == 0 {
		r.UUID = uuid.NewString()
	}
	return nil
}

func (r *Recording) Elapsed() time.Duration {
	return time.Duration(r.ElapsedMs) * time.Millisecond
}
