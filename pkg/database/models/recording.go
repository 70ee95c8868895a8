package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&Recording{})
}

const (
	RecordingStatusReady    = "ready"
	RecordingStatusUploaded = "uploaded"
	RecordingStatusFailed   = "failed"
)

// Recording tracks what happened to a clip, never the clip itself.
type Recording struct {
	gorm.Model
	UUID            string `gorm:"uniqueIndex"`
	ParticipantUUID string `gorm:"index"`
	MediaType       string
	Frames          int
	Size            int
	ArchivePath     string
	Status          string
	URL             string
	FailureReason   string
}

func (r *Recording) BeforeCreate(tx *gorm.DB) error {
	if len(r.UUID) == 0 {
		r.UUID = uuid.NewString()
	}
	if len(r.Status) == 0 {
		r.Status = RecordingStatusReady
	}
	return nil
}
