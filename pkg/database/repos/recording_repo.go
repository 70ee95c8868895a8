package repos

import (
	"github.com/tauraamui/archbooth/pkg/database/dbconn"
	"github.com/tauraamui/archbooth/pkg/database/models"
	"github.com/tauraamui/xerror"
)

type RecordingRepository struct {
	DB dbconn.GormWrapper
}

func (r *RecordingRepository) Create(recording *models.Recording) error {
	return r.DB.Create(recording).Error()
}

func (r *RecordingRepository) Save(recording *models.Recording) error {
	return r.DB.Save(recording).Error()
}

func (r *RecordingRepository) FindByUUID(uuid string) (models.Recording, error) {
	recording := models.Recording{}
	if err := r.DB.Where("uuid = ?", uuid).First(&recording).Error(); err != nil {
		return recording, xerror.Errorf("recording of uuid %s not found", uuid)
	}

	return recording, nil
}

// ForParticipant lists the participant's recordings, newest first.
func (r *RecordingRepository) ForParticipant(participantUUID string) ([]models.Recording, error) {
	recordings := []models.Recording{}
	err := r.DB.Where("participant_uuid = ?", participantUUID).Order("created_at desc").Find(&recordings).Error()
	if err != nil {
		return nil, xerror.Errorf("unable to list recordings for participant %s: %w", participantUUID, err)
	}
	return recordings, nil
}

func (r *RecordingRepository) MarkUploaded(recording *models.Recording, url string) error {
	recording.Status = models.RecordingStatusUploaded
	recording.URL = url
	recording.FailureReason = ""
	return r.Save(recording)
}

func (r *RecordingRepository) MarkFailed(recording *models.Recording, reason string) error {
	recording.Status = models.RecordingStatusFailed
	recording.FailureReason = reason
	return r.Save(recording)
}
