package repos

import (
	"github.com/tauraamui/archbooth/pkg/database/dbconn"
	"github.com/tauraamui/archbooth/pkg/database/models"
	"github.com/tauraamui/xerror"
)

type ParticipantRepository struct {
	DB dbconn.GormWrapper
}

func (r *ParticipantRepository) Create(participant *models.Participant) error {
	return r.DB.Create(participant).Error()
}

func (r *ParticipantRepository) FindByUUID(uuid string) (models.Participant, error) {
	participant := models.Participant{}
	if err := r.DB.Where("uuid = ?", uuid).First(&participant).Error(); err != nil {
		return participant, xerror.Errorf("participant of uuid %s not found", uuid)
	}

	return participant, nil
}

func (r *ParticipantRepository) FindByEmail(email string) (models.Participant, error) {
	participant := models.Participant{}
	if err := r.DB.Where("email = ?", email).First(&participant).Error(); err != nil {
		return participant, xerror.Errorf("participant of email %s not found", email)
	}

	return participant, nil
}
