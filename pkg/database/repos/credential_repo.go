package repos

import (
	"github.com/tauraamui/archbooth/pkg/database/dbconn"
	"github.com/tauraamui/archbooth/pkg/database/models"
	"github.com/tauraamui/xerror"
)

type CredentialRepository struct {
	DB dbconn.GormWrapper
}

func (r *CredentialRepository) Create(credential *models.Credential) error {
	return r.DB.Create(credential).Error()
}

func (r *CredentialRepository) FindByName(name string) (models.Credential, error) {
	credential := models.Credential{}
	if err := r.DB.Where("name = ?", name).First(&credential).Error(); err != nil {
		return credential, xerror.Errorf("credential of name %s not found", name)
	}

	return credential, nil
}
