package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func init() {
	registerForAutomigration(&Participant{})
}

type Participant struct {
	gorm.Model
	UUID  string `gorm:"uniqueIndex"`
	Name  string
	Email string `gorm:"index"`
	Phone string
}

func (p *Participant) BeforeCreate(tx *gorm.DB) error {
	if len(p.UUID) == 0 {
		p.UUID = uuid.NewString()
	}
	return nil
}
