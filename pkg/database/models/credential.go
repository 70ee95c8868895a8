package models

import "gorm.io/gorm"

func init() {
	registerForAutomigration(&Credential{})
}

const UploadTokenCredential = "upload_token"

type Credential struct {
	gorm.Model
	Name  string `gorm:"uniqueIndex"`
	Value string
}
