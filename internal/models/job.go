package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
)

type Job struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title        string    `gorm:"type:text;not null" json:"title"`
	Department   string    `gorm:"type:text" json:"department"`
	Location     string    `gorm:"type:text" json:"location"`
	Description  string    `gorm:"type:text" json:"description"`
	Requirements []string  `gorm:"type:jsonb;serializer:json" json:"requirements"`
	Status       JobStatus `gorm:"type:text;not null;default:'open'" json:"status"`
	CreatedAt    time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
