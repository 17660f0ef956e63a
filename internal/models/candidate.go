package models

import (
	"time"

	"github.com/google/uuid"
)

type CandidateStatus string

const (
	CandidateActive   CandidateStatus = "active"
	CandidateHired    CandidateStatus = "hired"
	CandidateArchived CandidateStatus = "archived"
)

type Comment struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type Candidate struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	FullName       string          `gorm:"type:text;index" json:"full_name"`
	Email          string          `gorm:"type:text;index" json:"email"`
	Phone          string          `gorm:"type:text" json:"phone"`
	Age            int             `json:"age"`
	Skills         []string        `gorm:"type:jsonb;serializer:json" json:"skills"`
	Summary        string          `gorm:"type:text" json:"summary"`
	CurrentCompany string          `gorm:"type:text" json:"current_company"`
	CurrentRole    string          `gorm:"type:text" json:"current_role"`
	SalaryBand     string          `gorm:"type:text" json:"salary_band"`
	Benefits       []string        `gorm:"type:jsonb;serializer:json" json:"benefits"`
	Status         CandidateStatus `gorm:"type:text;not null;default:'active'" json:"status"`
	PhotoPath      string          `gorm:"type:text" json:"photo_path,omitempty"`
	CVPath         string          `gorm:"type:text" json:"cv_path,omitempty"`
	CVMimeType     string          `gorm:"type:text" json:"cv_mime_type,omitempty"`
	Comments       []Comment       `gorm:"type:jsonb;serializer:json" json:"comments"`
	CreatedAt      time.Time       `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (Candidate) TableName() string {
	return "candidates"
}
