package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/talent-intake/internal/models"
)

var ErrCandidateNotFound = errors.New("candidate not found")

type CandidateRepository interface {
	Create(candidate *models.Candidate) error
	FindByID(id uuid.UUID) (*models.Candidate, error)
	FindByIDs(ids []uuid.UUID) ([]models.Candidate, error)
	FindAll() ([]models.Candidate, error)
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

// Create implements CandidateRepository. Retrying with the same ID is a no-op.
func (r *candidateRepository) Create(candidate *models.Candidate) error {
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(candidate).Error; err != nil {
		return fmt.Errorf("failed to create candidate: %w", err)
	}

	return nil
}

// FindByID implements CandidateRepository.
func (r *candidateRepository) FindByID(id uuid.UUID) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.Where("id = ?", id).First(&candidate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to find candidate: %w", err)
	}

	return &candidate, nil
}

// FindByIDs implements CandidateRepository.
func (r *candidateRepository) FindByIDs(ids []uuid.UUID) ([]models.Candidate, error) {
	var candidates []models.Candidate
	if err := r.db.Where("id IN ?", ids).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}

	return candidates, nil
}

// FindAll implements CandidateRepository.
func (r *candidateRepository) FindAll() ([]models.Candidate, error) {
	var candidates []models.Candidate
	if err := r.db.Order("created_at DESC").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	return candidates, nil
}
