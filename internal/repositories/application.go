package repositories

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/talent-intake/internal/models"
)

type ApplicationRepository interface {
	Create(app *models.Application) error
	FindByJob(jobID uuid.UUID) ([]models.Application, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// Create inserts the application unless one already links the same
// candidate and job, in which case it does nothing.
func (r *applicationRepository) Create(app *models.Application) error {
	var existing models.Application
	result := r.db.
		Where("candidate_id = ? AND job_id = ?", app.CandidateID, app.JobID).
		Attrs(app).
		FirstOrCreate(&existing)

	if result.Error != nil {
		return fmt.Errorf("failed to create application: %w", result.Error)
	}

	*app = existing
	return nil
}

// FindByJob returns the job's applications with their candidates, best fit
// first. Unscored applications come last.
func (r *applicationRepository) FindByJob(jobID uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.
		Preload("Candidate").
		Where("job_id = ?", jobID).
		Order("fit_score DESC NULLS LAST, created_at ASC").
		Find(&apps).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find applications: %w", err)
	}

	return apps, nil
}
