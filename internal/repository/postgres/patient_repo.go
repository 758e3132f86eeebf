package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"gorm.io/gorm"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	err := r.db.WithContext(ctx).Create(p).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return patient.ErrPatientAlreadyExists
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("inserting patient: %w", patient.ErrReferenceMissing)
	}
	if err != nil {
		return fmt.Errorf("inserting patient: %w", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id int64) (*patient.Patient, error) {
	var p patient.Patient
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching patient %d: %w", id, err)
	}
	return &p, nil
}

func (r *PatientRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, &patient.Patient{}, id)
}
