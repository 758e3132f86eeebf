package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"gorm.io/gorm"
)

type PrescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("inserting prescription: %w", err)
	}
	return nil
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id int64) (*prescription.Prescription, error) {
	var p prescription.Prescription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, prescription.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching prescription %d: %w", id, err)
	}
	return &p, nil
}

// Update writes every column. Save is avoided because it inserts when the row
// has vanished.
func (r *PrescriptionRepository) Update(ctx context.Context, p *prescription.Prescription) error {
	result := r.db.WithContext(ctx).
		Model(p).
		Select("*").
		Omit("id", "created_at").
		Updates(p)
	if result.Error != nil {
		return fmt.Errorf("updating prescription %d: %w", p.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return prescription.NotFound(p.ID)
	}
	return nil
}

func (r *PrescriptionRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&prescription.Prescription{}, id)
	if result.Error != nil {
		return fmt.Errorf("deleting prescription %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return prescription.NotFound(id)
	}
	return nil
}

func (r *PrescriptionRepository) ListByUserAndDate(ctx context.Context, userID int64, date time.Time) ([]*prescription.Prescription, error) {
	var items []*prescription.Prescription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date.Format(prescription.DateLayout)).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions for user %d: %w", userID, err)
	}
	return items, nil
}

func (r *PrescriptionRepository) List(ctx context.Context) ([]*prescription.Prescription, error) {
	var items []*prescription.Prescription
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing prescriptions: %w", err)
	}
	return items, nil
}
