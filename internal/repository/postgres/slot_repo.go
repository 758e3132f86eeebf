package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/TeamVaidya/prescription/internal/domain/slot"
	"gorm.io/gorm"
)

type SlotRepository struct {
	db *gorm.DB
}

func NewSlotRepository(db *gorm.DB) *SlotRepository {
	return &SlotRepository{db: db}
}

func (r *SlotRepository) Create(ctx context.Context, s *slot.Slot) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("inserting slot: %w", err)
	}
	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id int64) (*slot.Slot, error) {
	var s slot.Slot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, slot.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching slot %d: %w", id, err)
	}
	return &s, nil
}

func (r *SlotRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, &slot.Slot{}, id)
}
