package slot

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, s *Slot) error

	// GetByID returns ErrSlotNotFound if no slot has the given id.
	GetByID(ctx context.Context, id int64) (*Slot, error)

	Exists(ctx context.Context, id int64) (bool, error)
}
