package prescription

import (
	"context"
	"time"
)

type Repository interface {
	// Create persists p and assigns its ID.
	Create(ctx context.Context, p *Prescription) error

	// GetByID returns an error wrapping ErrPrescriptionNotFound if absent.
	GetByID(ctx context.Context, id int64) (*Prescription, error)

	// Update saves every field of an existing prescription.
	Update(ctx context.Context, p *Prescription) error

	// Delete removes the prescription, or returns an error wrapping
	// ErrPrescriptionNotFound if nothing was removed.
	Delete(ctx context.Context, id int64) error

	// ListByUserAndDate returns the prescriptions a user issued on a calendar
	// day, ordered by ID.
	ListByUserAndDate(ctx context.Context, userID int64, date time.Time) ([]*Prescription, error)

	// List returns every prescription ordered by ID.
	List(ctx context.Context) ([]*Prescription, error)
}
