package slot

import (
	"time"
)

// Status of a slot. A closed slot has been withdrawn and no longer takes
// prescriptions.
type Status string

const (
	StatusOpen   Status = "open"
	StatusBooked Status = "booked"
	StatusClosed Status = "closed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusBooked, StatusClosed:
		return true
	}
	return false
}

// Slot is a scheduled appointment window owned by a doctor. Patients are booked
// into slots and prescriptions are issued during them.
type Slot struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	UserID       int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	StartsAt     time.Time `gorm:"column:starts_at;not null;index" json:"starts_at"`
	DurationMins int       `gorm:"column:duration_mins;not null;default:30" json:"duration_mins"`
	Status       Status    `gorm:"column:status;type:varchar(20);not null;default:'open';index" json:"status"`
}

func (Slot) TableName() string {
	return "slots"
}

func (s *Slot) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMins) * time.Minute)
}

// AcceptsPrescriptions reports whether a prescription may be issued against
// the slot.
func (s *Slot) AcceptsPrescriptions() bool {
	return s.Status != StatusClosed
}

func (s *Slot) Validate() error {
	if s.DurationMins < 5 || s.DurationMins > 480 {
		return ErrInvalidDuration
	}
	if !s.Status.IsValid() {
		return ErrInvalidStatusValue
	}
	return nil
}
