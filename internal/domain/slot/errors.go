package slot

import "errors"

var (
	ErrSlotNotFound       = errors.New("slot not found")
	ErrInvalidDuration    = errors.New("slot duration must be between 5 and 480 minutes")
	ErrInvalidStatusValue = errors.New("invalid slot status")
	ErrSlotClosed         = errors.New("slot is closed")
)
