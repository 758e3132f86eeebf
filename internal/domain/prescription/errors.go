package prescription

import (
	"errors"
	"fmt"
)

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrAttachmentNotFound   = errors.New("prescription attachment not found")
)

// NotFound wraps ErrPrescriptionNotFound with the missing identity.
func NotFound(id int64) error {
	return fmt.Errorf("%w with id %d", ErrPrescriptionNotFound, id)
}
