package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/TeamVaidya/prescription/internal/domain/prescription"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain", errors.New("boom"), KindInternal},
		{"not found", notFound(prescription.NotFound(1)), KindNotFound},
		{"wrapped not found", fmt.Errorf("ctx: %w", notFound(prescription.NotFound(1))), KindNotFound},
		{"validation", &ValidationError{Fields: []string{"x"}}, KindInvalid},
		{"storage", storageFailure(prescription.ErrAttachmentNotFound), KindStorage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestError_PreservesMessageAndChain(t *testing.T) {
	err := notFound(prescription.NotFound(12))
	if err.Error() != "prescription not found with id 12" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, prescription.ErrPrescriptionNotFound) {
		t.Error("expected sentinel in chain")
	}
}
