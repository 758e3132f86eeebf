package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
)

// Upper bounds for plausible readings: °F, kg, mg/dL.
const (
	maxFever  = 115.0
	maxWeight = 700.0
	maxSugar  = 2000.0

	// Width of the bp column.
	maxBPLen = 15
)

// validatePrescription checks field shapes and that every referenced row
// exists. Infrastructure errors from the existence checks are returned as-is.
func (s *PrescriptionService) validatePrescription(ctx context.Context, p *prescription.Prescription) error {
	var fields []string

	checkMeasurement := func(name string, v *float64, upper float64) {
		if v == nil {
			return
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= 0 || *v > upper {
			fields = append(fields, fmt.Sprintf("%s must be greater than 0 and at most %g", name, upper))
		}
	}
	checkMeasurement("fever", p.Fever, maxFever)
	checkMeasurement("weight", p.Weight, maxWeight)
	checkMeasurement("sugar", p.Sugar, maxSugar)

	if p.BP != nil {
		if strings.TrimSpace(*p.BP) == "" {
			fields = append(fields, "bp must not be blank")
		} else if utf8.RuneCountInString(*p.BP) > maxBPLen {
			fields = append(fields, fmt.Sprintf("bp must be at most %d characters", maxBPLen))
		}
	}

	checkList := func(name string, items []string) {
		for i, item := range items {
			if strings.TrimSpace(item) == "" {
				fields = append(fields, fmt.Sprintf("%s[%d] must not be blank", name, i))
			}
		}
	}
	checkList("tests", p.Tests)
	checkList("medicines", p.Medicines)
	checkList("history", p.History)

	refs := []struct {
		name   string
		id     int64
		exists func(context.Context, int64) (bool, error)
	}{
		{"user_id", p.UserID, s.users.Exists},
		{"patient_id", p.PatientID, s.patients.Exists},
	}
	for _, ref := range refs {
		if ref.id <= 0 {
			fields = append(fields, ref.name+" is required")
			continue
		}
		ok, err := ref.exists(ctx, ref.id)
		if err != nil {
			return fmt.Errorf("checking %s %d: %w", ref.name, ref.id, err)
		}
		if !ok {
			fields = append(fields, fmt.Sprintf("%s %d does not exist", ref.name, ref.id))
		}
	}

	slotField, err := s.checkSlot(ctx, p.SlotID)
	if err != nil {
		return err
	}
	if slotField != "" {
		fields = append(fields, slotField)
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// checkSlot returns a field message when the slot is missing or closed.
func (s *PrescriptionService) checkSlot(ctx context.Context, id int64) (string, error) {
	if id <= 0 {
		return "slot_id is required", nil
	}
	sl, err := s.slots.GetByID(ctx, id)
	if errors.Is(err, slot.ErrSlotNotFound) {
		return fmt.Sprintf("slot_id %d does not exist", id), nil
	}
	if err != nil {
		return "", fmt.Errorf("checking slot_id %d: %w", id, err)
	}
	if !sl.AcceptsPrescriptions() {
		return fmt.Sprintf("slot_id %d: %v", id, slot.ErrSlotClosed), nil
	}
	return "", nil
}
