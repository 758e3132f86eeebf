package v1

import (
	"fmt"
	"time"

	"github.com/TeamVaidya/prescription/internal/domain"
	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
)

// PrescriptionRequest is the create and update body. Any id in the body is
// ignored.
type PrescriptionRequest struct {
	Fever         *float64 `json:"fever"`
	Weight        *float64 `json:"weight"`
	BP            *string  `json:"bp"`
	Sugar         *float64 `json:"sugar"`
	Date          string   `json:"date"`
	Tests         []string `json:"tests"`
	Medicines     []string `json:"medicines"`
	History       []string `json:"history"`
	AttachmentKey *string  `json:"attachment_key"`
	UserID        int64    `json:"user_id"`
	SlotID        int64    `json:"slot_id"`
	PatientID     int64    `json:"patient_id"`
}

func (r *PrescriptionRequest) toDomain() (*prescription.Prescription, error) {
	p := &prescription.Prescription{
		Fever:         r.Fever,
		Weight:        r.Weight,
		BP:            r.BP,
		Sugar:         r.Sugar,
		Tests:         r.Tests,
		Medicines:     r.Medicines,
		History:       r.History,
		AttachmentKey: r.AttachmentKey,
		UserID:        r.UserID,
		SlotID:        r.SlotID,
		PatientID:     r.PatientID,
	}
	if r.Date != "" {
		d, err := prescription.ParseDate(r.Date)
		if err != nil {
			return nil, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
		p.Date = d
	}
	return p, nil
}

type PrescriptionResponse struct {
	ID            int64     `json:"id"`
	Fever         *float64  `json:"fever"`
	Weight        *float64  `json:"weight"`
	BP            *string   `json:"bp"`
	Sugar         *float64  `json:"sugar"`
	Date          string    `json:"date"`
	Tests         []string  `json:"tests"`
	Medicines     []string  `json:"medicines"`
	History       []string  `json:"history"`
	AttachmentKey *string   `json:"attachment_key"`
	UserID        int64     `json:"user_id"`
	SlotID        int64     `json:"slot_id"`
	PatientID     int64     `json:"patient_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toResponse(p *prescription.Prescription) PrescriptionResponse {
	return PrescriptionResponse{
		ID:            p.ID,
		Fever:         p.Fever,
		Weight:        p.Weight,
		BP:            p.BP,
		Sugar:         p.Sugar,
		Date:          p.Date.Format(prescription.DateLayout),
		Tests:         orEmpty(p.Tests),
		Medicines:     orEmpty(p.Medicines),
		History:       orEmpty(p.History),
		AttachmentKey: p.AttachmentKey,
		UserID:        p.UserID,
		SlotID:        p.SlotID,
		PatientID:     p.PatientID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toResponses(items []*prescription.Prescription) []PrescriptionResponse {
	out := make([]PrescriptionResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toResponse(p))
	}
	return out
}

type SlotResponse struct {
	ID           int64       `json:"id"`
	UserID       int64       `json:"user_id"`
	StartsAt     time.Time   `json:"starts_at"`
	EndsAt       time.Time   `json:"ends_at"`
	DurationMins int         `json:"duration_mins"`
	Status       slot.Status `json:"status"`
}

func toSlotResponse(s *slot.Slot) *SlotResponse {
	return &SlotResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		StartsAt:     s.StartsAt,
		EndsAt:       s.EndsAt(),
		DurationMins: s.DurationMins,
		Status:       s.Status,
	}
}

type DetailResponse struct {
	Prescription  PrescriptionResponse `json:"prescription"`
	User          *domain.User         `json:"user"`
	Slot          *SlotResponse        `json:"slot"`
	Patient       *patient.Patient     `json:"patient"`
	AttachmentURL string               `json:"attachment_url,omitempty"`
}

func toDetailResponse(d *prescription.Detail) DetailResponse {
	return DetailResponse{
		Prescription:  toResponse(d.Prescription),
		User:          d.User,
		Slot:          toSlotResponse(d.Slot),
		Patient:       d.Patient,
		AttachmentURL: d.AttachmentURL,
	}
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
