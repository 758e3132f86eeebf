package prescription

import (
	"strings"
	"time"

	"github.com/TeamVaidya/prescription/internal/domain"
	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
)

// DateLayout is the ISO-8601 calendar date format used for issue dates.
const DateLayout = "2006-01-02"

// Prescription is issued by a user (doctor) to a patient during a slot. The
// three lists are clinically ordered and are stored as JSON arrays so that
// order survives a round-trip.
type Prescription struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Fever  *float64 `gorm:"column:fever"`
	Weight *float64 `gorm:"column:weight"`
	BP     *string  `gorm:"column:bp;type:varchar(15)"` // e.g. "120/80"
	Sugar  *float64 `gorm:"column:sugar"`

	Date time.Time `gorm:"column:date;type:date;not null;index:idx_prescriptions_user_date,priority:2"`

	Tests     []string `gorm:"column:tests;type:jsonb;serializer:json"`
	Medicines []string `gorm:"column:medicines;type:jsonb;serializer:json"`
	History   []string `gorm:"column:history;type:jsonb;serializer:json"`

	// Object key of a scanned copy in blob storage.
	AttachmentKey *string `gorm:"column:attachment_key;type:varchar(500)"`

	UserID    int64 `gorm:"column:user_id;not null;index:idx_prescriptions_user_date,priority:1"`
	SlotID    int64 `gorm:"column:slot_id;not null;index"`
	PatientID int64 `gorm:"column:patient_id;not null;index"`
}

func (Prescription) TableName() string {
	return "prescriptions"
}

// Replace overwrites every client-controlled field with the values from src.
// Identity and timestamps are kept.
func (p *Prescription) Replace(src *Prescription) {
	p.Fever = src.Fever
	p.Weight = src.Weight
	p.BP = src.BP
	p.Sugar = src.Sugar
	p.Date = src.Date
	p.Tests = src.Tests
	p.Medicines = src.Medicines
	p.History = src.History
	p.AttachmentKey = src.AttachmentKey
	p.UserID = src.UserID
	p.SlotID = src.SlotID
	p.PatientID = src.PatientID
}

// Normalize trims string measurements, truncates the issue date to a calendar
// day and replaces nil lists with empty ones. List entries are kept verbatim.
func (p *Prescription) Normalize() {
	p.Tests = nonNil(p.Tests)
	p.Medicines = nonNil(p.Medicines)
	p.History = nonNil(p.History)

	if p.BP != nil {
		bp := strings.TrimSpace(*p.BP)
		p.BP = &bp
	}
	if p.AttachmentKey != nil {
		key := strings.TrimSpace(*p.AttachmentKey)
		if key == "" {
			p.AttachmentKey = nil
		} else {
			p.AttachmentKey = &key
		}
	}
	if !p.Date.IsZero() {
		p.Date = CalendarDate(p.Date)
	}
}

// CalendarDate strips the clock and location from t.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a strict YYYY-MM-DD calendar date.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, raw)
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// Detail is a prescription together with the entities it references, fetched
// explicitly by identifier.
type Detail struct {
	Prescription *Prescription
	User         *domain.User
	Slot         *slot.Slot
	Patient      *patient.Patient

	// AttachmentURL is a short-lived download link, empty when there is no
	// attachment or blob storage is disabled.
	AttachmentURL string
}
