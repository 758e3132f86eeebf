package patient

import (
	"strings"
	"time"
)

type Patient struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Name         string    `gorm:"column:name;type:varchar(150);not null" json:"name"`
	MobileNo     string    `gorm:"column:mobile_no;type:varchar(20);not null" json:"mobile_no"`
	Email        string    `gorm:"column:email;type:varchar(255)" json:"email"`
	NationalID   int64     `gorm:"column:national_id;uniqueIndex" json:"national_id"` // Aadhaar number
	Age          int       `gorm:"column:age;not null" json:"age"`
	RegisteredAt time.Time `gorm:"column:registered_at;not null" json:"registered_at"`
	Address      string    `gorm:"column:address;type:text" json:"address"`
	RoleID       int       `gorm:"column:role_id" json:"role_id"`

	UserID int64 `gorm:"column:user_id;not null;index" json:"user_id"`
	SlotID int64 `gorm:"column:slot_id;not null;index" json:"slot_id"`
}

func (Patient) TableName() string {
	return "patients"
}

// Normalize trims free-text fields and lowercases the email.
func (p *Patient) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.MobileNo = strings.TrimSpace(p.MobileNo)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Address = strings.TrimSpace(p.Address)
}

func (p *Patient) Validate() error {
	if p.Name == "" {
		return ErrNameRequired
	}
	if p.Age < 0 || p.Age > 150 {
		return ErrInvalidAge
	}
	if p.NationalID < 100000000000 || p.NationalID > 999999999999 {
		return ErrInvalidNationalID
	}
	if p.UserID <= 0 || p.SlotID <= 0 {
		return ErrReferenceRequired
	}
	return nil
}
