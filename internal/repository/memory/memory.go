// Package memory implements the repositories on process memory. It backs
// STORE_DRIVER=memory and the service and handler tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/TeamVaidya/prescription/internal/domain"
	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
)

// Store groups one repository per entity.
type Store struct {
	Users         *UserRepository
	Slots         *SlotRepository
	Patients      *PatientRepository
	Prescriptions *PrescriptionRepository
	Audit         *AuditRepository
}

func New() *Store {
	users := &UserRepository{items: make(map[int64]*domain.User)}
	slots := &SlotRepository{items: make(map[int64]*slot.Slot)}
	return &Store{
		Users:         users,
		Slots:         slots,
		Patients:      &PatientRepository{items: make(map[int64]*patient.Patient), users: users, slots: slots},
		Prescriptions: &PrescriptionRepository{items: make(map[int64]*prescription.Prescription)},
		Audit:         &AuditRepository{},
	}
}

type PrescriptionRepository struct {
	mu     sync.RWMutex
	items  map[int64]*prescription.Prescription
	nextID int64
}

func (r *PrescriptionRepository) Create(_ context.Context, p *prescription.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now().UTC()
	p.ID = r.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	r.items[p.ID] = clonePrescription(p)
	return nil
}

func (r *PrescriptionRepository) GetByID(_ context.Context, id int64) (*prescription.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, prescription.NotFound(id)
	}
	return clonePrescription(p), nil
}

func (r *PrescriptionRepository) Update(_ context.Context, p *prescription.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[p.ID]
	if !ok {
		return prescription.NotFound(p.ID)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	r.items[p.ID] = clonePrescription(p)
	return nil
}

func (r *PrescriptionRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return prescription.NotFound(id)
	}
	delete(r.items, id)
	return nil
}

func (r *PrescriptionRepository) ListByUserAndDate(_ context.Context, userID int64, date time.Time) ([]*prescription.Prescription, error) {
	day := prescription.CalendarDate(date)
	return r.filter(func(p *prescription.Prescription) bool {
		return p.UserID == userID && p.Date.Equal(day)
	}), nil
}

func (r *PrescriptionRepository) List(_ context.Context) ([]*prescription.Prescription, error) {
	return r.filter(func(*prescription.Prescription) bool { return true }), nil
}

func (r *PrescriptionRepository) filter(keep func(*prescription.Prescription) bool) []*prescription.Prescription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*prescription.Prescription, 0)
	for _, p := range r.items {
		if keep(p) {
			out = append(out, clonePrescription(p))
		}
	}
	slices.SortFunc(out, func(a, b *prescription.Prescription) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func clonePrescription(p *prescription.Prescription) *prescription.Prescription {
	c := *p
	c.Tests = slices.Clone(p.Tests)
	c.Medicines = slices.Clone(p.Medicines)
	c.History = slices.Clone(p.History)
	return &c
}

// PatientRepository rejects patients whose user or slot is unknown, like the
// foreign keys of the postgres schema.
type PatientRepository struct {
	mu     sync.RWMutex
	items  map[int64]*patient.Patient
	nextID int64

	users *UserRepository
	slots *SlotRepository
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	userOK, _ := r.users.Exists(ctx, p.UserID)
	slotOK, _ := r.slots.Exists(ctx, p.SlotID)
	if !userOK || !slotOK {
		return fmt.Errorf("inserting patient: %w", patient.ErrReferenceMissing)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.NationalID == p.NationalID {
			return patient.ErrPatientAlreadyExists
		}
	}

	r.nextID++
	now := time.Now().UTC()
	p.ID = r.nextID
	p.CreatedAt = now
	p.UpdatedAt = now
	c := *p
	r.items[p.ID] = &c
	return nil
}

func (r *PatientRepository) GetByID(_ context.Context, id int64) (*patient.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, patient.ErrPatientNotFound
	}
	c := *p
	return &c, nil
}

func (r *PatientRepository) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok, nil
}

type SlotRepository struct {
	mu     sync.RWMutex
	items  map[int64]*slot.Slot
	nextID int64
}

func (r *SlotRepository) Create(_ context.Context, s *slot.Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	s.ID = r.nextID
	s.CreatedAt = time.Now().UTC()
	c := *s
	r.items[s.ID] = &c
	return nil
}

func (r *SlotRepository) GetByID(_ context.Context, id int64) (*slot.Slot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok {
		return nil, slot.ErrSlotNotFound
	}
	c := *s
	return &c, nil
}

func (r *SlotRepository) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok, nil
}

type UserRepository struct {
	mu     sync.RWMutex
	items  map[int64]*domain.User
	nextID int64
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()
	c := *u
	r.items[u.ID] = &c
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (r *UserRepository) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok, nil
}

type AuditRepository struct {
	mu      sync.Mutex
	entries []domain.AuditLog
	nextID  int64
}

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	entry.OccurredAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

// Entries returns a snapshot of everything written so far.
func (r *AuditRepository) Entries() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}
