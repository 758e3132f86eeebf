package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TeamVaidya/prescription/internal/domain"
	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
)

func day(s string) time.Time {
	d, _ := prescription.ParseDate(s)
	return d
}

func TestPrescriptionRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := New().Prescriptions

	a := &prescription.Prescription{UserID: 1, Date: day("2024-03-01"), Medicines: []string{"X", "Y"}}
	b := &prescription.Prescription{UserID: 1, Date: day("2024-03-01")}
	if err := repo.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, b); err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID || a.ID <= 0 {
		t.Fatalf("expected distinct positive ids, got %d and %d", a.ID, b.ID)
	}

	// Mutating the caller's copy must not leak into the store.
	a.Medicines[0] = "changed"
	got, err := repo.GetByID(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Medicines[0] != "X" {
		t.Errorf("stored list was aliased: %v", got.Medicines)
	}

	got.Medicines = []string{"Z"}
	if err := repo.Update(ctx, got); err != nil {
		t.Fatal(err)
	}
	again, _ := repo.GetByID(ctx, a.ID)
	if len(again.Medicines) != 1 || again.Medicines[0] != "Z" {
		t.Errorf("update not persisted: %v", again.Medicines)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByID(ctx, a.ID); !errors.Is(err, prescription.ErrPrescriptionNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := repo.Delete(ctx, a.ID); !errors.Is(err, prescription.ErrPrescriptionNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
	if err := repo.Update(ctx, &prescription.Prescription{ID: 999}); !errors.Is(err, prescription.ErrPrescriptionNotFound) {
		t.Errorf("expected not found on update of missing id, got %v", err)
	}
}

func TestPrescriptionRepository_ListByUserAndDate(t *testing.T) {
	ctx := context.Background()
	repo := New().Prescriptions

	seed := []*prescription.Prescription{
		{UserID: 1, Date: day("2024-03-01")},
		{UserID: 2, Date: day("2024-03-01")},
		{UserID: 1, Date: day("2024-03-02")},
		{UserID: 1, Date: day("2024-03-01")},
	}
	for _, p := range seed {
		if err := repo.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.ListByUserAndDate(ctx, 1, day("2024-03-01"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != seed[0].ID || got[1].ID != seed[3].ID {
		t.Fatalf("unexpected result: %+v", got)
	}

	none, err := repo.ListByUserAndDate(ctx, 3, day("2024-03-01"))
	if err != nil {
		t.Fatal(err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", none)
	}

	all, _ := repo.List(ctx)
	if len(all) != 4 {
		t.Errorf("expected 4 prescriptions, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("list not ordered by id: %d before %d", all[i-1].ID, all[i].ID)
		}
	}
}

func seedDoctorAndSlot(t *testing.T, store *Store) (*domain.User, *slot.Slot) {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{Name: "Dr. Rao", Email: "rao@example.com", Role: domain.RoleDoctor}
	if err := store.Users.Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	s := &slot.Slot{UserID: u.ID, StartsAt: time.Now(), DurationMins: 30, Status: slot.StatusOpen}
	if err := store.Slots.Create(ctx, s); err != nil {
		t.Fatal(err)
	}
	return u, s
}

func TestPatientRepository_DuplicateNationalID(t *testing.T) {
	ctx := context.Background()
	store := New()
	u, s := seedDoctorAndSlot(t, store)

	if err := store.Patients.Create(ctx, &patient.Patient{Name: "A", NationalID: 123456789012, UserID: u.ID, SlotID: s.ID}); err != nil {
		t.Fatal(err)
	}
	err := store.Patients.Create(ctx, &patient.Patient{Name: "B", NationalID: 123456789012, UserID: u.ID, SlotID: s.ID})
	if !errors.Is(err, patient.ErrPatientAlreadyExists) {
		t.Errorf("expected ErrPatientAlreadyExists, got %v", err)
	}
}

func TestPatientRepository_RejectsUnknownReferences(t *testing.T) {
	ctx := context.Background()
	store := New()
	u, s := seedDoctorAndSlot(t, store)

	tests := []struct {
		name           string
		userID, slotID int64
	}{
		{"unknown user", 424242, s.ID},
		{"unknown slot", u.ID, 424242},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Patients.Create(ctx, &patient.Patient{Name: "C", NationalID: 223456789012, UserID: tt.userID, SlotID: tt.slotID})
			if !errors.Is(err, patient.ErrReferenceMissing) {
				t.Errorf("expected ErrReferenceMissing, got %v", err)
			}
		})
	}
}

func TestReferenceRepositories(t *testing.T) {
	ctx := context.Background()
	store := New()
	u, s := seedDoctorAndSlot(t, store)

	if ok, _ := store.Users.Exists(ctx, u.ID); !ok {
		t.Error("expected user to exist")
	}
	if ok, _ := store.Slots.Exists(ctx, s.ID+1); ok {
		t.Error("expected unknown slot to be absent")
	}
	if _, err := store.Users.GetByID(ctx, 42); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.Slots.GetByID(ctx, 42); !errors.Is(err, slot.ErrSlotNotFound) {
		t.Errorf("expected ErrSlotNotFound, got %v", err)
	}
	if _, err := store.Patients.GetByID(ctx, 42); !errors.Is(err, patient.ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}
