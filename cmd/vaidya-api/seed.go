package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TeamVaidya/prescription/internal/domain"
	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
	"github.com/TeamVaidya/prescription/pkg/blobstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const demoAttachmentKey = "demo/prescription-scan.txt"

// runSeed inserts one doctor, an open slot and a patient booked into it. The
// memory store is per process, so seeding only makes sense against Postgres.
func runSeed(ctx context.Context) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	repos, err := openRepositories(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = repos.close() }()

	doctor := &domain.User{Name: "Dr. Demo", Email: "doctor@vaidya.local", Role: domain.RoleDoctor}
	if err := repos.users.Create(ctx, doctor); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Info("demo data already present, skipping")
			return nil
		}
		return fmt.Errorf("seeding user: %w", err)
	}

	s := &slot.Slot{
		UserID:       doctor.ID,
		StartsAt:     time.Now().UTC().Truncate(time.Hour).Add(time.Hour),
		DurationMins: 30,
		Status:       slot.StatusBooked,
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if err := repos.slots.Create(ctx, s); err != nil {
		return fmt.Errorf("seeding slot: %w", err)
	}

	p := &patient.Patient{
		Name:         "Demo Patient",
		MobileNo:     "9000000000",
		Email:        "patient@vaidya.local",
		NationalID:   100000000001,
		Age:          30,
		RegisteredAt: time.Now().UTC(),
		UserID:       doctor.ID,
		SlotID:       s.ID,
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	if err := repos.patients.Create(ctx, p); err != nil {
		if errors.Is(err, patient.ErrPatientAlreadyExists) {
			log.Info("demo patient already present, skipping")
			return nil
		}
		return fmt.Errorf("seeding patient: %w", err)
	}

	if cfg.Blob.Enabled {
		store, err := blobstore.NewMinIO(ctx, cfg.Blob)
		if err != nil {
			return err
		}
		body := []byte("scanned prescription placeholder\n")
		if err := store.Put(ctx, demoAttachmentKey, bytes.NewReader(body), int64(len(body)), "text/plain"); err != nil {
			return err
		}
		log.Info("demo attachment uploaded", zap.String("attachment_key", demoAttachmentKey))
	}

	log.Info("seed completed",
		zap.Int64("user_id", doctor.ID),
		zap.Int64("slot_id", s.ID),
		zap.Int64("patient_id", p.ID),
	)
	return nil
}
