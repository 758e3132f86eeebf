package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/TeamVaidya/prescription/internal/domain"
	"github.com/TeamVaidya/prescription/internal/domain/patient"
	"github.com/TeamVaidya/prescription/internal/domain/prescription"
	"github.com/TeamVaidya/prescription/internal/domain/slot"
	"github.com/TeamVaidya/prescription/pkg/events"
	"github.com/TeamVaidya/prescription/pkg/metrics"
	"github.com/TeamVaidya/prescription/pkg/requestctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const attachmentURLTTL = 15 * time.Minute

// AttachmentStore is the blob store holding scanned prescription documents.
type AttachmentStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type PrescriptionDeps struct {
	Prescriptions prescription.Repository
	Patients      patient.Repository
	Slots         slot.Repository
	Users         domain.UserRepository

	// Attachments is nil when blob storage is disabled.
	Attachments AttachmentStore
	Events      events.Publisher
	Audit       *AuditService
	Metrics     *metrics.Collector
	Log         *zap.Logger
}

type PrescriptionService struct {
	repo        prescription.Repository
	patients    patient.Repository
	slots       slot.Repository
	users       domain.UserRepository
	attachments AttachmentStore
	events      events.Publisher
	auditSvc    *AuditService
	metrics     *metrics.Collector
	tracer      trace.Tracer
	log         *zap.Logger
	now         func() time.Time
}

// NewPrescriptionService panics if a repository is missing. Events, metrics
// and logging fall back to no-op or detached defaults, and a nil Audit
// disables auditing.
func NewPrescriptionService(deps PrescriptionDeps) *PrescriptionService {
	switch {
	case deps.Prescriptions == nil:
		panic("service: PrescriptionDeps.Prescriptions is required")
	case deps.Patients == nil:
		panic("service: PrescriptionDeps.Patients is required")
	case deps.Slots == nil:
		panic("service: PrescriptionDeps.Slots is required")
	case deps.Users == nil:
		panic("service: PrescriptionDeps.Users is required")
	}

	pub := deps.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewCollector("vaidya")
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	return &PrescriptionService{
		repo:        deps.Prescriptions,
		patients:    deps.Patients,
		slots:       deps.Slots,
		users:       deps.Users,
		attachments: deps.Attachments,
		events:      pub,
		auditSvc:    deps.Audit,
		metrics:     deps.Metrics,
		tracer:      otel.Tracer("github.com/TeamVaidya/prescription/internal/service"),
		log:         deps.Log,
		now:         time.Now,
	}
}

// Create stores a new prescription. Any client-supplied id is ignored and a
// missing date defaults to today (UTC).
func (s *PrescriptionService) Create(ctx context.Context, in *prescription.Prescription) (*prescription.Prescription, error) {
	ctx, span := s.tracer.Start(ctx, "PrescriptionService.Create")
	defer span.End()

	p := *in
	p.ID = 0
	p.Normalize()
	if p.Date.IsZero() {
		p.Date = prescription.CalendarDate(s.now().UTC())
	}

	if err := s.validatePrescription(ctx, &p); err != nil {
		return nil, recordErr(span, err)
	}
	if err := s.checkAttachment(ctx, p.AttachmentKey); err != nil {
		return nil, recordErr(span, err)
	}

	if err := s.repo.Create(ctx, &p); err != nil {
		s.log.Error("failed to create prescription", zap.Error(err))
		return nil, recordErr(span, fmt.Errorf("creating prescription: %w", err))
	}
	span.SetAttributes(attribute.Int64("prescription.id", p.ID))

	s.metrics.PrescriptionsTotal.WithLabelValues("create").Inc()
	s.audit(ctx, domain.ActionCreate, p.ID, "")
	s.publish(ctx, events.TypePrescriptionCreated, &p)

	return &p, nil
}

// Update replaces every client-controlled field of prescription id with the
// values in in. A missing date keeps the stored one.
func (s *PrescriptionService) Update(ctx context.Context, id int64, in *prescription.Prescription) (*prescription.Prescription, error) {
	ctx, span := s.tracer.Start(ctx, "PrescriptionService.Update",
		trace.WithAttributes(attribute.Int64("prescription.id", id)))
	defer span.End()

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, recordErr(span, classify(err))
	}

	next := *in
	next.Normalize()
	if next.Date.IsZero() {
		next.Date = existing.Date
	}

	if err := s.validatePrescription(ctx, &next); err != nil {
		return nil, recordErr(span, err)
	}
	if next.AttachmentKey != nil && !sameKey(next.AttachmentKey, existing.AttachmentKey) {
		if err := s.checkAttachment(ctx, next.AttachmentKey); err != nil {
			return nil, recordErr(span, err)
		}
	}

	existing.Replace(&next)
	if err := s.repo.Update(ctx, existing); err != nil {
		if !errors.Is(err, prescription.ErrPrescriptionNotFound) {
			s.log.Error("failed to update prescription", zap.Int64("prescription_id", id), zap.Error(err))
		}
		return nil, recordErr(span, classify(err))
	}

	s.metrics.PrescriptionsTotal.WithLabelValues("update").Inc()
	s.audit(ctx, domain.ActionUpdate, id, "")
	s.publish(ctx, events.TypePrescriptionUpdated, existing)

	return existing, nil
}

func (s *PrescriptionService) GetByID(ctx context.Context, id int64) (*prescription.Prescription, error) {
	ctx, span := s.tracer.Start(ctx, "PrescriptionService.GetByID",
		trace.WithAttributes(attribute.Int64("prescription.id", id)))
	defer span.End()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, recordErr(span, classify(err))
	}

	s.audit(ctx, domain.ActionRead, id, "")
	return p, nil
}

// GetByUserAndDate lists what a user issued on a calendar day. An empty result
// is not an error.
func (s *PrescriptionService) GetByUserAndDate(ctx context.Context, userID int64, date time.Time) ([]*prescription.Prescription, error) {
	ctx, span := s.tracer.Start(ctx, "PrescriptionService.GetByUserAndDate",
		trace.WithAttributes(
			attribute.Int64("user.id", userID),
			attribute.String("date", date.Format(prescription.DateLayout)),
		))
	defer span.End()

	if userID <= 0 {
		return nil, recordErr(span, &ValidationError{Fields: []string{"user_id must be a positive integer"}})
	}

	items, err := s.repo.ListByUserAndDate(ctx, userID, prescription.CalendarDate(date))
	if err != nil {
		return nil, recordErr(span, err)
	}
	if len(items) == 0 {
		s.metrics.EmptyLookupsTotal.WithLabelValues("user_date").Inc()
	}
	span.SetAttributes(attribute.Int("result.count", len(items)))
	return items, nil
}

func (s *PrescriptionService) Delete(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "PrescriptionService.Delete",
		trace.WithAttributes(attribute.Int64("prescription.id", id)))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		if !errors.Is(err, prescription.ErrPrescriptionNotFound) {
			s.log.Error("failed to delete prescription", zap.Int64("prescription_id", id), zap.Error(err))
		}
		return recordErr(span, classify(err))
	}

	s.metrics.PrescriptionsTotal.WithLabelValues("delete").Inc()
	s.audit(ctx, domain.ActionDelete, id, "")
	s.publish(ctx, events.TypePrescriptionDeleted, &prescription.Prescription{ID: id})

	return nil
}

// GetAll returns every prescription. An empty result is not an error.
func (s *PrescriptionService) GetAll(ctx context.Context) ([]*prescription.Prescription, error) {
	ctx, span := s.tracer.Start(ctx, "PrescriptionService.GetAll")
	defer span.End()

	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, recordErr(span, err)
	}
	if len(items) == 0 {
		s.metrics.EmptyLookupsTotal.WithLabelValues("all").Inc()
	}
	span.SetAttributes(attribute.Int("result.count", len(items)))
	return items, nil
}

// GetDetail resolves a prescription and the user, slot and patient it
// references. A dangling reference is an internal error.
func (s *PrescriptionService) GetDetail(ctx context.Context, id int64) (*prescription.Detail, error) {
	ctx, span := s.tracer.Start(ctx, "PrescriptionService.GetDetail",
		trace.WithAttributes(attribute.Int64("prescription.id", id)))
	defer span.End()

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, recordErr(span, classify(err))
	}

	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("resolving user %d of prescription %d: %w", p.UserID, id, err))
	}
	sl, err := s.slots.GetByID(ctx, p.SlotID)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("resolving slot %d of prescription %d: %w", p.SlotID, id, err))
	}
	pat, err := s.patients.GetByID(ctx, p.PatientID)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("resolving patient %d of prescription %d: %w", p.PatientID, id, err))
	}

	detail := &prescription.Detail{Prescription: p, User: user, Slot: sl, Patient: pat}

	if p.AttachmentKey != nil && s.attachments != nil {
		url, err := s.attachments.PresignedURL(ctx, *p.AttachmentKey, attachmentURLTTL)
		if err != nil {
			s.log.Warn("failed to presign attachment",
				zap.Int64("prescription_id", id),
				zap.String("attachment_key", *p.AttachmentKey),
				zap.Error(err),
			)
		} else {
			detail.AttachmentURL = url
		}
	}

	s.audit(ctx, domain.ActionRead, id, `{"view":"detail"}`)
	return detail, nil
}

// checkAttachment verifies that a referenced document is present in the blob
// store.
func (s *PrescriptionService) checkAttachment(ctx context.Context, key *string) error {
	if key == nil {
		return nil
	}
	if s.attachments == nil {
		s.metrics.AttachmentFailures.Inc()
		return storageFailure(fmt.Errorf("%w: %s (attachment storage is disabled)", prescription.ErrAttachmentNotFound, *key))
	}

	ok, err := s.attachments.Exists(ctx, *key)
	if err != nil {
		s.metrics.AttachmentFailures.Inc()
		s.log.Error("attachment lookup failed", zap.String("attachment_key", *key), zap.Error(err))
		return storageFailure(err)
	}
	if !ok {
		s.metrics.AttachmentFailures.Inc()
		return storageFailure(fmt.Errorf("%w: %s", prescription.ErrAttachmentNotFound, *key))
	}
	return nil
}

func (s *PrescriptionService) audit(ctx context.Context, action domain.AuditAction, id int64, changes string) {
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       string(action),
		ResourceType: "prescription",
		ResourceID:   strconv.FormatInt(id, 10),
		Changes:      changes,
	})
}

// publish is best effort: the write has already committed, so a broker
// failure is logged and counted but not returned.
func (s *PrescriptionService) publish(ctx context.Context, t events.Type, p *prescription.Prescription) {
	e := events.New(t, p.ID, p.UserID, p.PatientID)
	e.RequestID = requestctx.From(ctx).RequestID

	if err := s.events.Publish(ctx, e); err != nil {
		s.metrics.EventsPublishFailed.Inc()
		s.log.Warn("failed to publish prescription event",
			zap.String("event_type", string(t)),
			zap.Int64("prescription_id", p.ID),
			zap.Error(err),
		)
	}
}

func classify(err error) error {
	if errors.Is(err, prescription.ErrPrescriptionNotFound) {
		return notFound(err)
	}
	return err
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, KindOf(err).String())
	return err
}

func sameKey(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
