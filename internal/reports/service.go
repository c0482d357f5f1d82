// Package reports implements the intake flow: validate, resolve the
// reporter, extract and resolve mentions, anonymize, persist, and hand
// the reporter a case token. Nothing identifying survives into the
// stored narrative, and nothing beyond token and timestamp goes back
// to the caller.
package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/safevoice/incident-intake/internal/alerts"
	"github.com/safevoice/incident-intake/internal/anonymize"
	"github.com/safevoice/incident-intake/internal/archive"
	"github.com/safevoice/incident-intake/internal/casetoken"
	"github.com/safevoice/incident-intake/internal/config"
	"github.com/safevoice/incident-intake/internal/digest"
	"github.com/safevoice/incident-intake/internal/identity"
	"github.com/safevoice/incident-intake/internal/mentions"
	"github.com/safevoice/incident-intake/internal/models"
	"github.com/safevoice/incident-intake/internal/storage"
)

// Service orchestrates report submission and status lookup.
type Service struct {
	config       *config.Config
	store        storage.Store
	resolver     *identity.Resolver
	scheduler    alerts.Scheduler
	observer     alerts.FailureObserver
	archive      archive.Interface // nil disables archival
	digestSender digest.Sender     // nil disables the digest
	metrics      *Metrics
	mu           sync.RWMutex
}

// Metrics holds intake counters. Counters only: report content never
// appears here, so the metrics endpoint can stay unauthenticated.
type Metrics struct {
	SubmissionsAccepted int            `json:"submissions_accepted"`
	SubmissionsRejected map[string]int `json:"submissions_rejected"`
	StatusLookups       int            `json:"status_lookups"`
	LastSubmission      time.Time      `json:"last_submission,omitempty"`
}

// SubmitRequest carries one incident submission.
type SubmitRequest struct {
	ReporterContact string   `json:"reporter_contact"`
	Content         string   `json:"content"`
	IncidentType    string   `json:"incident_type"`
	InterimRelief   []string `json:"interim_relief,omitempty"`
	OrganizationID  string   `json:"organization_id"`
}

// SubmitResult is everything a successful submission echoes back.
type SubmitResult struct {
	CaseToken string    `json:"case_token"`
	CreatedAt time.Time `json:"created_at"`
}

// StatusResult is the token-gated view of one report.
type StatusResult struct {
	Status       string     `json:"status"`
	IncidentType string     `json:"incident_type"`
	CreatedAt    time.Time  `json:"created_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
}

// NewService creates the intake service. A nil observer falls back to
// logging; nil archive or digestSender disables that side channel.
func NewService(cfg *config.Config, store storage.Store, resolver *identity.Resolver, scheduler alerts.Scheduler, observer alerts.FailureObserver, recordArchive archive.Interface, digestSender digest.Sender) *Service {
	if observer == nil {
		observer = alerts.LogObserver{}
	}
	return &Service{
		config:       cfg,
		store:        store,
		resolver:     resolver,
		scheduler:    scheduler,
		observer:     observer,
		archive:      recordArchive,
		digestSender: digestSender,
		metrics: &Metrics{
			SubmissionsRejected: make(map[string]int),
		},
	}
}

// Submit runs the full intake flow. Nothing is persisted until every
// validation has passed; after the insert commits, alert scheduling
// and archival run detached and can no longer fail the submission.
func (s *Service) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	if err := validate(req); err != nil {
		s.countRejection("validation")
		return nil, err
	}

	reporterUIN, err := s.resolver.ResolveReporter(ctx, req.ReporterContact)
	if errors.Is(err, storage.ErrNotFound) {
		s.countRejection("unregistered_reporter")
		return nil, ErrUnregisteredReporter
	}
	if err != nil {
		s.countRejection("storage")
		return nil, fmt.Errorf("failed to resolve reporter identity: %w", err)
	}

	found := mentions.Extract(req.Content)
	if len(found.Structured) == 0 && len(found.Plain) == 0 {
		s.countRejection("no_subject")
		return nil, ErrNoSubject
	}

	// The two resolution paths hit independent tables and run
	// concurrently; the merge below is what fixes alias order, not
	// completion order.
	var wg sync.WaitGroup
	var verified []string
	var plainMatches []identity.PlainMatch

	wg.Add(2)
	go func() {
		defer wg.Done()
		verified = s.resolver.VerifyStructured(ctx, structuredUINs(found.Structured))
	}()
	go func() {
		defer wg.Done()
		plainMatches = s.resolver.ResolvePlain(ctx, found.Plain)
	}()
	wg.Wait()

	// Structured candidates precede plain ones in the alias order:
	// they were picked from a live directory and carry the higher
	// trust level.
	builder := anonymize.NewBuilder()
	for _, uin := range verified {
		builder.AddStructured(uin)
	}
	for _, m := range plainMatches {
		builder.AddPlain(m.Handle, m.UIN)
	}
	aliases := builder.Aliases()

	token, err := casetoken.Generate()
	if err != nil {
		s.countRejection("internal")
		return nil, fmt.Errorf("failed to generate case token: %w", err)
	}

	report := &models.Report{
		ReporterUIN:    reporterUIN,
		SubjectUINs:    subjectUINs(aliases),
		Content:        anonymize.Anonymize(req.Content, aliases),
		IncidentType:   req.IncidentType,
		InterimRelief:  req.InterimRelief,
		OrganizationID: req.OrganizationID,
		CaseToken:      token,
		Status:         models.StatusPending,
	}

	receipt, err := s.store.InsertReport(ctx, report)
	if err != nil {
		s.countRejection("storage")
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	s.recordAccepted(receipt.CreatedAt)
	logrus.Infof("Report %s created with %d subjects", receipt.ID, len(report.SubjectUINs))

	// The report is durable; everything from here must not hold the
	// submission response.
	go s.dispatchAlert(receipt, req.OrganizationID)
	if s.archive != nil {
		go s.archiveRecord(receipt, report)
	}

	return &SubmitResult{CaseToken: receipt.CaseToken, CreatedAt: receipt.CreatedAt}, nil
}

// GetStatus is the token-gated read of one report. The token format is
// checked before any storage call; possession of a well-formed token
// is the only credential required.
func (s *Service) GetStatus(ctx context.Context, token string) (*StatusResult, error) {
	if !casetoken.IsValid(token) {
		return nil, ErrInvalidToken
	}

	s.countLookup()

	report, err := s.store.GetReportByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report by token: %w", err)
	}

	return &StatusResult{
		Status:       report.Status,
		IncidentType: report.IncidentType,
		CreatedAt:    report.CreatedAt,
		ClosedAt:     report.ClosedAt,
	}, nil
}

// RunDigest counts reports by status and mails the summary. Wired to
// the cron scheduler.
func (s *Service) RunDigest() error {
	if s.digestSender == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	counts, err := s.store.CountReportsByStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to count reports: %w", err)
	}

	return s.digestSender.SendSummary(counts)
}

// dispatchAlert runs detached from the request: the submission response
// is already on its way, so this uses its own context and reports only
// to the observer.
func (s *Service) dispatchAlert(receipt *models.ReportReceipt, organizationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.scheduler.Schedule(ctx, receipt.ID, organizationID, receipt.CreatedAt)
	s.observer.ScheduleAttempted(receipt.ID, err)
}

func (s *Service) archiveRecord(receipt *models.ReportReceipt, report *models.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	record := *report
	record.ID = receipt.ID
	record.CreatedAt = receipt.CreatedAt

	data, err := json.Marshal(&record)
	if err != nil {
		logrus.Errorf("Failed to encode archive record for report %s: %v", receipt.ID, err)
		return
	}

	if err := s.archive.Store(ctx, fmt.Sprintf("report-%s.json", receipt.ID), data); err != nil {
		logrus.Errorf("Failed to archive report %s: %v", receipt.ID, err)
	}
}

func validate(req *SubmitRequest) error {
	if strings.TrimSpace(req.ReporterContact) == "" {
		return fmt.Errorf("%w: reporter contact address is required", ErrValidation)
	}
	if strings.TrimSpace(req.Content) == "" {
		return fmt.Errorf("%w: narrative content is required", ErrValidation)
	}
	if _, ok := models.ValidIncidentTypes[req.IncidentType]; !ok {
		return fmt.Errorf("%w: unknown incident type %q", ErrValidation, req.IncidentType)
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		return fmt.Errorf("%w: organization id is required", ErrValidation)
	}
	// Interim relief is an open enumeration: unknown ids pass through,
	// but each must at least be a non-empty string.
	for _, id := range req.InterimRelief {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: interim relief ids must be non-empty", ErrValidation)
		}
	}
	return nil
}

func structuredUINs(structured []mentions.StructuredMention) []string {
	uins := make([]string, 0, len(structured))
	for _, m := range structured {
		uins = append(uins, m.UIN)
	}
	return uins
}

func subjectUINs(aliases []anonymize.Alias) []string {
	uins := make([]string, 0, len(aliases))
	for _, a := range aliases {
		uins = append(uins, a.UIN)
	}
	return uins
}

func (s *Service) countRejection(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.SubmissionsRejected[reason]++
}

func (s *Service) recordAccepted(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.SubmissionsAccepted++
	s.metrics.LastSubmission = at
}

func (s *Service) countLookup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.StatusLookups++
}

// GetMetrics returns current intake counters as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
