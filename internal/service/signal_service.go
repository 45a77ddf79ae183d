package service

import (
	"context"
	"fmt"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/internal/repository"
	"github.com/glyph-id/glyph/pkg/observability"
)

// signalService implements SignalService interface
type signalService struct {
	userRepo      repository.UserRepository
	signalRepo    repository.SignalRepository
	retentionDays int
	metrics       *observability.Metrics
	now           func() time.Time
}

// NewSignalService creates a new trust signal service
func NewSignalService(
	userRepo repository.UserRepository,
	signalRepo repository.SignalRepository,
	retentionDays int,
	metrics *observability.Metrics,
) SignalService {
	return &signalService{
		userRepo:      userRepo,
		signalRepo:    signalRepo,
		retentionDays: retentionDays,
		metrics:       metrics,
		now:           time.Now,
	}
}

// Report ingests a signal report from an external issuer. Repeated
// reports for the same (user, issuer, kind) accumulate their counts in
// the ledger upsert instead of creating rows.
func (s *signalService) Report(ctx context.Context, report *SignalReport) (*domain.TrustSignal, error) {
	if _, err := s.userRepo.GetByID(ctx, report.UserID); err != nil {
		return nil, err
	}

	count := report.Count
	if count <= 0 {
		count = 1
	}

	since := s.now().UTC()
	if report.Since != nil {
		since = report.Since.UTC()
	}

	signal := &domain.TrustSignal{
		UserID:             report.UserID,
		Issuer:             report.Issuer,
		Kind:               report.Kind,
		Count:              count,
		Weight:             report.Weight,
		IndependenceFactor: report.IndependenceFactor,
		Credibility:        report.Credibility,
		JWS:                report.JWS,
		ConsentGranted:     report.ConsentGranted,
		ConsentScope:       report.ConsentScope,
		Metadata:           report.Metadata,
		Since:              since,
		ExpiresAt:          report.ExpiresAt,
	}

	if err := s.signalRepo.Upsert(ctx, signal); err != nil {
		return nil, fmt.Errorf("failed to store trust signal: %w", err)
	}

	s.metrics.SignalsIngested.Add(ctx, 1)

	return signal, nil
}

// UpdateConsent updates the consent decision for one (issuer, kind)
// signal. Revoking consent keeps the signal in the ledger but excludes
// it from every future credential.
func (s *signalService) UpdateConsent(ctx context.Context, userID, issuer, kind string, granted bool, scope domain.ConsentScope) error {
	return s.signalRepo.UpdateConsent(ctx, userID, issuer, kind, granted, scope)
}

// SweepExpired deletes signals older than the retention window
func (s *signalService) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -s.retentionDays)

	deleted, err := s.signalRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired signals: %w", err)
	}

	if deleted > 0 {
		s.metrics.SignalsDecayed.Add(ctx, deleted)
	}

	return deleted, nil
}
