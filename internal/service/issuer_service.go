package service

import (
	"context"
	"fmt"

	"github.com/glyph-id/glyph/internal/credential"
	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/internal/repository"
	"github.com/glyph-id/glyph/internal/utils"
	"github.com/glyph-id/glyph/pkg/observability"
)

// issuerService implements IssuerService interface
type issuerService struct {
	userRepo   repository.UserRepository
	factorRepo repository.FactorRepository
	signalRepo repository.SignalRepository
	assembler  *credential.Assembler
	jwtManager *utils.JWTManager
	metrics    *observability.Metrics
}

// NewIssuerService creates a new credential issuer service
func NewIssuerService(
	userRepo repository.UserRepository,
	factorRepo repository.FactorRepository,
	signalRepo repository.SignalRepository,
	assembler *credential.Assembler,
	jwtManager *utils.JWTManager,
	metrics *observability.Metrics,
) IssuerService {
	return &issuerService{
		userRepo:   userRepo,
		factorRepo: factorRepo,
		signalRepo: signalRepo,
		assembler:  assembler,
		jwtManager: jwtManager,
		metrics:    metrics,
	}
}

// IssueForUser recomputes assurance and trust from the current ledger
// snapshot and signs a fresh credential pair.
func (s *issuerService) IssueForUser(ctx context.Context, userID string) (*domain.TokenPair, *domain.GlyphClaims, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	factors, err := s.factorRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load auth factors: %w", err)
	}

	signals, err := s.signalRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load trust signals: %w", err)
	}

	pair, claims, err := s.assembler.Issue(user, factors, signals)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign credential: %w", err)
	}

	s.metrics.CredentialsIssued.Add(ctx, 1)

	return pair, claims, nil
}

// Refresh validates a refresh token and issues a new credential pair.
// The embedded assurance and trust claims are recomputed, never carried
// over from the old credential.
func (s *issuerService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	pair, _, err := s.IssueForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// ValidateToken validates an access token
func (s *issuerService) ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error) {
	return s.jwtManager.ValidateAccessToken(token)
}

// TrustSummary explains the user's current risk to the user themselves.
// It runs the same consent filter and decay math as issuance, so the
// explanation always matches what a credential minted now would say.
func (s *issuerService) TrustSummary(ctx context.Context, userID string) (*TrustSummary, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	signals, err := s.signalRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trust signals: %w", err)
	}

	claims := s.assembler.Assemble(nil, signals)
	trustClaims := claims.Extensions.TrustSignals

	return &TrustSummary{
		Score:      trustClaims.Risk.Score,
		Band:       trustClaims.Risk.Band,
		Provenance: trustClaims.Provenance,
	}, nil
}
