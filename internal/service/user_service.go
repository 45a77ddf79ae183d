package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glyph-id/glyph/internal/assurance"
	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/internal/repository"
	"github.com/glyph-id/glyph/pkg/observability"
)

// userService implements UserService interface
type userService struct {
	userRepo      repository.UserRepository
	factorRepo    repository.FactorRepository
	assuranceCalc *assurance.Calculator
	metrics       *observability.Metrics
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repository.UserRepository,
	factorRepo repository.FactorRepository,
	assuranceCalc *assurance.Calculator,
	metrics *observability.Metrics,
) UserService {
	return &userService{
		userRepo:      userRepo,
		factorRepo:    factorRepo,
		assuranceCalc: assuranceCalc,
		metrics:       metrics,
	}
}

// GetOrCreateUser looks a user up by email, promoting the verified flag
// when a provider now vouches for the address, or creates a fresh user
// when no match exists.
func (s *userService) GetOrCreateUser(ctx context.Context, email string, emailVerified bool) (*domain.User, error) {
	if email != "" {
		user, err := s.userRepo.GetByEmail(ctx, email)
		if err == nil {
			if emailVerified && !user.EmailVerified {
				if err := s.userRepo.MarkEmailVerified(ctx, user.ID); err != nil {
					return nil, fmt.Errorf("failed to promote email verification: %w", err)
				}
				user.EmailVerified = true
			}
			return user, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
	}

	user := &domain.User{
		Email:         email,
		EmailVerified: emailVerified,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUser gets a user by ID
func (s *userService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// GetUserByEmail gets a user by email
func (s *userService) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.GetByEmail(ctx, email)
}

// UpsertFactor records a successful authentication via a method. A
// first authentication creates the factor with its table-driven base
// weight; later ones bump last-used and refresh metadata through the
// ledger upsert.
func (s *userService) UpsertFactor(
	ctx context.Context,
	userID, factorType, provider, providerUserID string,
	metadata domain.Metadata,
) (*domain.AuthFactor, error) {
	now := time.Now().UTC()

	factor := &domain.AuthFactor{
		UserID:             userID,
		FactorType:         factorType,
		Provider:           provider,
		ProviderUserID:     providerUserID,
		BaseWeight:         s.assuranceCalc.WeightFor(factorType),
		IndependenceFactor: 1.0,
		Metadata:           metadata,
		LastUsedAt:         &now,
	}

	if err := s.factorRepo.Upsert(ctx, factor); err != nil {
		return nil, err
	}

	s.metrics.FactorsIngested.Add(ctx, 1)

	return factor, nil
}

// ListFactors retrieves all auth factors for a user
func (s *userService) ListFactors(ctx context.Context, userID string) ([]domain.AuthFactor, error) {
	return s.factorRepo.ListByUser(ctx, userID)
}
