package acceptance

import (
	"context"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
)

func (s *Suite) TestFactorUpsert_SameMethodKeepsOneRow() {
	user := s.seedUser("idempotent@example.com", true)
	ctx := context.Background()

	earlier := time.Now().UTC().Add(-time.Hour)
	first := &domain.AuthFactor{
		UserID:         user.ID,
		FactorType:     domain.FactorGoogle,
		Provider:       domain.FactorGoogle,
		ProviderUserID: "google-sub-1",
		BaseWeight:     25,
		Metadata:       domain.Metadata{"picture": "old.png"},
		LastUsedAt:     &earlier,
	}
	s.Require().NoError(s.Repos.Factor.Upsert(ctx, first))

	later := time.Now().UTC()
	second := &domain.AuthFactor{
		UserID:         user.ID,
		FactorType:     domain.FactorGoogle,
		Provider:       domain.FactorGoogle,
		ProviderUserID: "google-sub-1",
		BaseWeight:     25,
		Metadata:       domain.Metadata{"picture": "new.png"},
		LastUsedAt:     &later,
	}
	s.Require().NoError(s.Repos.Factor.Upsert(ctx, second))

	factors, err := s.Repos.Factor.ListByUser(ctx, user.ID)
	s.Require().NoError(err)

	s.Require().Len(factors, 1, "Re-ingesting the same method must update, never duplicate")
	s.Equal(first.ID, factors[0].ID, "The existing row keeps its identity")
	s.Equal("new.png", factors[0].Metadata.String("picture"), "Metadata should be refreshed")

	s.Require().NotNil(factors[0].LastUsedAt)
	s.True(factors[0].LastUsedAt.After(earlier), "last_used_at should be bumped by the second login")
}

func (s *Suite) TestFactorUpsert_DistinctProvidersKeepDistinctRows() {
	user := s.seedUser("multimethod@example.com", true)
	ctx := context.Background()

	for _, provider := range []string{domain.FactorGoogle, domain.FactorGitHub} {
		factor := &domain.AuthFactor{
			UserID:         user.ID,
			FactorType:     provider,
			Provider:       provider,
			ProviderUserID: provider + "-sub",
			BaseWeight:     15,
		}
		s.Require().NoError(s.Repos.Factor.Upsert(ctx, factor))
	}

	factors, err := s.Repos.Factor.ListByUser(ctx, user.ID)
	s.Require().NoError(err)
	s.Len(factors, 2, "Different providers are separate factors")
}
