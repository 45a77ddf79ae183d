package utils

import (
	"testing"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	claims := domain.GlyphClaims{
		Assurance: domain.AssuranceClaim{
			Score:         90,
			Level:         domain.LevelBeta,
			Factors:       []string{"google", "kyc"},
			FreshnessDays: 2,
		},
	}

	token, err := manager.SignAccessToken("user-1", "user@example.com", claims)
	if err != nil {
		t.Fatalf("Failed to sign access token: %v", err)
	}

	parsed, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("Failed to validate access token: %v", err)
	}

	if parsed.UserID != "user-1" {
		t.Errorf("Expected user-1, got %s", parsed.UserID)
	}
	if parsed.Email != "user@example.com" {
		t.Errorf("Expected user@example.com, got %s", parsed.Email)
	}
	if parsed.IsExpired() {
		t.Error("Fresh token must not be expired")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	token, err := manager.SignRefreshToken("user-1")
	if err != nil {
		t.Fatalf("Failed to sign refresh token: %v", err)
	}

	userID, err := manager.ValidateRefreshToken(token)
	if err != nil {
		t.Fatalf("Failed to validate refresh token: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("Expected user-1, got %s", userID)
	}
}

func TestRefreshTokenRejectedAsAccessToken(t *testing.T) {
	manager := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	token, err := manager.SignRefreshToken("user-1")
	if err != nil {
		t.Fatalf("Failed to sign refresh token: %v", err)
	}

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Error("Expected a refresh token to be rejected as an access token")
	}
}

func TestAccessTokenRejectedAsRefreshToken(t *testing.T) {
	manager := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)

	token, err := manager.SignAccessToken("user-1", "", domain.GlyphClaims{})
	if err != nil {
		t.Fatalf("Failed to sign access token: %v", err)
	}

	if _, err := manager.ValidateRefreshToken(token); err == nil {
		t.Error("Expected an access token to be rejected as a refresh token")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	manager := NewJWTManager(testSecret, -time.Minute, 7*24*time.Hour)

	token, err := manager.SignAccessToken("user-1", "", domain.GlyphClaims{})
	if err != nil {
		t.Fatalf("Failed to sign access token: %v", err)
	}

	if _, err := manager.ValidateAccessToken(token); err == nil {
		t.Error("Expected an expired token to be rejected")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	manager := NewJWTManager(testSecret, 15*time.Minute, 7*24*time.Hour)
	other := NewJWTManager("another-secret-key-that-is-32-chars-long!", 15*time.Minute, 7*24*time.Hour)

	token, err := manager.SignAccessToken("user-1", "", domain.GlyphClaims{})
	if err != nil {
		t.Fatalf("Failed to sign access token: %v", err)
	}

	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Error("Expected a token signed with a different secret to be rejected")
	}
}

func TestExpirySeconds(t *testing.T) {
	manager := NewJWTManager(testSecret, 30*time.Minute, 7*24*time.Hour)

	if got := manager.AccessTokenExpirySeconds(); got != 1800 {
		t.Errorf("Expected 1800, got %d", got)
	}
	if got := manager.RefreshTokenExpirySeconds(); got != 604800 {
		t.Errorf("Expected 604800, got %d", got)
	}
}
