package acceptance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/glyph-id/glyph/internal/assurance"
	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/internal/dto"
)

func (s *Suite) seedUser(email string, verified bool) *domain.User {
	user := &domain.User{
		Email:         email,
		EmailVerified: verified,
	}
	s.Require().NoError(s.Repos.User.Create(context.Background(), user))
	return user
}

func (s *Suite) seedFactor(userID, factorType string) {
	now := time.Now().UTC()
	factor := &domain.AuthFactor{
		UserID:             userID,
		FactorType:         factorType,
		BaseWeight:         assurance.DefaultWeights[factorType],
		IndependenceFactor: 1.0,
		LastUsedAt:         &now,
	}
	s.Require().NoError(s.Repos.Factor.Upsert(context.Background(), factor))
}

func (s *Suite) accessToken(user *domain.User) string {
	token, err := s.JWTManager.SignAccessToken(user.ID, user.Email, domain.GlyphClaims{})
	s.Require().NoError(err)
	return token
}

func (s *Suite) TestRefresh_Success() {
	user := s.seedUser("refresh@example.com", true)
	s.seedFactor(user.ID, domain.FactorGoogle)

	refreshToken, err := s.JWTManager.SignRefreshToken(user.ID)
	s.Require().NoError(err)

	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: refreshToken})

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var tokenResp dto.TokenResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&tokenResp))

	s.NotEmpty(tokenResp.AccessToken)
	s.Equal("bearer", tokenResp.TokenType)
	s.NotZero(tokenResp.ExpiresIn)

	s.NotEmpty(resp.Cookies(), "Should rotate the refresh token cookie")

	// The fresh access token must carry the recomputed credential
	claims, err := s.JWTManager.ValidateAccessToken(tokenResp.AccessToken)
	s.Require().NoError(err)
	s.Equal(user.ID, claims.UserID)
}

func (s *Suite) TestRefresh_NoCookie() {
	resp, err := http.Post(s.BaseURL+"/api/v1/auth/refresh", "application/json", nil)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestRefresh_InvalidToken() {
	req, _ := http.NewRequest("POST", s.BaseURL+"/api/v1/auth/refresh", nil)
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "not-a-token"})

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe_BetaWithoutWebAuthn() {
	user := s.seedUser("beta@example.com", true)
	s.seedFactor(user.ID, domain.FactorGoogle)
	s.seedFactor(user.ID, domain.FactorMicrosoft)
	s.seedFactor(user.ID, domain.FactorKYC)

	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/me", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.accessToken(user)))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var meResp dto.MeResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&meResp))

	s.Equal(user.ID, meResp.ID)
	s.Equal("beta@example.com", meResp.Email)
	s.Equal(90, meResp.Assurance.Score)
	s.Equal(domain.LevelBeta, meResp.Assurance.Level)
	s.Len(meResp.Factors, 3)
}

func (s *Suite) TestGetMe_GammaWithWebAuthn() {
	user := s.seedUser("gamma@example.com", true)
	s.seedFactor(user.ID, domain.FactorGoogle)
	s.seedFactor(user.ID, domain.FactorMicrosoft)
	s.seedFactor(user.ID, domain.FactorKYC)
	s.seedFactor(user.ID, domain.FactorWebAuthn)

	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/me", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.accessToken(user)))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var meResp dto.MeResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&meResp))

	s.Equal(125, meResp.Assurance.Score)
	s.Equal(domain.LevelGamma, meResp.Assurance.Level)
	s.Contains(meResp.Assurance.Factors, domain.FactorWebAuthn)
}

func (s *Suite) TestGetMe_NoToken() {
	resp, err := http.Get(s.BaseURL + "/api/v1/me")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *Suite) TestGetMe_InvalidToken() {
	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
