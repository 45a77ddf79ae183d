package acceptance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/internal/dto"
	"github.com/glyph-id/glyph/internal/service"
	"github.com/google/uuid"
)

func (s *Suite) reportSignal(req dto.SignalReportRequest) *http.Response {
	body, _ := json.Marshal(req)
	resp, err := http.Post(
		s.BaseURL+"/api/v1/trust/signals",
		"application/json",
		bytes.NewBuffer(body),
	)
	s.Require().NoError(err)
	return resp
}

func blockReport(userID string, consented bool) dto.SignalReportRequest {
	since := time.Now().UTC().Format(time.RFC3339)
	expires := time.Now().UTC().AddDate(0, 0, 30).Format(time.RFC3339)
	return dto.SignalReportRequest{
		UserID:         userID,
		Issuer:         "moderation.example",
		Kind:           domain.SignalBlock,
		Weight:         1.0,
		JWS:            "test-jws",
		Since:          &since,
		ExpiresAt:      &expires,
		ConsentGranted: consented,
	}
}

func (s *Suite) TestReportSignal_Success() {
	user := s.seedUser("signal@example.com", true)

	resp := s.reportSignal(blockReport(user.ID, true))
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var accepted dto.SignalAcceptedResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&accepted))

	s.Equal("moderation.example", accepted.Issuer)
	s.Equal(domain.SignalBlock, accepted.Kind)
	s.Equal(1, accepted.Count)
	s.True(accepted.ConsentGranted)
}

func (s *Suite) TestReportSignal_RepeatAccumulatesCount() {
	user := s.seedUser("repeat@example.com", true)

	first := s.reportSignal(blockReport(user.ID, true))
	first.Body.Close()

	resp := s.reportSignal(blockReport(user.ID, true))
	defer resp.Body.Close()

	s.Equal(http.StatusCreated, resp.StatusCode)

	var accepted dto.SignalAcceptedResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&accepted))
	s.Equal(2, accepted.Count, "Repeated reports should accumulate, not duplicate")
}

func (s *Suite) TestReportSignal_UnknownUser() {
	resp := s.reportSignal(blockReport(uuid.New().String(), true))
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *Suite) TestReportSignal_MissingWeight() {
	user := s.seedUser("badreport@example.com", true)

	report := blockReport(user.ID, true)
	report.Weight = 0

	resp := s.reportSignal(report)
	defer resp.Body.Close()

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *Suite) TestTrustSummary_ConsentedSignal() {
	user := s.seedUser("trust@example.com", true)

	resp := s.reportSignal(blockReport(user.ID, true))
	resp.Body.Close()

	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/me/trust", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.accessToken(user)))

	summaryResp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer summaryResp.Body.Close()

	s.Equal(http.StatusOK, summaryResp.StatusCode)

	var summary service.TrustSummary
	s.Require().NoError(json.NewDecoder(summaryResp.Body).Decode(&summary))

	s.Equal(10, summary.Score)
	s.Equal(domain.BandLow, summary.Band)
	s.Require().Len(summary.Provenance, 1)
	s.Equal("moderation.example", summary.Provenance[0].Issuer)
	s.Equal("test-jws", summary.Provenance[0].JWS)
}

func (s *Suite) TestTrustSummary_NoConsentNoRisk() {
	user := s.seedUser("noconsent@example.com", true)

	resp := s.reportSignal(blockReport(user.ID, false))
	resp.Body.Close()

	req, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/me/trust", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.accessToken(user)))

	summaryResp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer summaryResp.Body.Close()

	s.Equal(http.StatusOK, summaryResp.StatusCode)

	var summary service.TrustSummary
	s.Require().NoError(json.NewDecoder(summaryResp.Body).Decode(&summary))

	s.Equal(0, summary.Score)
	s.Equal(domain.BandLow, summary.Band)
	s.Empty(summary.Provenance)
}

func (s *Suite) TestUpdateConsent_RevokeExcludesSignal() {
	user := s.seedUser("revoke@example.com", true)

	resp := s.reportSignal(blockReport(user.ID, true))
	resp.Body.Close()

	update := dto.ConsentUpdateRequest{
		Issuer:  "moderation.example",
		Kind:    domain.SignalBlock,
		Granted: false,
	}
	body, _ := json.Marshal(update)

	req, _ := http.NewRequest("PUT", s.BaseURL+"/api/v1/me/trust/consent", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.accessToken(user)))

	updateResp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer updateResp.Body.Close()

	s.Equal(http.StatusOK, updateResp.StatusCode)

	summaryReq, _ := http.NewRequest("GET", s.BaseURL+"/api/v1/me/trust", nil)
	summaryReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.accessToken(user)))

	summaryResp, err := http.DefaultClient.Do(summaryReq)
	s.Require().NoError(err)
	defer summaryResp.Body.Close()

	var summary service.TrustSummary
	s.Require().NoError(json.NewDecoder(summaryResp.Body).Decode(&summary))

	s.Equal(0, summary.Score, "Revoked consent must exclude the signal from risk")
	s.Empty(summary.Provenance)
}

func (s *Suite) TestUpdateConsent_UnknownSignal() {
	user := s.seedUser("nosignal@example.com", true)

	update := dto.ConsentUpdateRequest{
		Issuer:  "nobody.example",
		Kind:    domain.SignalBlock,
		Granted: true,
	}
	body, _ := json.Marshal(update)

	req, _ := http.NewRequest("PUT", s.BaseURL+"/api/v1/me/trust/consent", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.accessToken(user)))

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusNotFound, resp.StatusCode)
}
