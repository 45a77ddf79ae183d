package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/glyph-id/glyph/internal/config"
	"github.com/glyph-id/glyph/internal/domain"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

var (
	// ErrNoCredentials is returned when a user has no passkey to
	// authenticate with.
	ErrNoCredentials = errors.New("no webauthn credentials registered")

	// ErrVerificationFailed wraps library verification errors so the
	// boundary can translate them uniformly.
	ErrVerificationFailed = errors.New("webauthn verification failed")
)

// Factor metadata keys for passkey credentials.
const (
	metaCredentialID   = "credential_id"
	metaPublicKey      = "public_key"
	metaSignCount      = "sign_count"
	metaAAGUID         = "aaguid"
	metaBackupEligible = "backup_eligible"
	metaBackupState    = "backup_state"
)

// WebAuthnService runs passkey ceremonies. Challenge state is written
// to the challenge store on begin and consumed exactly once on finish.
type WebAuthnService struct {
	wa    *webauthn.WebAuthn
	store *ChallengeStore
	ttl   config.Duration
}

// NewWebAuthnService creates a new WebAuthn service for the configured
// relying party
func NewWebAuthnService(cfg config.WebAuthnConfig, store *ChallengeStore) (*WebAuthnService, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPName,
		RPID:          cfg.RPID,
		RPOrigins:     []string{cfg.Origin},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure webauthn: %w", err)
	}

	return &WebAuthnService{
		wa:    wa,
		store: store,
		ttl:   cfg.ChallengeTTL,
	}, nil
}

// BeginRegistration starts a passkey registration ceremony and returns
// the challenge id the client must echo back on finish
func (s *WebAuthnService) BeginRegistration(ctx context.Context, user *domain.User, factors []domain.AuthFactor) (string, *protocol.CredentialCreation, error) {
	waUser := newLedgerUser(user, factors)

	creation, session, err := s.wa.BeginRegistration(waUser)
	if err != nil {
		return "", nil, fmt.Errorf("failed to begin registration: %w", err)
	}

	challengeID, err := s.putSession(ctx, session)
	if err != nil {
		return "", nil, err
	}

	return challengeID, creation, nil
}

// FinishRegistration consumes the challenge, verifies the attestation
// response and returns the factor metadata for the new credential. On
// any failure nothing is written to the ledger.
func (s *WebAuthnService) FinishRegistration(ctx context.Context, user *domain.User, factors []domain.AuthFactor, challengeID string, response []byte) (domain.Metadata, error) {
	session, err := s.takeSession(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	credential, err := s.wa.CreateCredential(newLedgerUser(user, factors), *session, parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	return credentialMetadata(credential), nil
}

// BeginLogin starts a passkey authentication ceremony
func (s *WebAuthnService) BeginLogin(ctx context.Context, user *domain.User, factors []domain.AuthFactor) (string, *protocol.CredentialAssertion, error) {
	waUser := newLedgerUser(user, factors)
	if len(waUser.credentials) == 0 {
		return "", nil, ErrNoCredentials
	}

	assertion, session, err := s.wa.BeginLogin(waUser)
	if err != nil {
		return "", nil, fmt.Errorf("failed to begin login: %w", err)
	}

	challengeID, err := s.putSession(ctx, session)
	if err != nil {
		return "", nil, err
	}

	return challengeID, assertion, nil
}

// FinishLogin consumes the challenge, verifies the assertion and
// returns refreshed factor metadata carrying the new signature counter.
// A counter regression trips the library's clone warning and fails the
// login.
func (s *WebAuthnService) FinishLogin(ctx context.Context, user *domain.User, factors []domain.AuthFactor, challengeID string, response []byte) (domain.Metadata, error) {
	session, err := s.takeSession(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(response))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	credential, err := s.wa.ValidateLogin(newLedgerUser(user, factors), *session, parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if credential.Authenticator.CloneWarning {
		return nil, fmt.Errorf("%w: signature counter regression, possible cloned credential", ErrVerificationFailed)
	}

	return credentialMetadata(credential), nil
}

func (s *WebAuthnService) putSession(ctx context.Context, session *webauthn.SessionData) (string, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}

	challengeID := uuid.New().String()
	if err := s.store.Put(ctx, challengeID, string(payload), s.ttl.Duration); err != nil {
		return "", err
	}

	return challengeID, nil
}

func (s *WebAuthnService) takeSession(ctx context.Context, challengeID string) (*webauthn.SessionData, error) {
	payload, err := s.store.Take(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	var session webauthn.SessionData
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &session, nil
}

// credentialMetadata renders a verified credential as factor metadata.
func credentialMetadata(credential *webauthn.Credential) domain.Metadata {
	return domain.Metadata{
		metaCredentialID:   base64.RawURLEncoding.EncodeToString(credential.ID),
		metaPublicKey:      base64.RawURLEncoding.EncodeToString(credential.PublicKey),
		metaSignCount:      credential.Authenticator.SignCount,
		metaAAGUID:         base64.RawURLEncoding.EncodeToString(credential.Authenticator.AAGUID),
		metaBackupEligible: credential.Flags.BackupEligible,
		metaBackupState:    credential.Flags.BackupState,
	}
}

// ledgerUser adapts a user plus their webauthn factors to the library's
// user contract.
type ledgerUser struct {
	user        *domain.User
	credentials []webauthn.Credential
}

func newLedgerUser(user *domain.User, factors []domain.AuthFactor) *ledgerUser {
	u := &ledgerUser{user: user}

	for _, factor := range factors {
		if factor.FactorType != domain.FactorWebAuthn {
			continue
		}

		credential, ok := credentialFromMetadata(factor.Metadata)
		if !ok {
			continue
		}
		u.credentials = append(u.credentials, credential)
	}

	return u
}

func credentialFromMetadata(metadata domain.Metadata) (webauthn.Credential, bool) {
	id, err := base64.RawURLEncoding.DecodeString(metadata.String(metaCredentialID))
	if err != nil || len(id) == 0 {
		return webauthn.Credential{}, false
	}

	publicKey, err := base64.RawURLEncoding.DecodeString(metadata.String(metaPublicKey))
	if err != nil {
		return webauthn.Credential{}, false
	}

	aaguid, err := base64.RawURLEncoding.DecodeString(metadata.String(metaAAGUID))
	if err != nil {
		aaguid = nil
	}

	// JSONB numbers come back as float64.
	var signCount uint32
	if v, ok := metadata[metaSignCount].(float64); ok {
		signCount = uint32(v)
	}

	return webauthn.Credential{
		ID:        id,
		PublicKey: publicKey,
		Authenticator: webauthn.Authenticator{
			AAGUID:    aaguid,
			SignCount: signCount,
		},
	}, true
}

func (u *ledgerUser) WebAuthnID() []byte {
	return []byte(u.user.ID)
}

func (u *ledgerUser) WebAuthnName() string {
	if u.user.Email != "" {
		return u.user.Email
	}
	return u.user.ID
}

func (u *ledgerUser) WebAuthnDisplayName() string {
	return u.WebAuthnName()
}

func (u *ledgerUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}
