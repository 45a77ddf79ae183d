package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/glyph-id/glyph/internal/config"
	"github.com/glyph-id/glyph/internal/domain"
	"golang.org/x/oauth2"
)

// ErrUnknownProvider is returned for providers absent from the registry.
var ErrUnknownProvider = errors.New("unknown or unconfigured oauth provider")

// NormalizedProfile is the provider-independent result of a profile
// fetch, the ingestion input for the factor ledger.
type NormalizedProfile struct {
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	Username       string
	Picture        string
	Verified       bool
}

// Metadata returns the provider-supplied attributes stored on the factor.
func (p *NormalizedProfile) Metadata() domain.Metadata {
	return domain.Metadata{
		"name":     p.Name,
		"picture":  p.Picture,
		"username": p.Username,
		"verified": p.Verified,
	}
}

// ProfileFetcher fetches and normalizes a provider profile using an
// already-authorized HTTP client. One implementation per provider,
// selected through the registry built at startup.
type ProfileFetcher interface {
	Fetch(ctx context.Context, client *http.Client) (*NormalizedProfile, error)
}

type providerEntry struct {
	config  *oauth2.Config
	fetcher ProfileFetcher
}

// OAuthService holds the provider registry. Providers without
// configured credentials are simply not registered.
type OAuthService struct {
	providers map[string]providerEntry
}

// NewOAuthService builds the provider registry from configuration
func NewOAuthService(cfg config.OAuthConfig) *OAuthService {
	s := &OAuthService{providers: make(map[string]providerEntry)}

	redirect := func(provider string) string {
		return fmt.Sprintf("%s/api/v1/auth/oauth/%s/callback", cfg.RedirectBase, provider)
	}

	if cfg.Google.ClientID != "" {
		s.providers["google"] = providerEntry{
			config: &oauth2.Config{
				ClientID:     cfg.Google.ClientID,
				ClientSecret: cfg.Google.ClientSecret,
				RedirectURL:  redirect("google"),
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
					TokenURL: "https://oauth2.googleapis.com/token",
				},
			},
			fetcher: googleFetcher{},
		}
	}

	if cfg.Microsoft.ClientID != "" {
		s.providers["microsoft"] = providerEntry{
			config: &oauth2.Config{
				ClientID:     cfg.Microsoft.ClientID,
				ClientSecret: cfg.Microsoft.ClientSecret,
				RedirectURL:  redirect("microsoft"),
				Scopes:       []string{"openid", "email", "profile", "User.Read"},
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
					TokenURL: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
				},
			},
			fetcher: microsoftFetcher{},
		}
	}

	if cfg.GitHub.ClientID != "" {
		s.providers["github"] = providerEntry{
			config: &oauth2.Config{
				ClientID:     cfg.GitHub.ClientID,
				ClientSecret: cfg.GitHub.ClientSecret,
				RedirectURL:  redirect("github"),
				Scopes:       []string{"read:user", "user:email"},
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://github.com/login/oauth/authorize",
					TokenURL: "https://github.com/login/oauth/access_token",
				},
			},
			fetcher: githubFetcher{},
		}
	}

	if cfg.X.ClientID != "" {
		s.providers["x"] = providerEntry{
			config: &oauth2.Config{
				ClientID:     cfg.X.ClientID,
				ClientSecret: cfg.X.ClientSecret,
				RedirectURL:  redirect("x"),
				Scopes:       []string{"tweet.read", "users.read"},
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://twitter.com/i/oauth2/authorize",
					TokenURL: "https://api.twitter.com/2/oauth2/token",
				},
			},
			fetcher: xFetcher{},
		}
	}

	return s
}

// AuthCodeURL returns the provider's authorization page URL
func (s *OAuthService) AuthCodeURL(provider, state string) (string, error) {
	entry, ok := s.providers[provider]
	if !ok {
		return "", ErrUnknownProvider
	}
	return entry.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange trades an authorization code for a token
func (s *OAuthService) Exchange(ctx context.Context, provider, code string) (*oauth2.Token, error) {
	entry, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	token, err := entry.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return token, nil
}

// FetchProfile retrieves the normalized profile for a token
func (s *OAuthService) FetchProfile(ctx context.Context, provider string, token *oauth2.Token) (*NormalizedProfile, error) {
	entry, ok := s.providers[provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	return entry.fetcher.Fetch(ctx, entry.config.Client(ctx, token))
}

// Known reports whether a provider is registered
func (s *OAuthService) Known(provider string) bool {
	_, ok := s.providers[provider]
	return ok
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("profile request returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

type googleFetcher struct{}

func (googleFetcher) Fetch(ctx context.Context, client *http.Client) (*NormalizedProfile, error) {
	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}

	if err := getJSON(ctx, client, "https://www.googleapis.com/oauth2/v2/userinfo", &info); err != nil {
		return nil, err
	}

	return &NormalizedProfile{
		Provider:       "google",
		ProviderUserID: info.ID,
		Email:          info.Email,
		EmailVerified:  info.VerifiedEmail,
		Name:           info.Name,
		Picture:        info.Picture,
	}, nil
}

type microsoftFetcher struct{}

func (microsoftFetcher) Fetch(ctx context.Context, client *http.Client) (*NormalizedProfile, error) {
	var info struct {
		ID                string `json:"id"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
		DisplayName       string `json:"displayName"`
	}

	if err := getJSON(ctx, client, "https://graph.microsoft.com/v1.0/me", &info); err != nil {
		return nil, err
	}

	email := info.Mail
	if email == "" {
		email = info.UserPrincipalName
	}

	return &NormalizedProfile{
		Provider:       "microsoft",
		ProviderUserID: info.ID,
		Email:          email,
		EmailVerified:  true, // Microsoft accounts are verified
		Name:           info.DisplayName,
	}, nil
}

type githubFetcher struct{}

func (githubFetcher) Fetch(ctx context.Context, client *http.Client) (*NormalizedProfile, error) {
	var user struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	}

	if err := getJSON(ctx, client, "https://api.github.com/user", &user); err != nil {
		return nil, err
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}

	if err := getJSON(ctx, client, "https://api.github.com/user/emails", &emails); err != nil {
		return nil, err
	}

	var email string
	var verified bool
	for i, e := range emails {
		if e.Primary || i == 0 {
			email = e.Email
			verified = e.Verified
		}
		if e.Primary {
			break
		}
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &NormalizedProfile{
		Provider:       "github",
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          email,
		EmailVerified:  verified,
		Name:           name,
		Username:       user.Login,
		Picture:        user.AvatarURL,
	}, nil
}

type xFetcher struct{}

func (xFetcher) Fetch(ctx context.Context, client *http.Client) (*NormalizedProfile, error) {
	var resp struct {
		Data struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			ProfileImageURL string `json:"profile_image_url"`
			Verified        bool   `json:"verified"`
		} `json:"data"`
	}

	url := "https://api.twitter.com/2/users/me?user.fields=profile_image_url,verified"
	if err := getJSON(ctx, client, url, &resp); err != nil {
		return nil, err
	}

	// X OAuth 2.0 never exposes the account email.
	return &NormalizedProfile{
		Provider:       "x",
		ProviderUserID: resp.Data.ID,
		Name:           resp.Data.Name,
		Username:       resp.Data.Username,
		Picture:        resp.Data.ProfileImageURL,
		Verified:       resp.Data.Verified,
	}, nil
}
