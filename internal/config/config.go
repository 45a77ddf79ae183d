package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// devSecret is the built-in signing secret used when none is configured.
// Load rejects it outside development so the process can run with zero
// configuration locally but never ship with a known key.
const devSecret = "glyph-dev-secret-do-not-use-in-production"

type Config struct {
	Server    ServerConfig    `env:",prefix=SERVER_"`
	Postgres  PostgresConfig  `env:",prefix=POSTGRES_"`
	Redis     RedisConfig     `env:",prefix=REDIS_"`
	JWT       JWTConfig       `env:",prefix=JWT_"`
	Assurance AssuranceConfig `env:",prefix=ASSURANCE_"`
	Trust     TrustConfig     `env:",prefix=TRUST_"`
	WebAuthn  WebAuthnConfig  `env:",prefix=WEBAUTHN_"`
	OAuth     OAuthConfig     `env:",prefix=OAUTH_"`
	Security  SecurityConfig  `env:",prefix="`
	CORS      CORSConfig      `env:",prefix=CORS_"`
	Env       string          `env:"ENV,default=development"`
}

type ServerConfig struct {
	Port         string   `env:"PORT,default=8080"`
	Host         string   `env:"HOST,default=0.0.0.0"`
	ReadTimeout  Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout Duration `env:"WRITE_TIMEOUT,default=15s"`
}

type PostgresConfig struct {
	Host           string `env:"HOST,default=localhost"`
	Port           string `env:"PORT,default=5432"`
	User           string `env:"USER,default=glyph"`
	Password       string `env:"PASSWORD,default=glyph_password"`
	DBName         string `env:"DB,default=glyph_db"`
	SSLMode        string `env:"SSLMODE,default=disable"`
	MigrationsPath string `env:"MIGRATIONS,default=migrations"`
}

type RedisConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=6379"`
	Password string `env:"PASSWORD,default="`
	DB       int    `env:"DB,default=0"`
}

type JWTConfig struct {
	Secret             string   `env:"SECRET,default=glyph-dev-secret-do-not-use-in-production"`
	AccessTokenExpiry  Duration `env:"ACCESS_TOKEN_EXPIRY,default=30m"`
	RefreshTokenExpiry Duration `env:"REFRESH_TOKEN_EXPIRY,default=7d"`
}

// AssuranceConfig holds the level thresholds. Gamma additionally
// requires a recently used webauthn factor.
type AssuranceConfig struct {
	LevelAlpha int `env:"LEVEL_ALPHA,default=40"`
	LevelBeta  int `env:"LEVEL_BETA,default=70"`
	LevelGamma int `env:"LEVEL_GAMMA,default=85"`
}

// TrustConfig tunes the risk engine and the retention housekeeping.
type TrustConfig struct {
	HalfLifeDays    int      `env:"HALF_LIFE_DAYS,default=90"`
	MinFreshness    float64  `env:"MIN_FRESHNESS,default=0.15"`
	RetentionDays   int      `env:"RETENTION_DAYS,default=180"`
	ProvenanceLimit int      `env:"PROVENANCE_LIMIT,default=10"`
	RiskTTL         Duration `env:"RISK_TTL,default=7d"`
	SweepInterval   Duration `env:"SWEEP_INTERVAL,default=1h"`
}

// WebAuthnConfig identifies the relying party.
type WebAuthnConfig struct {
	RPID         string   `env:"RP_ID,default=localhost"`
	RPName       string   `env:"RP_NAME,default=Glyph"`
	Origin       string   `env:"ORIGIN,default=http://localhost:8080"`
	ChallengeTTL Duration `env:"CHALLENGE_TTL,default=5m"`
}

type OAuthProviderConfig struct {
	ClientID     string `env:"CLIENT_ID,default="`
	ClientSecret string `env:"CLIENT_SECRET,default="`
}

type OAuthConfig struct {
	Google       OAuthProviderConfig `env:",prefix=GOOGLE_"`
	Microsoft    OAuthProviderConfig `env:",prefix=MICROSOFT_"`
	GitHub       OAuthProviderConfig `env:",prefix=GITHUB_"`
	X            OAuthProviderConfig `env:",prefix=X_"`
	RedirectBase string              `env:"REDIRECT_BASE,default=http://localhost:8080"`
	StateTTL     Duration            `env:"STATE_TTL,default=10m"`
}

type SecurityConfig struct {
	RateLimitRequests int      `env:"RATE_LIMIT_REQUESTS,default=10"`
	RateLimitWindow   Duration `env:"RATE_LIMIT_WINDOW,default=1m"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:5173,http://localhost:3000"`
	AllowedMethods []string `env:"ALLOWED_METHODS,default=GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders []string `env:"ALLOWED_HEADERS,default=Content-Type,Authorization"`
}

// DSN returns the PostgreSQL connection string in key/value form
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// URL returns the PostgreSQL connection string in URL form, as required
// by golang-migrate
func (p PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// Address returns the Redis connection address
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var config Config

	if err := envconfig.Process(ctx, &config); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(config.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if config.Env == "production" && config.JWT.Secret == devSecret {
		return nil, fmt.Errorf("JWT_SECRET must be overridden in production")
	}

	return &config, nil
}

// LoadWithDefaults loads configuration with default context
func LoadWithDefaults() (*Config, error) {
	return Load(context.Background())
}
