package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/argon2"

	"github.com/ngenohkevin/libcatalog/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid user id or password")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrInvalidToken       = errors.New("invalid session token")
	ErrTokenExpired       = errors.New("session has expired")
	ErrInvalidHash        = errors.New("invalid hash format")
	ErrMissingSecret      = errors.New("session secret is required")
)

// Credentials turns passwords into stored credentials and checks them
type Credentials interface {
	Encode(password string) (string, error)
	Match(stored, presented string) bool
}

// PlainCredentials stores passwords as given and compares them exactly.
type PlainCredentials struct{}

func (PlainCredentials) Encode(password string) (string, error) {
	return password, nil
}

func (PlainCredentials) Match(stored, presented string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

type Argon2Config struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func DefaultArgon2Config() *Argon2Config {
	return &Argon2Config{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// PasswordHasher stores argon2id hashes in the PHC string format.
type PasswordHasher struct {
	config *Argon2Config
	logger *slog.Logger
}

func NewPasswordHasher(cfg *Argon2Config, logger *slog.Logger) *PasswordHasher {
	if cfg == nil {
		cfg = DefaultArgon2Config()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PasswordHasher{config: cfg, logger: logger}
}

// NewCredentials picks the credential scheme named by auth.credential_mode.
func NewCredentials(mode string, logger *slog.Logger) (Credentials, error) {
	switch mode {
	case "", config.CredentialModePlain:
		return PlainCredentials{}, nil
	case config.CredentialModeArgon2id:
		return NewPasswordHasher(nil, logger), nil
	default:
		return nil, fmt.Errorf("unknown credential mode %q", mode)
	}
}

func (h *PasswordHasher) Encode(password string) (string, error) {
	return h.HashPassword(password)
}

// Match treats malformed stored hashes as a failed login.
func (h *PasswordHasher) Match(stored, presented string) bool {
	ok, err := h.VerifyPassword(stored, presented)
	if err != nil {
		h.logger.Warn("Stored credential is not an argon2id hash", "error", err)
		return false
	}
	return ok
}

func (h *PasswordHasher) HashPassword(password string) (string, error) {
	salt := make([]byte, h.config.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey(
		[]byte(password),
		salt,
		h.config.Iterations,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.config.Memory,
		h.config.Iterations,
		h.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func (h *PasswordHasher) VerifyPassword(hashedPassword, password string) (bool, error) {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("invalid version: %w", err)
	}
	if version != argon2.Version {
		return false, errors.New("incompatible argon2 version")
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("invalid parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("error decoding salt: %w", err)
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("error decoding hash: %w", err)
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

// SessionClaims identify the member a CLI session belongs to
type SessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// SessionService signs and checks HS256 session tokens
type SessionService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewSessionService(secret []byte, expiry time.Duration) (*SessionService, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if expiry <= 0 {
		expiry = 8 * time.Hour
	}
	return &SessionService{secret: secret, expiry: expiry, now: time.Now}, nil
}

// Issue returns a signed token for userID and its expiry time.
func (s *SessionService) Issue(userID string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.expiry)
	claims := &SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expires, nil
}

func (s *SessionService) Validate(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
