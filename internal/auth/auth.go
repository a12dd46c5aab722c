package auth

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/karvek/albion-scalper/internal/config"
	"github.com/karvek/albion-scalper/internal/models"
)

var (
	// ErrInvalidCredentials is returned for bad email/password pairs and
	// unusable tokens alike, so callers leak nothing about which part failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when a verified account already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrNotPending is returned when a token verifies but no matching
	// registration is waiting, typically because it expired.
	ErrNotPending = errors.New("no pending registration for token")
)

// verificationClaims is the payload of an email verification token.
type verificationClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service handles registration with email verification. Pending
// registrations live in memory only; a restart simply asks the user to
// register again, which matches the token lifetime anyway.
type Service struct {
	secret []byte
	cost   int
	expiry time.Duration
	mailer Mailer
	logger *logrus.Entry

	mu      sync.Mutex
	pending map[string]models.PendingRegistration
	users   map[string]models.User
}

// NewService builds the auth service from the security configuration.
// mailer may be nil, in which case verification links are only logged.
func NewService(cfg config.SecurityConfig, mailer Mailer, logger *logrus.Logger) (*Service, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: jwt secret is not set", models.ErrConfigInvalid)
	}
	expiry := 30 * time.Minute
	if cfg.VerificationExpiry != "" {
		parsed, err := time.ParseDuration(cfg.VerificationExpiry)
		if err != nil {
			return nil, fmt.Errorf("%w: bad verification expiry: %v", models.ErrConfigInvalid, err)
		}
		expiry = parsed
	}
	return &Service{
		secret:  []byte(cfg.JWTSecret),
		cost:    cfg.BcryptCost,
		expiry:  expiry,
		mailer:  mailer,
		logger:  logger.WithField("component", "auth"),
		pending: make(map[string]models.PendingRegistration),
		users:   make(map[string]models.User),
	}, nil
}

// HashPassword hashes a plaintext password with the configured cost.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword checks a plaintext password against its stored hash.
func (s *Service) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateEmail reports whether the address parses as a bare RFC 5322
// mailbox.
func ValidateEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// Reject display-name forms like `Bob <bob@example.com>`.
	return addr.Address == email && strings.Contains(email, "@")
}

// Register validates the address, stores a pending registration and
// sends the verification link. Re-registering an unverified address
// replaces the earlier attempt.
func (s *Service) Register(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !ValidateEmail(email) {
		return "", fmt.Errorf("%w: malformed email address", models.ErrInvalidRequest)
	}
	if len(password) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", models.ErrInvalidRequest)
	}

	s.mu.Lock()
	_, taken := s.users[email]
	s.mu.Unlock()
	if taken {
		return "", ErrEmailTaken
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return "", err
	}

	token, err := s.createVerificationToken(email)
	if err != nil {
		return "", err
	}

	now := time.Now()
	s.mu.Lock()
	s.pending[email] = models.PendingRegistration{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.expiry),
	}
	s.mu.Unlock()

	if s.mailer != nil {
		if err := s.mailer.SendVerification(email, token); err != nil {
			s.logger.WithError(err).WithField("email", email).
				Error("Failed to send verification email")
			return "", err
		}
	} else {
		s.logger.WithField("email", email).Info("No mailer configured, verification token issued without email")
	}
	return token, nil
}

// Verify consumes a verification token and promotes the matching
// pending registration to a full account.
func (s *Service) Verify(token string) (models.User, error) {
	email, err := s.verifyToken(token)
	if err != nil {
		return models.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.pending[email]
	if !ok || time.Now().After(reg.ExpiresAt) {
		delete(s.pending, email)
		return models.User{}, ErrNotPending
	}
	delete(s.pending, email)

	user := models.User{
		ID:           reg.ID,
		Email:        reg.Email,
		PasswordHash: reg.PasswordHash,
		CreatedAt:    time.Now(),
	}
	s.users[email] = user
	s.logger.WithField("email", email).Info("Email verified, account created")
	return user, nil
}

// Login checks a verified account's credentials.
func (s *Service) Login(email, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	user, ok := s.users[email]
	s.mu.Unlock()

	if !ok || !s.VerifyPassword(password, user.PasswordHash) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// PendingCount returns how many registrations await verification.
func (s *Service) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Service) createVerificationToken(email string) (string, error) {
	claims := &verificationClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) verifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &verificationClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	claims, ok := token.Claims.(*verificationClaims)
	if !ok || !token.Valid || claims.Email == "" {
		return "", ErrInvalidCredentials
	}
	return claims.Email, nil
}
