package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coreybb/scribe/datastore"
	"github.com/coreybb/scribe/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used for every stored password.
const PasswordCost = 10

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var (
	ErrValidation         = errors.New("validation failed")
	ErrPasswordTooLong    = fmt.Errorf("%w: password longer than %d bytes", ErrValidation, MaxPasswordBytes)
	ErrAlreadyExists      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserStore is the persistence the credential service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Session is the result of a successful login.
type Session struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// CredentialService registers users and exchanges credentials for identity tokens.
type CredentialService struct {
	users  UserStore
	secret []byte
	logger *slog.Logger
	now    func() time.Time
}

func NewCredentialService(users UserStore, secret []byte, logger *slog.Logger) *CredentialService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialService{
		users:  users,
		secret: secret,
		logger: logger,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register stores a new user with a bcrypt hash of rawPassword. No token is issued.
func (s *CredentialService) Register(ctx context.Context, name, email, rawPassword string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || rawPassword == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if len(rawPassword) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	_, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrAlreadyExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		CreatedAt:    s.now().UTC(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost a race with a concurrent registration; the unique index decided.
		if errors.Is(err, datastore.ErrDuplicate) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID), slog.String("email", email))
	return user, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// burnCompare spends the same bcrypt effort as a real comparison so that an
// unknown email cannot be told apart from a wrong password by latency.
func burnCompare(rawPassword string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("scribe-dummy-password"), PasswordCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(rawPassword))
}

// Authenticate verifies the credentials and mints a token valid for TokenTTL.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *CredentialService) Authenticate(ctx context.Context, email, rawPassword string) (*Session, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			burnCompare(rawPassword)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user %s: %w", email, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(rawPassword)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := mintAt(Identity{UserID: user.ID, Email: user.Email}, s.secret, TokenTTL, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return &Session{Token: token, User: user.Public()}, nil
}
