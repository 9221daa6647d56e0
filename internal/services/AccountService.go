package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"

	"github.com/mflix-go/webserver/internal/common"
	"github.com/mflix-go/webserver/internal/log"
	"github.com/mflix-go/webserver/internal/models/session"
	"github.com/mflix-go/webserver/internal/models/user"
)

var (
	// ErrInvalidCredentials is returned when the email is unknown or the password does not match.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned when a bearer token cannot be verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSessionRevoked is returned when a valid token no longer has a live session (logged out, or replaced by a
	// newer login).
	ErrSessionRevoked = errors.New("session is no longer active")
)

// UserStore is the users repository used by AccountService. Implemented by user.UserManager.
type UserStore interface {
	AddUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, email string) (*user.User, error)
	UpdateUserPreferences(ctx context.Context, email string, prefs map[string]any) error
	DeleteUser(ctx context.Context, email string) error
}

// SessionStore is the sessions repository used by AccountService. Implemented by session.SessionManager.
type SessionStore interface {
	CreateUserSession(ctx context.Context, userID, jwt string) error
	GetUserSession(ctx context.Context, userID string) (*session.Session, error)
	DeleteUserSessions(ctx context.Context, userID string) (int64, error)
}

// Profile is the public view of a user. The password hash never leaves the service.
type Profile struct {
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Preferences map[string]string `json:"preferences"`
}

type AccountService struct {
	users     UserStore
	sessions  SessionStore
	events    EventPublisher
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *log.Logger
	now       func() time.Time
}

func NewAccountService(users UserStore, sessions SessionStore, events EventPublisher, jwtSecret string, tokenTTL time.Duration, logger *log.Logger) *AccountService {
	if events == nil {
		events = NopPublisher{}
	}
	return &AccountService{
		users:     users,
		sessions:  sessions,
		events:    events,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterUser hashes password and stores a new user.
// Returns user.ErrEmailTaken if the email is already registered.
func (s *AccountService) RegisterUser(ctx context.Context, name, email, password string) error {
	u := &user.User{Name: name, Email: email}
	if err := u.SetPassword(password); err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := s.users.AddUser(ctx, u); err != nil {
		return err
	}

	s.logger.Infow("User registered", "email", email)
	s.publish(ctx, EventUserRegistered, email)
	return nil
}

// LoginUser checks the credentials, mints a JWT and makes it the user's only session.
// Returns ErrInvalidCredentials if the email is unknown or the password is wrong.
func (s *AccountService) LoginUser(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if err := u.CheckPassword(password); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.generateToken(u.Email)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if _, err := s.sessions.DeleteUserSessions(ctx, u.Email); err != nil {
		return "", err
	}
	if err := s.sessions.CreateUserSession(ctx, u.Email, token); err != nil {
		return "", err
	}

	s.logger.Infow("User logged in", "email", u.Email)
	return token, nil
}

// ValidateSession verifies token and checks that it is still the user's live session.
// Returns the user's email on success.
func (s *AccountService) ValidateSession(ctx context.Context, token string) (string, error) {
	email, err := s.parseToken(token)
	if err != nil {
		return "", err
	}

	sess, err := s.sessions.GetUserSession(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", ErrSessionRevoked
		}
		return "", err
	}
	if sess.JWT != token {
		return "", ErrSessionRevoked
	}
	return email, nil
}

// LogoutUser removes every session of the user.
func (s *AccountService) LogoutUser(ctx context.Context, email string) error {
	removed, err := s.sessions.DeleteUserSessions(ctx, email)
	if err != nil {
		return err
	}
	s.logger.Infow("User logged out", "email", email, "sessions", removed)
	return nil
}

// GetProfile returns the public view of the user.
func (s *AccountService) GetProfile(ctx context.Context, email string) (*Profile, error) {
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	prefs := u.Preferences
	if prefs == nil {
		prefs = map[string]string{}
	}
	return &Profile{Name: u.Name, Email: u.Email, Preferences: prefs}, nil
}

// UpdatePreferences merges prefs into the user's stored preferences.
func (s *AccountService) UpdatePreferences(ctx context.Context, email string, prefs map[string]any) error {
	return s.users.UpdateUserPreferences(ctx, email, prefs)
}

// DeleteAccount verifies the password and deletes the user together with all of the user's sessions.
func (s *AccountService) DeleteAccount(ctx context.Context, email, password string) error {
	u, err := s.users.GetUser(ctx, email)
	if err != nil {
		return err
	}
	if err := u.CheckPassword(password); err != nil {
		return ErrInvalidCredentials
	}

	if err := s.users.DeleteUser(ctx, email); err != nil {
		s.logger.Errorw("Account deletion incomplete", "email", email, "error", err)
		return err
	}

	s.logger.Infow("User deleted", "email", email)
	s.publish(ctx, EventUserDeleted, email)
	return nil
}

// publish sends an account event. Failures are logged; the account change has already been stored.
func (s *AccountService) publish(ctx context.Context, eventType, email string) {
	event := AccountEvent{Type: eventType, Email: email, OccurredAt: s.now().UTC()}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warnw("Failed to publish account event", "type", eventType, "email", email, "error", err)
	}
}

func (s *AccountService) generateToken(email string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   email,
		Id:        uuid.NewString(),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.tokenTTL).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

func (s *AccountService) parseToken(tokenString string) (string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
