package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notebook/model"
	"notebook/repository"
	"notebook/utils"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid sign-up input")
	ErrTokenRevoked       = errors.New("session token revoked")
)

// UserStore is the account storage used by AuthService.
type UserStore interface {
	AddUser(ctx context.Context, user *model.User) error
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthService signs users up and in, and hands back the explicit session
// every controller is built with.
type AuthService struct {
	users     UserStore
	tokens    *TokenIssuer
	blacklist *TokenBlacklist
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

func NewAuthService(users UserStore, tokens *TokenIssuer, blacklist *TokenBlacklist, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		validate:  utils.NewValidator(),
		logger:    logger.With("component", "auth"),
		now:       time.Now,
	}
}

func (s *AuthService) SignUp(ctx context.Context, creds model.Credentials) (model.Session, error) {
	if err := s.validate.Struct(creds); err != nil {
		utils.TrackAuthAttempt("failure", "signup")
		return model.Session{}, fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}

	hash, err := HashPassword(creds.Password)
	if err != nil {
		return model.Session{}, err
	}
	user := &model.User{
		UserID:       utils.NewID(),
		Email:        creds.Email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.AddUser(ctx, user); err != nil {
		utils.TrackAuthAttempt("failure", "signup")
		return model.Session{}, err
	}

	utils.TrackAuthAttempt("success", "signup")
	s.logger.Info("user signed up", "user_id", user.UserID)
	return s.session(user)
}

// SignIn checks the password. Unknown emails and wrong passwords both
// return ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, creds model.Credentials) (model.Session, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		utils.TrackAuthAttempt("failure", "signin")
		return model.Session{}, ErrInvalidCredentials
	}

	user, err := s.users.FindUserByEmail(ctx, creds.Email)
	if errors.Is(err, repository.ErrUserNotFound) {
		utils.TrackAuthAttempt("failure", "signin")
		return model.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.Session{}, err
	}

	ok, err := VerifyPassword(user.PasswordHash, creds.Password)
	if err != nil {
		s.logger.Warn("stored password hash unreadable", "user_id", user.UserID, "error", err)
	}
	if !ok {
		utils.TrackAuthAttempt("failure", "signin")
		return model.Session{}, ErrInvalidCredentials
	}

	utils.TrackAuthAttempt("success", "signin")
	s.logger.Info("user signed in", "user_id", user.UserID)
	return s.session(user)
}

// SignOut revokes the session's token. The anonymous session is a no-op.
func (s *AuthService) SignOut(ctx context.Context, session model.Session) error {
	if session.Anonymous() || session.Token == "" {
		return nil
	}
	if err := s.blacklist.Add(ctx, session.Token, session.ExpiresAt); err != nil {
		return err
	}
	s.logger.Info("user signed out", "user_id", session.UserID)
	return nil
}

// Verify reports whether session still carries a live token.
func (s *AuthService) Verify(ctx context.Context, session model.Session) error {
	userID, _, err := s.tokens.Parse(session.Token)
	if err != nil {
		return err
	}
	if userID != session.UserID {
		return fmt.Errorf("%w: subject mismatch", ErrInvalidToken)
	}
	revoked, err := s.blacklist.Contains(ctx, session.Token)
	if err != nil {
		return err
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

func (s *AuthService) session(user *model.User) (model.Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.UserID)
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{
		UserID:    user.UserID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
		case "email":
			msgs = append(msgs, "email is not valid")
		case "password":
			msgs = append(msgs, "password needs 6+ characters with a number and a symbol")
		default:
			msgs = append(msgs, strings.ToLower(fe.Field())+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}
