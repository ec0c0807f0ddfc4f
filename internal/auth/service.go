package auth

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/eventvote/backend/internal/apperr"
	"github.com/eventvote/backend/internal/models"
	"github.com/eventvote/backend/pkg/queue"
	"github.com/eventvote/backend/pkg/utils"
	"github.com/eventvote/backend/pkg/validation"
)

// UserStore is the identity persistence used by the auth service.
type UserStore interface {
	Create(ctx context.Context, p CreateUserParams) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	CreatePasswordReset(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uuid.UUID, error)
}

// SubUserFinder looks up sub-user logins.
type SubUserFinder interface {
	GetByEmail(ctx context.Context, email string) (*models.SubUser, error)
}

// EmailQueue enqueues outgoing email.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// ServiceConfig holds auth service settings.
type ServiceConfig struct {
	BaseURL  string
	ResetTTL time.Duration
}

// Service implements account creation, login and password recovery.
type Service struct {
	users    UserStore
	subUsers SubUserFinder
	jwt      *JWTService
	emails   EmailQueue
	cfg      ServiceConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates an auth service.
func NewService(users UserStore, subUsers SubUserFinder, jwt *JWTService, emails EmailQueue, cfg ServiceConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 30 * time.Minute
	}
	return &Service{users: users, subUsers: subUsers, jwt: jwt, emails: emails, cfg: cfg, logger: logger, now: time.Now}
}

// Session is an issued token with the profile it was issued for.
type Session struct {
	Token   string             `json:"token"`
	Role    string             `json:"role"`
	User    *models.UserPublic `json:"user,omitempty"`
	SubUser *models.SubUser    `json:"subUser,omitempty"`
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterRequest) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if !s.jwt.Configured() {
		return nil, ErrMisconfigured
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.Create(ctx, CreateUserParams{
		Email:        strings.ToLower(in.Email),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Organization: strings.TrimSpace(in.Organization),
		ContactName:  strings.TrimSpace(in.ContactName),
		Phone:        strings.TrimSpace(in.Phone),
	})
	if err != nil {
		return nil, err
	}
	return s.userSession(user)
}

// Login signs in an account holder by email or username, falling back to a sub-user by email.
func (s *Service) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	invalid := apperr.New(apperr.Unauthenticated, "invalid email or password")
	if login == "" || password == "" {
		return nil, invalid
	}

	user, err := s.users.GetByLogin(ctx, login)
	switch {
	case err == nil:
		if !utils.CheckPassword(password, user.Password) {
			return nil, invalid
		}
		return s.userSession(user)
	case !apperr.Is(err, apperr.NotFoundOrUnauthorized):
		return nil, err
	}

	sub, err := s.subUsers.GetByEmail(ctx, login)
	if err != nil {
		if apperr.Is(err, apperr.NotFoundOrUnauthorized) {
			return nil, invalid
		}
		return nil, err
	}
	if !utils.CheckPassword(password, sub.Password) {
		return nil, invalid
	}
	subID := sub.ID
	token, err := s.jwt.Generate(Identity{UserID: sub.OwnerID, SubUserID: &subID, Email: sub.Email, Role: sub.Role})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Role: sub.Role, SubUser: sub}, nil
}

func (s *Service) userSession(u *models.User) (*Session, error) {
	token, err := s.jwt.Generate(Identity{UserID: u.ID, Email: u.Email, Role: models.RoleOwner})
	if err != nil {
		return nil, err
	}
	pub := u.ToPublic()
	return &Session{Token: token, Role: models.RoleOwner, User: &pub}, nil
}

// ForgotPassword issues a single-use reset token and queues the email.
// Unknown addresses succeed silently so account existence is not disclosed.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := validation.Struct(ForgotPasswordRequest{Email: email}); err != nil {
		return err
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if apperr.Is(err, apperr.NotFoundOrUnauthorized) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := utils.GenerateToken(32)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	expires := s.now().Add(s.cfg.ResetTTL)
	if err := s.users.CreatePasswordReset(ctx, user.ID, utils.HashToken(token), expires); err != nil {
		return err
	}

	link := s.cfg.BaseURL + "/reset-password?token=" + url.QueryEscape(token)
	uid := user.ID
	err = s.emails.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      models.EmailTypePasswordReset,
		UserID:         &uid,
		RecipientEmail: user.Email,
		Subject:        "Reset your password",
		BodyHTML: fmt.Sprintf(`<p>Hello %s,</p><p>Use the link below to choose a new password. It expires in %d minutes.</p><p><a href="%s">Reset password</a></p>`,
			html.EscapeString(user.Username), int(s.cfg.ResetTTL.Minutes()), html.EscapeString(link)),
	})
	if err != nil {
		return fmt.Errorf("enqueue reset email: %w", err)
	}
	s.logger.Info("password reset issued", zap.String("user_id", user.ID.String()))
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := validation.Struct(ResetPasswordRequest{Token: token, Password: password}); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	userID, err := s.users.ConsumePasswordReset(ctx, utils.HashToken(token), hash, s.now())
	if err != nil {
		return err
	}
	s.logger.Info("password reset completed", zap.String("user_id", userID.String()))
	return nil
}
