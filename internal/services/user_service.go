package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/honeynil/BookShareService/internal/infrastructure/auth"
	"github.com/honeynil/BookShareService/internal/models"
	"github.com/honeynil/BookShareService/internal/repository"
	"github.com/honeynil/BookShareService/internal/validation"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"
)

type SignUpInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=100"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Location  *string `json:"location" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

//go:generate mockgen -source=user_service.go -destination=mocks/user_service_mock.go -package=servicemocks

type UserService interface {
	SignUp(ctx context.Context, in SignUpInput) (*models.AuthToken, error)
	SignIn(ctx context.Context, in SignInInput) (*models.AuthToken, error)
	SignOut(ctx context.Context, session models.Session) error
	Profile(ctx context.Context, session models.Session) (*models.User, error)
	UpdateProfile(ctx context.Context, session models.Session, in UpdateProfileInput) (*models.User, error)
}

type userService struct {
	userRepo  repository.UserRepository
	tokens    *auth.TokenManager
	sessions  *auth.SessionStore
	validator *validation.Validator
}

func NewUserService(
	userRepo repository.UserRepository,
	tokens *auth.TokenManager,
	sessions *auth.SessionStore,
	validator *validation.Validator,
) *userService {
	return &userService{
		userRepo:  userRepo,
		tokens:    tokens,
		sessions:  sessions,
		validator: validator,
	}
}

func (s *userService) SignUp(ctx context.Context, in SignUpInput) (*models.AuthToken, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "SignUp")
	defer span.End()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Validate(in); err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, in.Email)
	if existing != nil {
		span.SetStatus(codes.Error, "email already registered")
		slog.Warn("email already registered", "existing_id", existing.ID)
		return nil, pkgerrors.ErrUserAlreadyExists
	}
	if err != nil && !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
		fail(span, err, "user check failed")
		slog.Error("failed to check user existence", "error", err)
		return nil, fmt.Errorf("%w: failed to check user existence", pkgerrors.ErrInternal)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(span, err, "password hashing failed")
		slog.Error("failed to hash password", "error", err)
		return nil, fmt.Errorf("%w: failed to hash password", pkgerrors.ErrInternal)
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: string(hash),
		Name:         in.Name,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if stderrors.Is(err, pkgerrors.ErrUserAlreadyExists) {
			return nil, err
		}
		fail(span, err, "user creation failed")
		slog.Error("failed to create user in DB", "error", err)
		return nil, fmt.Errorf("%w: failed to create user", pkgerrors.ErrInternal)
	}

	slog.Info("user registered successfully", "user_id", user.ID)
	return s.issueToken(ctx, user)
}

func (s *userService) SignIn(ctx context.Context, in SignInInput) (*models.AuthToken, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "SignIn")
	defer span.End()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		if !stderrors.Is(err, pkgerrors.ErrUserNotFound) {
			fail(span, err, "user lookup failed")
			slog.Error("failed to load user", "error", err)
			return nil, fmt.Errorf("%w: failed to load user", pkgerrors.ErrInternal)
		}
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, pkgerrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		slog.Warn("invalid password", "user_id", user.ID)
		span.SetStatus(codes.Error, "invalid credentials")
		return nil, pkgerrors.ErrInvalidCredentials
	}

	slog.Info("user signed in", "user_id", user.ID)
	return s.issueToken(ctx, user)
}

func (s *userService) issueToken(ctx context.Context, user *models.User) (*models.AuthToken, error) {
	token, session, err := s.tokens.GenerateJWT(user.ID, user.Email)
	if err != nil {
		slog.Error("failed to generate JWT", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: failed to generate token", pkgerrors.ErrInternal)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		slog.Error("failed to store session", "user_id", user.ID, "error", err)
		return nil, fmt.Errorf("%w: failed to store session", pkgerrors.ErrInternal)
	}
	return &models.AuthToken{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   session.ExpiresAt,
		User:        user,
	}, nil
}

func (s *userService) SignOut(ctx context.Context, session models.Session) error {
	if err := s.sessions.Revoke(ctx, session.TokenID); err != nil {
		slog.Error("failed to revoke session", "user_id", session.UserID, "error", err)
		return fmt.Errorf("%w: failed to revoke session", pkgerrors.ErrInternal)
	}
	slog.Info("user signed out", "user_id", session.UserID)
	return nil
}

func (s *userService) Profile(ctx context.Context, session models.Session) (*models.User, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "Profile")
	defer span.End()

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		fail(span, err, "profile lookup failed")
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, session models.Session, in UpdateProfileInput) (*models.User, error) {
	tracer := otel.Tracer("user-service")
	ctx, span := tracer.Start(ctx, "UpdateProfile")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, session.UserID)
	if err != nil {
		fail(span, err, "profile lookup failed")
		return nil, err
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Location != nil {
		user.Location = *in.Location
	}
	if in.AvatarURL != nil {
		user.AvatarURL = *in.AvatarURL
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		fail(span, err, "profile update failed")
		return nil, err
	}
	return user, nil
}
