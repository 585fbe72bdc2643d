package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/honeynil/BookShareService/internal/infrastructure/auth"
	redismocks "github.com/honeynil/BookShareService/internal/infrastructure/redis/mocks"
	"github.com/honeynil/BookShareService/internal/models"
	repositorymocks "github.com/honeynil/BookShareService/internal/repository/mocks"
	"github.com/honeynil/BookShareService/internal/validation"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestUserService_SignUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := repositorymocks.NewMockUserRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)

	ctx := context.Background()
	tokens := auth.NewTokenManager("secret", time.Hour)
	service := NewUserService(userRepo, tokens, auth.NewSessionStore(redisClient), validation.New())

	t.Run("successful sign up", func(t *testing.T) {
		userRepo.EXPECT().GetByEmail(gomock.Any(), "reader@example.com").Return(nil, pkgerrors.ErrUserNotFound)
		userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("arrakis-spice")))
			u.ID = borrowerID
			return nil
		})
		redisClient.EXPECT().Set(gomock.Any(), gomock.Any(), borrowerID, gomock.Any()).DoAndReturn(
			func(_ context.Context, key string, _ interface{}, ttl time.Duration) error {
				assert.True(t, strings.HasPrefix(key, "session:"))
				assert.LessOrEqual(t, ttl, time.Hour)
				return nil
			})

		token, err := service.SignUp(ctx, SignUpInput{Email: " Reader@Example.com ", Password: "arrakis-spice", Name: "Paul"})
		require.NoError(t, err)
		assert.NotEmpty(t, token.AccessToken)
		assert.Equal(t, "Bearer", token.TokenType)

		session, err := tokens.ValidateJWT(token.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, borrowerID, session.UserID)
		assert.Equal(t, "reader@example.com", session.Email)
	})

	t.Run("email already registered", func(t *testing.T) {
		userRepo.EXPECT().GetByEmail(gomock.Any(), "reader@example.com").Return(&models.User{ID: borrowerID}, nil)

		_, err := service.SignUp(ctx, SignUpInput{Email: "reader@example.com", Password: "arrakis-spice", Name: "Paul"})
		assert.ErrorIs(t, err, pkgerrors.ErrUserAlreadyExists)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := service.SignUp(ctx, SignUpInput{Email: "reader@example.com", Password: "short", Name: "Paul"})

		var vErr *pkgerrors.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Contains(t, vErr.Fields, "password")
	})
}

func TestUserService_SignIn(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := repositorymocks.NewMockUserRepository(ctrl)
	redisClient := redismocks.NewMockRedisClient(ctrl)

	ctx := context.Background()
	service := NewUserService(userRepo, auth.NewTokenManager("secret", time.Hour), auth.NewSessionStore(redisClient), validation.New())

	hash, _ := bcrypt.GenerateFromPassword([]byte("arrakis-spice"), bcrypt.DefaultCost)
	user := &models.User{ID: borrowerID, Email: "reader@example.com", PasswordHash: string(hash)}

	t.Run("successful sign in", func(t *testing.T) {
		userRepo.EXPECT().GetByEmail(gomock.Any(), "reader@example.com").Return(user, nil)
		redisClient.EXPECT().Set(gomock.Any(), gomock.Any(), borrowerID, gomock.Any()).Return(nil)

		token, err := service.SignIn(ctx, SignInInput{Email: "reader@example.com", Password: "arrakis-spice"})
		require.NoError(t, err)
		assert.NotEmpty(t, token.AccessToken)
	})

	t.Run("wrong password", func(t *testing.T) {
		userRepo.EXPECT().GetByEmail(gomock.Any(), "reader@example.com").Return(user, nil)

		_, err := service.SignIn(ctx, SignInInput{Email: "reader@example.com", Password: "wrongpass"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		userRepo.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, pkgerrors.ErrUserNotFound)

		_, err := service.SignIn(ctx, SignInInput{Email: "ghost@example.com", Password: "arrakis-spice"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidCredentials)
	})

	t.Run("sign out revokes the session", func(t *testing.T) {
		redisClient.EXPECT().Del(gomock.Any(), "session:jti-"+borrowerID).Return(nil)

		assert.NoError(t, service.SignOut(ctx, sessionFor(borrowerID)))
	})
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := repositorymocks.NewMockUserRepository(ctrl)
	ctx := context.Background()
	service := NewUserService(userRepo, auth.NewTokenManager("secret", time.Hour), auth.NewSessionStore(redismocks.NewMockRedisClient(ctrl)), validation.New())

	t.Run("updates only given fields", func(t *testing.T) {
		bio := "Collector of desert planets"
		userRepo.EXPECT().GetByID(gomock.Any(), borrowerID).Return(&models.User{ID: borrowerID, Name: "Paul", Location: "Arrakeen"}, nil)
		userRepo.EXPECT().UpdateProfile(gomock.Any(), gomock.Any()).Return(nil)

		user, err := service.UpdateProfile(ctx, sessionFor(borrowerID), UpdateProfileInput{Bio: &bio})
		require.NoError(t, err)
		assert.Equal(t, "Paul", user.Name)
		assert.Equal(t, bio, user.Bio)
		assert.Equal(t, "Arrakeen", user.Location)
	})

	t.Run("bad avatar url", func(t *testing.T) {
		avatar := "not a url"
		_, err := service.UpdateProfile(ctx, sessionFor(borrowerID), UpdateProfileInput{AvatarURL: &avatar})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})
}
