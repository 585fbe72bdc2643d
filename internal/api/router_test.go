package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/honeynil/BookShareService/internal/handler"
	"github.com/honeynil/BookShareService/internal/infrastructure/auth"
	"github.com/honeynil/BookShareService/internal/infrastructure/ratelimit"
	"github.com/honeynil/BookShareService/internal/infrastructure/redis"
	redismocks "github.com/honeynil/BookShareService/internal/infrastructure/redis/mocks"
	"github.com/honeynil/BookShareService/internal/models"
	servicemocks "github.com/honeynil/BookShareService/internal/services/mocks"
	pkgerrors "github.com/honeynil/BookShareService/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "5b1f0c6e-2f4a-4a43-9d55-1c2f1a7d9e01"

type fixture struct {
	router   http.Handler
	tokens   *auth.TokenManager
	redis    *redismocks.MockRedisClient
	books    *servicemocks.MockBookService
	users    *servicemocks.MockUserService
	healthOK bool
}

func newFixture(t *testing.T, mutate func(*RouterDeps)) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		tokens:   auth.NewTokenManager("test-secret", time.Hour),
		redis:    redismocks.NewMockRedisClient(ctrl),
		books:    servicemocks.NewMockBookService(ctrl),
		users:    servicemocks.NewMockUserService(ctrl),
		healthOK: true,
	}
	h := handler.NewHandler(
		f.users,
		f.books,
		servicemocks.NewMockTransactionService(ctrl),
		servicemocks.NewMockPaymentService(ctrl),
		servicemocks.NewMockNotificationService(ctrl),
		servicemocks.NewMockMessageService(ctrl),
		"http://app.test",
	)
	deps := RouterDeps{
		Handler:  h,
		Tokens:   f.tokens,
		Sessions: auth.NewSessionStore(f.redis),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("# metrics"))
		}),
		Health: func(ctx context.Context) error {
			if !f.healthOK {
				return errors.New("postgres down")
			}
			return nil
		},
		CORSOrigins: []string{"http://localhost:5173"},
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.router = SetupRouter(deps)
	return f
}

func (f *fixture) bearer(t *testing.T) (string, models.Session) {
	token, session, err := f.tokens.GenerateJWT(userID, "reader@example.com")
	require.NoError(t, err)
	return "Bearer " + token, session
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)

	rec := serve(f.router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	f.healthOK = false
	rec = serve(f.router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	rec := serve(f.router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestProtectedRoutes(t *testing.T) {
	t.Run("MissingToken", func(t *testing.T) {
		f := newFixture(t, nil)
		rec := serve(f.router, httptest.NewRequest(http.MethodGet, "/api/my-books", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("ValidSession", func(t *testing.T) {
		f := newFixture(t, nil)
		header, session := f.bearer(t)
		f.redis.EXPECT().Get(gomock.Any(), auth.SessionKey(session.TokenID)).Return(userID, nil)
		f.books.EXPECT().MyBooks(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, s models.Session) ([]models.Book, error) {
				assert.Equal(t, userID, s.UserID)
				return []models.Book{{ID: "b1", OwnerID: userID, Title: "Dune"}}, nil
			})

		req := httptest.NewRequest(http.MethodGet, "/api/my-books", nil)
		req.Header.Set("Authorization", header)
		rec := serve(f.router, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Dune")
	})

	t.Run("RevokedSession", func(t *testing.T) {
		f := newFixture(t, nil)
		header, session := f.bearer(t)
		f.redis.EXPECT().Get(gomock.Any(), auth.SessionKey(session.TokenID)).Return("", redis.ErrKeyNotFound)

		req := httptest.NewRequest(http.MethodGet, "/api/my-books", nil)
		req.Header.Set("Authorization", header)
		rec := serve(f.router, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("PatchBookReachesProtectedRoute", func(t *testing.T) {
		f := newFixture(t, nil)
		header, session := f.bearer(t)
		f.redis.EXPECT().Get(gomock.Any(), auth.SessionKey(session.TokenID)).Return(userID, nil)
		f.books.EXPECT().Update(gomock.Any(), gomock.Any(), "b1", gomock.Any()).Return(nil, pkgerrors.ErrNotBookOwner)

		req := httptest.NewRequest(http.MethodPatch, "/api/books/b1", strings.NewReader(`{"title":"Dune Messiah"}`))
		req.Header.Set("Authorization", header)
		rec := serve(f.router, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("PublicBookNeedsNoToken", func(t *testing.T) {
		f := newFixture(t, nil)
		f.books.EXPECT().Get(gomock.Any(), "b1").Return(&models.Book{ID: "b1"}, nil)

		rec := serve(f.router, httptest.NewRequest(http.MethodGet, "/api/books/b1", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAuthRateLimit(t *testing.T) {
	f := newFixture(t, func(d *RouterDeps) {
		d.AuthLimiter = ratelimit.New(0.001, 1)
	})
	f.users.EXPECT().SignIn(gomock.Any(), gomock.Any()).Return(nil, pkgerrors.ErrInvalidCredentials).Times(1)

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-in", strings.NewReader(`{"email":"a@b.co","password":"x"}`))
		req.RemoteAddr = "10.0.0.1:5000"
		return req
	}

	assert.Equal(t, http.StatusUnauthorized, serve(f.router, newReq()).Code)
	rec := serve(f.router, newReq())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, nil)

	rec := serve(f.router, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.True(t, strings.HasPrefix(rec.Header().Get(requestIDHeader), "req-"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "upstream-1")
	rec = serve(f.router, req)
	assert.Equal(t, "upstream-1", rec.Header().Get(requestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/books", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := serve(f.router, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDevTools(t *testing.T) {
	off := newFixture(t, nil)
	rec := serve(off.router, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	on := newFixture(t, func(d *RouterDeps) { d.DevTools = true })
	rec = serve(on.router, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusRecorder_DefaultsToOK(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, err := rec.Write([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.status)
}
