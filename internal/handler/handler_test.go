package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookinventory/internal/audit"
	"bookinventory/internal/auth"
	"bookinventory/internal/middleware"
	"bookinventory/internal/model"
	"bookinventory/internal/repository"
	"bookinventory/internal/service"
	"bookinventory/internal/storage"
	"bookinventory/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	rec    *audit.Recorder
	issuer *auth.TokenIssuer
	cat    testutil.Catalog
	images *storage.MemoryImageStore
	users  service.UserService
}

type envelope struct {
	Success    bool            `json:"success"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      struct {
		StatusCode int    `json:"statusCode"`
		Message    string `json:"message"`
		Path       string `json:"path"`
		Method     string `json:"method"`
	} `json:"error"`
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	require.NoError(t, service.RegisterValidators(engine))

	log := zap.NewNop()
	db := testutil.NewDB(t)
	issuer := auth.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
	images := storage.NewMemoryImageStore("mem://covers")

	userRepo := repository.NewUserRepository(db)
	authorRepo := repository.NewAuthorRepository(db)
	publisherRepo := repository.NewPublisherRepository(db)
	genreRepo := repository.NewGenreRepository(db)

	bookRepo := repository.NewBookRepository(db)
	logRepo := repository.NewInventoryLogRepository(db)
	txManager := repository.NewTransactionManager(db)
	bookService := service.NewBookService(
		bookRepo,
		logRepo,
		service.NewRelationValidator(authorRepo, publisherRepo, genreRepo),
		txManager,
		images,
		nil,
		log,
	)
	userService := service.NewUserService(userRepo)

	rec := audit.NewRecorder(repository.NewAuditRepository(db), log, audit.Options{})
	t.Cleanup(func() { _ = rec.Close(context.Background()) })

	router := gin.New()
	router.Use(middleware.Recovery(log))
	RegisterFallbacks(router)
	RegisterRoutes(router.Group(""), rec, log,
		NewAuthHandler(service.NewAuthService(userRepo, issuer), issuer, middleware.NewIPRateLimiter(0), log),
		NewUserHandler(userService, issuer, log),
		NewBookHandler(bookService, issuer, log, 1<<20),
		NewAuthorHandler(service.NewAuthorService(authorRepo), issuer, log),
		NewPublisherHandler(service.NewPublisherService(publisherRepo), issuer, log),
		NewGenreHandler(service.NewGenreService(genreRepo), issuer, log),
		NewInventoryHandler(service.NewInventoryService(bookRepo, logRepo, txManager, nil, log), issuer, log),
		NewStatisticsHandler(service.NewStatisticsService(repository.NewStatisticsRepository(db)), issuer, log),
		NewAuditHandler(service.NewAuditService(repository.NewAuditRepository(db)), issuer, log),
	)

	return &testApp{
		router: router,
		db:     db,
		rec:    rec,
		issuer: issuer,
		cat:    testutil.SeedCatalog(t, db),
		images: images,
		users:  userService,
	}
}

// tokenAs creates a user with role and returns a bearer header value for it
func (a *testApp) tokenAs(t *testing.T, role string) (string, *model.User) {
	t.Helper()
	user, err := a.users.CreateUser(context.Background(), service.CreateUserRequest{
		Email:     role + "-" + uuid.NewString()[:8] + "@example.com",
		Password:  "secret123",
		FirstName: "Test",
		LastName:  role,
		Role:      role,
	})
	require.NoError(t, err)

	token, err := a.issuer.IssueAccess(auth.Subject{ID: user.ID.String(), Email: user.Email, Role: user.Role})
	require.NoError(t, err)
	return "Bearer " + token, user
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// flushAudit waits for every queued audit entry to be written
func (a *testApp) flushAudit(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.rec.Close(ctx))
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}
