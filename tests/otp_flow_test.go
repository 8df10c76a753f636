package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wondertwin-ai/app-otp/internal/config"
	"github.com/wondertwin-ai/app-otp/internal/handlers"
	"github.com/wondertwin-ai/app-otp/internal/middleware"
	"github.com/wondertwin-ai/app-otp/internal/models"
	"github.com/wondertwin-ai/app-otp/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// capturingDispatcher records delivered codes so the test can submit them
type capturingDispatcher struct {
	messages []string
}

func (d *capturingDispatcher) Provider() string { return "capturing" }

func (d *capturingDispatcher) Send(ctx context.Context, to, text string) error {
	d.messages = append(d.messages, text)
	return nil
}

func buildRouter(dispatcher *capturingDispatcher) *gin.Engine {
	challengeStore := services.NewMongoChallengeStore(config.MongoDB.Collection(config.AppConfig.ChallengeCollection))
	identityStore := services.NewMongoIdentityStore(config.MongoDB.Collection(config.AppConfig.IdentityCollection))

	otpService := services.NewOTPService(services.OTPServiceParams{
		Store:       challengeStore,
		Dispatcher:  dispatcher,
		Quota:       services.NewRedisSendQuota(config.Redis, config.AppConfig.SMSDailyLimit, nil),
		CodeTTL:     config.AppConfig.OTPCodeTTL,
		CodeLength:  config.AppConfig.OTPCodeLength,
		MaxAttempts: config.AppConfig.OTPMaxAttempts,
		Pepper:      config.AppConfig.OTPCodePepper,
	})
	identityService := services.NewIdentityService(identityStore, config.Redis, time.Hour, nil)
	credentialService := services.NewCredentialService(config.AppConfig.JWTSecret, config.AppConfig.JWTTTL)

	otpHandlers := handlers.NewOTPHandlers(otpService, identityService, credentialService)

	router := gin.New()
	v1 := router.Group("/v1")
	v1.POST("/otp/start", otpHandlers.StartVerification)
	v1.POST("/otp/verify", otpHandlers.VerifyCode)
	v1.GET("/me", middleware.AuthMiddleware(credentialService), otpHandlers.Me)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func extractCode(t *testing.T, text string) string {
	t.Helper()
	for i := 0; i+6 <= len(text); i++ {
		candidate := text[i : i+6]
		digits := true
		for _, r := range candidate {
			if r < '0' || r > '9' {
				digits = false
				break
			}
		}
		if digits {
			return candidate
		}
	}
	t.Fatalf("no code found in message %q", text)
	return ""
}

func TestOTPFlow_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	containers := SetupTestContainers(t)
	defer containers.Cleanup()

	dispatcher := &capturingDispatcher{}
	router := buildRouter(dispatcher)

	phone := "+5521999990001"

	// Request a code
	w := postJSON(router, "/v1/otp/start", models.StartVerificationRequest{Phone: phone})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dispatcher.messages, 1)
	code := extractCode(t, dispatcher.messages[0])

	// A second start is throttled and sends nothing, but still reports ok
	w = postJSON(router, "/v1/otp/start", models.StartVerificationRequest{Phone: phone})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dispatcher.messages, 1)

	// A wrong code is rejected
	w = postJSON(router, "/v1/otp/verify", models.VerifyCodeRequest{Phone: phone, Code: wrongCode(code)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The delivered code succeeds and yields a credential
	w = postJSON(router, "/v1/otp/verify", models.VerifyCodeRequest{Phone: phone, Code: code})
	require.Equal(t, http.StatusOK, w.Code)

	var verifyResp models.VerifyCodeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verifyResp))
	assert.True(t, verifyResp.OK)
	assert.True(t, verifyResp.IsNewUser)
	require.NotEmpty(t, verifyResp.Credential)

	// The code cannot be replayed
	w = postJSON(router, "/v1/otp/verify", models.VerifyCodeRequest{Phone: phone, Code: code})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The credential authenticates /me
	req, _ := http.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+verifyResp.Credential)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var me models.MeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, phone, me.PhoneNumber)

	// Verifying again maps to the same identity and is no longer new
	w = postJSON(router, "/v1/otp/start", models.StartVerificationRequest{Phone: phone})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dispatcher.messages, 2)
	code = extractCode(t, dispatcher.messages[1])

	w = postJSON(router, "/v1/otp/verify", models.VerifyCodeRequest{Phone: phone, Code: code})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verifyResp))
	assert.False(t, verifyResp.IsNewUser)

	claims, err := services.NewCredentialService(config.AppConfig.JWTSecret, config.AppConfig.JWTTTL).Parse(verifyResp.Credential)
	require.NoError(t, err)
	assert.Equal(t, me.ID, claims.Subject, "the same phone keeps the same identity")
}

func TestOTPFlow_AttemptCeiling(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	containers := SetupTestContainers(t)
	defer containers.Cleanup()

	dispatcher := &capturingDispatcher{}
	router := buildRouter(dispatcher)

	phone := "+5521999990002"

	w := postJSON(router, "/v1/otp/start", models.StartVerificationRequest{Phone: phone})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dispatcher.messages, 1)
	code := extractCode(t, dispatcher.messages[0])

	for i := 0; i < 5; i++ {
		w = postJSON(router, "/v1/otp/verify", models.VerifyCodeRequest{Phone: phone, Code: wrongCode(code)})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}

	// The correct code is refused once the attempt ceiling is hit
	w = postJSON(router, "/v1/otp/verify", models.VerifyCodeRequest{Phone: phone, Code: code})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestMongoChallengeStore_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	containers := SetupTestContainers(t)
	defer containers.Cleanup()

	ctx := context.Background()
	store := services.NewMongoChallengeStore(config.MongoDB.Collection(config.AppConfig.ChallengeCollection))

	absent, err := store.Get(ctx, "+5521999990003")
	require.NoError(t, err)
	assert.Nil(t, absent)

	challenge := &models.Challenge{
		PhoneNumber: "+5521999990003",
		CodeHash:    "hash-a",
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(5 * time.Minute),
	}
	require.NoError(t, store.Put(ctx, challenge))

	got, err := store.Get(ctx, "+5521999990003")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "hash-a", got.CodeHash)
	assert.Equal(t, 0, got.Attempts)

	// Upsert replaces the record in place
	challenge.CodeHash = "hash-b"
	require.NoError(t, store.Put(ctx, challenge))
	got, err = store.Get(ctx, "+5521999990003")
	require.NoError(t, err)
	assert.Equal(t, "hash-b", got.CodeHash)

	attempts, err := store.IncrementAttempts(ctx, "+5521999990003")
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)

	attempts, err = store.IncrementAttempts(ctx, "+5521999990003")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	require.NoError(t, store.Delete(ctx, "+5521999990003"))
	got, err = store.Get(ctx, "+5521999990003")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting again is not an error
	require.NoError(t, store.Delete(ctx, "+5521999990003"))
}

func TestMongoIdentityStore_DuplicateInsert(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	containers := SetupTestContainers(t)
	defer containers.Cleanup()

	ctx := context.Background()
	store := services.NewMongoIdentityStore(config.MongoDB.Collection(config.AppConfig.IdentityCollection))

	first := &models.Identity{ID: "id-1", PhoneNumber: "+5521999990004", CreatedAt: time.Now()}
	require.NoError(t, store.Insert(ctx, first))

	second := &models.Identity{ID: "id-2", PhoneNumber: "+5521999990004", CreatedAt: time.Now()}
	err := store.Insert(ctx, second)
	assert.ErrorIs(t, err, services.ErrIdentityExists)

	got, err := store.FindByPhone(ctx, "+5521999990004")
	require.NoError(t, err)
	assert.Equal(t, "id-1", got.ID)
}

func wrongCode(code string) string {
	if code == "000000" {
		return "000001"
	}
	return "000000"
}
