package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wondertwin-ai/app-otp/internal/models"
	"github.com/wondertwin-ai/app-otp/internal/utils"
)

const testPepper = "test-pepper"

type fakeChallengeStore struct {
	challenges map[string]*models.Challenge
	getErr     error
	putErr     error
	deleteErr  error
}

func newFakeChallengeStore() *fakeChallengeStore {
	return &fakeChallengeStore{challenges: make(map[string]*models.Challenge)}
}

func (s *fakeChallengeStore) Get(ctx context.Context, phoneNumber string) (*models.Challenge, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	challenge, ok := s.challenges[phoneNumber]
	if !ok {
		return nil, nil
	}
	copied := *challenge
	return &copied, nil
}

func (s *fakeChallengeStore) Put(ctx context.Context, challenge *models.Challenge) error {
	if s.putErr != nil {
		return s.putErr
	}
	copied := *challenge
	s.challenges[challenge.PhoneNumber] = &copied
	return nil
}

func (s *fakeChallengeStore) IncrementAttempts(ctx context.Context, phoneNumber string) (int, error) {
	challenge, ok := s.challenges[phoneNumber]
	if !ok {
		return 0, nil
	}
	challenge.Attempts++
	return challenge.Attempts, nil
}

func (s *fakeChallengeStore) Delete(ctx context.Context, phoneNumber string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.challenges, phoneNumber)
	return nil
}

type sentMessage struct {
	to   string
	text string
}

type fakeDispatcher struct {
	sent    []sentMessage
	sendErr error
}

func (d *fakeDispatcher) Provider() string { return "fake" }

func (d *fakeDispatcher) Send(ctx context.Context, to, text string) error {
	if d.sendErr != nil {
		return d.sendErr
	}
	d.sent = append(d.sent, sentMessage{to: to, text: text})
	return nil
}

type fakeQuota struct {
	allow bool
}

func (q *fakeQuota) Allow(ctx context.Context, phoneNumber string) bool { return q.allow }

func newTestOTPService(store ChallengeStore, dispatcher *fakeDispatcher) *OTPService {
	return NewOTPService(OTPServiceParams{
		Store:       store,
		Dispatcher:  dispatcher,
		CodeTTL:     5 * time.Minute,
		CodeLength:  6,
		MaxAttempts: 5,
		Pepper:      testPepper,
	})
}

var codeInTextPattern = regexp.MustCompile(`\d{6}`)

// codeFromText pulls the delivered code out of the message the dispatcher saw
func codeFromText(t *testing.T, text string) string {
	t.Helper()
	code := codeInTextPattern.FindString(text)
	require.NotEmpty(t, code, "message text should contain a 6 digit code: %q", text)
	return code
}

func TestOTPService_StartCreatesChallenge(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)

	before := time.Now()
	err := svc.Start(context.Background(), "+5521999999999")
	require.NoError(t, err)

	challenge := store.challenges["+5521999999999"]
	require.NotNil(t, challenge)
	assert.Equal(t, 0, challenge.Attempts)
	assert.WithinDuration(t, before.Add(5*time.Minute), challenge.ExpiresAt, 2*time.Second)

	require.Len(t, dispatcher.sent, 1)
	assert.Equal(t, "+5521999999999", dispatcher.sent[0].to)

	code := codeFromText(t, dispatcher.sent[0].text)
	assert.Equal(t, utils.HashVerificationCode(code, testPepper), challenge.CodeHash,
		"stored hash should match the delivered code")
}

func TestOTPService_StartInvalidPhone(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)

	tests := []string{"", "5521999999999", "+55 21 99999", "+12ab45678", "+12345"}
	for _, phone := range tests {
		t.Run(phone, func(t *testing.T) {
			err := svc.Start(context.Background(), phone)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
	assert.Empty(t, dispatcher.sent)
}

func TestOTPService_StartWithLiveChallengeIsSilentNoOp(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)

	require.NoError(t, svc.Start(context.Background(), "+5521999999999"))
	originalHash := store.challenges["+5521999999999"].CodeHash

	// A second start must look exactly like the first from outside
	require.NoError(t, svc.Start(context.Background(), "+5521999999999"))

	assert.Len(t, dispatcher.sent, 1, "no second message should be sent")
	assert.Equal(t, originalHash, store.challenges["+5521999999999"].CodeHash,
		"the live challenge must be untouched")
}

func TestOTPService_StartAfterExpiryIssuesNewChallenge(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)

	store.challenges["+5521999999999"] = &models.Challenge{
		PhoneNumber: "+5521999999999",
		CodeHash:    utils.HashVerificationCode("111111", testPepper),
		CreatedAt:   time.Now().Add(-10 * time.Minute),
		ExpiresAt:   time.Now().Add(-5 * time.Minute),
	}

	require.NoError(t, svc.Start(context.Background(), "+5521999999999"))

	require.Len(t, dispatcher.sent, 1)
	assert.NotEqual(t, utils.HashVerificationCode("111111", testPepper),
		store.challenges["+5521999999999"].CodeHash)
}

func TestOTPService_StartQuotaExceededIsSilentNoOp(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)
	svc.quota = &fakeQuota{allow: false}

	err := svc.Start(context.Background(), "+5521999999999")
	require.NoError(t, err, "quota exhaustion must be indistinguishable from success")
	assert.Empty(t, dispatcher.sent)
	assert.Empty(t, store.challenges)
}

func TestOTPService_StartRateLimited(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)
	svc.limiter = NewRateLimiter(1, time.Hour, nil)

	require.NoError(t, svc.Start(context.Background(), "+5521999999999"))
	err := svc.Start(context.Background(), "+5521888888888")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrProvider)
}

func TestOTPService_StartDispatchFailureKeepsChallenge(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{sendErr: models.ErrProvider}
	svc := newTestOTPService(store, dispatcher)

	err := svc.Start(context.Background(), "+5521999999999")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrProvider)

	// The stored challenge survives the failed send and throttles retries
	// until it expires.
	assert.NotNil(t, store.challenges["+5521999999999"])
}

func TestOTPService_VerifySuccessConsumesChallenge(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)

	require.NoError(t, svc.Start(context.Background(), "+5521999999999"))
	code := codeFromText(t, dispatcher.sent[0].text)

	require.NoError(t, svc.Verify(context.Background(), "+5521999999999", code))
	assert.Empty(t, store.challenges, "challenge must be deleted on success")

	// The same code cannot be replayed
	err := svc.Verify(context.Background(), "+5521999999999", code)
	assert.ErrorIs(t, err, models.ErrNoChallenge)
}

func TestOTPService_VerifyNoChallenge(t *testing.T) {
	svc := newTestOTPService(newFakeChallengeStore(), &fakeDispatcher{})

	err := svc.Verify(context.Background(), "+5521999999999", "123456")
	assert.ErrorIs(t, err, models.ErrNoChallenge)
}

func TestOTPService_VerifyWrongCodeIncrementsAttempts(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)

	require.NoError(t, svc.Start(context.Background(), "+5521999999999"))
	code := codeFromText(t, dispatcher.sent[0].text)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	err := svc.Verify(context.Background(), "+5521999999999", wrong)
	assert.ErrorIs(t, err, models.ErrInvalidCode)
	assert.Equal(t, 1, store.challenges["+5521999999999"].Attempts)

	// A correct code still works after a single failure
	require.NoError(t, svc.Verify(context.Background(), "+5521999999999", code))
}

func TestOTPService_VerifyLockedAfterMaxAttempts(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)

	require.NoError(t, svc.Start(context.Background(), "+5521999999999"))
	code := codeFromText(t, dispatcher.sent[0].text)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 5; i++ {
		err := svc.Verify(context.Background(), "+5521999999999", wrong)
		assert.ErrorIs(t, err, models.ErrInvalidCode)
	}

	// Even the correct code is rejected once the ceiling is hit
	err := svc.Verify(context.Background(), "+5521999999999", code)
	assert.ErrorIs(t, err, models.ErrTooManyAttempts)
	assert.NotNil(t, store.challenges["+5521999999999"], "locked challenge is kept until expiry")
}

func TestOTPService_VerifyExpired(t *testing.T) {
	store := newFakeChallengeStore()
	svc := newTestOTPService(store, &fakeDispatcher{})

	store.challenges["+5521999999999"] = &models.Challenge{
		PhoneNumber: "+5521999999999",
		CodeHash:    utils.HashVerificationCode("123456", testPepper),
		CreatedAt:   time.Now().Add(-10 * time.Minute),
		ExpiresAt:   time.Now().Add(-5 * time.Minute),
	}

	err := svc.Verify(context.Background(), "+5521999999999", "123456")
	assert.ErrorIs(t, err, models.ErrExpired)
	assert.Empty(t, store.challenges, "expired challenge should be cleaned up")
}

func TestOTPService_VerifyMalformedCode(t *testing.T) {
	svc := newTestOTPService(newFakeChallengeStore(), &fakeDispatcher{})

	tests := []string{"", "12345", "1234567", "12345a", "12 456"}
	for _, code := range tests {
		t.Run(code, func(t *testing.T) {
			err := svc.Verify(context.Background(), "+5521999999999", code)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestOTPService_VerifyDeleteFailureIsNotSuccess(t *testing.T) {
	store := newFakeChallengeStore()
	dispatcher := &fakeDispatcher{}
	svc := newTestOTPService(store, dispatcher)

	require.NoError(t, svc.Start(context.Background(), "+5521999999999"))
	code := codeFromText(t, dispatcher.sent[0].text)

	store.deleteErr = errors.New("mongo down")
	err := svc.Verify(context.Background(), "+5521999999999", code)
	require.Error(t, err, "success must not be reported while the challenge is still replayable")
}
