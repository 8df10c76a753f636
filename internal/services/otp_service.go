package services

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/wondertwin-ai/app-otp/internal/logging"
	"github.com/wondertwin-ai/app-otp/internal/models"
	"github.com/wondertwin-ai/app-otp/internal/observability"
	"github.com/wondertwin-ai/app-otp/internal/sms"
	"github.com/wondertwin-ai/app-otp/internal/utils"
	"go.uber.org/zap"
)

// OTPService drives the verification lifecycle for a phone number: issuing a
// challenge, delivering the code and judging submitted codes against it.
type OTPService struct {
	store       ChallengeStore
	dispatcher  sms.Dispatcher
	limiter     *RateLimiter
	quota       SendQuota
	codeTTL     time.Duration
	codeLength  int
	maxAttempts int
	pepper      string
	codePattern *regexp.Regexp
	logger      *logging.SafeLogger
}

// OTPServiceParams collects the dependencies and tunables of an OTPService.
// Limiter and Quota may be nil, which disables the respective throttle.
type OTPServiceParams struct {
	Store       ChallengeStore
	Dispatcher  sms.Dispatcher
	Limiter     *RateLimiter
	Quota       SendQuota
	CodeTTL     time.Duration
	CodeLength  int
	MaxAttempts int
	Pepper      string
	Logger      *logging.SafeLogger
}

// NewOTPService creates an OTPService from its dependencies
func NewOTPService(params OTPServiceParams) *OTPService {
	return &OTPService{
		store:       params.Store,
		dispatcher:  params.Dispatcher,
		limiter:     params.Limiter,
		quota:       params.Quota,
		codeTTL:     params.CodeTTL,
		codeLength:  params.CodeLength,
		maxAttempts: params.MaxAttempts,
		pepper:      params.Pepper,
		codePattern: utils.CodeFormatPattern(params.CodeLength),
		logger:      params.Logger,
	}
}

// Start begins verification for the phone number. When a live challenge
// already exists, or the phone has exhausted its daily send quota, Start
// returns success without sending anything, so callers cannot probe which
// phones have verifications in progress.
func (s *OTPService) Start(ctx context.Context, phoneNumber string) error {
	if err := utils.ValidatePhoneFormat(phoneNumber); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	logger := s.logger.With(zap.String("phone", observability.MaskPhone(phoneNumber)))

	existing, err := s.store.Get(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if existing != nil && !existing.Expired(time.Now()) {
		logger.Info("verification already in progress, suppressing resend")
		observability.ChallengesStarted.WithLabelValues("throttled").Inc()
		return nil
	}

	if s.quota != nil && !s.quota.Allow(ctx, phoneNumber) {
		// Indistinguishable from the live-challenge case on the wire
		logger.Info("daily send quota reached, suppressing send")
		observability.ChallengesStarted.WithLabelValues("throttled").Inc()
		return nil
	}

	if s.limiter != nil && !s.limiter.Allow(ctx, "sms_send") {
		observability.ChallengesStarted.WithLabelValues("rate_limited").Inc()
		return fmt.Errorf("%w: sms send rate exceeded", models.ErrProvider)
	}

	code, err := utils.GenerateVerificationCode(s.codeLength)
	if err != nil {
		return err
	}

	now := time.Now()
	challenge := &models.Challenge{
		PhoneNumber: phoneNumber,
		CodeHash:    utils.HashVerificationCode(code, s.pepper),
		Attempts:    0,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.codeTTL),
	}
	if err := s.store.Put(ctx, challenge); err != nil {
		return err
	}

	text := fmt.Sprintf("Your WonderTwin verification code is %s. It expires in %d minutes.",
		code, int(s.codeTTL.Minutes()))
	if err := s.dispatcher.Send(ctx, phoneNumber, text); err != nil {
		// The challenge record stays behind; the phone is throttled until
		// it expires. Operators should watch the sms metrics for this.
		logger.Error("failed to dispatch verification code", zap.Error(err))
		observability.ChallengesStarted.WithLabelValues("send_failed").Inc()
		return err
	}

	logger.Info("verification started",
		zap.Time("expires_at", challenge.ExpiresAt))
	observability.ChallengesStarted.WithLabelValues("sent").Inc()
	return nil
}

// Verify judges a submitted code against the phone's challenge. On success
// the challenge is consumed and cannot be replayed.
func (s *OTPService) Verify(ctx context.Context, phoneNumber, code string) error {
	if err := utils.ValidatePhoneFormat(phoneNumber); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if !s.codePattern.MatchString(code) {
		return fmt.Errorf("%w: code must be %d digits", models.ErrInvalidInput, s.codeLength)
	}

	logger := s.logger.With(zap.String("phone", observability.MaskPhone(phoneNumber)))

	challenge, err := s.store.Get(ctx, phoneNumber)
	if err != nil {
		return err
	}
	if challenge == nil {
		observability.Verifications.WithLabelValues("no_challenge").Inc()
		return models.ErrNoChallenge
	}

	if challenge.Expired(time.Now()) {
		// The TTL index will reap it eventually; delete now so a fresh
		// start is not throttled in the meantime.
		if delErr := s.store.Delete(ctx, phoneNumber); delErr != nil {
			logger.Warn("failed to delete expired challenge", zap.Error(delErr))
		}
		observability.Verifications.WithLabelValues("expired").Inc()
		return models.ErrExpired
	}

	if challenge.Locked(s.maxAttempts) {
		observability.Verifications.WithLabelValues("locked").Inc()
		return models.ErrTooManyAttempts
	}

	if !utils.VerifyCodeHash(code, s.pepper, challenge.CodeHash) {
		attempts, incErr := s.store.IncrementAttempts(ctx, phoneNumber)
		if incErr != nil {
			logger.Warn("failed to record failed attempt", zap.Error(incErr))
		}
		logger.Info("verification code rejected", zap.Int("attempts", attempts))
		observability.Verifications.WithLabelValues("invalid_code").Inc()
		return models.ErrInvalidCode
	}

	if err := s.store.Delete(ctx, phoneNumber); err != nil {
		// Refuse to report success while the challenge might still be
		// replayable.
		return err
	}

	logger.Info("verification succeeded")
	observability.Verifications.WithLabelValues("success").Inc()
	return nil
}
