package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wondertwin-ai/app-otp/internal/middleware"
	"github.com/wondertwin-ai/app-otp/internal/models"
	"github.com/wondertwin-ai/app-otp/internal/observability"
	"github.com/wondertwin-ai/app-otp/internal/services"
	"go.uber.org/zap"
)

// OTPVerifier drives the challenge lifecycle for the HTTP surface
type OTPVerifier interface {
	Start(ctx context.Context, phoneNumber string) error
	Verify(ctx context.Context, phoneNumber, code string) error
}

// IdentityResolver maps verified phones to identities
type IdentityResolver interface {
	Resolve(ctx context.Context, phoneNumber string) (*models.Identity, bool, error)
}

// OTPHandlers exposes the verification workflow over HTTP
type OTPHandlers struct {
	otp         OTPVerifier
	identities  IdentityResolver
	credentials *services.CredentialService
}

// NewOTPHandlers creates the handler set from its services
func NewOTPHandlers(otp OTPVerifier, identities IdentityResolver, credentials *services.CredentialService) *OTPHandlers {
	return &OTPHandlers{
		otp:         otp,
		identities:  identities,
		credentials: credentials,
	}
}

// StartVerification godoc
// @Summary Start phone verification
// @Description Sends a one-time code to the phone number. Always returns 200 for valid phones so callers cannot probe which phones are mid-verification.
// @Tags otp
// @Accept json
// @Produce json
// @Param data body models.StartVerificationRequest true "Phone number in E.164 format"
// @Success 200 {object} models.StartVerificationResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /v1/otp/start [post]
func (h *OTPHandlers) StartVerification(c *gin.Context) {
	var req models.StartVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
		return
	}

	if err := h.otp.Start(c.Request.Context(), req.Phone); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StartVerificationResponse{OK: true})
}

// VerifyCode godoc
// @Summary Verify a one-time code
// @Description Checks the submitted code against the phone's pending verification. On success returns a signed credential; the identity is created on first verification.
// @Tags otp
// @Accept json
// @Produce json
// @Param data body models.VerifyCodeRequest true "Phone number and code"
// @Success 200 {object} models.VerifyCodeResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /v1/otp/verify [post]
func (h *OTPHandlers) VerifyCode(c *gin.Context) {
	var req models.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if err := h.otp.Verify(ctx, req.Phone, req.Code); err != nil {
		h.writeError(c, err)
		return
	}

	identity, isNew, err := h.identities.Resolve(ctx, req.Phone)
	if err != nil {
		h.writeError(c, err)
		return
	}

	credential, err := h.credentials.Issue(identity)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VerifyCodeResponse{
		OK:         true,
		Credential: credential,
		IsNewUser:  isNew,
	})
}

// Me godoc
// @Summary Describe the authenticated identity
// @Tags identity
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.MeResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /v1/me [get]
func (h *OTPHandlers) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Message: "invalid credential"})
		return
	}

	c.JSON(http.StatusOK, models.MeResponse{
		ID:          claims.Subject,
		PhoneNumber: claims.PhoneNumber,
	})
}

// writeError maps workflow errors onto HTTP responses. Client errors carry
// the sentinel's message; everything else is a generic 500 so internals never
// leak to callers.
func (h *OTPHandlers) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: models.ErrInvalidInput.Error()})
	case errors.Is(err, models.ErrNoChallenge):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: models.ErrNoChallenge.Error()})
	case errors.Is(err, models.ErrExpired):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: models.ErrExpired.Error()})
	case errors.Is(err, models.ErrInvalidCode):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Message: models.ErrInvalidCode.Error()})
	case errors.Is(err, models.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{Message: models.ErrTooManyAttempts.Error()})
	default:
		observability.Logger().Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Message: "internal error"})
	}
}
