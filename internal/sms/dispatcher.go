// Package sms dispatches verification messages through a configurable
// provider backend.
package sms

import (
	"context"
	"fmt"
	"regexp"

	"github.com/wondertwin-ai/app-otp/internal/config"
	"github.com/wondertwin-ai/app-otp/internal/models"
)

// Dispatcher sends a text message to a phone number. Implementations must
// never include the message text in returned errors or logs on failure
// paths; the text carries the plaintext verification code.
type Dispatcher interface {
	Send(ctx context.Context, toPhoneNumber, messageText string) error
	Provider() string
}

var twilioAccountSIDRegex = regexp.MustCompile(`^AC[0-9a-fA-F]{32}$`)

// New builds the dispatcher selected by the configuration. Credentials are
// validated here so a misconfigured deployment fails at startup instead of
// on the first send.
func New(cfg *config.Config) (Dispatcher, error) {
	switch cfg.SMSProvider {
	case config.SMSProviderConsole:
		return &consoleDispatcher{}, nil

	case config.SMSProviderTwilio:
		if cfg.TwilioAccountSID == "" {
			return nil, fmt.Errorf("%w: TWILIO_ACCOUNT_SID is required", models.ErrConfig)
		}
		if !twilioAccountSIDRegex.MatchString(cfg.TwilioAccountSID) {
			return nil, fmt.Errorf("%w: TWILIO_ACCOUNT_SID is malformed", models.ErrConfig)
		}
		if cfg.TwilioAuthToken == "" {
			return nil, fmt.Errorf("%w: TWILIO_AUTH_TOKEN is required", models.ErrConfig)
		}
		if cfg.TwilioFromNumber == "" {
			return nil, fmt.Errorf("%w: TWILIO_FROM_NUMBER is required", models.ErrConfig)
		}
		return &twilioDispatcher{
			accountSID: cfg.TwilioAccountSID,
			authToken:  cfg.TwilioAuthToken,
			from:       cfg.TwilioFromNumber,
			baseURL:    twilioBaseURL,
		}, nil

	case config.SMSProviderMSG91:
		if cfg.MSG91AuthKey == "" {
			return nil, fmt.Errorf("%w: MSG91_AUTH_KEY is required", models.ErrConfig)
		}
		if cfg.MSG91TemplateID == "" {
			return nil, fmt.Errorf("%w: MSG91_TEMPLATE_ID is required", models.ErrConfig)
		}
		if cfg.MSG91SenderID == "" {
			return nil, fmt.Errorf("%w: MSG91_SENDER_ID is required", models.ErrConfig)
		}
		return &msg91Dispatcher{
			authKey:    cfg.MSG91AuthKey,
			templateID: cfg.MSG91TemplateID,
			senderID:   cfg.MSG91SenderID,
			baseURL:    msg91BaseURL,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown SMS provider %q", models.ErrConfig, cfg.SMSProvider)
	}
}
