package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wondertwin-ai/app-otp/internal/models"
	"github.com/wondertwin-ai/app-otp/internal/observability"
	"github.com/wondertwin-ai/app-otp/internal/utils/httpclient"
	"go.uber.org/zap"
)

const twilioBaseURL = "https://api.twilio.com"

// twilioDispatcher sends messages through the Twilio Messages API.
type twilioDispatcher struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
}

type twilioErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (d *twilioDispatcher) Provider() string { return "twilio" }

func (d *twilioDispatcher) Send(ctx context.Context, toPhoneNumber, messageText string) error {
	logger := observability.Logger().With(
		zap.String("provider", "twilio"),
		zap.String("to", observability.MaskPhone(toPhoneNumber)),
	)

	form := url.Values{}
	form.Set("To", toPhoneNumber)
	form.Set("From", d.from)
	form.Set("Body", messageText)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", d.baseURL, d.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		logger.Error("failed to create message request", zap.Error(err))
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}
	req.SetBasicAuth(d.accountSID, d.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := httpclient.GetGlobalPool().Get()
	defer httpclient.GetGlobalPool().Put(client)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("failed to send message request", zap.Error(err))
		observability.SMSMessagesSent.WithLabelValues("twilio", "error").Inc()
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("failed to read response body", zap.Error(err))
		observability.SMSMessagesSent.WithLabelValues("twilio", "error").Inc()
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}

	if resp.StatusCode != http.StatusCreated {
		// Log the provider's error code for operators; never the message text
		var errResp twilioErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil && errResp.Message != "" {
			logger.Error("message request failed",
				zap.Int("status_code", resp.StatusCode),
				zap.Int("provider_code", errResp.Code),
				zap.String("provider_message", errResp.Message))
		} else {
			logger.Error("message request failed",
				zap.Int("status_code", resp.StatusCode))
		}
		observability.SMSMessagesSent.WithLabelValues("twilio", "failed").Inc()
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}

	observability.SMSMessagesSent.WithLabelValues("twilio", "sent").Inc()
	return nil
}
