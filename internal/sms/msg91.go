package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/wondertwin-ai/app-otp/internal/models"
	"github.com/wondertwin-ai/app-otp/internal/observability"
	"github.com/wondertwin-ai/app-otp/internal/utils/httpclient"
	"go.uber.org/zap"
)

const msg91BaseURL = "https://control.msg91.com"

// msg91Dispatcher sends messages through the MSG91 template flow API. The
// operator's template must reference the "message" variable.
type msg91Dispatcher struct {
	authKey    string
	templateID string
	senderID   string
	baseURL    string
}

type msg91Recipient struct {
	Mobiles string `json:"mobiles"`
	Message string `json:"message"`
}

type msg91FlowRequest struct {
	TemplateID string           `json:"template_id"`
	Sender     string           `json:"sender"`
	Recipients []msg91Recipient `json:"recipients"`
}

type msg91Response struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (d *msg91Dispatcher) Provider() string { return "msg91" }

func (d *msg91Dispatcher) Send(ctx context.Context, toPhoneNumber, messageText string) error {
	logger := observability.Logger().With(
		zap.String("provider", "msg91"),
		zap.String("to", observability.MaskPhone(toPhoneNumber)),
	)

	// MSG91 expects mobiles without the leading +
	flowReq := msg91FlowRequest{
		TemplateID: d.templateID,
		Sender:     d.senderID,
		Recipients: []msg91Recipient{
			{Mobiles: strings.TrimPrefix(toPhoneNumber, "+"), Message: messageText},
		},
	}

	jsonBody, err := json.Marshal(flowReq)
	if err != nil {
		logger.Error("failed to marshal flow request", zap.Error(err))
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}

	endpoint := d.baseURL + "/api/v5/flow/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		logger.Error("failed to create flow request", zap.Error(err))
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}
	req.Header.Set("authkey", d.authKey)
	req.Header.Set("Content-Type", "application/json")

	client := httpclient.GetGlobalPool().Get()
	defer httpclient.GetGlobalPool().Put(client)

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("failed to send flow request", zap.Error(err))
		observability.SMSMessagesSent.WithLabelValues("msg91", "error").Inc()
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Error("failed to read response body", zap.Error(err))
		observability.SMSMessagesSent.WithLabelValues("msg91", "error").Inc()
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}

	// MSG91 reports failures with type != "success" even on HTTP 200
	var flowResp msg91Response
	if jsonErr := json.Unmarshal(body, &flowResp); jsonErr != nil {
		logger.Error("failed to decode flow response",
			zap.Int("status_code", resp.StatusCode))
		observability.SMSMessagesSent.WithLabelValues("msg91", "error").Inc()
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}

	if resp.StatusCode != http.StatusOK || flowResp.Type != "success" {
		logger.Error("flow request failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("provider_type", flowResp.Type),
			zap.String("provider_message", flowResp.Message))
		observability.SMSMessagesSent.WithLabelValues("msg91", "failed").Inc()
		return fmt.Errorf("%w: sms send failed", models.ErrProvider)
	}

	observability.SMSMessagesSent.WithLabelValues("msg91", "sent").Inc()
	return nil
}
