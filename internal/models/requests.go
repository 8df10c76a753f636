package models

// StartVerificationRequest is the request body for starting a verification
type StartVerificationRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyCodeRequest is the request body for submitting a code
type VerifyCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// StartVerificationResponse acknowledges a start request. It deliberately
// carries no information about whether an SMS was actually dispatched.
type StartVerificationResponse struct {
	OK bool `json:"ok"`
}

// VerifyCodeResponse is returned on successful verification
type VerifyCodeResponse struct {
	OK         bool   `json:"ok"`
	Credential string `json:"credential"`
	IsNewUser  bool   `json:"isNewUser"`
}

// ErrorResponse is the generic failure envelope
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// MeResponse describes the identity bound to a presented credential
type MeResponse struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phone_number"`
}
