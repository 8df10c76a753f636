package models

import "errors"

// Error constants for the OTP verification workflow
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNoChallenge     = errors.New("no verification in progress")
	ErrExpired         = errors.New("OTP expired")
	ErrTooManyAttempts = errors.New("Too many attempts")
	ErrInvalidCode     = errors.New("Invalid OTP")
	ErrProvider        = errors.New("provider error")
	ErrConfig          = errors.New("configuration error")
)
