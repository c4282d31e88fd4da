package services

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidToken       = errors.New("invalid or expired token")

	ErrNoChallenge      = errors.New("no verification in progress")
	ErrCodeRequired     = errors.New("verification code is required")
	ErrInvalidCode      = errors.New("invalid verification code")
	ErrChallengeExpired = errors.New("verification code has expired")
	ErrResendTooSoon    = errors.New("please wait before requesting another code")

	ErrInvalidItems         = errors.New("items_json must be a JSON object")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrInvalidStatus        = errors.New("unknown order status")
	ErrUnknownAction        = errors.New("unknown bulk action")
	ErrNothingSelected      = errors.New("no rows selected")

	ErrInvalidEmail  = errors.New("enter a valid email address")
	ErrInvalidPhone  = errors.New("enter a valid phone number")
	ErrQueryTooShort = errors.New("search query must be at least 2 characters")

	ErrPublisherDisabled = errors.New("event publisher is not configured")
)
