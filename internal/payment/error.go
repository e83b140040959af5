package payment

import "errors"

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMalformedEvent   = errors.New("malformed webhook event")
	ErrSessionNotFound  = errors.New("no checkout session for payment intent")
	ErrMissingMetadata  = errors.New("checkout session has no order metadata")
	ErrMissingAPIKey    = errors.New("stripe: api key is required")
)
