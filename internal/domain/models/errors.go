package models

import "errors"

// Error taxonomy shared by the backend client, the derivation engine, the segmenter
// and the session controller.
var (
	// ErrNetworkFailure marks a rejected fetch or a non-success status from the backend.
	ErrNetworkFailure = errors.New("network failure")
	// ErrMalformedPayload marks a response that arrived but failed shape or numeric validation.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrSuperseded marks a result that lost the race to a newer request. Never user-facing.
	ErrSuperseded = errors.New("superseded result")
	// ErrUnknownRegime marks a regime label outside the closed label set.
	ErrUnknownRegime = errors.New("unknown regime label")
)
