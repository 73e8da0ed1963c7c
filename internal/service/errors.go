package service

import (
	"errors"
	"net/http"
)

// ErrorKind classifies pipeline failures. The four hard-gate kinds
// (validation, identity, payment, replay) abort the admission pipeline;
// ledger failures during commit are fatal to the request; fulfillment
// and attestation failures are never surfaced as request errors, they
// are recorded on the order instead.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindIdentity    ErrorKind = "identity"
	KindPayment     ErrorKind = "payment"
	KindReplay      ErrorKind = "replay"
	KindNotFound    ErrorKind = "not_found"
	KindLedger      ErrorKind = "ledger"
	KindFulfillment ErrorKind = "fulfillment"
)

// AdmissionError is the typed failure of an order request. The message
// is written for an unattended caller: it always distinguishes permanent
// conditions (not found / invalid) from remediable ones (insufficient /
// unverified) so the caller can decide whether to retry, fix and
// resubmit, or abandon.
type AdmissionError struct {
	Kind    ErrorKind
	Message string
	Err     error

	// Instructions is set on payment errors so every 402 carries what
	// the caller needs to pay: receiving address, chain, token.
	Instructions *PaymentInstructions
}

func (e *AdmissionError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdmissionError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the error kind to its response status
func (e *AdmissionError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindReplay:
		return http.StatusBadRequest
	case KindIdentity:
		return http.StatusForbidden
	case KindPayment:
		return http.StatusPaymentRequired
	case KindNotFound:
		return http.StatusNotFound
	case KindFulfillment:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AsAdmissionError extracts an AdmissionError from an error chain
func AsAdmissionError(err error) (*AdmissionError, bool) {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

func errValidation(msg string) *AdmissionError {
	return &AdmissionError{Kind: KindValidation, Message: msg}
}

func errIdentity(msg string, err error) *AdmissionError {
	return &AdmissionError{Kind: KindIdentity, Message: msg, Err: err}
}

func errReplay(msg string) *AdmissionError {
	return &AdmissionError{Kind: KindReplay, Message: msg}
}

func errNotFound(msg string) *AdmissionError {
	return &AdmissionError{Kind: KindNotFound, Message: msg}
}

func errLedger(msg string, err error) *AdmissionError {
	return &AdmissionError{Kind: KindLedger, Message: msg, Err: err}
}
