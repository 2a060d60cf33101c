/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package errors

// Code identifies the reason an operation failed. Codes are stable strings so
// that the layer above the gateway can serialize them without translation.
type Code string

// Reason codes.
const (
	// storage
	StorageUnavailable Code = "STORAGE_UNAVAILABLE"
	NotFound           Code = "NOT_FOUND"

	// identity
	UnknownIdentity      Code = "UNKNOWN_IDENTITY"
	AlreadyEnrolled      Code = "ALREADY_ENROLLED"
	AlreadyRegistered    Code = "ALREADY_REGISTERED"
	CallerNotEnrolled    Code = "CALLER_NOT_ENROLLED"
	AuthenticationFailed Code = "AUTHENTICATION_FAILED"

	// network
	CAUnreachable    Code = "CA_UNREACHABLE"
	ConnectionFailed Code = "CONNECTION_FAILED"
	Unauthorized     Code = "UNAUTHORIZED"
	PeerUnavailable  Code = "PEER_UNAVAILABLE"
	CommitTimeout    Code = "COMMIT_TIMEOUT"

	// resolution
	ChannelNotFound  Code = "CHANNEL_NOT_FOUND"
	ContractNotFound Code = "CONTRACT_NOT_FOUND"

	// transaction
	EndorsementFailed Code = "ENDORSEMENT_FAILED"
	Rejected          Code = "REJECTED"
	EvaluationFailed  Code = "EVALUATION_FAILED"

	// Unspecified is reported for errors that carry no code.
	Unspecified Code = "UNSPECIFIED"
)

// Group is the taxonomy family a code belongs to.
type Group string

// Taxonomy groups.
const (
	StorageError     Group = "StorageError"
	IdentityError    Group = "IdentityError"
	NetworkError     Group = "NetworkError"
	ResolutionError  Group = "ResolutionError"
	TransactionError Group = "TransactionError"
	UnknownError     Group = "UnknownError"
)

var groups = map[Code]Group{
	StorageUnavailable:   StorageError,
	NotFound:             StorageError,
	UnknownIdentity:      IdentityError,
	AlreadyEnrolled:      IdentityError,
	AlreadyRegistered:    IdentityError,
	CallerNotEnrolled:    IdentityError,
	AuthenticationFailed: IdentityError,
	CAUnreachable:        NetworkError,
	ConnectionFailed:     NetworkError,
	Unauthorized:         NetworkError,
	PeerUnavailable:      NetworkError,
	CommitTimeout:        NetworkError,
	ChannelNotFound:      ResolutionError,
	ContractNotFound:     ResolutionError,
	EndorsementFailed:    TransactionError,
	Rejected:             TransactionError,
	EvaluationFailed:     TransactionError,
}

// GroupOf returns the taxonomy group for a code.
func GroupOf(code Code) Group {
	if g, ok := groups[code]; ok {
		return g
	}
	return UnknownError
}

// Retryable reports whether an operation failing with the given code may
// succeed on a retry with the same input. Only network faults qualify:
// endorsement and validation failures need a changed input, and the
// already-enrolled/registered codes are precondition violations.
func Retryable(code Code) bool {
	return GroupOf(code) == NetworkError
}

type codedError struct {
	code  Code
	cause error
}

func (e *codedError) Error() string {
	return string(e.code) + ": " + e.cause.Error()
}

func (e *codedError) Unwrap() error { return e.cause }

// Cause satisfies pkg/errors causer.
func (e *codedError) Cause() error { return e.cause }

// WithCode annotates err with a reason code. A nil err returns nil.
func WithCode(err error, code Code) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, cause: err}
}

// Codef builds a new coded error from a format string.
func Codef(code Code, format string, args ...interface{}) error {
	return &codedError{code: code, cause: Errorf(format, args...)}
}

// CodeOf extracts the reason code from an error chain. The outermost code
// wins, so a boundary re-coding an upstream failure takes precedence.
func CodeOf(err error) Code {
	for err != nil {
		if ce, ok := err.(*codedError); ok {
			return ce.code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return Unspecified
		}
		err = u.Unwrap()
	}
	return Unspecified
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
