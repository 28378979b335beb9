package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/aws/smithy-go"
)

// Code classifies a storage failure.
type Code string

const (
	CodeCredentialsMissing Code = "CredentialsMissing"
	CodeInvalidAccessKey   Code = "InvalidAccessKey"
	CodeInvalidSecret      Code = "InvalidSecret"
	CodeNetwork            Code = "Network"
	CodeNotImplemented     Code = "NotImplemented"
	CodeUnknown            Code = "Unknown"
)

// Sentinels for errors.Is. An *Error with the matching Code also matches.
var (
	ErrCredentialsMissing = errors.New("storage credentials are incomplete")
	ErrNotImplemented     = errors.New("storage provider not implemented")
)

// Error is a classified storage failure.
type Error struct {
	Code Code
	// Op is the provider operation that failed ("ListBuckets", "PutObject", ...).
	Op string
	// Message is the provider's own message, preserved verbatim.
	Message string
	// Hint is a short actionable suggestion for the user. Optional.
	Hint string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the package sentinels by code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrCredentialsMissing:
		return e.Code == CodeCredentialsMissing
	case ErrNotImplemented:
		return e.Code == CodeNotImplemented
	}
	return false
}

// CredentialsMissing builds the error returned before any network call when
// required credential fields are empty.
func CredentialsMissing(op string, missing []string) *Error {
	return &Error{
		Code:    CodeCredentialsMissing,
		Op:      op,
		Message: "missing " + strings.Join(missing, ", "),
		Hint:    "set the IPDATA_AWS_* and IPDATA_S3_BUCKET variables or run 'ipdata credentials save'",
	}
}

// NotImplemented builds the error for a backend that has no implementation.
func NotImplemented(provider string) *Error {
	return &Error{
		Code:    CodeNotImplemented,
		Op:      "Upload",
		Message: fmt.Sprintf("provider %q is not implemented", provider),
		Hint:    "use --target direct, --target presigned, alternate:minio or alternate:gcs",
	}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeUnknown when there is none.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}

// HintOf returns the hint of the first *Error in err's chain.
func HintOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Hint
	}
	return ""
}

// Classify converts an error returned by the AWS SDK (or plain transport)
// into an *Error. Classification looks at error types and service error
// codes only. Context errors are returned unchanged so callers can still
// match context.Canceled.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return FromServiceCode(op, apiErr.ErrorCode(), apiErr.ErrorMessage(), err)
	}

	if IsNetworkError(err) {
		return &Error{
			Code:    CodeNetwork,
			Op:      op,
			Message: err.Error(),
			Hint:    "check network connectivity, proxy settings and the region",
			Err:     err,
		}
	}

	return &Error{Code: CodeUnknown, Op: op, Message: err.Error(), Err: err}
}

// FromServiceCode maps an S3-dialect error code to an *Error. It is shared
// by every S3-compatible backend (AWS, MinIO).
func FromServiceCode(op, code, message string, err error) *Error {
	if message == "" && err != nil {
		message = err.Error()
	}
	e := &Error{Op: op, Message: message, Err: err}

	switch code {
	case "InvalidAccessKeyId", "InvalidClientTokenId", "UnrecognizedClientException":
		e.Code = CodeInvalidAccessKey
		e.Hint = "the access key id is not recognised; check IPDATA_AWS_ACCESS_KEY_ID"
	case "SignatureDoesNotMatch":
		e.Code = CodeInvalidSecret
		e.Hint = "the secret access key does not match the access key id"
	case "AccessDenied", "AllAccessDisabled":
		e.Code = CodeUnknown
		e.Hint = "the credentials are valid but lack permission; grant s3:ListAllMyBuckets, s3:PutObject and s3:PutBucketCORS"
	case "NoSuchBucket":
		e.Code = CodeUnknown
		e.Hint = "the bucket does not exist in this account or region"
	case "RequestTimeout", "RequestTimeTooSkewed":
		e.Code = CodeNetwork
		e.Hint = "check the system clock and network connectivity"
	default:
		e.Code = CodeUnknown
	}
	return e
}

// IsNetworkError reports whether err is a transport-level failure.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	// *url.Error, *net.OpError and *net.DNSError all satisfy net.Error.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
