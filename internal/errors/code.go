package errors

import (
	"fmt"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// Error code format: SSMMEE (6 digits), SS=14 for timeline-service.
// Modules:
//   01: timeline
//   02: moment
//   03: checkout / payment
//   04: webhook / sync / publish

// Timeline module (140100-140199)
const (
	// ErrCodeTimelineNotFound unknown timeline id or slug
	ErrCodeTimelineNotFound = 140101
	// ErrCodeTimelineNotPublished timeline exists but is not public yet
	ErrCodeTimelineNotPublished = 140102
	// ErrCodeInvalidEditToken edit token does not match
	ErrCodeInvalidEditToken = 140103
	// ErrCodePasswordRequired private timeline fetched without a password
	ErrCodePasswordRequired = 140104
	// ErrCodeWrongPassword private timeline fetched with a wrong password
	ErrCodeWrongPassword = 140105
	// ErrCodeInvalidInput missing or malformed request fields
	ErrCodeInvalidInput = 140106
)

// Moment module (140200-140299)
const (
	// ErrCodeMomentLimitExceeded essential tier allows at most 10 moments
	ErrCodeMomentLimitExceeded = 140201
	// ErrCodeTooManyImages a moment carries at most 3 image URLs
	ErrCodeTooManyImages = 140202
)

// Checkout / payment module (140300-140399)
const (
	// ErrCodeInvalidPlan unknown plan tier
	ErrCodeInvalidPlan = 140301
	// ErrCodeInvalidEmail payer email fails shape validation
	ErrCodeInvalidEmail = 140302
	// ErrCodeLoopbackBaseURL loopback callback URL with production credentials
	ErrCodeLoopbackBaseURL = 140303
	// ErrCodePreferenceFailed gateway preference creation failed
	ErrCodePreferenceFailed = 140304
	// ErrCodePaymentNotFound no local payment row for the timeline
	ErrCodePaymentNotFound = 140305
)

// Webhook / sync / publish module (140400-140499)
const (
	// ErrCodeGatewayPaymentNotFound gateway has no payment yet for the reference
	ErrCodeGatewayPaymentNotFound = 140401
	// ErrCodeGatewayUnavailable gateway call failed
	ErrCodeGatewayUnavailable = 140402
	// ErrCodeNotPaid publish requested without a succeeded payment
	ErrCodeNotPaid = 140403
	// ErrCodeCronSecretInvalid internal endpoint called without the shared secret
	ErrCodeCronSecretInvalid = 140404
)

// reasons used by the HTTP error encoder; kept stable for clients
const (
	ReasonInvalidInput     = "INVALID_INPUT"
	ReasonNotFound         = "NOT_FOUND"
	ReasonForbidden        = "FORBIDDEN"
	ReasonPasswordRequired = "PASSWORD_REQUIRED"
	ReasonUpstream         = "UPSTREAM_ERROR"
)

// BadRequest client input error (400) carrying a biz code.
func BadRequest(code int, format string, args ...interface{}) *kerrors.Error {
	return withBizCode(kerrors.BadRequest(ReasonInvalidInput, fmt.Sprintf(format, args...)), code)
}

// NotFound unknown id, slug or token (404).
func NotFound(code int, format string, args ...interface{}) *kerrors.Error {
	return withBizCode(kerrors.NotFound(ReasonNotFound, fmt.Sprintf(format, args...)), code)
}

// Forbidden authorization error (403).
func Forbidden(code int, format string, args ...interface{}) *kerrors.Error {
	return withBizCode(kerrors.Forbidden(ReasonForbidden, fmt.Sprintf(format, args...)), code)
}

// PasswordRequired private timeline fetched without credentials (403).
// Separate reason so the client can render the password prompt.
func PasswordRequired() *kerrors.Error {
	return withBizCode(kerrors.Forbidden(ReasonPasswordRequired, "this timeline is private"), ErrCodePasswordRequired)
}

// Internal upstream or data-store failure (500). Detail is best effort and
// must never include credentials.
func Internal(code int, format string, args ...interface{}) *kerrors.Error {
	return withBizCode(kerrors.InternalServer(ReasonUpstream, fmt.Sprintf(format, args...)), code)
}

func withBizCode(e *kerrors.Error, code int) *kerrors.Error {
	return e.WithMetadata(map[string]string{"biz_code": fmt.Sprintf("%d", code)})
}
