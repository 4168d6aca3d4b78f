package aws

import (
	"context"
	"errors"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// throttleCodes are the API error codes AWS uses for rate limiting
// across services.
var throttleCodes = map[string]struct{}{
	"Throttling":                             {},
	"ThrottlingException":                    {},
	"ThrottledException":                     {},
	"RequestLimitExceeded":                   {},
	"RequestThrottled":                       {},
	"RequestThrottledException":              {},
	"TooManyRequestsException":               {},
	"ProvisionedThroughputExceededException": {},
	"SlowDown":                               {},
}

// IsTransient classifies an AWS call failure for retry purposes.
// Throttling and server faults are retryable; auth, validation, and
// not-found errors are not. Context cancellation is never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := throttleCodes[apiErr.ErrorCode()]; ok {
			return true
		}
		return apiErr.ErrorFault() == smithy.FaultServer
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		return status == 429 || status >= 500
	}

	// Anything below the protocol layer (DNS, reset, timeout) is
	// worth another attempt.
	return true
}
