package aws

import (
	"errors"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// translateError maps a smithy API error onto cloud.APIError. CloudFormation
// reports throttling as code "Throttling" with message "Rate exceeded", which the
// classifier picks up from the message.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	translated := &cloud.APIError{
		Name:    apiErr.ErrorCode(),
		Code:    apiErr.ErrorCode(),
		Message: apiErr.ErrorMessage(),
		Err:     err,
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		translated.StatusCode = respErr.HTTPStatusCode()
	}
	return translated
}
