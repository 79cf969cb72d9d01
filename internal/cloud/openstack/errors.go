package openstack

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/aravindh-murugesan/stacksweep-go/internal/cloud"
	"github.com/gophercloud/gophercloud/v2"
)

// translateError converts an unexpected HTTP response from gophercloud into a
// cloud.APIError so the retry classifier can inspect it. Errors that carry no
// HTTP status (DNS failures, connection resets) are returned untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	status, body, ok := responseCode(err)
	if !ok {
		return err
	}

	var fault heatFault
	_ = json.Unmarshal(body, &fault)

	message := fault.Error.Message
	if message == "" {
		message = fault.Explanation
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	return &cloud.APIError{
		Name:       errorName(status, fault, body),
		Code:       strconv.Itoa(status),
		Message:    message,
		StatusCode: status,
		Err:        err,
	}
}

func errorName(status int, fault heatFault, body []byte) string {
	switch {
	case status == http.StatusTooManyRequests:
		return cloud.TooManyRequestsException
	case status == http.StatusRequestEntityTooLarge && bytes.Contains(bytes.ToLower(body), []byte("limit")):
		// Legacy rate limiting middleware answers 413 "Over limit".
		return cloud.RequestLimitExceeded
	case fault.Error.Type != "":
		return fault.Error.Type
	}

	if text := http.StatusText(status); text != "" {
		return strings.ReplaceAll(text, " ", "")
	}
	return "HTTP" + strconv.Itoa(status)
}

func responseCode(err error) (int, []byte, bool) {
	var byValue gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &byValue) {
		return byValue.Actual, byValue.Body, true
	}
	var byPointer *gophercloud.ErrUnexpectedResponseCode
	if errors.As(err, &byPointer) && byPointer != nil {
		return byPointer.Actual, byPointer.Body, true
	}
	return 0, nil, false
}

func isNotFound(err error) bool {
	status, _, ok := responseCode(err)
	return ok && status == http.StatusNotFound
}
