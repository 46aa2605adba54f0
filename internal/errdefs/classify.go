package errdefs

import (
	"net/http"

	"github.com/tidwall/gjson"
)

// statusMessages are the operator-facing fallbacks used when a response body
// carries no usable message of its own.
var statusMessages = map[int]string{
	http.StatusBadRequest:          "invalid request",
	http.StatusUnauthorized:        "login required or session expired",
	http.StatusForbidden:           "permission denied",
	http.StatusNotFound:            "resource not found",
	http.StatusRequestTimeout:      "request timed out",
	http.StatusConflict:            "resource conflict",
	http.StatusPreconditionFailed:  "precondition failed",
	http.StatusUnprocessableEntity: "request validation failed",
	http.StatusInternalServerError: "internal server error",
	http.StatusBadGateway:          "upstream gateway error",
	http.StatusServiceUnavailable:  "service temporarily unavailable",
	http.StatusGatewayTimeout:      "upstream timed out",
}

// StatusMessage returns the generic message for an HTTP status, or fallback
// when none is defined.
func StatusMessage(status int, fallback string) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return fallback
}

// KindForStatus maps an HTTP status code onto a Kind. Statuses outside the
// explicit table degrade to business errors so callers always get something
// actionable.
func KindForStatus(status int) Kind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity,
		http.StatusConflict, http.StatusPreconditionFailed:
		return KindBusiness
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return KindSystem
	default:
		return KindBusiness
	}
}

// Classify normalizes the outcome of an HTTP exchange into an *Error.
//
// A transport failure without a response is a network error. Otherwise the
// HTTP status selects the kind, except that a 200 whose body envelope carries
// a non-200 business code is still a business failure. The message is taken
// from the body's msg, message or detail field, in that order, then from the
// generic status table, then from fallback.
func Classify(resp *http.Response, body []byte, err error) *Error {
	if resp == nil {
		msg := "network request failed"
		if err == nil {
			msg = "no response received"
		}
		return Network(msg, err)
	}

	status := resp.StatusCode
	if status == http.StatusOK {
		code := gjson.GetBytes(body, "code")
		if !code.Exists() || code.Int() == http.StatusOK {
			return nil
		}
		msg := extractMessage(body)
		if msg == "" {
			msg = "request rejected"
		}
		return New(KindBusiness, int(code.Int()), msg).WithData(rawData(body))
	}

	kind := KindForStatus(status)
	msg := extractMessage(body)
	if msg == "" {
		msg = StatusMessage(status, http.StatusText(status))
	}
	e := New(kind, status, msg).WithData(rawData(body))
	e.Cause = err
	return e
}

// extractMessage probes a JSON body for the conventional message fields.
func extractMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	for _, key := range []string{"msg", "message", "detail"} {
		v := gjson.GetBytes(body, key)
		if !v.Exists() {
			continue
		}
		if s := v.String(); s != "" {
			return s
		}
	}
	return ""
}

// rawData returns the body's data field when present, for callers that need
// the structured payload attached to a failure.
func rawData(body []byte) any {
	v := gjson.GetBytes(body, "data")
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	return v.Value()
}
