package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	apierr "github.com/glasswall/icap-management-ui/pkg/api/types/errors"
)

var (
	// ErrUpstream is matched by every *UpstreamError.
	ErrUpstream = errors.New("upstream: request failed")

	// ErrNotFound is matched by *UpstreamError for 404 Not Found.
	ErrNotFound = errors.New("upstream: not found")

	// ErrUnreachable wraps transport errors; no response was received.
	ErrUnreachable = errors.New("upstream: unreachable")

	// ErrUnexpectedResponse is returned when a successful response cannot be decoded.
	ErrUnexpectedResponse = errors.New("upstream: unexpected response")
)

// maximum bytes of upstream error body kept in UpstreamError.
const maxErrorBody = 4 * 1024

// UpstreamError is a non-2xx answer of an upstream service.
type UpstreamError struct {
	Service    string
	Operation  string
	StatusCode int

	// Message summarises the error for the status code range.
	Message string

	// Detail is the error body the upstream service sent.
	Detail string
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf(
		"%s %s: %s (status code = %d)",
		e.Service, e.Operation, e.Message, e.StatusCode,
	)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *UpstreamError) Is(target error) bool {
	switch target {
	case ErrUpstream:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	default:
		return false
	}
}

// Temporary tells the same request may succeed later.
func (e *UpstreamError) Temporary() bool {
	return RangeOf(e.StatusCode) == Status5xx || e.StatusCode == http.StatusTooManyRequests
}

// MessageFor is summary of errors per status code range.
type MessageFor map[StatusCodeRange]string

// decodeJsonResponse reads resp into v.
//
// When v is nil, the body is discarded.
//
// Non-2xx responses are returned as *UpstreamError.
func decodeJsonResponse(resp *http.Response, v any, service, operation string, messageFor MessageFor) error {
	scr := RangeOf(resp.StatusCode)
	if scr == Status2xx {
		if v == nil {
			_, err := io.Copy(io.Discard, resp.Body)
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf(
				"%w: %s %s: %w (status code = %d)",
				ErrUnexpectedResponse, service, operation, err, resp.StatusCode,
			)
		}
		return nil
	}

	message, ok := messageFor[scr]
	if !ok {
		message = scr.String()
	}

	uerr := &UpstreamError{
		Service:    service,
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Message:    message,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		uerr.Detail = "cannot read server message: " + err.Error()
		return uerr
	}
	uerr.Detail = parseErrorMessage(body)
	return uerr
}

// parseErrorMessage extracts a human readable message from an error body.
func parseErrorMessage(body []byte) string {
	em := apierr.ErrorMessage{}
	if err := json.Unmarshal(body, &em); err == nil {
		return em.String()
	}

	msg := struct {
		Message *string `json:"message"`
		Title   *string `json:"title"`
	}{}
	if err := json.Unmarshal(body, &msg); err == nil {
		if msg.Message != nil {
			return *msg.Message
		}
		if msg.Title != nil {
			return *msg.Title
		}
	}

	return strings.TrimSpace(string(body))
}
