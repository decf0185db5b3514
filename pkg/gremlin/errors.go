package gremlin

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

var (
	// ErrConnectionClosed is returned for requests pending on, or sent to, a
	// closed connection.
	ErrConnectionClosed = errors.New(errors.ErrCodeConnectionClosed, "connection closed")

	// ErrClientClosed is returned after Client.Close.
	ErrClientClosed = errors.New(errors.ErrCodeConnectionClosed, "client closed")

	// ErrNoResults is returned by Next when a traversal yields nothing.
	ErrNoResults = errors.New(errors.ErrCodeNotFound, "traversal returned no results")
)

// ServerError is an error status returned by the Gremlin server.
type ServerError struct {
	StatusCode int
	Message    string
	RequestID  uuid.UUID
	Exceptions []string
	StackTrace string

	// NeptuneCode and Detail are parsed from Neptune's JSON status message.
	NeptuneCode string
	Detail      string
}

func (e *ServerError) Error() string {
	if e.NeptuneCode != "" {
		return fmt.Sprintf("gremlin server error %d %s: %s", e.StatusCode, e.NeptuneCode, e.Detail)
	}
	return fmt.Sprintf("gremlin server error %d: %s", e.StatusCode, e.Message)
}

func (e *ServerError) text() string {
	return e.NeptuneCode + " " + e.Message + " " + strings.Join(e.Exceptions, " ")
}

// Code maps the server error to an error code.
func (e *ServerError) Code() errors.Code {
	text := e.text()
	switch {
	case strings.Contains(text, "ConcurrentModification"):
		return errors.ErrCodeConcurrentModification
	case strings.Contains(text, "ReadOnlyViolation"):
		return errors.ErrCodeReadOnly
	case containsAny(text, "Throttling", "TooManyRequests", "QueryLimitExceeded", "MemoryLimitExceeded"):
		return errors.ErrCodeRateLimited
	case strings.Contains(text, "TimeLimitExceeded") || e.StatusCode == StatusServerTimeout:
		return errors.ErrCodeTimeout
	case e.StatusCode == StatusUnauthorized || e.StatusCode == StatusAuthenticate:
		return errors.ErrCodeUnauthorized
	case strings.Contains(text, "AccessDenied"):
		return errors.ErrCodeForbidden
	case e.StatusCode == StatusMalformedRequest || e.StatusCode == StatusInvalidRequestArgs ||
		containsAny(text, "MalformedQuery", "InvalidParameter", "UnsupportedOperation"):
		return errors.ErrCodeInvalidQuery
	}
	return errors.ErrCodeQueryFailed
}

// retriableServerErrors are Neptune conditions that clear on their own.
var retriableServerErrors = []string{
	"ConcurrentModificationException",
	"ReadOnlyViolationException",
	"QueryLimitExceededException",
	"MemoryLimitExceededException",
	"Throttling",
	"TooManyRequests",
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// wrapServerError attaches an error code to a server error.
func wrapServerError(se *ServerError) error {
	return errors.Wrap(se.Code(), se, "request %s failed", se.RequestID)
}

// IsRetryable reports whether a failed request may succeed if sent again:
// dropped connections and the transient Neptune conditions (concurrent
// modification, read-only writer after failover, query and memory limits,
// throttling).
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if isConnectionFailure(err) {
		return true
	}
	var se *ServerError
	if stderrors.As(err, &se) {
		return containsAny(se.text(), retriableServerErrors...)
	}
	return false
}

// IsConnectionIssue reports whether the client should reconnect before
// retrying: the connection failed, or the endpoint now points at a reader
// (ReadOnlyViolationException after a failover).
func IsConnectionIssue(err error) bool {
	if err == nil {
		return false
	}
	if isConnectionFailure(err) {
		return true
	}
	var se *ServerError
	if stderrors.As(err, &se) {
		return strings.Contains(se.text(), "ReadOnlyViolation")
	}
	return false
}

func isConnectionFailure(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) ||
		stderrors.Is(err, ErrClientClosed) {
		return false
	}
	if errors.Is(err, errors.ErrCodeConnectionClosed) || errors.Is(err, errors.ErrCodeNetwork) {
		return true
	}
	var ce *websocket.CloseError
	if stderrors.As(err, &ce) {
		return true
	}
	var ne net.Error
	if stderrors.As(err, &ne) {
		return true
	}
	return stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) || stderrors.Is(err, net.ErrClosed)
}
