package gremlin

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

func TestServerErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  *ServerError
		want errors.Code
	}{
		{"cme", &ServerError{StatusCode: 500, NeptuneCode: "ConcurrentModificationException"}, errors.ErrCodeConcurrentModification},
		{"read only", &ServerError{StatusCode: 500, NeptuneCode: "ReadOnlyViolationException"}, errors.ErrCodeReadOnly},
		{"throttled", &ServerError{StatusCode: 500, NeptuneCode: "ThrottlingException"}, errors.ErrCodeRateLimited},
		{"query limit", &ServerError{StatusCode: 500, NeptuneCode: "QueryLimitExceededException"}, errors.ErrCodeRateLimited},
		{"time limit", &ServerError{StatusCode: 500, NeptuneCode: "TimeLimitExceededException"}, errors.ErrCodeTimeout},
		{"server timeout", &ServerError{StatusCode: StatusServerTimeout}, errors.ErrCodeTimeout},
		{"unauthorized", &ServerError{StatusCode: StatusUnauthorized}, errors.ErrCodeUnauthorized},
		{"authenticate", &ServerError{StatusCode: StatusAuthenticate}, errors.ErrCodeUnauthorized},
		{"access denied", &ServerError{StatusCode: 500, NeptuneCode: "AccessDeniedException"}, errors.ErrCodeForbidden},
		{"malformed", &ServerError{StatusCode: StatusMalformedRequest}, errors.ErrCodeInvalidQuery},
		{"exception list", &ServerError{StatusCode: 500, Exceptions: []string{"org.apache.tinkerpop.ConcurrentModificationException"}}, errors.ErrCodeConcurrentModification},
		{"other", &ServerError{StatusCode: StatusScriptEvaluation, Message: "boom"}, errors.ErrCodeQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Code())
		})
	}
}

func TestServerErrorMessage(t *testing.T) {
	se := &ServerError{StatusCode: 500, Message: `{"code":"ConcurrentModificationException","detailedMessage":"conflict"}`}
	se.parseNeptuneMessage()
	assert.Equal(t, "ConcurrentModificationException", se.NeptuneCode)
	assert.Equal(t, "conflict", se.Detail)
	assert.Equal(t, "gremlin server error 500 ConcurrentModificationException: conflict", se.Error())

	plain := &ServerError{StatusCode: 597, Message: "No such property"}
	plain.parseNeptuneMessage()
	assert.Empty(t, plain.NeptuneCode)
	assert.Equal(t, "gremlin server error 597: No such property", plain.Error())
}

func TestRetryClassification(t *testing.T) {
	cme := wrapServerError(&ServerError{StatusCode: 500, NeptuneCode: "ConcurrentModificationException"})
	readOnly := wrapServerError(&ServerError{StatusCode: 500, NeptuneCode: "ReadOnlyViolationException"})
	syntax := wrapServerError(&ServerError{StatusCode: 597, Message: "syntax"})

	tests := []struct {
		name       string
		err        error
		retryable  bool
		connection bool
	}{
		{"nil", nil, false, false},
		{"plain", stderrors.New("boom"), false, false},
		{"canceled", context.Canceled, false, false},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), false, false},
		{"eof", io.EOF, true, true},
		{"unexpected eof", io.ErrUnexpectedEOF, true, true},
		{"close frame", &websocket.CloseError{Code: websocket.CloseGoingAway}, true, true},
		{"connection closed", ErrConnectionClosed, true, true},
		{"client closed", ErrClientClosed, false, false},
		{"network code", errors.New(errors.ErrCodeNetwork, "dial failed"), true, true},
		{"cme", cme, true, false},
		{"read only", readOnly, true, true},
		{"syntax", syntax, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err), "IsRetryable")
			assert.Equal(t, tt.connection, IsConnectionIssue(tt.err), "IsConnectionIssue")
		})
	}
}
