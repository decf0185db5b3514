package gremlin

import (
	"bytes"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// MimeType prefixes every request frame.
const MimeType = "application/vnd.gremlin-v3.0+json"

// Request ops and processors.
const (
	OpEval     = "eval"
	OpBytecode = "bytecode"

	processorTraversal = "traversal"
)

// Response status codes.
const (
	StatusSuccess             = 200
	StatusNoContent           = 204
	StatusPartialContent      = 206
	StatusUnauthorized        = 401
	StatusAuthenticate        = 407
	StatusMalformedRequest    = 498
	StatusInvalidRequestArgs  = 499
	StatusServerError         = 500
	StatusScriptEvaluation    = 597
	StatusServerTimeout       = 598
	StatusServerSerialization = 599
)

type request struct {
	ID        uuid.UUID
	Op        string
	Processor string
	Args      map[string]any
}

func newEvalRequest(script string, bindings map[string]any, args map[string]any) request {
	a := map[string]any{
		"gremlin":  script,
		"language": "gremlin-groovy",
	}
	if len(bindings) > 0 {
		a["bindings"] = bindings
	}
	for k, v := range args {
		a[k] = v
	}
	return request{ID: uuid.New(), Op: OpEval, Args: a}
}

func newBytecodeRequest(t *Traversal, args map[string]any) request {
	a := map[string]any{
		"gremlin": t.Bytecode(),
		"aliases": map[string]string{"g": "g"},
	}
	for k, v := range args {
		a[k] = v
	}
	return request{ID: uuid.New(), Op: OpBytecode, Processor: processorTraversal, Args: a}
}

// encodeRequest renders the binary frame: the mime type length, the mime
// type and the JSON message.
func encodeRequest(r request) ([]byte, error) {
	args := make(map[string]any, len(r.Args))
	for k, v := range r.Args {
		switch x := v.(type) {
		case string, map[string]string:
			args[k] = x
		case map[string]any:
			// bindings: a plain object of typed values
			obj := make(map[string]any, len(x))
			for bk, bv := range x {
				enc, err := toGraphSON(bv)
				if err != nil {
					return nil, err
				}
				obj[bk] = enc
			}
			args[k] = obj
		default:
			enc, err := toGraphSON(v)
			if err != nil {
				return nil, err
			}
			args[k] = enc
		}
	}

	msg := map[string]any{
		"requestId": typed(typeUUID, r.ID.String()),
		"op":        r.Op,
		"processor": r.Processor,
		"args":      args,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidQuery, err, "encode request")
	}

	var buf bytes.Buffer
	buf.Grow(1 + len(MimeType) + len(body))
	buf.WriteByte(byte(len(MimeType)))
	buf.WriteString(MimeType)
	buf.Write(body)
	return buf.Bytes(), nil
}

type response struct {
	RequestID json.RawMessage `json:"requestId"`
	Status    struct {
		Code       int             `json:"code"`
		Message    string          `json:"message"`
		Attributes json.RawMessage `json:"attributes"`
	} `json:"status"`
	Result struct {
		Data json.RawMessage `json:"data"`
		Meta json.RawMessage `json:"meta"`
	} `json:"result"`
}

func decodeResponse(frame []byte) (*response, uuid.UUID, error) {
	var resp response
	if err := json.Unmarshal(frame, &resp); err != nil {
		return nil, uuid.Nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode response")
	}
	id, err := parseRequestID(resp.RequestID)
	if err != nil {
		return &resp, uuid.Nil, err
	}
	return &resp, id, nil
}

// parseRequestID accepts both the plain string and the typed g:UUID form.
func parseRequestID(raw json.RawMessage) (uuid.UUID, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return uuid.Nil, nil
	}
	v, err := Decode(raw)
	if err != nil {
		return uuid.Nil, err
	}
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case string:
		id, err := uuid.Parse(x)
		if err != nil {
			return uuid.Nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "invalid request id %q", x)
		}
		return id, nil
	}
	return uuid.Nil, errors.New(errors.ErrCodeInvalidFormat, "invalid request id %s", raw)
}

// data decodes the result data as a list.
func (r *response) data() ([]any, error) {
	if len(r.Result.Data) == 0 || string(r.Result.Data) == "null" {
		return nil, nil
	}
	v, err := Decode(r.Result.Data)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	return []any{v}, nil
}

func (r *response) serverError(id uuid.UUID) *ServerError {
	se := &ServerError{
		StatusCode: r.Status.Code,
		Message:    r.Status.Message,
		RequestID:  id,
	}
	if len(r.Status.Attributes) > 0 {
		if attrs, err := Decode(r.Status.Attributes); err == nil {
			se.readAttributes(attrs)
		}
	}
	se.parseNeptuneMessage()
	return se
}

func (e *ServerError) readAttributes(attrs any) {
	get := func(key string) any {
		switch m := attrs.(type) {
		case map[any]any:
			return m[key]
		case map[string]any:
			return m[key]
		}
		return nil
	}
	if list, ok := get("exceptions").([]any); ok {
		for _, ex := range list {
			if s, ok := ex.(string); ok {
				e.Exceptions = append(e.Exceptions, s)
			}
		}
	}
	if s, ok := get("stackTrace").(string); ok {
		e.StackTrace = s
	}
}

// parseNeptuneMessage extracts Neptune's error code from a JSON status
// message such as {"code":"ConcurrentModificationException",...}.
func (e *ServerError) parseNeptuneMessage() {
	msg := strings.TrimSpace(e.Message)
	if !strings.HasPrefix(msg, "{") {
		return
	}
	var body struct {
		Code            string `json:"code"`
		DetailedMessage string `json:"detailedMessage"`
	}
	if err := json.Unmarshal([]byte(msg), &body); err != nil {
		return
	}
	e.NeptuneCode = body.Code
	if body.DetailedMessage != "" {
		e.Detail = body.DetailedMessage
	}
}
