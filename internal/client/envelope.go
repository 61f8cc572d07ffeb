package client

import (
	"bytes"
	"encoding/json"
	"strings"
)

// envelope is the backend's uniform response wrapper. Data stays raw until
// the caller's target type is known.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func parseEnvelope(body []byte) (*envelope, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false
	}
	return &env, true
}

func (e *envelope) succeeded() bool {
	return e.Success != nil && *e.Success
}

// errorText returns the error field when it is a string ("error": "...") or
// the message inside an object ("error": {"code": ..., "message": ...}).
func (e *envelope) errorText() (code, text string) {
	if len(e.Error) == 0 || string(e.Error) == "null" {
		return "", ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return "", s
	}
	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &obj); err == nil {
		return obj.Code, obj.Message
	}
	return "", ""
}

// userMessage picks message, then error, then the generic text.
func (e *envelope) userMessage() string {
	if m := strings.TrimSpace(e.Message); m != "" {
		return m
	}
	if _, text := e.errorText(); strings.TrimSpace(text) != "" {
		return text
	}
	return GenericMessage
}

func (e *envelope) hasData() bool {
	d := bytes.TrimSpace(e.Data)
	return len(d) > 0 && !bytes.Equal(d, []byte("null"))
}

// code is the machine-readable error code: an explicit error.code, or the
// error string when a separate message carries the human text.
func (e *envelope) code() string {
	code, text := e.errorText()
	if code != "" {
		return code
	}
	if strings.TrimSpace(e.Message) != "" {
		return text
	}
	return ""
}
