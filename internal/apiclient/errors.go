package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Error classes. Every *Error unwraps to exactly one of them.
var (
	// ErrAuth covers rejected credentials and invalid or expired tokens.
	ErrAuth = errors.New("authentication failed")

	// ErrValidation covers requests the backend refused as malformed or
	// referring to unknown resources.
	ErrValidation = errors.New("request rejected")

	// ErrTransport covers requests that never produced an HTTP response:
	// unreachable host, timeout, cancelled context.
	ErrTransport = errors.New("backend unreachable")

	// ErrServer covers 5xx responses and success responses that could not
	// be decoded.
	ErrServer = errors.New("backend error")
)

// Kind is the class of an *Error.
type Kind int

const (
	// KindTransport means no HTTP response was received.
	KindTransport Kind = iota
	// KindAuth means 401 or 403.
	KindAuth
	// KindValidation means any other 4xx.
	KindValidation
	// KindServer means 5xx or an undecodable response.
	KindServer
)

// String returns the kind's name.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// sentinel maps the kind to its package-level error.
func (k Kind) sentinel() error {
	switch k {
	case KindAuth:
		return ErrAuth
	case KindValidation:
		return ErrValidation
	case KindServer:
		return ErrServer
	default:
		return ErrTransport
	}
}

// ClassifyStatus maps a non-2xx status code to a Kind.
func ClassifyStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}

// Error describes a failed backend request.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Method and Path identify the request, e.g. "POST /competitors".
	Method string
	Path   string

	// StatusCode is zero for transport failures.
	StatusCode int

	// Detail is the backend's explanation, taken from its {"detail": ...} body.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s: %s", e.Method, e.Path, e.Kind.sentinel())
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	} else if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes both the class sentinel and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// KindOf returns the Kind of err, and false when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return KindTransport, false
}

// maxDetailLength bounds details taken from non-JSON bodies.
const maxDetailLength = 200

// parseDetail extracts a human-readable message from an error body.
// It understands {"detail": "..."} and the list form
// {"detail": [{"msg": "..."}]} used for validation errors.
func parseDetail(body []byte) string {
	var doc struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &doc); err == nil && len(doc.Detail) > 0 {
		var s string
		if err := json.Unmarshal(doc.Detail, &s); err == nil {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(doc.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxDetailLength {
		cut := maxDetailLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return text
}
