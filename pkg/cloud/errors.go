package cloud

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
)

// Common static errors that can be wrapped with context.
var (
	ErrEndpointNotFound   = errors.New("no suitable endpoint could be found in the service catalog")
	ErrCachedTokenExpired = errors.New("cached token has expired")
	ErrTokenNotCached     = errors.New("token not cached")
	ErrNoCredentials      = errors.New("no valid credentials available")
	ErrNoSubjectToken     = errors.New("identity response carried no token")
	ErrUnsupportedCache   = errors.New("unsupported token cache type")
	ErrNATSConfigRequired = errors.New("NATS configuration required for NATS token cache")
	ErrFilePathRequired   = errors.New("file path required for file token cache")
	ErrAsyncPanic         = errors.New("async operation panicked")
)

// Masked replaces secrets in error messages and logs.
const Masked = "***"

// ConfigError is returned while resolving options, before any request is
// made.
type ConfigError struct {
	Option string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %q %s", e.Option, e.Reason)
}

// ResolutionError is returned when a requested service or API definition
// is not registered.
type ResolutionError struct {
	Kind string
	Name string
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.Name)
}

// UserInputError reports a value of the wrong type for an operation
// parameter.
type UserInputError struct {
	Param    string
	Expected string
	Received interface{}
}

// Error implements the error interface.
func (e *UserInputError) Error() string {
	var buf strings.Builder

	writeSection(&buf, "User Input Error")
	fmt.Fprintf(&buf, "Expected %s for %q, but received %s\n", e.Expected, e.Param, describeValue(e.Received))

	return buf.String()
}

// BadResponseError is returned for any response with a status of 400 or
// above. Its message is a readable dump of the transaction with credentials
// masked.
type BadResponseError struct {
	StatusCode      int
	Status          string
	Method          string
	URL             string
	RequestHeaders  http.Header
	RequestBody     []byte
	ResponseHeaders http.Header
	ResponseBody    []byte
}

// NewBadResponseError captures a failed transaction.
func NewBadResponseError(req *http.Request, reqBody []byte, resp *http.Response, respBody []byte) *BadResponseError {
	e := &BadResponseError{
		RequestBody:  reqBody,
		ResponseBody: respBody,
	}

	if req != nil {
		e.Method = req.Method
		e.URL = req.URL.String()
		e.RequestHeaders = req.Header.Clone()
	}

	if resp != nil {
		e.StatusCode = resp.StatusCode
		e.Status = resp.Status
		e.ResponseHeaders = resp.Header.Clone()
	}

	return e
}

// Error implements the error interface.
func (e *BadResponseError) Error() string {
	var buf strings.Builder

	writeSection(&buf, "HTTP Error")
	fmt.Fprintf(&buf, "The remote server returned a %q error for the following transaction:\n\n", e.statusLine())

	writeSection(&buf, "Request")
	fmt.Fprintf(&buf, "%s %s\n", e.Method, e.URL)
	writeHeaders(&buf, e.RequestHeaders)
	writeBody(&buf, maskBody(e.RequestBody))

	writeSection(&buf, "Response")
	fmt.Fprintf(&buf, "%s\n", e.statusLine())
	writeHeaders(&buf, e.ResponseHeaders)
	writeBody(&buf, e.ResponseBody)

	writeSection(&buf, "Further information")
	buf.WriteString(statusAdvice(e.StatusCode))
	buf.WriteString("\n")

	return buf.String()
}

// Message returns the server's own error message when the body carries one
// in any of the usual shapes, e.g. {"itemNotFound": {"message": "..."}} or
// {"error": {"message": "..."}}.
func (e *BadResponseError) Message() string {
	var body map[string]json.RawMessage

	err := json.Unmarshal(e.ResponseBody, &body)
	if err != nil {
		return ""
	}

	keys := make([]string, 0, len(body))
	for key := range body {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		var inner struct {
			Message string `json:"message"`
		}

		if json.Unmarshal(body[key], &inner) == nil && inner.Message != "" {
			return inner.Message
		}
	}

	var flat struct {
		Message string `json:"message"`
	}

	if json.Unmarshal(e.ResponseBody, &flat) == nil {
		return flat.Message
	}

	return ""
}

func (e *BadResponseError) statusLine() string {
	if e.Status != "" {
		return e.Status
	}

	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError

	return errors.As(err, &target)
}

// IsResolutionError reports whether err is a *ResolutionError.
func IsResolutionError(err error) bool {
	var target *ResolutionError

	return errors.As(err, &target)
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized checks if the error is an unauthorized error.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsForbidden checks if the error is a forbidden error.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

func hasStatus(err error, status int) bool {
	var target *BadResponseError
	if errors.As(err, &target) {
		return target.StatusCode == status
	}

	return false
}

var sensitiveHeaders = map[string]bool{
	"X-Auth-Token":    true,
	"X-Subject-Token": true,
	"Authorization":   true,
}

var passwordPattern = regexp.MustCompile(`("password"\s*:\s*)"(?:[^"\\]|\\.)*"`)

func maskBody(body []byte) []byte {
	return passwordPattern.ReplaceAll(body, []byte(`$1"`+Masked+`"`))
}

// MaskHeaders returns a copy of headers with credentials replaced by Masked.
func MaskHeaders(headers http.Header) http.Header {
	masked := headers.Clone()
	for name := range masked {
		if sensitiveHeaders[http.CanonicalHeaderKey(name)] {
			masked.Set(name, Masked)
		}
	}

	return masked
}

func writeSection(buf *strings.Builder, title string) {
	buf.WriteString(title)
	buf.WriteString("\n")
	buf.WriteString(strings.Repeat("~", len(title)))
	buf.WriteString("\n")
}

func writeHeaders(buf *strings.Builder, headers http.Header) {
	masked := MaskHeaders(headers)

	names := make([]string, 0, len(masked))
	for name := range masked {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(buf, "%s: %s\n", name, strings.Join(masked[name], ", "))
	}
}

func writeBody(buf *strings.Builder, body []byte) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 {
		buf.WriteString("\n")
		buf.Write(body)
		buf.WriteString("\n")
	}

	buf.WriteString("\n")
}

func statusAdvice(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Please ensure that your input values are valid and well-formed."
	case http.StatusUnauthorized:
		return "Please ensure that your authentication credentials are valid."
	case http.StatusForbidden:
		return "Please ensure that your credentials grant access to this resource."
	case http.StatusNotFound:
		return "Please ensure that the resource you're trying to access actually exists."
	case http.StatusConflict:
		return "The resource is in a state that does not allow this operation."
	case http.StatusRequestEntityTooLarge:
		return "The request exceeded a quota or size limit."
	case http.StatusInternalServerError:
		return "Please try this operation again once you know the remote server is operational."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "The remote server rejected the request."
	}
}

func describeValue(value interface{}) string {
	if value == nil {
		return "null"
	}

	return fmt.Sprintf("%T (%v)", value, value)
}
