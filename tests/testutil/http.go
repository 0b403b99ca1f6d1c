package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// APIClient sends requests straight to an http.Handler
type APIClient struct {
	Handler http.Handler
	Token   string
	Headers map[string]string
}

// WithToken returns a copy of the client authenticating as token
func (c APIClient) WithToken(token string) APIClient {
	c.Token = token
	return c
}

// Do sends a request. A non-nil body is encoded as JSON unless it already is
// an io.Reader.
func (c APIClient) Do(t *testing.T, method, path string, body any, headers ...map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	isJSON := false
	switch b := body.(type) {
	case nil:
	case io.Reader:
		reader = b
	default:
		reader = ToJSONReader(t, b)
		isJSON = true
	}

	req := httptest.NewRequest(method, path, reader)
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	for _, h := range headers {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}

	w := httptest.NewRecorder()
	c.Handler.ServeHTTP(w, req)
	return w
}

// Envelope is the standard API response body
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

// DecodeEnvelope parses the response envelope
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Failed to parse JSON response: %s", w.Body.String())
	return env
}

// DataAs decodes the envelope's data into T
func DataAs[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	env := DecodeEnvelope(t, w)
	require.NoError(t, json.Unmarshal(env.Data, &out), "Failed to parse response data")
	return out
}

// AssertErrorCode asserts status and error code of a failed response
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	assert.Equal(t, status, w.Code, "Unexpected status code: %s", w.Body.String())
	env := DecodeEnvelope(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error, "Expected error object in response")
	assert.Equal(t, code, env.Error.Code)
}

// ToJSONReader converts a value to a JSON io.Reader
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
