package testutil

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("a"), NewTestUUID("a"))
	assert.NotEqual(t, NewTestUUID("a"), NewTestUUID("b"))
}

func TestNewUserID(t *testing.T) {
	id := NewUserID("user")
	assert.True(t, strings.HasPrefix(id, "user_"))
	assert.NotEqual(t, id, NewUserID("user"))
}

func TestRequireEventually(t *testing.T) {
	calls := 0
	RequireEventually(t, func() bool {
		calls++
		return calls == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, 3, calls)
}

func TestAPIClient_Do(t *testing.T) {
	var gotAuth, gotType, gotKey, gotBody string
	client := APIClient{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotType = r.Header.Get("Content-Type")
			gotKey = r.Header.Get("Idempotency-Key")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"ERR_DUPLICATE_REQUEST","message":"dup"}}`))
		}),
	}

	w := client.WithToken("abc").Do(t, http.MethodPost, "/x", map[string]int{"n": 1},
		map[string]string{"Idempotency-Key": "k1"})

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "k1", gotKey)
	assert.JSONEq(t, `{"n":1}`, gotBody)
	AssertErrorCode(t, w, http.StatusConflict, "ERR_DUPLICATE_REQUEST")
	assert.Empty(t, client.Token)
}

func TestDataAs(t *testing.T) {
	client := APIClient{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"success":true,"data":{"used":7}}`))
		}),
	}
	w := client.Do(t, http.MethodGet, "/", nil)

	got := DataAs[struct {
		Used int `json:"used"`
	}](t, w)
	assert.Equal(t, 7, got.Used)
}
