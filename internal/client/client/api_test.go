package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL+"/", 2*time.Second)
	require.NoError(t, err)
	return c
}

func writeBody(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://host", time.Second)
	require.Error(t, err)

	_, err = NewHTTPClient("://", time.Second)
	require.Error(t, err)
}

func TestHTTPClient_Login(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ann@example.com", body["email"])
		assert.Equal(t, "secret1", body["password"])

		writeBody(w, http.StatusOK, map[string]any{
			"token": "tok",
			"user":  map[string]string{"id": "u1", "name": "Ann", "email": "ann@example.com", "role": "admin"},
		})
	})

	resp, err := c.Login(context.Background(), "ann@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, identity.User{ID: "u1", Name: "Ann", Email: "ann@example.com", Role: identity.RoleAdmin}, resp.User)
}

func TestHTTPClient_LoginWithoutToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, map[string]any{"user": map[string]string{"id": "u1"}})
	})

	_, err := c.Login(context.Background(), "a@b.c", "secret1")
	require.Error(t, err)
}

func TestHTTPClient_SignupAndMe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/signup":
			writeBody(w, http.StatusOK, map[string]any{
				"msg":  "User registered successfully",
				"user": map[string]string{"id": "u2", "name": "Bob", "email": "bob@example.com", "role": "user"},
			})
		case "/auth/me":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeBody(w, http.StatusOK, map[string]any{"user": map[string]string{"id": "u2", "role": "user"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	u, err := c.Signup(context.Background(), SignupRequest{Name: "Bob", Email: "bob@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u2", u.ID)
	assert.Equal(t, identity.RoleUser, u.Role)

	me, err := c.Me(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, &identity.User{ID: "u2", Role: identity.RoleUser}, me)
}

func TestHTTPClient_Calculate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calculator/calculate", r.URL.Path)
		assert.Equal(t, "Bearer admintok", r.Header.Get("Authorization"))
		writeBody(w, http.StatusOK, map[string]any{
			"result": 15,
			"calculation": map[string]any{
				"num1": 5, "num2": 3, "operation": "add", "description": "5 + 3 = 5 * 3 = 15",
			},
		})
	})

	resp, err := c.Calculate(context.Background(), "admintok", CalculateRequest{Num1: 5, Num2: 3, Operation: "add"})
	require.NoError(t, err)
	assert.Equal(t, 15.0, resp.Result)
	assert.Equal(t, "5 + 3 = 5 * 3 = 15", resp.Calculation.Description)
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   error
		msg    string
	}{
		{name: "invalid credentials", status: 401, body: map[string]string{"code": "invalid_credentials", "msg": "Invalid credentials"}, want: common.ErrorUnauthorized, msg: "Invalid credentials"},
		{name: "unauthenticated", status: 401, body: map[string]string{"code": "unauthenticated", "msg": "Authentication required"}, want: common.ErrUnauthenticated},
		{name: "forbidden", status: 403, body: map[string]string{"code": "forbidden", "msg": "Access denied"}, want: common.ErrForbidden},
		{name: "validation", status: 400, body: map[string]string{"code": "validation_error", "msg": "Please enter a valid email"}, want: common.ErrValidation, msg: "Please enter a valid email"},
		{name: "duplicate", status: 400, body: map[string]string{"code": "duplicate_email", "msg": "User already exists"}, want: common.ErrDuplicateEmail},
		{name: "throttled", status: 429, body: map[string]string{"code": "rate_limited"}, want: common.ErrRateLimited},
		{name: "store down", status: 503, body: map[string]string{"code": "store_unavailable"}, want: ErrUnavailable},
		{name: "bare 401", status: 401, body: "not json", want: common.ErrUnauthenticated, msg: "server returned 401"},
		{name: "bad gateway", status: 502, body: "", want: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeBody(w, tt.status, tt.body)
			})

			_, err := c.Me(context.Background(), "tok")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, err.Error())
			}
		})
	}
}

func TestHTTPClient_UnknownErrorHasNoSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, 500, map[string]string{"code": "internal_error", "msg": "Server error"})
	})

	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, common.ErrUnauthenticated)
	assert.Equal(t, "Server error", err.Error())
}

func TestHTTPClient_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := NewHTTPClient(srv.URL, 50*time.Millisecond)
	require.NoError(t, err)

	err = c.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_ConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, time.Second)
	require.NoError(t, err)

	_, err = c.Login(context.Background(), "a@b.c", "secret1")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_CanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeBody(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Ping(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
