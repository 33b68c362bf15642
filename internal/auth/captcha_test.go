package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCaptchaVerify(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		response string
		want     bool
	}{
		{
			name: "service accepts",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success": true}`))
			},
			response: "good-token",
			want:     true,
		},
		{
			name: "service rejects",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"success": false}`))
			},
			response: "bad-token",
			want:     false,
		},
		{
			name: "service error fails closed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			response: "token",
			want:     false,
		},
		{
			name: "malformed reply fails closed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
			response: "token",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			v := NewCaptchaVerifier("secret", srv.URL, 2*time.Second)
			assert.Equal(t, tt.want, v.Verify(context.Background(), tt.response))
		})
	}
}

func TestCaptchaEmptyResponseFailsWithoutNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	v := NewCaptchaVerifier("secret", srv.URL, 2*time.Second)
	assert.False(t, v.Verify(context.Background(), ""))
	assert.False(t, called, "empty challenge response must not hit the service")
}

func TestCaptchaTimeoutFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	v := NewCaptchaVerifier("secret", srv.URL, 20*time.Millisecond)
	assert.False(t, v.Verify(context.Background(), "token"))
}

func TestCaptchaSendsSecretAndResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		assert.Equal(t, "secret", r.PostFormValue("secret"))
		assert.Equal(t, "the-token", r.PostFormValue("response"))
		w.Write([]byte(`{"success": true}`))
	}))
	defer srv.Close()

	v := NewCaptchaVerifier("secret", srv.URL, 2*time.Second)
	assert.True(t, v.Verify(context.Background(), "the-token"))
}
