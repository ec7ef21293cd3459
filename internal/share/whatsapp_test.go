package share

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForward(t *testing.T) {
	png := []byte("\x89PNG fake image bytes")

	var gotPhone, gotCaption string
	var gotFile []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotPhone = r.FormValue("phone")
		gotCaption = r.FormValue("caption")

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "receipt.png", header.Filename)
		gotFile, err = io.ReadAll(file)
		require.NoError(t, err)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	f := NewForwarder(func() string { return server.URL })
	err := f.Forward(context.Background(), "0812-3456-7890", "Struk INV-42", png)
	require.NoError(t, err)

	assert.Equal(t, "6281234567890", gotPhone)
	assert.Equal(t, "Struk INV-42", gotCaption)
	assert.Equal(t, png, gotFile)
}

func TestForwardNotConfigured(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	f := NewForwarder(func() string { return "" })
	err := f.Forward(context.Background(), "0812", "hi", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, called, "no request may leave the process when unconfigured")
}

func TestForwardGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewForwarder(func() string { return server.URL })
	err := f.Forward(context.Background(), "0812", "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "session expired")
}

func TestForwardEmptyPhone(t *testing.T) {
	f := NewForwarder(func() string { return "http://gateway.local" })
	err := f.Forward(context.Background(), " - ", "hi", nil)
	assert.Error(t, err)
}

func TestForwardCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewForwarder(func() string { return server.URL })
	err := f.Forward(ctx, "0812", "hi", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0812-3456-7890", "6281234567890"},
		{"+62 812 3456 7890", "6281234567890"},
		{"6281234567890", "6281234567890"},
		{"(0274) 512-345", "62274512345"},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := NormalizePhone("abc")
	assert.Error(t, err)
}
