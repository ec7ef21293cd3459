// Package share forwards rendered receipts to customers through the store's
// WhatsApp HTTP gateway.
package share

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no gateway URL is set. Callers treat the
// feature as absent rather than failed.
var ErrNotConfigured = errors.New("whatsapp gateway not configured")

const requestTimeout = 15 * time.Second

// Forwarder posts receipt images to a WhatsApp gateway. The gateway URL is
// resolved per call so settings edits take effect without a restart.
type Forwarder struct {
	gatewayURL func() string
	client     *http.Client
}

// NewForwarder creates a forwarder reading its gateway URL from resolve.
func NewForwarder(resolve func() string) *Forwarder {
	return &Forwarder{
		gatewayURL: resolve,
		client:     &http.Client{Timeout: requestTimeout},
	}
}

// Configured reports whether a gateway URL is currently set.
func (f *Forwarder) Configured() bool {
	return f.gatewayURL() != ""
}

// Forward sends a rendered receipt image to phone with a caption. The
// gateway expects a multipart form: phone, caption and the image file.
func (f *Forwarder) Forward(ctx context.Context, phone, caption string, png []byte) error {
	gateway := f.gatewayURL()
	if gateway == "" {
		return ErrNotConfigured
	}

	normalized, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("phone", normalized); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	if err := form.WriteField("caption", caption); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	file, err := form.CreateFormFile("image", "receipt.png")
	if err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := file.Write(png); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	if err := form.Close(); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gateway, &body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}

// NormalizePhone reduces a phone number to gateway form: digits only, the
// Indonesian leading zero replaced with the 62 country code.
func NormalizePhone(phone string) (string, error) {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	n := digits.String()
	if n == "" {
		return "", errors.New("empty phone number")
	}
	if strings.HasPrefix(n, "0") {
		n = "62" + n[1:]
	}
	return n, nil
}
