package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/disintegration/imaging"
	"github.com/skip2/go-qrcode"
)

// Default dimensions for standalone code images.
const (
	defaultQRSize        = 256
	defaultBarcodeWidth  = 360
	defaultBarcodeHeight = 80
)

// QR renders payload as a square PNG QR code with medium error correction.
func QR(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("empty payload")
	}
	if size <= 0 {
		size = defaultQRSize
	}

	data, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return data, nil
}

// Barcode renders a receipt id as a code128 PNG.
func Barcode(receiptID string, width, height int) ([]byte, error) {
	if receiptID == "" {
		return nil, errors.New("empty receipt id")
	}
	if width <= 0 {
		width = defaultBarcodeWidth
	}
	if height <= 0 {
		height = defaultBarcodeHeight
	}

	code, err := code128.Encode(receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to encode barcode: %w", err)
	}
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, fmt.Errorf("failed to scale barcode: %w", err)
	}
	return EncodePNG(scaled)
}

// EncodePNG serializes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Downscale bounds the longest side of img to maxDim, preserving aspect
// ratio. Images already inside the bound come back unchanged.
func Downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	if b.Dx() >= b.Dy() {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}
