package service

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRRenderer turns a short URL into an opaque image artifact. Rendering is
// CPU-bound and runs strictly after the link row is committed.
type QRRenderer interface {
	Render(url string) (string, error)
}

type qrRenderer struct {
	size int
}

func NewQRRenderer() QRRenderer {
	return &qrRenderer{size: 256}
}

// Render returns the QR image as a PNG data URL.
func (r *qrRenderer) Render(url string) (string, error) {
	png, err := qrcode.Encode(url, qrcode.Low, r.size)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR image: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
