package accesstoken

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultImageSize is the rendered PNG width in pixels.
const DefaultImageSize = 300

// PNGRenderer renders tokens as QR code PNG data URLs.
type PNGRenderer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

// NewPNGRenderer returns a renderer using error-correction level M.
func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{Size: DefaultImageSize, Level: qrcode.Medium}
}

// Render encodes content as a QR code and returns it as a data:image/png;base64 URL.
func (r *PNGRenderer) Render(content string) (string, error) {
	size := r.Size
	if size <= 0 {
		size = DefaultImageSize
	}
	png, err := qrcode.Encode(content, r.Level, size)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
