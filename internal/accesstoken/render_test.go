package accesstoken

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"
)

func TestPNGRendererProducesDataURL(t *testing.T) {
	t.Parallel()

	url, err := NewPNGRenderer().Render(fixtureToken)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(url, prefix) {
		t.Fatalf("unexpected prefix in %q", url[:32])
	}
	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, prefix))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Fatal("expected PNG signature")
	}
}
