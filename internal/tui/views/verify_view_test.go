package views

import (
	"strings"
	"testing"

	"github.com/nicedig/ndm/internal/auth"
	"github.com/nicedig/ndm/internal/tui/ui"
)

func TestRenderQR(t *testing.T) {
	qr := renderQR("https://nicedig.example/verify")
	lines := strings.Split(strings.TrimSuffix(qr, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("QR has %d lines", len(lines))
	}
	width := len([]rune(lines[0]))
	for i, l := range lines {
		if n := len([]rune(l)); n != width {
			t.Errorf("line %d width %d, want %d", i, n, width)
		}
	}
	if !strings.ContainsAny(qr, "█▀▄") {
		t.Error("QR contains no blocks")
	}
}

func TestVerifyViewShow(t *testing.T) {
	vv := NewVerifyView(ui.DefaultTheme(), "https://nicedig.example/verify")

	vv.Show(auth.VerificationRequired, "aya@example.com")
	text := vv.GetText(true)
	if !strings.Contains(text, "aya@example.com") || !strings.Contains(text, "https://nicedig.example/verify") {
		t.Errorf("verification text = %q", text)
	}

	vv.Show(auth.SignedOut, "")
	if text := vv.GetText(true); !strings.Contains(text, "NICEDIG_TOKEN") {
		t.Errorf("signed-out text = %q", text)
	}
}
