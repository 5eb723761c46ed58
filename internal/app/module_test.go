package app

import (
	"path/filepath"
	"testing"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nicedig/ndm/internal/config"
)

func testParams(t *testing.T) Params {
	t.Helper()
	settings := config.Profile{BaseURL: "http://127.0.0.1:1", Token: "t"}
	settings.ApplyDefaults()
	return Params{
		ProfileName: "test",
		Settings:    settings,
		LogPath:     filepath.Join(t.TempDir(), "ndm.log"),
	}
}

// TestFxModuleWiring verifies the fx dependency graph resolves without errors.
func TestFxModuleWiring(t *testing.T) {
	if err := fx.ValidateApp(Module(testParams(t)), fx.NopLogger); err != nil {
		t.Fatalf("ValidateApp() error = %v", err)
	}
}

func TestProvideClientRequiresBaseURL(t *testing.T) {
	p := testParams(t)
	p.Settings.BaseURL = ""
	if _, err := provideClient(p, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty base_url")
	}

	p = testParams(t)
	c, err := provideClient(p, zap.NewNop())
	if err != nil {
		t.Fatalf("provideClient() error = %v", err)
	}
	if !c.HasToken() {
		t.Error("expected token to be carried over")
	}
}

func TestProvideFormatterFallsBackToUTC(t *testing.T) {
	p := testParams(t)
	p.Settings.TimeZone = "Nowhere/Unknown"
	f := provideFormatter(p, zap.NewNop())
	if f == nil {
		t.Fatal("expected a formatter")
	}
	if got := f.DateKey("2024-01-02T23:30:00Z"); got != "2024-01-02" {
		t.Errorf("DateKey = %q, want UTC date 2024-01-02", got)
	}
}
