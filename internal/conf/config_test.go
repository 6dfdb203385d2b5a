package conf

import (
	"log/slog"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/gearmap/gearmap-go/internal/logging"
)

// TestEmbeddedConfigValidates makes sure the shipped config.yaml can be
// unmarshaled and passes the same validation as a user-provided file.
func TestEmbeddedConfigValidates(t *testing.T) {
	raw := getDefaultConfig()
	if raw == "" {
		t.Fatal("embedded config.yaml is empty")
	}

	settings := &Settings{}
	if err := yaml.Unmarshal([]byte(raw), settings); err != nil {
		t.Fatalf("embedded config.yaml does not parse: %v", err)
	}

	if err := ValidateSettings(settings); err != nil {
		t.Fatalf("embedded config.yaml does not validate: %v", err)
	}

	if settings.Conversion.DefaultDirection != "bid_to_deployment" {
		t.Errorf("unexpected default direction: %s", settings.Conversion.DefaultDirection)
	}
	if !settings.Output.SQLite.Enabled {
		t.Error("sqlite store should be enabled by default")
	}
	if settings.Output.MySQL.Enabled {
		t.Error("mysql store should be disabled by default")
	}
	if settings.Realtime.Telemetry.Enabled {
		t.Error("telemetry must be opt-in")
	}
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"

	original := validSettings()
	original.WebServer.Port = "9090"
	original.Icons.RenderSize = 120

	if err := SaveYAMLConfig(path, original); err != nil {
		t.Fatalf("SaveYAMLConfig failed: %v", err)
	}

	data, err := yaml.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	reloaded := &Settings{}
	if err := yaml.Unmarshal(data, reloaded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if reloaded.WebServer.Port != "9090" {
		t.Errorf("port lost in round trip: %s", reloaded.WebServer.Port)
	}
	if reloaded.Icons.RenderSize != 120 {
		t.Errorf("render size lost in round trip: %v", reloaded.Icons.RenderSize)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace": logging.LevelTrace,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
