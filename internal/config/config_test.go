package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Emulator.TickInterval != time.Second || cfg.Emulator.PickupFallback != 30*time.Second ||
		cfg.Emulator.DropoffFallback != time.Minute {
		t.Fatalf("unexpected emulator defaults %+v", cfg.Emulator)
	}
	if cfg.Fleet.ConfigDebounce != 500*time.Millisecond || cfg.Fleet.GhostCount != 100 {
		t.Fatalf("unexpected fleet defaults %+v", cfg.Fleet)
	}
	if cfg.Dispatch.Transport != "sse" {
		t.Fatalf("transport = %q", cfg.Dispatch.Transport)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMULATOR_TICK_INTERVAL", "50ms")
	t.Setenv("EMULATOR_FORCED_PROGRESSION", "true")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("DISPATCH_TRANSPORT", "ws")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Emulator.TickInterval != 50*time.Millisecond || !cfg.Emulator.ForcedProgression {
		t.Fatalf("env not applied: %+v", cfg.Emulator)
	}
	if cfg.DB.Port != 5432 {
		t.Fatalf("bad int must fall back to default, got %d", cfg.DB.Port)
	}
	if cfg.Dispatch.Transport != "ws" {
		t.Fatalf("transport = %q", cfg.Dispatch.Transport)
	}
}

func TestNewReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CONTROL_PORT=4444\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONTROL_PORT", "")
	os.Unsetenv("CONTROL_PORT")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if cfg.Srv.ControlPort != "4444" {
		t.Fatalf("ControlPort = %q", cfg.Srv.ControlPort)
	}
}

func TestLoadFleet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	roster := `vehicles:
  - id: c1
    owner_id: o1
    name: One
    model: Aurora
    access_token: t1
    latitude: 3
    longitude: -4
  - id: c2
    owner_id: o1
    active: false
`
	if err := os.WriteFile(path, []byte(roster), 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFleet(path)
	if err != nil {
		t.Fatalf("LoadFleet: %v", err)
	}
	if len(got.Vehicles) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(got.Vehicles))
	}
	if v := got.Vehicles[0]; v.Latitude != 3 || v.Longitude != -4 || !v.IsActive() || v.AccessToken != "t1" {
		t.Fatalf("unexpected first vehicle %+v", v)
	}
	if got.Vehicles[1].IsActive() {
		t.Fatal("second vehicle is inactive")
	}
}

func TestLoadFleetRejects(t *testing.T) {
	cases := map[string]string{
		"duplicate": "vehicles:\n  - id: a\n  - id: a\n",
		"no id":     "vehicles:\n  - name: nameless\n",
		"unknown":   "vehicles:\n  - id: a\n    colour: red\n",
	}
	for name, body := range cases {
		path := filepath.Join(t.TempDir(), "fleet.yaml")
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFleet(path); err == nil {
			t.Fatalf("%s: expected error", name)
		} else if !strings.Contains(err.Error(), "fleet file") {
			t.Fatalf("%s: error %v", name, err)
		}
	}
}
