package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Defaults()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"PORT":              "5002",
		"CLIENT_URL":        "http://localhost:5173",
		"RMF_URL":           "http://rmf:8000",
		"CONFIG_DIR":        "/ws/config",
		"BUILDING_DIR":      "/ws/maps",
		"BUILDING_FILENAME": "office.building.yaml",
		"IMG_DIR":           "/ws/maps/img",
		"SOURCE_DIR":        "/ws",
		"ROS_COMMAD":        "ros2 launch demo office.launch.xml",
		"ROS_COMMAD2":       "ros2 launch fleet adapter.launch.xml",
		"CWD":               "/ws",
		"DB_NAME":           "console.db",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Web.Port != 5002 {
		t.Errorf("Port = %d, want 5002", cfg.Web.Port)
	}
	if cfg.Web.ClientURL != "http://localhost:5173" {
		t.Errorf("ClientURL = %q", cfg.Web.ClientURL)
	}
	if cfg.RMF.URL != "http://rmf:8000" {
		t.Errorf("RMF.URL = %q", cfg.RMF.URL)
	}
	if cfg.RMF.RESTBaseURL() != "http://rmf:8000" {
		t.Errorf("RESTBaseURL = %q, want RMF_URL when API_SERVER unset", cfg.RMF.RESTBaseURL())
	}
	if cfg.Files.BuildingFilename != "office.building.yaml" {
		t.Errorf("BuildingFilename = %q", cfg.Files.BuildingFilename)
	}
	if cfg.Processes.ROSCommand2 != "ros2 launch fleet adapter.launch.xml" {
		t.Errorf("ROSCommand2 = %q", cfg.Processes.ROSCommand2)
	}
	if cfg.Processes.WorkDir != "/ws" {
		t.Errorf("WorkDir = %q", cfg.Processes.WorkDir)
	}
	if cfg.Database.SQLite.Path != "console.db" {
		t.Errorf("SQLite.Path = %q", cfg.Database.SQLite.Path)
	}
}

func TestApplyEnv_APIServerOverridesREST(t *testing.T) {
	cfg := Defaults()
	cfg.ApplyEnv(envMap(map[string]string{
		"RMF_URL":    "http://rmf:8000",
		"API_SERVER": "http://api:8001",
	}))
	if got := cfg.RMF.RESTBaseURL(); got != "http://api:8001" {
		t.Errorf("RESTBaseURL = %q, want http://api:8001", got)
	}
}

func TestApplyEnv_InvalidPort(t *testing.T) {
	cfg := Defaults()
	if err := cfg.ApplyEnv(envMap(map[string]string{"PORT": "abc"})); err == nil {
		t.Fatal("expected error for non-numeric PORT")
	}
}

func TestValidate_MissingPort(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when PORT is missing")
	}
	cfg.Web.Port = 5002
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoad_FileThenSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rmfconsole.yaml")
	data := []byte("web:\n  port: 6000\nrmf:\n  url: http://upstream:8000\n  timeout: 3s\n  reconnect: true\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RMF.URL != "http://upstream:8000" && os.Getenv("RMF_URL") == "" {
		t.Errorf("RMF.URL = %q", cfg.RMF.URL)
	}
	if cfg.RMF.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", cfg.RMF.Timeout)
	}
	if !cfg.RMF.Reconnect {
		t.Error("Reconnect should be true")
	}
	if cfg.Files.ConfigDir == "" {
		t.Error("defaults should survive partial file")
	}

	out := filepath.Join(dir, "saved.yaml")
	if err := cfg.Save(out); err != nil {
		t.Fatalf("Save: %v", err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatalf("Load saved: %v", err)
	}
	if again.RMF.Timeout != cfg.RMF.Timeout {
		t.Errorf("Timeout after round trip = %v", again.RMF.Timeout)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
}
