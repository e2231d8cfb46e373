package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	os.Unsetenv("DB_ENABLED")
	os.Unsetenv("PORT")
	os.Unsetenv("ENV")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	// Check defaults
	if cfg.Port != "8501" {
		t.Errorf("Expected Port to be 8501, got %s", cfg.Port)
	}

	if cfg.Env != "development" {
		t.Errorf("Expected Env to be development, got %s", cfg.Env)
	}

	if cfg.Sources.ResultsURL != DefaultResultsURL {
		t.Errorf("Expected default results URL, got %s", cfg.Sources.ResultsURL)
	}

	if cfg.Runner.PapermillBin != "papermill" {
		t.Errorf("Expected papermill binary, got %s", cfg.Runner.PapermillBin)
	}

	if cfg.Database.Enabled {
		t.Error("Expected database to be disabled by default")
	}
}

func TestLoadWithCustomValues(t *testing.T) {
	os.Setenv("PORT", "9000")
	os.Setenv("ENV", "production")
	os.Setenv("BASE_DIR", "/srv/trading")
	os.Setenv("HTTP_RATE_LIMIT", "2.5")
	os.Setenv("LOG_LEVEL", "debug")

	defer func() {
		os.Unsetenv("PORT")
		os.Unsetenv("ENV")
		os.Unsetenv("BASE_DIR")
		os.Unsetenv("HTTP_RATE_LIMIT")
		os.Unsetenv("LOG_LEVEL")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9000" {
		t.Errorf("Expected Port to be 9000, got %s", cfg.Port)
	}

	if cfg.HTTP.RateLimit != 2.5 {
		t.Errorf("Expected rate limit 2.5, got %v", cfg.HTTP.RateLimit)
	}

	if got, want := cfg.LogPath(), filepath.Join("/srv/trading", "run_log.txt"); got != want {
		t.Errorf("Expected LogPath %s, got %s", want, got)
	}

	if got, want := cfg.RunsPath(), filepath.Join("/srv/trading", "runs"); got != want {
		t.Errorf("Expected RunsPath %s, got %s", want, got)
	}
}

func TestValidateMissingDatabaseURL(t *testing.T) {
	os.Setenv("DB_ENABLED", "true")
	os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("DB_ENABLED")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DB_ENABLED without DATABASE_URL, got nil")
	}
}

func TestValidateInvalidEnv(t *testing.T) {
	os.Setenv("ENV", "invalid")
	defer os.Unsetenv("ENV")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when ENV is invalid, got nil")
	}
}

func TestValidateInvalidSource(t *testing.T) {
	os.Setenv("DASHBOARD_SOURCE", "ftp")
	defer os.Unsetenv("DASHBOARD_SOURCE")

	_, err := Load()
	if err == nil {
		t.Error("Expected error when DASHBOARD_SOURCE is invalid, got nil")
	}
}

func TestSourcesPathAbsolute(t *testing.T) {
	s := SourcesConfig{BaseDir: "/base"}
	abs := filepath.Join(string(filepath.Separator), "elsewhere", "x.csv")

	if got := s.Path(abs); got != abs {
		t.Errorf("Expected absolute path unchanged, got %s", got)
	}
	if got := s.Path("x.csv"); got != filepath.Join("/base", "x.csv") {
		t.Errorf("Expected joined path, got %s", got)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "2h")
	defer os.Unsetenv("TEST_DURATION")

	duration := getEnvAsDuration("TEST_DURATION", "1h")
	expected := 2 * time.Hour

	if duration != expected {
		t.Errorf("Expected duration to be %v, got %v", expected, duration)
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	os.Setenv("TEST_FLOAT", "nope")
	defer os.Unsetenv("TEST_FLOAT")

	if value := getEnvAsFloat("TEST_FLOAT", 1.5); value != 1.5 {
		t.Errorf("Expected fallback 1.5, got %v", value)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	os.Setenv("TEST_BOOL", "true")
	defer os.Unsetenv("TEST_BOOL")

	value := getEnvAsBool("TEST_BOOL", false)
	if value != true {
		t.Errorf("Expected value to be true, got %v", value)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tradedash.env")
	if err := os.WriteFile(path, []byte("RUNS_DIR=archive\nPREVIEW_ROWS=10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("RUNS_DIR")
		os.Unsetenv("PREVIEW_ROWS")
	})

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Sources.RunsDir != "archive" {
		t.Errorf("Expected RunsDir archive, got %s", cfg.Sources.RunsDir)
	}

	if cfg.Dashboard.PreviewRows != 10 {
		t.Errorf("Expected PreviewRows 10, got %d", cfg.Dashboard.PreviewRows)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Expected error for missing env file")
	}
}
