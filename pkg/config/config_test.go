package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/picseq/internal/bytesize"
	"github.com/marmos91/picseq/pkg/fileseq"
)

// isolate points the default config location at an empty temp directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Navigation.Strategy != string(fileseq.CurrentDirAlphabetical) {
		t.Errorf("Expected default strategy, got %q", cfg.Navigation.Strategy)
	}
	if cfg.Navigation.PrefetchHalfWidth != 10 {
		t.Errorf("Expected prefetch half width 10, got %d", cfg.Navigation.PrefetchHalfWidth)
	}
	if cfg.Navigation.LRUEntries != 10 {
		t.Errorf("Expected 10 LRU entries, got %d", cfg.Navigation.LRUEntries)
	}
	if cfg.Navigation.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Navigation.Workers)
	}
	if cfg.Navigation.TraverseWindow != 1000 {
		t.Errorf("Expected traverse window 1000, got %d", cfg.Navigation.TraverseWindow)
	}
	if cfg.Navigation.LoadTimeout != 10*time.Second {
		t.Errorf("Expected load timeout 10s, got %v", cfg.Navigation.LoadTimeout)
	}
	if cfg.Loader.MaxFileSize != 256*bytesize.MiB {
		t.Errorf("Expected max file size 256Mi, got %v", cfg.Loader.MaxFileSize)
	}
	if cfg.Watch.Debounce != 100*time.Millisecond {
		t.Errorf("Expected debounce 100ms, got %v", cfg.Watch.Debounce)
	}
	if !cfg.API.IsEnabled() || cfg.API.Port != 8080 {
		t.Errorf("Expected API enabled on 8080, got enabled=%v port=%d", cfg.API.IsEnabled(), cfg.API.Port)
	}
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected INFO log level, got %q", cfg.Logging.Level)
	}
}

func TestLoad_FromFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	content := `
logging:
  level: debug
navigation:
  strategy: traverse-tree-alphabetical
  locale: de
  extensions: [".JPG", "png"]
  load_timeout: 3s
  prefetch_half_width: 0
loader:
  max_file_size: 64Mi
watch:
  enabled: true
  debounce: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Navigation.Strategy != "traverse-tree-alphabetical" {
		t.Errorf("Expected tree strategy, got %q", cfg.Navigation.Strategy)
	}
	if cfg.Navigation.Locale != "de" {
		t.Errorf("Expected locale de, got %q", cfg.Navigation.Locale)
	}
	if len(cfg.Navigation.Extensions) != 2 || cfg.Navigation.Extensions[0] != "jpg" || cfg.Navigation.Extensions[1] != "png" {
		t.Errorf("Expected normalized extensions [jpg png], got %v", cfg.Navigation.Extensions)
	}
	if cfg.Navigation.LoadTimeout != 3*time.Second {
		t.Errorf("Expected load timeout 3s, got %v", cfg.Navigation.LoadTimeout)
	}
	if cfg.Navigation.PrefetchHalfWidth != 0 {
		t.Errorf("Expected explicit zero half width to be kept, got %d", cfg.Navigation.PrefetchHalfWidth)
	}
	if cfg.Loader.MaxFileSize != 64*bytesize.MiB {
		t.Errorf("Expected max file size 64Mi, got %v", cfg.Loader.MaxFileSize)
	}
	if !cfg.Watch.Enabled || cfg.Watch.Debounce != 250*time.Millisecond {
		t.Errorf("Expected watch enabled with 250ms debounce, got %v %v", cfg.Watch.Enabled, cfg.Watch.Debounce)
	}
	// Unspecified values keep their defaults
	if cfg.Navigation.Workers != 3 {
		t.Errorf("Expected default workers, got %d", cfg.Navigation.Workers)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("PICSEQ_NAVIGATION_STRATEGY", "traverse-tree-by-time")
	t.Setenv("PICSEQ_NAVIGATION_WORKERS", "5")
	t.Setenv("PICSEQ_NAVIGATION_LOAD_TIMEOUT", "2s")
	t.Setenv("PICSEQ_LOADER_MAX_FILE_SIZE", "1Gi")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Navigation.Strategy != "traverse-tree-by-time" {
		t.Errorf("Expected strategy from env, got %q", cfg.Navigation.Strategy)
	}
	if cfg.Navigation.Workers != 5 {
		t.Errorf("Expected 5 workers from env, got %d", cfg.Navigation.Workers)
	}
	if cfg.Navigation.LoadTimeout != 2*time.Second {
		t.Errorf("Expected load timeout from env, got %v", cfg.Navigation.LoadTimeout)
	}
	if cfg.Loader.MaxFileSize != bytesize.GiB {
		t.Errorf("Expected max file size from env, got %v", cfg.Loader.MaxFileSize)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("navigation:\n  strategy: current-dir-by-time\n"), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv("PICSEQ_NAVIGATION_STRATEGY", "traverse-tree-alphabetical")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Navigation.Strategy != "traverse-tree-alphabetical" {
		t.Errorf("Expected env to win over file, got %q", cfg.Navigation.Strategy)
	}
}

func TestLoad_InvalidStrategy(t *testing.T) {
	isolate(t)
	t.Setenv("PICSEQ_NAVIGATION_STRATEGY", "random")

	if _, err := Load(""); err == nil {
		t.Fatal("Expected error for unknown strategy")
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("navigation: [unclosed"), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
}

func TestMustLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)

	_, err := MustLoad(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Navigation.Strategy = string(fileseq.CurrentDirByTime)
	cfg.Navigation.LRUEntries = 42

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Saved config missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Navigation.Strategy != string(fileseq.CurrentDirByTime) || loaded.Navigation.LRUEntries != 42 {
		t.Errorf("Round trip lost values: %+v", loaded.Navigation)
	}
}

func TestSource(t *testing.T) {
	dir := isolate(t)

	if got := Source("/etc/picseq.yaml"); got != "/etc/picseq.yaml" {
		t.Errorf("Expected explicit path, got %q", got)
	}
	if got := Source(""); got != "defaults" {
		t.Errorf("Expected defaults without a config file, got %q", got)
	}

	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if got := Source(""); got != filepath.Join(dir, "picseq", "config.yaml") {
		t.Errorf("Expected default config path, got %q", got)
	}
}
