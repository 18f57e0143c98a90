package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/ywmark/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	opts := cfg.Conversion.Options()
	if !opts.Markdown.SceneTitles || opts.Markdown.MarkdownMode {
		t.Errorf("default options = %+v", opts)
	}
}

func TestConversionConfig_RequiresLockFile(t *testing.T) {
	cfg := ConversionConfig{LockFile: ""}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty lock file should fail validation")
	}
}

func TestConversionConfig_NegativeDebounce(t *testing.T) {
	cfg := ConversionConfig{LockFile: "x.lock", WatchDebounce: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative debounce should fail validation")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("YWMARK_TEST_TOKEN", "from-env")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  http:
    port: 9090
library:
  path: /srv/novels
auth:
  mode: token
  token: ${YWMARK_TEST_TOKEN}
conversion:
  markdown_mode: true
  scene_titles: false
  watch_debounce: 1s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.LogLevel != slog.LevelDebug || cfg.App.HTTP.Port != 9090 || cfg.Library.Path != "/srv/novels" {
		t.Errorf("app/library = %+v %+v", cfg.App, cfg.Library)
	}
	if cfg.Auth.Token != "from-env" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if !cfg.Conversion.MarkdownMode || cfg.Conversion.SceneTitles || cfg.Conversion.WatchDebounce != time.Second {
		t.Errorf("conversion = %+v", cfg.Conversion)
	}
	if cfg.SQLite.Path != "./ywmark.db" || cfg.Conversion.LockFile == "" {
		t.Errorf("defaults lost: %+v %+v", cfg.SQLite, cfg.Conversion)
	}
}

func TestLoadOptional_MissingFileKeepsDefaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), cfg); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg.App.HTTP.Port != 8080 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}

	cfg.Auth = AuthConfig{Mode: AuthModeToken}
	if err := pkgconfig.LoadOptional("", cfg); err == nil {
		t.Error("invalid defaults should still fail validation")
	}
}
