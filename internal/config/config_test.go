package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/yuanying/epubpager/internal/reader"
)

// isolate points HOME at an empty directory and clears EPUBPAGER_ variables.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "EPUBPAGER_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("spread", false, "")
	fs.Int("margin", 2, "")
	fs.String("theme", "default", "")
	fs.Int("font-size", 100, "")
	fs.Duration("load-timeout", time.Second, "")
	fs.Int("width", 80, "")
	fs.Int("height", 24, "")
	fs.String("log-level", "info", "")
	fs.String("log-format", "text", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	c, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Config{
		Viewer: ViewerConfig{Margin: 2, Theme: "default", FontSize: 100},
		Reader: ReaderConfig{LoadTimeout: time.Second, Width: 80, Height: 24},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
	if c != want {
		t.Errorf("Load() = %+v, want %+v", c, want)
	}
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
[viewer]
synthetic_layout = true
margin = 4
theme = "sepia"
font_size = 120

[reader]
load_timeout = "3s"
width = 100
`)
	t.Setenv("EPUBPAGER_READER_WIDTH", "120")
	t.Setenv("EPUBPAGER_VIEWER_MARGIN", "6")

	fs := testFlags()
	if err := fs.Parse([]string{"--margin=1", "--log-level=debug"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	c, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{name: "file value", got: c.Viewer.Theme, want: "sepia"},
		{name: "file bool", got: c.Viewer.SyntheticLayout, want: true},
		{name: "file duration", got: c.Reader.LoadTimeout, want: 3 * time.Second},
		{name: "env over file", got: c.Reader.Width, want: 120},
		{name: "flag over env", got: c.Viewer.Margin, want: 1},
		{name: "flag over default", got: c.Log.Level, want: "debug"},
		{name: "unchanged flag keeps file value", got: c.Viewer.FontSize, want: 120},
		{name: "default", got: c.Reader.Height, want: 24},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_ConfigFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("EPUBPAGER_CONFIG", writeConfig(t, "[viewer]\ntheme = \"night\"\n"))

	c, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Viewer.Theme != "night" {
		t.Errorf("Theme = %q, want night", c.Viewer.Theme)
	}
}

func TestLoad_DefaultConfigFile(t *testing.T) {
	isolate(t)
	dir := filepath.Join(os.Getenv("HOME"), ".config", "epubpager")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[reader]\nheight = 40\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Reader.Height != 40 {
		t.Errorf("Height = %d, want 40", c.Reader.Height)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
		wantErr string
	}{
		{name: "missing explicit file", path: "/nonexistent/config.toml", wantErr: "read config"},
		{name: "invalid toml", content: "[viewer\nmargin = ", wantErr: "read config"},
		{name: "unknown theme", content: "[viewer]\ntheme = \"neon\"\n", wantErr: "viewer.theme"},
		{name: "negative margin", content: "[viewer]\nmargin = -1\n", wantErr: "viewer.margin"},
		{name: "bad log format", content: "[log]\nformat = \"xml\"\n", wantErr: "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			path := tt.path
			if path == "" {
				path = writeConfig(t, tt.content)
			}
			_, err := Load(path, nil)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		Viewer: ViewerConfig{Margin: 0, Theme: "default", FontSize: 100},
		Reader: ReaderConfig{LoadTimeout: time.Second, Width: 80, Height: 24},
		Log:    LogConfig{Level: "INFO", Format: "json"},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	invalid := valid
	invalid.Viewer.FontSize = 10
	invalid.Reader.LoadTimeout = 0
	invalid.Reader.Width = 5
	err := invalid.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want errors")
	}
	for _, key := range []string{"viewer.font_size", "reader.load_timeout", "reader.width"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Validate() error %q does not mention %s", err, key)
		}
	}
}

func TestViewerConfig_Settings(t *testing.T) {
	v := ViewerConfig{SyntheticLayout: true, Margin: 3, Theme: "night", FontSize: 150}
	want := reader.Settings{SyntheticLayout: true, Margin: 3, Theme: "night", FontSize: 150}
	if got := v.Settings(); got != want {
		t.Errorf("Settings() = %+v, want %+v", got, want)
	}
}
