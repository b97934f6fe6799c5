package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Export.MsPerFrame != 40 {
		t.Errorf("expected 40 ms per frame, got %d", cfg.Export.MsPerFrame)
	}
	if cfg.Export.FrameRange != (FrameRange{Start: 1, End: 1, Step: 1}) {
		t.Errorf("unexpected default frame range %+v", cfg.Export.FrameRange)
	}
	if cfg.Output.ModelPath != "out.mdl" || cfg.Output.AnimationPath != "out.ani" {
		t.Errorf("unexpected default outputs %+v", cfg.Output)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "avatara.yaml")

	yamlContent := `
export:
  scene: hero.glb
  mesh: Body
  armature: Armature
  root_bone: Hips
  frame_range:
    start: 10
    end: 30
    step: 10
  ms_per_frame: 33

output:
  model: hero.mdl
  animation: walk.ani

logging:
  level: "debug"
  log_file: "export.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Export.Scene != "hero.glb" || cfg.Export.Mesh != "Body" || cfg.Export.Armature != "Armature" {
		t.Errorf("unexpected export objects %+v", cfg.Export)
	}
	if cfg.Export.RootBone != "Hips" {
		t.Errorf("expected root bone Hips, got %s", cfg.Export.RootBone)
	}
	if cfg.Export.MsPerFrame != 33 {
		t.Errorf("expected 33 ms per frame, got %d", cfg.Export.MsPerFrame)
	}
	if cfg.Output.AnimationPath != "walk.ani" {
		t.Errorf("expected animation path walk.ani, got %s", cfg.Output.AnimationPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}

	frames := cfg.Export.Frames()
	want := []int{10, 20, 30}
	if len(frames) != len(want) {
		t.Fatalf("expected frames %v, got %v", want, frames)
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frame %d: expected %d, got %d", i, want[i], frames[i])
		}
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
export:
  ms_per_frame: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "avatara.yaml")
	if err := os.WriteFile(configPath, []byte("export:\n  armature: FromFile\n  ms_per_frame: 20\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fs := flag.NewFlagSet("anim", flag.ContinueOnError)
	flags := BindFlags(fs)
	if err := fs.Parse([]string{"-armature", "FromFlag", "-frames", "1, 5,9", "-debug"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath, flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Export.Armature != "FromFlag" {
		t.Errorf("expected flag to win, got %s", cfg.Export.Armature)
	}
	if cfg.Export.MsPerFrame != 20 {
		t.Errorf("expected file value 20 to survive, got %d", cfg.Export.MsPerFrame)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %s", cfg.Logging.Level)
	}
	if got := cfg.Export.Frames(); len(got) != 3 || got[2] != 9 {
		t.Errorf("expected frames [1 5 9], got %v", got)
	}
}

func TestLoad_Archives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avatara.yaml")
	if err := os.WriteFile(path, []byte("export:\n  archives: [data.grf]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fs := flag.NewFlagSet("anim", flag.ContinueOnError)
	flags := BindFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Export.Archives) != 1 || cfg.Export.Archives[0] != "data.grf" {
		t.Errorf("unexpected archives from file %v", cfg.Export.Archives)
	}

	fs = flag.NewFlagSet("anim", flag.ContinueOnError)
	flags = BindFlags(fs)
	if err := fs.Parse([]string{"-grf", "data.grf, rdata.grf,"}); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(path, flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := cfg.Export.Archives; len(got) != 2 || got[1] != "rdata.grf" {
		t.Errorf("expected flag archives [data.grf rdata.grf], got %v", got)
	}
}

func TestLoad_BadFrameList(t *testing.T) {
	fs := flag.NewFlagSet("anim", flag.ContinueOnError)
	flags := BindFlags(fs)
	if err := fs.Parse([]string{"-frames", "1,x"}); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "avatara.yaml")
	if err := os.WriteFile(path, []byte("export:\n  armature: A\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, flags); !errors.Is(err, ErrInvalid) {
		t.Error("expected error for bad frame list")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Export.Scene = "scene.yaml"
		cfg.Export.Armature = "Armature"
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"no scene", func(c *Config) { c.Export.Scene = "" }, false},
		{"no armature", func(c *Config) { c.Export.Armature = "" }, false},
		{"zero ms", func(c *Config) { c.Export.MsPerFrame = 0 }, false},
		{"end before start", func(c *Config) { c.Export.FrameRange = FrameRange{Start: 5, End: 2, Step: 1} }, false},
		{"descending list", func(c *Config) { c.Export.FrameList = []int{5, 1} }, false},
		{"duplicate frames", func(c *Config) { c.Export.FrameList = []int{1, 1, 2} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "avatara.yaml")
	cfg := Default()
	cfg.Export.FrameList = []int{2, 4}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}

	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := loaded.Export.Frames(); len(got) != 2 || got[1] != 4 {
		t.Errorf("expected frames [2 4], got %v", got)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "avatara.yaml"), []byte("logging:\n  level: warn\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if path := findConfigFile(); path != "./avatara.yaml" {
		t.Errorf("expected ./avatara.yaml, got %s", path)
	}
}
