package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Synth.SampleRate", cfg.Synth.SampleRate, 44100},
		{"Synth.Channels", cfg.Synth.Channels, 1},
		{"Synth.ConsonantDuration", cfg.Synth.ConsonantDuration, 0.18},
		{"Assets.VowelTable", cfg.Assets.VowelTable, "vowelVals.txt"},
		{"Song.Path", cfg.Song.Path, "songFile.txt"},
		{"Output.Format", cfg.Output.Format, "dat"},
		{"Output.Path", cfg.Output.Path, "song.dat"},
		{"Output.BitDepth", cfg.Output.BitDepth, 16},
		{"Shift.Command", cfg.Shift.Command, "sox"},
		{"Shift.ReferencePitch", cfg.Shift.ReferencePitch, "C#4"},
		{"Shift.Low", cfg.Shift.Low, "F3"},
		{"Shift.High", cfg.Shift.High, "F6"},
		{"Shift.Prefix", cfg.Shift.Prefix, "ee"},
		{"Shift.Extension", cfg.Shift.Extension, "wav"},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, c := range checks {
		switch want := c.want.(type) {
		case int:
			if c.got.(int) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case float64:
			if c.got.(float64) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case string:
			if c.got.(string) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		}
	}

	if !strings.HasSuffix(cfg.Catalog.Path, "singer.db") {
		t.Errorf("Catalog.Path: got %q", cfg.Catalog.Path)
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Synth:  SynthConfig{SampleRate: 22050, ConsonantDuration: 0.2},
		Output: OutputConfig{Format: "WAV", Path: "out.wav", BitDepth: 24},
		Shift:  ShiftConfig{Command: "sox -q", Prefix: "ah", Extension: ".dat"},
		Log:    LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Synth.SampleRate != 22050 {
		t.Errorf("SampleRate should not be overridden: got %d", cfg.Synth.SampleRate)
	}
	if cfg.Synth.ConsonantDuration != 0.2 {
		t.Errorf("ConsonantDuration should not be overridden: got %v", cfg.Synth.ConsonantDuration)
	}
	if cfg.Output.Format != "wav" {
		t.Errorf("Output.Format should be lower-cased: got %s", cfg.Output.Format)
	}
	if cfg.Output.Path != "out.wav" || cfg.Output.BitDepth != 24 {
		t.Errorf("Output should not be overridden: got %+v", cfg.Output)
	}
	if cfg.Shift.Command != "sox -q" || cfg.Shift.Prefix != "ah" {
		t.Errorf("Shift should not be overridden: got %+v", cfg.Shift)
	}
	if cfg.Shift.Extension != "dat" {
		t.Errorf("Shift.Extension should drop the leading dot: got %s", cfg.Shift.Extension)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestSetDefaults_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	cfg := &Config{Assets: AssetsConfig{ConsonantDir: "~/clips"}}
	setDefaults(cfg)
	if cfg.Assets.ConsonantDir != filepath.Join(home, "clips") {
		t.Errorf("ConsonantDir: got %q", cfg.Assets.ConsonantDir)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	yamlContent := `
synth:
  sample_rate: 48000
  consonant_duration: 0.2
assets:
  vowel_table: /data/vowelVals.txt
  consonant_dir: /data/consonants
output:
  format: wav
  path: /tmp/out.wav
shift:
  reference: /data/ee.wav
  prefix: ee
log:
  level: debug
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "singer.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Synth.SampleRate != 48000 {
		t.Errorf("Synth.SampleRate: got %d, want 48000", cfg.Synth.SampleRate)
	}
	if cfg.Synth.ConsonantDuration != 0.2 {
		t.Errorf("Synth.ConsonantDuration: got %v, want 0.2", cfg.Synth.ConsonantDuration)
	}
	if cfg.Assets.ConsonantDir != "/data/consonants" {
		t.Errorf("Assets.ConsonantDir: got %q", cfg.Assets.ConsonantDir)
	}
	if cfg.Output.Format != "wav" {
		t.Errorf("Output.Format: got %q, want wav", cfg.Output.Format)
	}
	if cfg.Shift.Reference != "/data/ee.wav" {
		t.Errorf("Shift.Reference: got %q", cfg.Shift.Reference)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level: got %q, want debug", cfg.Log.Level)
	}
	// 未设置的字段使用默认值
	if cfg.Synth.Channels != 1 {
		t.Errorf("Synth.Channels should default to 1, got %d", cfg.Synth.Channels)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("SINGER_ASSETS", "/srv/assets")

	yamlContent := `
assets:
  consonant_dir: "${SINGER_ASSETS}/consonants"
`
	tmpFile := filepath.Join(t.TempDir(), "singer.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Assets.ConsonantDir != "/srv/assets/consonants" {
		t.Errorf("expected env var expansion, got %q", cfg.Assets.ConsonantDir)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/singer.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []string{
		"output:\n  format: mp3\n",
		"output:\n  bit_depth: 12\n",
		"synth:\n  sample_rate: -1\n",
		"synth:\n  channels: 2\n",
	}
	for _, content := range tests {
		tmpFile := filepath.Join(t.TempDir(), "singer.yaml")
		if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write temp file: %v", err)
		}
		if _, err := Load(tmpFile); err == nil {
			t.Errorf("expected validation error for %q", content)
		}
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}
