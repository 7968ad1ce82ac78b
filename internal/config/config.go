package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 Singer 的顶层配置结构。
type Config struct {
	Synth   SynthConfig   `yaml:"synth"`
	Assets  AssetsConfig  `yaml:"assets"`
	Song    SongConfig    `yaml:"song"`
	Output  OutputConfig  `yaml:"output"`
	Shift   ShiftConfig   `yaml:"shift"`
	Catalog CatalogConfig `yaml:"catalog"`
	Log     LogConfig     `yaml:"log"`
}

// SynthConfig 合成参数。
type SynthConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
	// ConsonantDuration 每个辅音片段的固定时长（秒），素材片段必须恰好覆盖这段时间。
	ConsonantDuration float64 `yaml:"consonant_duration"`
}

// AssetsConfig 查表素材位置。
type AssetsConfig struct {
	// VowelTable 元音表文件，每条记录为 "音标_音高 振幅"。
	VowelTable string `yaml:"vowel_table"`
	// ConsonantDir 辅音片段目录：清辅音 <code>.dat，浊辅音 <code>_<音高>.dat。
	ConsonantDir string `yaml:"consonant_dir"`
}

// SongConfig 输入歌曲。
type SongConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig 输出设置。
type OutputConfig struct {
	Path     string `yaml:"path"`
	Format   string `yaml:"format"`    // dat 或 wav
	BitDepth int    `yaml:"bit_depth"` // 仅 wav
}

// ShiftConfig 移调素材生成配置。
type ShiftConfig struct {
	// Command 外部音频工具命令前缀，按 shell 规则拆分，
	// 之后依次追加 <输入> <输出> pitch <音分>。
	Command        string `yaml:"command"`
	Reference      string `yaml:"reference"`
	ReferencePitch string `yaml:"reference_pitch"`
	Low            string `yaml:"low"`
	High           string `yaml:"high"`
	Prefix         string `yaml:"prefix"`
	Extension      string `yaml:"extension"`
	OutputDir      string `yaml:"output_dir"`
}

// CatalogConfig SQLite 目录配置，记录生成的素材和渲染历史。
type CatalogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置文件 %s 无效: %w", path, err)
	}
	return cfg, nil
}

// Default 返回全部使用默认值的配置，用于没有配置文件的场景。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Synth.SampleRate == 0 {
		cfg.Synth.SampleRate = 44100
	}
	if cfg.Synth.Channels == 0 {
		cfg.Synth.Channels = 1
	}
	if cfg.Synth.ConsonantDuration == 0 {
		cfg.Synth.ConsonantDuration = 0.18
	}
	if cfg.Assets.VowelTable == "" {
		cfg.Assets.VowelTable = "vowelVals.txt"
	}
	if cfg.Assets.ConsonantDir == "" {
		cfg.Assets.ConsonantDir = "."
	}
	if cfg.Song.Path == "" {
		cfg.Song.Path = "songFile.txt"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "dat"
	}
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	if cfg.Output.Path == "" {
		cfg.Output.Path = "song." + cfg.Output.Format
	}
	if cfg.Output.BitDepth == 0 {
		cfg.Output.BitDepth = 16
	}
	if cfg.Shift.Command == "" {
		cfg.Shift.Command = "sox"
	}
	if cfg.Shift.ReferencePitch == "" {
		cfg.Shift.ReferencePitch = "C#4"
	}
	if cfg.Shift.Low == "" {
		cfg.Shift.Low = "F3"
	}
	if cfg.Shift.High == "" {
		cfg.Shift.High = "F6"
	}
	if cfg.Shift.Prefix == "" {
		cfg.Shift.Prefix = "ee"
	}
	if cfg.Shift.Extension == "" {
		cfg.Shift.Extension = "wav"
	}
	cfg.Shift.Extension = strings.TrimPrefix(cfg.Shift.Extension, ".")
	if cfg.Shift.OutputDir == "" {
		cfg.Shift.OutputDir = "."
	}
	if cfg.Catalog.Path == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Catalog.Path = home + "/.singer/singer.db"
		} else {
			cfg.Catalog.Path = "./.singer-data/singer.db"
		}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Go 不会自动展开 ~，需要手动替换为用户主目录
	for _, p := range []*string{
		&cfg.Assets.VowelTable, &cfg.Assets.ConsonantDir, &cfg.Song.Path, &cfg.Output.Path,
		&cfg.Shift.Reference, &cfg.Shift.OutputDir, &cfg.Catalog.Path, &cfg.Log.File,
	} {
		*p = expandHome(*p)
	}
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return p
	}
	return home + p[1:]
}

// Validate 检查取值是否合法。
func (c *Config) Validate() error {
	if c.Synth.SampleRate <= 0 {
		return fmt.Errorf("synth.sample_rate 必须为正数: %d", c.Synth.SampleRate)
	}
	if c.Synth.Channels != 1 {
		return fmt.Errorf("synth.channels 只支持 1: %d", c.Synth.Channels)
	}
	if c.Synth.ConsonantDuration <= 0 {
		return fmt.Errorf("synth.consonant_duration 必须为正数: %g", c.Synth.ConsonantDuration)
	}
	switch c.Output.Format {
	case "dat", "wav":
	default:
		return fmt.Errorf("不支持的输出格式: %s", c.Output.Format)
	}
	switch c.Output.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("不支持的 WAV 位深: %d", c.Output.BitDepth)
	}
	return nil
}
