package shifter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	"github.com/hundredGrand/Singer/internal/audio"
	"github.com/hundredGrand/Singer/internal/catalog"
	"github.com/hundredGrand/Singer/internal/logger"
	"github.com/hundredGrand/Singer/internal/pitch"
)

// Config 描述一批移调任务。
type Config struct {
	// Command 命令前缀，例如 "sox" 或 "sox -q"。
	Command        string
	Reference      string
	ReferencePitch pitch.Pitch
	Low            pitch.Pitch
	High           pitch.Pitch
	Prefix         string
	Extension      string
	OutputDir      string
}

// Target 是一个目标音高及其相对参考音高的音分偏移。
type Target struct {
	Pitch pitch.Pitch
	Cents int
}

// Result 是一次调用的结果，Err 为 nil 表示成功。
type Result struct {
	Target
	Output string
	Err    error
}

// OK 报告调用是否成功。
func (r Result) OK() bool { return r.Err == nil }

// Recorder 接收每次调用的记录，*catalog.Catalog 满足此接口。
type Recorder interface {
	RecordAsset(a catalog.Asset) (int64, error)
}

// Shifter 对一段参考录音逐个音高调用外部工具，生成半音阶素材。
type Shifter struct {
	cfg      Config
	argv     []string
	targets  []Target
	runner   Runner
	recorder Recorder
}

// Option 配置 Shifter。
type Option func(*Shifter)

// WithRunner 替换命令执行方式。
func WithRunner(r Runner) Option {
	return func(s *Shifter) { s.runner = r }
}

// WithRecorder 设置调用记录的接收者。
func WithRecorder(r Recorder) Option {
	return func(s *Shifter) { s.recorder = r }
}

// Targets 返回 [low, high] 内每个半音及其相对 ref 的音分偏移。
func Targets(ref, low, high pitch.Pitch) []Target {
	pitches := pitch.Range(low, high)
	targets := make([]Target, len(pitches))
	for i, p := range pitches {
		targets[i] = Target{Pitch: p, Cents: p.CentsFrom(ref)}
	}
	return targets
}

// New 解析命令前缀并计算目标音高。
func New(cfg Config, opts ...Option) (*Shifter, error) {
	argv, err := shellwords.NewParser().Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("解析移调命令失败: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("移调命令为空")
	}
	if cfg.Reference == "" {
		return nil, errors.New("未指定参考录音")
	}
	if cfg.ReferencePitch == pitch.None {
		return nil, errors.New("未指定参考音高")
	}
	targets := Targets(cfg.ReferencePitch, cfg.Low, cfg.High)
	if len(targets) == 0 {
		return nil, fmt.Errorf("音高范围无效: %s..%s", cfg.Low, cfg.High)
	}
	if cfg.Prefix == "" {
		return nil, errors.New("输出前缀为空")
	}
	cfg.Extension = strings.TrimPrefix(cfg.Extension, ".")
	if cfg.Extension == "" {
		cfg.Extension = "wav"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	s := &Shifter{
		cfg:     cfg,
		argv:    argv,
		targets: targets,
		runner:  ExecRunner{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Targets 返回本批次的全部目标。
func (s *Shifter) Targets() []Target { return s.targets }

// OutputPath 返回目标音高的输出文件路径 <dir>/<prefix>_<pitch>.<ext>。
func (s *Shifter) OutputPath(p pitch.Pitch) string {
	return filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%s_%s.%s", s.cfg.Prefix, p, s.cfg.Extension))
}

// Run 依次执行所有移调。单次调用失败只记录日志并写入结果，批次继续；
// 参考录音不可用或 ctx 被取消时返回错误，此时 Result 只包含已执行的部分。
func (s *Shifter) Run(ctx context.Context) ([]Result, error) {
	if _, err := os.Stat(s.cfg.Reference); err != nil {
		return nil, fmt.Errorf("参考录音不可用: %w", err)
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	input, cleanup, err := s.prepareInput()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	logger.Infof("[shifter] 开始生成 %d 个移调素材: %s (参考 %s)", len(s.targets), s.cfg.Reference, s.cfg.ReferencePitch)

	results := make([]Result, 0, len(s.targets))
	for _, t := range s.targets {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		out := s.OutputPath(t.Pitch)
		args := append(append([]string{}, s.argv[1:]...), input, out, "pitch", strconv.Itoa(t.Cents))
		runErr := s.runner.Run(ctx, s.argv[0], args)
		if runErr != nil {
			logger.Warnf("[shifter] %s (%+d 音分) 生成失败: %v", t.Pitch, t.Cents, runErr)
		} else {
			logger.Debugf("[shifter] 已生成 %s", out)
		}

		r := Result{Target: t, Output: out, Err: runErr}
		results = append(results, r)
		s.record(r)
	}

	failed := Failures(results)
	logger.Infof("[shifter] 完成: 成功 %d 个, 失败 %d 个", len(results)-failed, failed)
	return results, nil
}

// prepareInput 把 MP3 参考录音转换为临时 WAV，其余格式原样使用。
func (s *Shifter) prepareInput() (string, func(), error) {
	if !strings.EqualFold(filepath.Ext(s.cfg.Reference), ".mp3") {
		return s.cfg.Reference, func() {}, nil
	}

	tmpFile, err := os.CreateTemp("", "singer-ref-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("创建临时文件失败: %w", err)
	}
	wavPath := tmpFile.Name()
	tmpFile.Close()

	if err := audio.MP3ToWAV(s.cfg.Reference, wavPath); err != nil {
		os.Remove(wavPath)
		return "", nil, fmt.Errorf("转换参考录音失败: %w", err)
	}
	logger.Debugf("[shifter] MP3 参考录音已转换为 %s", wavPath)
	return wavPath, func() { os.Remove(wavPath) }, nil
}

func (s *Shifter) record(r Result) {
	if s.recorder == nil {
		return
	}
	a := catalog.Asset{
		Prefix: s.cfg.Prefix,
		Pitch:  r.Pitch.String(),
		Cents:  r.Cents,
		Path:   r.Output,
		OK:     r.OK(),
	}
	if r.Err != nil {
		a.Error = r.Err.Error()
	}
	if _, err := s.recorder.RecordAsset(a); err != nil {
		logger.Warnf("[shifter] 记录素材失败: %v", err)
	}
}

// Failures 统计失败的调用数。
func Failures(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}
