package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/hundredGrand/Singer/internal/logger"
	"github.com/hundredGrand/Singer/internal/song"
	"github.com/hundredGrand/Singer/internal/soundtable"
	"github.com/hundredGrand/Singer/internal/timeline"
)

const (
	// DefaultSampleRate 是输出采样率。
	DefaultSampleRate = 44100
	// DefaultConsonantDuration 是每个辅音片段的固定时长（秒）。
	DefaultConsonantDuration = 0.18
)

// sampleEpsilon 吸收 时长×采样率 的浮点误差，使 0.32s@44100 得到 14112 而不是 14111。
const sampleEpsilon = 1e-9

// NoteError 标明出错的音符。
type NoteError struct {
	Index int // 从 0 开始
	Note  song.Note
	Err   error
}

func (e *NoteError) Error() string {
	return fmt.Sprintf("第 %d 个音符（第 %d 行 %q）: %v", e.Index+1, e.Note.Line, e.Note.String(), e.Err)
}

func (e *NoteError) Unwrap() error { return e.Err }

// Stats 汇总一次渲染。
type Stats struct {
	Notes    int
	Samples  int
	Duration float64 // 秒，即结束时的时间游标
}

// Synthesizer 把音符序列展开成时间轴。它本身不可变，
// 同一个实例可以被多个 goroutine 用来渲染不同的歌曲；单首歌曲的渲染是顺序的。
type Synthesizer struct {
	tables       soundtable.Tables
	sampleRate   int
	consDuration float64
}

// Option 配置 Synthesizer。
type Option func(*Synthesizer)

// WithSampleRate 设置元音持续音的采样率。
func WithSampleRate(rate int) Option {
	return func(s *Synthesizer) { s.sampleRate = rate }
}

// New 创建合成器。辅音时长取自辅音表，保证片段长度与游标前进量一致。
func New(tables soundtable.Tables, opts ...Option) (*Synthesizer, error) {
	if tables.Vowels == nil || tables.Consonants == nil {
		return nil, errors.New("合成器需要元音表和辅音表")
	}
	s := &Synthesizer{
		tables:       tables,
		sampleRate:   DefaultSampleRate,
		consDuration: tables.Consonants.Duration(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sampleRate <= 0 {
		return nil, fmt.Errorf("采样率必须为正数: %d", s.sampleRate)
	}
	if !(s.consDuration > 0) {
		return nil, fmt.Errorf("辅音时长必须为正数: %g", s.consDuration)
	}
	return s, nil
}

// SampleRate 返回采样率。
func (s *Synthesizer) SampleRate() int { return s.sampleRate }

// ConsonantDuration 返回辅音固定时长。
func (s *Synthesizer) ConsonantDuration() float64 { return s.consDuration }

// SampleCount 返回时长 d 的元音在给定采样率下的样本数 floor(d×rate)。
// 结果超出 int 范围时饱和为 math.MaxInt，非正数和 NaN 返回 0。
func SampleCount(d float64, rate int) int {
	if !(d > 0) || rate <= 0 {
		return 0
	}
	n := math.Floor(d*float64(rate) + sampleEpsilon)
	if n >= math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

// Validate 在不产生任何样本的情况下检查每个音符的时长分配和查表，
// 以便在写输出之前发现所有致命错误。
func (s *Synthesizer) Validate(notes []song.Note) error {
	for i, n := range notes {
		if _, err := Allocate(n.Duration, n.Phonemes, s.consDuration); err != nil {
			return &NoteError{Index: i, Note: n, Err: err}
		}
		for _, sym := range n.Phonemes {
			var err error
			if sym.IsVowel() {
				_, err = s.tables.Vowels.Value(sym, n.Pitch)
			} else {
				_, err = s.tables.Consonants.Clip(sym, n.Pitch)
			}
			if err != nil {
				return &NoteError{Index: i, Note: n, Err: err}
			}
		}
	}
	return nil
}

// Render 按顺序展开所有音符，每产生一个样本调用一次 emit。
// 时间游标在音符之间不清零，整首歌共享一条连续的时间轴。
// emit 返回错误时渲染立即停止并返回该错误。
func (s *Synthesizer) Render(notes []song.Note, emit func(timeline.Sample) error) (Stats, error) {
	var st Stats
	cursor := 0.0
	for i, n := range notes {
		emitted, err := s.renderNote(n, &cursor, emit)
		st.Samples += emitted
		if err != nil {
			var ee emitError
			if errors.As(err, &ee) {
				return st, fmt.Errorf("写出样本失败: %w", ee.err)
			}
			return st, &NoteError{Index: i, Note: n, Err: err}
		}
		st.Notes++
	}
	st.Duration = cursor
	logger.Debugf("[synth] 渲染完成: %d 个音符, %d 个样本, %.3fs", st.Notes, st.Samples, st.Duration)
	return st, nil
}

// emitError 区分下游写出失败与音符本身的错误。
type emitError struct{ err error }

func (e emitError) Error() string { return e.err.Error() }

func (s *Synthesizer) renderNote(n song.Note, cursor *float64, emit func(timeline.Sample) error) (int, error) {
	durs, err := Allocate(n.Duration, n.Phonemes, s.consDuration)
	if err != nil {
		return 0, err
	}

	emitted := 0
	step := 1 / float64(s.sampleRate)
	for j, sym := range n.Phonemes {
		start := *cursor
		if sym.IsConsonant() {
			clip, err := s.tables.Consonants.Clip(sym, n.Pitch)
			if err != nil {
				return emitted, err
			}
			for _, c := range clip {
				if err := emit(timeline.Sample{Time: start + c.Time, Amplitude: c.Amplitude}); err != nil {
					return emitted, emitError{err}
				}
				emitted++
			}
			// 前进量固定，与片段实际样本数无关
			*cursor = start + s.consDuration
			continue
		}

		amp, err := s.tables.Vowels.Value(sym, n.Pitch)
		if err != nil {
			return emitted, err
		}
		count := SampleCount(durs[j], s.sampleRate)
		for k := 0; k < count; k++ {
			if err := emit(timeline.Sample{Time: start + float64(k)*step, Amplitude: amp}); err != nil {
				return emitted, emitError{err}
			}
			emitted++
		}
		*cursor = start + durs[j]
	}
	return emitted, nil
}

// RenderTo 把样本写入 w，不关闭 w。
func (s *Synthesizer) RenderTo(notes []song.Note, w timeline.Writer) (Stats, error) {
	return s.Render(notes, w.WriteSample)
}

// Collect 渲染并把全部样本收集到内存中。长歌曲请使用 Render 或 RenderTo。
func (s *Synthesizer) Collect(notes []song.Note) ([]timeline.Sample, Stats, error) {
	var sw timeline.SliceWriter
	st, err := s.RenderTo(notes, &sw)
	if err != nil {
		return nil, st, err
	}
	return sw.Samples, st, nil
}
