package soundtable

import (
	"errors"
	"fmt"

	"github.com/hundredGrand/Singer/internal/phoneme"
	"github.com/hundredGrand/Singer/internal/pitch"
	"github.com/hundredGrand/Singer/internal/timeline"
)

var (
	// ErrMissingVowel 表示元音表中没有该音标与音高的组合。
	ErrMissingVowel = errors.New("元音表缺少条目")
	// ErrMissingConsonant 表示没有该辅音（浊辅音还需匹配音高）的样本片段。
	ErrMissingConsonant = errors.New("辅音样本缺失")
	// ErrNotVowel 表示用辅音查元音表，或反之。
	ErrNotVowel = errors.New("音标不是元音")
	// ErrNotConsonant 表示用元音查辅音表。
	ErrNotConsonant = errors.New("音标不是辅音")
	// ErrDuplicateClip 表示两个片段文件对应同一个查表键。
	ErrDuplicateClip = errors.New("辅音片段重复")
)

// Key 是查表用的复合键。清辅音的 Pitch 固定为 pitch.None。
type Key struct {
	Symbol phoneme.Symbol
	Pitch  pitch.Pitch
}

// KeyFor 返回 sym 在音高 p 下的查表键：清辅音与音高无关。
func KeyFor(sym phoneme.Symbol, p pitch.Pitch) Key {
	if sym.IsConsonant() && !sym.IsVoiced() {
		return Key{Symbol: sym, Pitch: pitch.None}
	}
	return Key{Symbol: sym, Pitch: p}
}

func (k Key) String() string {
	if k.Pitch == pitch.None {
		return k.Symbol.String()
	}
	return k.Symbol.String() + "_" + k.Pitch.String()
}

// VowelTable 元音 (音标, 音高) → 持续音振幅。构造后只读。
type VowelTable struct {
	values map[Key]float64
}

// NewVowelTable 由现成的映射构造元音表，会复制 values。
func NewVowelTable(values map[Key]float64) (*VowelTable, error) {
	m := make(map[Key]float64, len(values))
	for k, v := range values {
		if !k.Symbol.IsVowel() {
			return nil, fmt.Errorf("%w: %s", ErrNotVowel, k)
		}
		m[k] = v
	}
	return &VowelTable{values: m}, nil
}

// Value 查询元音振幅。
func (t *VowelTable) Value(sym phoneme.Symbol, p pitch.Pitch) (float64, error) {
	if !sym.IsVowel() {
		return 0, fmt.Errorf("%w: %s", ErrNotVowel, sym)
	}
	v, ok := t.values[Key{Symbol: sym, Pitch: p}]
	if !ok {
		return 0, fmt.Errorf("%w: 音标 %s 音高 %s", ErrMissingVowel, sym, p)
	}
	return v, nil
}

// Len 返回条目数。
func (t *VowelTable) Len() int { return len(t.values) }

// ConsonantTable 辅音 (音标[, 音高]) → 固定时长的样本片段。构造后只读。
type ConsonantTable struct {
	clips    map[Key][]timeline.Sample
	duration float64
}

// NewConsonantTable 由现成的片段构造辅音表，校验每个片段的偏移都落在 [0, duration) 内且单调不减。
func NewConsonantTable(clips map[Key][]timeline.Sample, duration float64) (*ConsonantTable, error) {
	m := make(map[Key][]timeline.Sample, len(clips))
	for k, samples := range clips {
		if !k.Symbol.IsConsonant() {
			return nil, fmt.Errorf("%w: %s", ErrNotConsonant, k)
		}
		if KeyFor(k.Symbol, k.Pitch) != k {
			return nil, fmt.Errorf("辅音 %s 的键与清浊属性不符", k)
		}
		if err := validateClip(samples, duration); err != nil {
			return nil, fmt.Errorf("辅音片段 %s: %w", k, err)
		}
		cp := make([]timeline.Sample, len(samples))
		copy(cp, samples)
		m[k] = cp
	}
	return &ConsonantTable{clips: m, duration: duration}, nil
}

func validateClip(samples []timeline.Sample, duration float64) error {
	if len(samples) == 0 {
		return errors.New("片段为空")
	}
	if err := timeline.Monotonic(samples); err != nil {
		return err
	}
	if first := samples[0].Time; first < 0 {
		return fmt.Errorf("偏移 %g 小于 0", first)
	}
	if last := samples[len(samples)-1].Time; last >= duration {
		return fmt.Errorf("偏移 %g 超出片段时长 %g", last, duration)
	}
	return nil
}

// Clip 返回辅音片段：浊辅音按 (音标, 音高) 查询，清辅音只按音标查询。
// 返回的切片与表共享底层数组，调用方不得修改。
func (t *ConsonantTable) Clip(sym phoneme.Symbol, p pitch.Pitch) ([]timeline.Sample, error) {
	if !sym.IsConsonant() {
		return nil, fmt.Errorf("%w: %s", ErrNotConsonant, sym)
	}
	key := KeyFor(sym, p)
	clip, ok := t.clips[key]
	if !ok {
		if sym.IsVoiced() {
			return nil, fmt.Errorf("%w: 浊辅音 %s 音高 %s", ErrMissingConsonant, sym, p)
		}
		return nil, fmt.Errorf("%w: 清辅音 %s", ErrMissingConsonant, sym)
	}
	return clip, nil
}

// Duration 返回片段的固定时长（秒）。
func (t *ConsonantTable) Duration() float64 { return t.duration }

// Len 返回片段数。
func (t *ConsonantTable) Len() int { return len(t.clips) }

// Tables 汇总两张表，作为合成器的只读输入。
type Tables struct {
	Vowels     *VowelTable
	Consonants *ConsonantTable
}
