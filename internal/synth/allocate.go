package synth

import (
	"errors"
	"fmt"
	"math"

	"github.com/hundredGrand/Singer/internal/phoneme"
)

var (
	// ErrInvalidDuration 表示音符时长不是 (0, MaxNoteDuration] 内的有限数。
	ErrInvalidDuration = errors.New("音符时长无效")
	// ErrNoVowels 表示音符没有元音，无法分配持续音时长。
	ErrNoVowels = errors.New("音符没有元音")
	// ErrConsonantBudget 表示辅音固定时长之和超过了音符时长。
	ErrConsonantBudget = errors.New("辅音总时长超过音符时长")
)

// MaxNoteDuration 是单个音符允许的最长时长（秒）。
// 上限保证 时长×采样率 在 int 范围内，样本数不会溢出。
const MaxNoteDuration = 3600.0

// Allocate 计算每个音素的时长：辅音固定为 consDuration，
// 剩余时间由元音平分。返回值与 syms 一一对应，总和等于 total。
func Allocate(total float64, syms []phoneme.Symbol, consDuration float64) ([]float64, error) {
	if !(total > 0) || math.IsInf(total, 0) || total > MaxNoteDuration {
		return nil, fmt.Errorf("%w: %g，允许范围 (0, %g] 秒", ErrInvalidDuration, total, MaxNoteDuration)
	}

	consonants, vowels := phoneme.Count(syms)
	if vowels == 0 {
		return nil, fmt.Errorf("%w: %d 个辅音", ErrNoVowels, consonants)
	}

	var vowelDur float64
	if consonants == 0 {
		vowelDur = total / float64(vowels)
	} else {
		budget := consDuration * float64(consonants)
		if budget > total {
			return nil, fmt.Errorf("%w: %d×%gs = %gs > %gs", ErrConsonantBudget, consonants, consDuration, budget, total)
		}
		vowelDur = (total - budget) / float64(vowels)
	}

	out := make([]float64, len(syms))
	for i, s := range syms {
		if s.IsVowel() {
			out[i] = vowelDur
		} else {
			out[i] = consDuration
		}
	}
	return out, nil
}
