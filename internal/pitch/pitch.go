package pitch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPitch 表示无法识别的音名。
var ErrInvalidPitch = errors.New("无法识别的音名")

// Pitch 是以 MIDI 音符编号表示的音高，C4 = 60。
type Pitch int16

// None 表示"不区分音高"，用于清辅音的查表键。
const None Pitch = -1

const (
	minMIDI = 0
	maxMIDI = 127
)

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var letterSemitone = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// Parse 解析 "C4"、"F#3"、"Db5" 形式的音名。降号统一换算为升号，
// 因此 Parse("Db4") == Parse("C#4")。
func Parse(name string) (Pitch, error) {
	s := strings.TrimSpace(name)
	if len(s) < 2 {
		return None, fmt.Errorf("%w: %q", ErrInvalidPitch, name)
	}

	base, ok := letterSemitone[upper(s[0])]
	if !ok {
		return None, fmt.Errorf("%w: %q", ErrInvalidPitch, name)
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}

	if !isOctave(rest) {
		return None, fmt.Errorf("%w: %q", ErrInvalidPitch, name)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return None, fmt.Errorf("%w: %q", ErrInvalidPitch, name)
	}

	midi := (octave+1)*12 + base
	if midi < minMIDI || midi > maxMIDI {
		return None, fmt.Errorf("%w: %q 超出范围", ErrInvalidPitch, name)
	}
	return Pitch(midi), nil
}

// MustParse 同 Parse，出错时 panic。仅用于常量表和测试。
func MustParse(name string) Pitch {
	p, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return p
}

// isOctave 报告 s 是否为可选负号加十进制数字。
func isOctave(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// Octave 返回科学音高记号中的八度。
func (p Pitch) Octave() int {
	return int(p)/12 - 1
}

// String 返回升号形式的音名，如 "C#4"。
func (p Pitch) String() string {
	if p == None {
		return "-"
	}
	return fmt.Sprintf("%s%d", sharpNames[int(p)%12], p.Octave())
}

// CentsFrom 返回从 ref 移调到 p 所需的音分数（每个半音 100 音分）。
func (p Pitch) CentsFrom(ref Pitch) int {
	return 100 * (int(p) - int(ref))
}

// Range 返回 [low, high] 闭区间内的半音阶。low > high 时返回 nil。
func Range(low, high Pitch) []Pitch {
	if low == None || high == None || low > high {
		return nil
	}
	out := make([]Pitch, 0, int(high-low)+1)
	for p := low; p <= high; p++ {
		out = append(out, p)
	}
	return out
}
