package phoneme

import (
	"errors"
	"fmt"
)

// ErrUnknownSymbol 表示音标字符不在字母表中。
var ErrUnknownSymbol = errors.New("未知的音标符号")

// Class 音素类别。
type Class int

const (
	// Vowel 元音。
	Vowel Class = iota
	// Consonant 辅音。
	Consonant
)

func (c Class) String() string {
	if c == Vowel {
		return "vowel"
	}
	return "consonant"
}

// Symbol 是字母表中的一个音标。零值不是合法音标。
//
// 与 ASCII 冲突的双字母音用数字编码：
//
//	1 = ch    2 = sh    4 = ng
//	0 = th（清音）    9 = th（浊音）    8 = zh
type Symbol uint8

const (
	invalid Symbol = iota

	// 元音
	VowelCat    // a（cat）
	VowelFather // A（dog）
	VowelAble   // e（able）
	VowelBee    // i（bee）
	VowelBed    // 3（edible）
	VowelIn     // I（in）
	VowelBoat   // o（boat）
	VowelMove   // O（move）
	VowelBook   // U（book）
	VowelUp     // u（up）

	// 辅音
	M
	B
	D
	G
	F
	H
	J
	L
	N
	R
	K
	P
	S
	T
	Z
	Ch
	Sh
	Ng
	ThUnvoiced
	ThVoiced
	Zh

	numSymbols
)

type symbolInfo struct {
	code   rune
	class  Class
	voiced bool
	name   string
}

var symbols = [numSymbols]symbolInfo{
	VowelCat:    {'a', Vowel, true, "a"},
	VowelFather: {'A', Vowel, true, "A"},
	VowelAble:   {'e', Vowel, true, "e"},
	VowelBee:    {'i', Vowel, true, "i"},
	VowelBed:    {'3', Vowel, true, "eh"},
	VowelIn:     {'I', Vowel, true, "ih"},
	VowelBoat:   {'o', Vowel, true, "o"},
	VowelMove:   {'O', Vowel, true, "oo"},
	VowelBook:   {'U', Vowel, true, "u"},
	VowelUp:     {'u', Vowel, true, "uh"},

	M:          {'m', Consonant, true, "m"},
	B:          {'b', Consonant, true, "b"},
	D:          {'d', Consonant, true, "d"},
	G:          {'g', Consonant, true, "g"},
	F:          {'f', Consonant, false, "f"},
	H:          {'h', Consonant, false, "h"},
	J:          {'j', Consonant, true, "j"},
	L:          {'l', Consonant, true, "l"},
	N:          {'n', Consonant, true, "n"},
	R:          {'r', Consonant, true, "r"},
	K:          {'k', Consonant, false, "k"},
	P:          {'p', Consonant, false, "p"},
	S:          {'s', Consonant, false, "s"},
	T:          {'t', Consonant, false, "t"},
	Z:          {'z', Consonant, true, "z"},
	Ch:         {'1', Consonant, false, "ch"},
	Sh:         {'2', Consonant, false, "sh"},
	Ng:         {'4', Consonant, true, "ng"},
	ThUnvoiced: {'0', Consonant, false, "th"},
	ThVoiced:   {'9', Consonant, true, "dh"},
	Zh:         {'8', Consonant, true, "zh"},
}

// byCode 由 symbols 表反向生成，保证两者一致。
var byCode = func() map[rune]Symbol {
	m := make(map[rune]Symbol, numSymbols)
	for s := VowelCat; s < numSymbols; s++ {
		m[symbols[s].code] = s
	}
	return m
}()

// ParseSymbol 将单个音标字符解析为 Symbol。
func ParseSymbol(r rune) (Symbol, error) {
	s, ok := byCode[r]
	if !ok {
		return invalid, fmt.Errorf("%w: %q", ErrUnknownSymbol, r)
	}
	return s, nil
}

// Parse 按从左到右的演唱顺序拆分音标串。
func Parse(s string) ([]Symbol, error) {
	out := make([]Symbol, 0, len(s))
	for i, r := range s {
		sym, err := ParseSymbol(r)
		if err != nil {
			return nil, fmt.Errorf("音标串 %q 第 %d 个字符: %w", s, i+1, err)
		}
		out = append(out, sym)
	}
	return out, nil
}

// All 返回字母表中的全部音标，按定义顺序。
func All() []Symbol {
	out := make([]Symbol, 0, numSymbols-1)
	for s := VowelCat; s < numSymbols; s++ {
		out = append(out, s)
	}
	return out
}

// Consonants 返回全部辅音。
func Consonants() []Symbol {
	var out []Symbol
	for _, s := range All() {
		if s.IsConsonant() {
			out = append(out, s)
		}
	}
	return out
}

// Valid 报告 s 是否属于字母表。
func (s Symbol) Valid() bool {
	return s > invalid && s < numSymbols
}

// Class 返回音素类别。对非法音标返回 Consonant，调用方应先检查 Valid。
func (s Symbol) Class() Class {
	if !s.Valid() {
		return Consonant
	}
	return symbols[s].class
}

// IsVowel 报告是否为元音。
func (s Symbol) IsVowel() bool { return s.Valid() && symbols[s].class == Vowel }

// IsConsonant 报告是否为辅音。
func (s Symbol) IsConsonant() bool { return s.Valid() && symbols[s].class == Consonant }

// IsVoiced 报告辅音是否为浊音。浊辅音的采样随音高变化；元音返回 false。
func (s Symbol) IsVoiced() bool {
	return s.IsConsonant() && symbols[s].voiced
}

// Code 返回音标在输入文件和素材文件名中使用的字符。
func (s Symbol) Code() rune {
	if !s.Valid() {
		return '?'
	}
	return symbols[s].code
}

// Name 返回便于阅读的名称，如 "ch"、"ng"。
func (s Symbol) Name() string {
	if !s.Valid() {
		return "invalid"
	}
	return symbols[s].name
}

func (s Symbol) String() string {
	return string(s.Code())
}

// Count 统计辅音和元音数量。
func Count(syms []Symbol) (consonants, vowels int) {
	for _, s := range syms {
		if s.IsVowel() {
			vowels++
		} else {
			consonants++
		}
	}
	return consonants, vowels
}

// Join 将音标序列还原为输入文件中的音标串。
func Join(syms []Symbol) string {
	buf := make([]rune, len(syms))
	for i, s := range syms {
		buf[i] = s.Code()
	}
	return string(buf)
}
