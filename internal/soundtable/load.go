package soundtable

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hundredGrand/Singer/internal/logger"
	"github.com/hundredGrand/Singer/internal/phoneme"
	"github.com/hundredGrand/Singer/internal/pitch"
	"github.com/hundredGrand/Singer/internal/timeline"
)

// ParseKey 解析素材命名中的 "音标_音高" 或单独的 "音标"。
func ParseKey(s string) (Key, error) {
	symPart, pitchPart, hasPitch := strings.Cut(s, "_")
	runes := []rune(symPart)
	if len(runes) != 1 {
		return Key{}, fmt.Errorf("键 %q: 音标必须是单个字符", s)
	}
	sym, err := phoneme.ParseSymbol(runes[0])
	if err != nil {
		return Key{}, fmt.Errorf("键 %q: %w", s, err)
	}
	if !hasPitch {
		return Key{Symbol: sym, Pitch: pitch.None}, nil
	}
	p, err := pitch.Parse(pitchPart)
	if err != nil {
		return Key{}, fmt.Errorf("键 %q: %w", s, err)
	}
	return Key{Symbol: sym, Pitch: p}, nil
}

// LoadVowelFile 读取元音表文件。
func LoadVowelFile(path string) (*VowelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开元音表 %s 失败: %w", path, err)
	}
	defer f.Close()

	t, err := LoadVowels(f)
	if err != nil {
		return nil, fmt.Errorf("解析元音表 %s 失败: %w", path, err)
	}
	return t, nil
}

// LoadVowels 解析空白分隔的 "音标_音高 振幅" 记录，一行可以有多对。
func LoadVowels(r io.Reader) (*VowelTable, error) {
	values := make(map[Key]float64)
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if len(fields)%2 != 0 {
			return nil, fmt.Errorf("第 %d 行: 键和值必须成对出现", line)
		}
		for i := 0; i < len(fields); i += 2 {
			key, err := ParseKey(fields[i])
			if err != nil {
				return nil, fmt.Errorf("第 %d 行: %w", line, err)
			}
			if !key.Symbol.IsVowel() {
				return nil, fmt.Errorf("第 %d 行: %w: %s", line, ErrNotVowel, fields[i])
			}
			if key.Pitch == pitch.None {
				return nil, fmt.Errorf("第 %d 行: 元音键 %q 缺少音高", line, fields[i])
			}
			v, err := strconv.ParseFloat(fields[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行: 振幅 %q 不是数字", line, fields[i+1])
			}
			if _, dup := values[key]; dup {
				logger.Warnf("[soundtable] 元音表第 %d 行重复定义 %s，以后者为准", line, key)
			}
			values[key] = v
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewVowelTable(values)
}

// LoadConsonantDir 从目录读取辅音片段：清辅音为 <code>.dat（必须存在），
// 浊辅音为 <code>_<音高>.dat（每个浊辅音至少一个音高）。
// 降号与升号写法指向同一音高（b_Db4.dat 与 b_C#4.dat），同时存在时返回 ErrDuplicateClip。
// sampleRate 用于校验片段头部声明的采样率，不一致时只记警告。
func LoadConsonantDir(dir string, duration float64, sampleRate int) (*ConsonantTable, error) {
	clips := make(map[Key][]timeline.Sample)
	sources := make(map[Key]string)

	for _, sym := range phoneme.Consonants() {
		var paths []string
		if sym.IsVoiced() {
			matches, err := filepath.Glob(filepath.Join(dir, string(sym.Code())+"_*.dat"))
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("%w: 浊辅音 %s (%s) 在 %s 中没有任何音高的片段", ErrMissingConsonant, sym, sym.Name(), dir)
			}
			paths = matches
		} else {
			paths = []string{filepath.Join(dir, string(sym.Code())+".dat")}
		}

		for _, path := range paths {
			key, err := ParseKey(strings.TrimSuffix(filepath.Base(path), ".dat"))
			if err != nil {
				return nil, fmt.Errorf("辅音片段文件名 %s: %w", path, err)
			}
			clip, err := timeline.ReadDatFile(path)
			if err != nil {
				return nil, err
			}
			if clip.SampleRate != 0 && clip.SampleRate != sampleRate {
				logger.Warnf("[soundtable] 片段 %s 采样率 %d 与输出采样率 %d 不一致", path, clip.SampleRate, sampleRate)
			}
			if prev, dup := sources[key]; dup {
				return nil, fmt.Errorf("%w: %s 与 %s 都对应 %s", ErrDuplicateClip, prev, path, key)
			}
			sources[key] = path
			clips[key] = clip.Samples
		}
	}

	t, err := NewConsonantTable(clips, duration)
	if err != nil {
		return nil, err
	}
	logger.Infof("[soundtable] 已加载 %d 个辅音片段: %s", t.Len(), dir)
	return t, nil
}

// Load 在合成开始前一次性构造两张表。
func Load(vowelPath, consonantDir string, duration float64, sampleRate int) (Tables, error) {
	vowels, err := LoadVowelFile(vowelPath)
	if err != nil {
		return Tables{}, err
	}
	logger.Infof("[soundtable] 已加载 %d 个元音条目: %s", vowels.Len(), vowelPath)

	consonants, err := LoadConsonantDir(consonantDir, duration, sampleRate)
	if err != nil {
		return Tables{}, err
	}
	return Tables{Vowels: vowels, Consonants: consonants}, nil
}
