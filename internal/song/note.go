package song

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/hundredGrand/Singer/internal/logger"
	"github.com/hundredGrand/Singer/internal/phoneme"
	"github.com/hundredGrand/Singer/internal/pitch"
)

// ErrMalformedRecord 表示歌曲文件中的某一行不是 "时长 音标串 音高" 格式。
var ErrMalformedRecord = errors.New("歌曲记录格式错误")

// Note 是一个演唱音符。解析后不可修改。
type Note struct {
	Duration float64          // 秒
	Phonemes []phoneme.Symbol // 演唱顺序
	Pitch    pitch.Pitch
	Line     int // 来源行号，用于报错
}

func (n Note) String() string {
	return fmt.Sprintf("%g %s %s", n.Duration, phoneme.Join(n.Phonemes), n.Pitch)
}

// Load 读取歌曲文件。
func Load(path string) ([]Note, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开歌曲文件 %s 失败: %w", path, err)
	}
	defer f.Close()

	notes, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("解析歌曲文件 %s 失败: %w", path, err)
	}
	logger.Infof("[song] 已读取 %d 个音符: %s", len(notes), path)
	return notes, nil
}

// Parse 逐行读取 "时长 音标串 音高" 记录，按文件顺序返回。
// 空行和以 # 开头的行被忽略。
func Parse(r io.Reader) ([]Note, error) {
	var notes []Note
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		n, err := parseRecord(text)
		if err != nil {
			return nil, fmt.Errorf("第 %d 行: %w", line, err)
		}
		n.Line = line
		notes = append(notes, n)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取歌曲数据失败: %w", err)
	}
	return notes, nil
}

func parseRecord(text string) (Note, error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return Note{}, fmt.Errorf("%w: 需要 3 个字段，实际 %d 个", ErrMalformedRecord, len(fields))
	}

	dur, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(dur) || math.IsInf(dur, 0) {
		return Note{}, fmt.Errorf("%w: 时长 %q 不是有限数字", ErrMalformedRecord, fields[0])
	}

	syms, err := phoneme.Parse(fields[1])
	if err != nil {
		return Note{}, err
	}

	p, err := pitch.Parse(fields[2])
	if err != nil {
		return Note{}, err
	}

	return Note{Duration: dur, Phonemes: syms, Pitch: p}, nil
}
