package timeline

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Clip 是从 .dat 文件读出的一段样本。
type Clip struct {
	SampleRate int // 头部声明的采样率，未声明时为 0
	Channels   int
	Samples    []Sample
}

// Duration 返回最后一个样本的时间偏移，空片段返回 0。
func (c Clip) Duration() float64 {
	if len(c.Samples) == 0 {
		return 0
	}
	return c.Samples[len(c.Samples)-1].Time
}

// ReadDatFile 读取 sox 格式的 .dat 文件。
func ReadDatFile(path string) (Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return Clip{}, fmt.Errorf("打开样本文件 %s 失败: %w", path, err)
	}
	defer f.Close()

	clip, err := ReadDat(f)
	if err != nil {
		return Clip{}, fmt.Errorf("解析样本文件 %s 失败: %w", path, err)
	}
	return clip, nil
}

// ReadDat 解析 sox 格式的 .dat 数据：以 ; 开头的头部行，之后每行 "时间 振幅"。
// 多声道数据只取第一个声道。
func ReadDat(r io.Reader) (Clip, error) {
	var clip Clip
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, ";") {
			parseHeader(&clip, strings.TrimSpace(text[1:]))
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			return Clip{}, fmt.Errorf("第 %d 行: 需要时间和振幅两列", line)
		}
		t, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Clip{}, fmt.Errorf("第 %d 行: 时间 %q: %w", line, fields[0], err)
		}
		a, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Clip{}, fmt.Errorf("第 %d 行: 振幅 %q: %w", line, fields[1], err)
		}
		clip.Samples = append(clip.Samples, Sample{Time: t, Amplitude: a})
	}
	if err := scanner.Err(); err != nil {
		return Clip{}, err
	}
	return clip, nil
}

func parseHeader(clip *Clip, header string) {
	if v, ok := strings.CutPrefix(header, "Sample Rate"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			clip.SampleRate = n
		}
		return
	}
	if v, ok := strings.CutPrefix(header, "Channels"); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			clip.Channels = n
		}
	}
}

// DatWriter 以 .dat 文本格式写出时间轴：两行头部，之后每个样本一行，
// 时间和振幅以制表符分隔，定宽定精度。
type DatWriter struct {
	w      *bufio.Writer
	closer io.Closer
	count  int
}

// NewDatWriter 写出头部并返回 DatWriter。w 实现 io.Closer 时 Close 会一并关闭。
func NewDatWriter(w io.Writer, sampleRate, channels int) (*DatWriter, error) {
	dw := &DatWriter{w: bufio.NewWriterSize(w, 64*1024)}
	if c, ok := w.(io.Closer); ok {
		dw.closer = c
	}
	if _, err := fmt.Fprintf(dw.w, "; Sample Rate %d\n; Channels %d\n", sampleRate, channels); err != nil {
		return nil, fmt.Errorf("写入 .dat 头部失败: %w", err)
	}
	return dw, nil
}

// CreateDat 创建 .dat 文件。
func CreateDat(path string, sampleRate, channels int) (*DatWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("创建输出文件 %s 失败: %w", path, err)
	}
	dw, err := NewDatWriter(f, sampleRate, channels)
	if err != nil {
		f.Close()
		return nil, err
	}
	return dw, nil
}

// WriteSample 实现 Writer。
func (d *DatWriter) WriteSample(s Sample) error {
	d.count++
	_, err := fmt.Fprintf(d.w, "  %#14.8g\t%#10.6g\n", s.Time, s.Amplitude)
	return err
}

// Count 返回已写出的样本数。
func (d *DatWriter) Count() int { return d.count }

// Close 刷新缓冲区；底层是 io.Closer 时无论刷新是否成功都会关闭它。
func (d *DatWriter) Close() error {
	var errs []error
	if err := d.w.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("刷新 .dat 输出失败: %w", err))
	}
	if d.closer != nil {
		if err := d.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭 .dat 输出失败: %w", err))
		}
	}
	return errors.Join(errs...)
}
