package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/hundredGrand/Singer/internal/timeline"
)

// wavChunkSize 每次交给编码器的样本数
const wavChunkSize = 4096

// WAVWriter 把时间轴样本按顺序编码为单声道 PCM WAV。
// WAV 没有时间列，样本时间戳被丢弃，播放时按采样率等间隔排列。
type WAVWriter struct {
	enc      *wav.Encoder
	dst      io.WriteSeeker
	bitDepth int
	rate     int
	pending  []float64
	count    int
	closed   bool
}

// NewWAVWriter 在 w 上创建 WAV 编码器。
func NewWAVWriter(w io.WriteSeeker, sampleRate, bitDepth int) (*WAVWriter, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("采样率必须为正数: %d", sampleRate)
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("不支持的 WAV 位深: %d", bitDepth)
	}
	return &WAVWriter{
		enc:      wav.NewEncoder(w, sampleRate, bitDepth, 1, 1),
		dst:      w,
		bitDepth: bitDepth,
		rate:     sampleRate,
		pending:  make([]float64, 0, wavChunkSize),
	}, nil
}

// CreateWAV 创建 path 并返回写入它的 WAVWriter，Close 时关闭文件。
func CreateWAV(path string, sampleRate, bitDepth int) (*WAVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("创建 WAV 文件 %s 失败: %w", path, err)
	}
	w, err := NewWAVWriter(f, sampleRate, bitDepth)
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// WriteSample 实现 timeline.Writer。
func (w *WAVWriter) WriteSample(s timeline.Sample) error {
	if w.closed {
		return fmt.Errorf("WAV 输出已关闭")
	}
	w.pending = append(w.pending, s.Amplitude)
	w.count++
	if len(w.pending) >= wavChunkSize {
		return w.flush()
	}
	return nil
}

func (w *WAVWriter) flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: w.rate},
		Data:           Quantize(w.pending, w.bitDepth),
		SourceBitDepth: w.bitDepth,
	}
	w.pending = w.pending[:0]
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("写入 WAV 失败: %w", err)
	}
	return nil
}

// Count 返回已写入的样本数。
func (w *WAVWriter) Count() int { return w.count }

// Close 写出剩余样本并补全 WAV 头；底层是 io.Closer 时一并关闭。
func (w *WAVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.flush()
	if cerr := w.enc.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("关闭 WAV 编码器失败: %w", cerr)
	}
	if c, ok := w.dst.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// WriteWAV 把单声道 int16 PCM 写成 16 位 WAV 文件。
func WriteWAV(path string, pcm []int16, sampleRate int) error {
	w, err := CreateWAV(path, sampleRate, 16)
	if err != nil {
		return err
	}
	for _, v := range Int16ToFloat64(pcm) {
		if err := w.WriteSample(timeline.Sample{Amplitude: v}); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// ReadWAV 读取 WAV 文件，多声道取第一声道，返回归一化振幅与采样率。
func ReadWAV(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("打开 WAV 文件 %s 失败: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%s 不是有效的 WAV 文件", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("解码 WAV 文件 %s 失败: %w", path, err)
	}

	chans := int(dec.NumChans)
	if chans < 1 {
		chans = 1
	}
	depth := int(dec.BitDepth)
	maxVal := float64(int64(1)<<(depth-1) - 1)
	out := make([]float64, 0, len(buf.Data)/chans)
	for i := 0; i < len(buf.Data); i += chans {
		v := buf.Data[i]
		if depth == 8 {
			v -= 128
		}
		out = append(out, float64(v)/maxVal)
	}
	return out, int(dec.SampleRate), nil
}
