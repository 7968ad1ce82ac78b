// Package timeline 定义合成输出的 (时间, 振幅) 样本以及 .dat 文本格式的读写。
package timeline

import (
	"errors"
	"fmt"
)

// ErrNotMonotonic 表示样本时间出现回退。
var ErrNotMonotonic = errors.New("样本时间不是单调不减的")

// Sample 是时间轴上的一个点。
type Sample struct {
	Time      float64 // 秒，从歌曲开头算起
	Amplitude float64
}

// Writer 接收按时间顺序产生的样本。
type Writer interface {
	WriteSample(s Sample) error
	Close() error
}

// Monotonic 检查样本时间单调不减，返回第一处回退的位置。
func Monotonic(samples []Sample) error {
	for i := 1; i < len(samples); i++ {
		if samples[i].Time < samples[i-1].Time {
			return fmt.Errorf("%w: 第 %d 个样本 %g < %g", ErrNotMonotonic, i, samples[i].Time, samples[i-1].Time)
		}
	}
	return nil
}

// SliceWriter 把样本收集到内存中。
type SliceWriter struct {
	Samples []Sample
}

// WriteSample 实现 Writer。
func (w *SliceWriter) WriteSample(s Sample) error {
	w.Samples = append(w.Samples, s)
	return nil
}

// Close 实现 Writer。
func (w *SliceWriter) Close() error { return nil }

// MultiWriter 把每个样本依次写入所有 Writer。
func MultiWriter(writers ...Writer) Writer {
	return multiWriter(writers)
}

type multiWriter []Writer

func (m multiWriter) WriteSample(s Sample) error {
	for _, w := range m {
		if err := w.WriteSample(s); err != nil {
			return err
		}
	}
	return nil
}

func (m multiWriter) Close() error {
	var errs []error
	for _, w := range m {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
