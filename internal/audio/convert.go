package audio

import (
	"encoding/binary"
	"math"
)

// clamp 钳位到 [-1.0, 1.0]
func clamp(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

// Quantize 将 [-1.0, 1.0] 范围的振幅量化为指定位深的整数 PCM。
// 8 位 WAV 是无符号的，结果带 128 偏移；其余位深为有符号整数。
func Quantize(in []float64, bitDepth int) []int {
	out := make([]int, len(in))
	maxVal := float64(int64(1)<<(bitDepth-1) - 1)
	for i, s := range in {
		v := int(math.Round(clamp(s) * maxVal))
		if bitDepth == 8 {
			v += 128
		}
		out[i] = v
	}
	return out
}

// Float64ToInt16 将 [-1.0, 1.0] 范围的振幅转换为 PCM int16。
func Float64ToInt16(in []float64) []int16 {
	out := make([]int16, len(in))
	for i, s := range in {
		out[i] = int16(clamp(s) * math.MaxInt16)
	}
	return out
}

// Int16ToFloat64 将 PCM int16 样本转换为 [-1.0, 1.0] 范围的振幅。
func Int16ToFloat64(in []int16) []float64 {
	out := make([]float64, len(in))
	for i, s := range in {
		out[i] = float64(s) / math.MaxInt16
	}
	return out
}

// BytesToInt16 将小端字节切片转换为 int16 样本。
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

// Int16ToBytes 将 int16 样本转换为小端字节切片。
func Int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// StereoToMono 将交错的立体声 int16 样本左右取平均得到单声道，不完整的尾部帧被丢弃。
func StereoToMono(in []int16) []int16 {
	out := make([]int16, len(in)/2)
	for i := range out {
		out[i] = int16((int32(in[2*i]) + int32(in[2*i+1])) / 2)
	}
	return out
}
