package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/hundredGrand/Singer/internal/logger"
)

// DecodeMP3 解码 MP3，返回单声道 int16 PCM 与采样率。
// go-mp3 总是输出立体声 signed 16-bit LE PCM。
func DecodeMP3(r io.Reader) ([]int16, int, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("MP3 解码失败: %w", err)
	}

	pcmData, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("读取 PCM 数据失败: %w", err)
	}

	mono := StereoToMono(BytesToInt16(pcmData))
	logger.Debugf("[audio] MP3 解码得到 %d 个单声道样本，采样率 %d Hz", len(mono), decoder.SampleRate())
	return mono, decoder.SampleRate(), nil
}

// MP3ToWAV 把 MP3 文件转换为 16 位单声道 WAV，供只接受 WAV 的外部工具使用。
func MP3ToWAV(src, dst string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("打开 MP3 文件 %s 失败: %w", src, err)
	}
	defer f.Close()

	pcm, rate, err := DecodeMP3(f)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	return WriteWAV(dst, pcm, rate)
}
