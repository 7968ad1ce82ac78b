package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/hundredGrand/Singer/internal/logger"
	"github.com/hundredGrand/Singer/internal/timeline"
)

// ErrPlayerClosed 表示播放器已经释放。
var ErrPlayerClosed = errors.New("播放器已关闭")

// Player 使用 malgo (miniaudio) 试听渲染结果。
type Player struct {
	ctx    *malgo.AllocatedContext
	mu     sync.Mutex
	closed bool
}

// NewPlayer 创建一个单声道播放实例。
func NewPlayer() (*Player, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("初始化播放上下文失败: %w", err)
	}
	return &Player{ctx: ctx}, nil
}

// sampleStream 按设备回调的节奏把时间轴样本编码成 S16LE 帧。
type sampleStream struct {
	samples []timeline.Sample
	next    int
}

// fill 写满 out 的完整帧，样本耗尽后补静音。返回本次写入的样本数。
func (s *sampleStream) fill(out []byte) int {
	frames := len(out) / 2
	n := min(frames, len(s.samples)-s.next)
	for i := 0; i < n; i++ {
		v := int16(clamp(s.samples[s.next+i].Amplitude) * math.MaxInt16)
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	clear(out[2*n : 2*frames])
	s.next += n
	return n
}

func (s *sampleStream) drained() bool { return s.next >= len(s.samples) }

// Play 通过默认扬声器播放渲染出的样本，样本按 sampleRate 等间隔排列。
// 阻塞直到播放完成或 ctx 被取消。
func (p *Player) Play(ctx context.Context, samples []timeline.Sample, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}
	if sampleRate <= 0 {
		return fmt.Errorf("采样率无效: %d", sampleRate)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPlayerClosed
	}
	p.mu.Unlock()

	stream := &sampleStream{samples: samples}
	done := make(chan struct{})
	var once sync.Once

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInFrames = 512
	deviceConfig.Periods = 2

	callbacks := malgo.DeviceCallbacks{
		Data: func(outputSamples, _ []byte, frameCount uint32) {
			stream.fill(outputSamples[:int(frameCount)*2])
			if stream.drained() {
				once.Do(func() { close(done) })
			}
		},
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("初始化播放设备失败: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("启动播放设备失败: %w", err)
	}
	defer device.Stop()

	logger.Infof("[audio] 试听 %d 个样本 (%d Hz, %.3f 秒)", len(samples), sampleRate, samples[len(samples)-1].Time)
	select {
	case <-ctx.Done():
		logger.Info("[audio] 试听被取消")
		return ctx.Err()
	case <-done:
		logger.Info("[audio] 试听结束")
		return nil
	}
}

// Close 释放播放上下文，可重复调用。
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	if p.ctx != nil {
		_ = p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil
	}
}
