package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/hundredGrand/Singer/internal/audio"
	"github.com/hundredGrand/Singer/internal/catalog"
	"github.com/hundredGrand/Singer/internal/config"
	"github.com/hundredGrand/Singer/internal/logger"
	"github.com/hundredGrand/Singer/internal/song"
	"github.com/hundredGrand/Singer/internal/soundtable"
	"github.com/hundredGrand/Singer/internal/synth"
	"github.com/hundredGrand/Singer/internal/timeline"
)

const defaultConfigPath = "configs/singer.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "配置文件路径")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	var code int
	switch args[0] {
	case "render":
		code = cmdRender(cfg, args[1:])
	case "history":
		code = cmdHistory(cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n", args[0])
		printUsage()
		code = 1
	}
	if code != 0 {
		logger.Sync()
		os.Exit(code)
	}
}

// loadConfig 读取配置文件；默认路径不存在时使用内置默认值。
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Singer 查表式歌声合成器")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "用法: singer [-config <path>] <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "命令:")
	fmt.Fprintln(os.Stderr, "  render   [-song <file>] [-out <file>] [-format dat|wav] [-play]")
	fmt.Fprintln(os.Stderr, "           读取歌曲文件并渲染为采样时间轴")
	fmt.Fprintln(os.Stderr, "  history  [-n <count>]  列出最近的渲染记录（需要启用 catalog）")
}

func cmdRender(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	songPath := fs.String("song", cfg.Song.Path, "歌曲文件")
	outPath := fs.String("out", "", "输出文件（默认取配置 output.path）")
	format := fs.String("format", cfg.Output.Format, "输出格式: dat 或 wav")
	play := fs.Bool("play", false, "渲染完成后通过扬声器试听")
	fs.Parse(args)

	out := cfg.Output.Path
	if *outPath != "" {
		out = *outPath
	} else if *format != cfg.Output.Format {
		out = "song." + *format
	}

	// 所有输入在产生任何输出之前加载并校验
	tables, err := soundtable.Load(cfg.Assets.VowelTable, cfg.Assets.ConsonantDir, cfg.Synth.ConsonantDuration, cfg.Synth.SampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载素材失败: %v\n", err)
		return 1
	}
	notes, err := song.Load(*songPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取歌曲失败: %v\n", err)
		return 1
	}
	syn, err := synth.New(tables, synth.WithSampleRate(cfg.Synth.SampleRate))
	if err != nil {
		fmt.Fprintf(os.Stderr, "创建合成器失败: %v\n", err)
		return 1
	}
	if err := syn.Validate(notes); err != nil {
		fmt.Fprintf(os.Stderr, "歌曲校验失败: %v\n", err)
		return 1
	}

	w, err := openOutput(out, *format, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	var preview timeline.SliceWriter
	var dst timeline.Writer = w
	if *play {
		dst = timeline.MultiWriter(w, &preview)
	}

	st, renderErr := syn.RenderTo(notes, dst)
	if err := w.Close(); err != nil && renderErr == nil {
		renderErr = err
	}
	if renderErr != nil {
		fmt.Fprintf(os.Stderr, "渲染失败: %v\n", renderErr)
		return 1
	}
	logger.Z.Info("[main] 渲染完成",
		zap.String("song", *songPath),
		zap.String("output", out),
		zap.Int("notes", st.Notes),
		zap.Int("samples", st.Samples),
		zap.Float64("duration", st.Duration),
	)
	fmt.Printf("已写入 %s: %d 个音符, %d 个样本, %.3f 秒\n", out, st.Notes, st.Samples, st.Duration)

	if cfg.Catalog.Enabled {
		recordRender(cfg, catalog.Render{
			Song:     *songPath,
			Output:   out,
			Format:   *format,
			Notes:    st.Notes,
			Samples:  st.Samples,
			Duration: st.Duration,
		})
	}

	if *play {
		if err := playPreview(preview.Samples, syn.SampleRate()); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "试听失败: %v\n", err)
			return 1
		}
	}
	return 0
}

func openOutput(path, format string, cfg *config.Config) (timeline.Writer, error) {
	switch format {
	case "dat":
		w, err := timeline.CreateDat(path, cfg.Synth.SampleRate, cfg.Synth.Channels)
		if err != nil {
			return nil, fmt.Errorf("创建输出失败: %w", err)
		}
		return w, nil
	case "wav":
		w, err := audio.CreateWAV(path, cfg.Synth.SampleRate, cfg.Output.BitDepth)
		if err != nil {
			return nil, fmt.Errorf("创建输出失败: %w", err)
		}
		return w, nil
	default:
		return nil, fmt.Errorf("不支持的输出格式: %s", format)
	}
}

func recordRender(cfg *config.Config, r catalog.Render) {
	c, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		logger.Warnf("[main] 打开目录失败，跳过记录: %v", err)
		return
	}
	defer c.Close()

	id, err := c.RecordRender(r)
	if err != nil {
		logger.Warnf("[main] 记录渲染失败: %v", err)
		return
	}
	logger.Infof("[main] 渲染记录 %s", id)
}

func playPreview(samples []timeline.Sample, sampleRate int) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C 只停止播放
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Infof("[main] 收到信号 %v，停止播放", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	player, err := audio.NewPlayer()
	if err != nil {
		return err
	}
	defer player.Close()

	return player.Play(ctx, samples, sampleRate)
}

func cmdHistory(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("n", 10, "显示条数，0 表示全部")
	fs.Parse(args)

	if _, err := os.Stat(cfg.Catalog.Path); errors.Is(err, os.ErrNotExist) {
		fmt.Println("暂无渲染记录")
		return 0
	}

	c, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开目录失败: %v\n", err)
		return 1
	}
	defer c.Close()

	renders, err := c.ListRenders(*limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取渲染记录失败: %v\n", err)
		return 1
	}
	if len(renders) == 0 {
		fmt.Println("暂无渲染记录")
		return 0
	}

	for _, r := range renders {
		fmt.Printf("%s  %s  %s -> %s (%s)  %d 个音符  %d 个样本  %.3fs\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.Song, r.Output, r.Format, r.Notes, r.Samples, r.Duration)
	}
	return 0
}
