package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hundredGrand/Singer/internal/catalog"
	"github.com/hundredGrand/Singer/internal/config"
	"github.com/hundredGrand/Singer/internal/logger"
	"github.com/hundredGrand/Singer/internal/pitch"
	"github.com/hundredGrand/Singer/internal/shifter"
)

const defaultConfigPath = "configs/singer.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "配置文件路径")
	command := flag.String("cmd", "", "外部移调命令前缀（默认取配置 shift.command）")
	refPitch := flag.String("ref-pitch", "", "参考录音的音高，如 C#4")
	low := flag.String("low", "", "最低目标音高")
	high := flag.String("high", "", "最高目标音高")
	prefix := flag.String("prefix", "", "输出文件前缀")
	ext := flag.String("ext", "", "输出文件扩展名")
	outDir := flag.String("out-dir", "", "输出目录")
	flag.Usage = printUsage
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	sc := cfg.Shift
	if flag.NArg() > 0 {
		sc.Reference = flag.Arg(0)
	}
	override(&sc.Command, *command)
	override(&sc.ReferencePitch, *refPitch)
	override(&sc.Low, *low)
	override(&sc.High, *high)
	override(&sc.Prefix, *prefix)
	override(&sc.Extension, *ext)
	override(&sc.OutputDir, *outDir)

	os.Exit(run(cfg, sc))
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
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
	fmt.Fprintln(os.Stderr, "Singer 移调素材生成工具")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "用法: pitchshift [flags] [参考录音]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "对参考录音在 [low, high] 内的每个半音调用一次外部工具：")
	fmt.Fprintln(os.Stderr, "  <cmd...> <参考录音> <prefix>_<音高>.<ext> pitch <音分>")
	fmt.Fprintln(os.Stderr, "")
	flag.PrintDefaults()
}

func run(cfg *config.Config, sc config.ShiftConfig) int {
	defer logger.Sync()

	if sc.Reference == "" {
		fmt.Fprintln(os.Stderr, "未指定参考录音")
		printUsage()
		return 1
	}

	ref, err := pitch.Parse(sc.ReferencePitch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参考音高无效: %v\n", err)
		return 1
	}
	lo, err := pitch.Parse(sc.Low)
	if err != nil {
		fmt.Fprintf(os.Stderr, "最低音高无效: %v\n", err)
		return 1
	}
	hi, err := pitch.Parse(sc.High)
	if err != nil {
		fmt.Fprintf(os.Stderr, "最高音高无效: %v\n", err)
		return 1
	}

	opts := []shifter.Option{}
	if cfg.Catalog.Enabled {
		c, err := catalog.Open(cfg.Catalog.Path)
		if err != nil {
			logger.Warnf("[main] 打开目录失败，不记录素材: %v", err)
		} else {
			defer c.Close()
			opts = append(opts, shifter.WithRecorder(c))
		}
	}

	s, err := shifter.New(shifter.Config{
		Command:        sc.Command,
		Reference:      sc.Reference,
		ReferencePitch: ref,
		Low:            lo,
		High:           hi,
		Prefix:         sc.Prefix,
		Extension:      sc.Extension,
		OutputDir:      sc.OutputDir,
	}, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("[main] 收到信号 %v，停止生成", sig)
		cancel()
	}()

	results, err := s.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "移调失败: %v\n", err)
		return 1
	}

	failed := shifter.Failures(results)
	for _, r := range results {
		if !r.OK() {
			fmt.Fprintf(os.Stderr, "  %-4s %+6d 音分  失败: %v\n", r.Pitch, r.Cents, r.Err)
		}
	}
	fmt.Printf("已生成 %d/%d 个素材\n", len(results)-failed, len(results))

	// 每个素材相互独立，只有全部失败才算整体失败
	if failed == len(results) {
		return 1
	}
	return 0
}
