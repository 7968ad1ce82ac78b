package shifter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner 执行一次外部命令。
type Runner interface {
	Run(ctx context.Context, name string, args []string) error
}

// ExecRunner 通过 os/exec 运行命令，失败时把 stderr 附在错误里。
type ExecRunner struct{}

// Run 实现 Runner。
func (ExecRunner) Run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s 执行失败: %w, stderr: %s", name, err, msg)
		}
		return fmt.Errorf("%s 执行失败: %w", name, err)
	}
	return nil
}
