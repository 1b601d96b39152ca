package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "patternprep/internal/config"
	"patternprep/internal/pipeline"
)

var pipelineRun = pipeline.Run

// 退出码：0 成功；1 运行期失败；3 配置/预检失败（含输入目录缺失或为空）。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

// exitError 携带退出码；消息已包含面向操作者的前缀。
type exitError struct {
	code  int
	err   error
	quiet bool
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func configFail(prefix string, err error) error {
	return &exitError{code: exitConfig, err: fmt.Errorf("%s: %w", prefix, err)}
}

func runtimeFail(prefix string, err error) error {
	return &exitError{code: exitRuntime, err: fmt.Errorf("%s: %w", prefix, err)}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := cfgpkg.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(stderr, "提示：.env 读取失败（已跳过）：%v\n", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd()
	root.SetArgs(defaultToRun(args, root))
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if !ee.quiet {
			fmt.Fprintln(stderr, ee.Error())
		}
		return ee.code
	}
	// cobra 参数/旗标错误
	fmt.Fprintf(stderr, "参数错误: %v\n", err)
	return exitConfig
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "patternprep",
		Short: "Prepare datasets for pattern mining and clean mined pattern files",
		Long: `patternprep cleans the raw output of a pattern-mining tool into
rectangular, comma-separated integer matrices, normalizing the width of
paired Positive/Negative files so both sides can be compared.

Upstream helpers encode CSV datasets into token files (encode) and append
utility annotations for HUIM/USPAN miners (annotate).`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newRunCmd(), newEncodeCmd(), newAnnotateCmd(), newInitConfigCmd())
	return root
}

// defaultToRun: 未给出子命令时按 run 处理（"patternprep <dir>" 等价于 "patternprep run <dir>"）。
func defaultToRun(args []string, root *cobra.Command) []string {
	if len(args) == 0 {
		return []string{"run"}
	}
	switch args[0] {
	case "-h", "--help", "help", "completion", "__complete":
		return args
	}
	for _, c := range root.Commands() {
		if c.Name() == args[0] || c.HasAlias(args[0]) {
			return args
		}
	}
	return append([]string{"run"}, args...)
}

func dumpConfig(w io.Writer, c cfgpkg.Config) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "有效配置:\n%s\n", b)
	return err
}

// genCorrID 为一次运行生成关联 ID（写入每条日志的 corr_id）。
func genCorrID() string { return uuid.NewString() }

func trimmed(s string) string { return strings.TrimSpace(s) }
