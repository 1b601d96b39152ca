package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "patternprep/internal/config"
	"patternprep/internal/diag"
	"patternprep/pkg/contract"
)

type runFlags struct {
	config      string
	output      string
	maxRows     int
	marker      string
	onCollision string
	logLevel    string
	logDir      string
	status      bool
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [input-dir]",
		Short: "Clean mined pattern files and normalize paired widths",
		Long: `Reads every .txt file directly inside input-dir, keeps up to max-rows
qualifying lines per file (at least 3 positive integers after removing
#TAG: values), pairs <base>Positive/<base>Negative files, pads rows with '?'
to the group's width and writes <stem><marker>.txt into the output dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "配置文件路径（JSON）；缺省读取 ./config.json（若存在）")
	fl.StringVarP(&f.output, "output", "o", "", "输出目录（覆盖配置）")
	fl.IntVar(&f.maxRows, "max-rows", 0, "每个文件保留的最大行数（覆盖配置）")
	fl.StringVar(&f.marker, "marker", "", "输出文件名处理标记（覆盖配置；可显式设为空）")
	fl.StringVar(&f.onCollision, "on-collision", "", "同名同类别冲突策略：error|last（覆盖配置）")
	fl.StringVar(&f.logLevel, "log-level", "", "日志级别：debug|info|warn|error（覆盖配置）")
	fl.StringVar(&f.logDir, "log-dir", diag.DefaultLogDir, "日志目录")
	fl.BoolVar(&f.status, "status", true, "控制台逐文件提示（stdout）")
	return cmd
}

func runPipeline(cmd *cobra.Command, args []string, f runFlags) error {
	start := time.Now()
	corrID := genCorrID()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	// 先占位默认级别，稍后在合并配置后重建 logger 以使用最终 level
	logger := diag.NewLogger(corrID, "info", f.logDir)
	defer func() { _ = logger.Close() }()

	fail := func(err error) error {
		logger.Error("pipeline", diag.Classify(err), "first error", &start)
		return err
	}

	// JSON 配置（文件或 ENV: PATTERNPREP_CONFIG_JSON）
	var cfgJSON []byte
	if s := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON"); s != "" {
		cfgJSON = []byte(s)
	}
	cfgPath := f.config
	if cfgPath == "" {
		cfgPath = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	if cfgPath == "" {
		if _, err := os.Stat("config.json"); err == nil {
			cfgPath = "config.json"
		}
	}

	cfg := cfgpkg.Defaults()
	if cfgPath != "" || len(cfgJSON) > 0 {
		base, err := cfgpkg.LoadJSON(cfgPath, cfgJSON)
		if err != nil {
			return fail(configFail("配置解析失败", err))
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return fail(configFail("环境变量解析失败", err))
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	// CLI 覆盖
	var overCLI cfgpkg.Config
	if len(args) > 0 {
		overCLI.Input = args[0]
	}
	overCLI.Output = f.output
	overCLI.MaxRows = f.maxRows
	overCLI.OnCollision = f.onCollision
	overCLI.Logging.Level = f.logLevel
	cfg = cfgpkg.Merge(cfg, overCLI)
	if cmd.Flags().Changed("marker") {
		cfg.Marker = cfgpkg.StringPtr(f.marker)
	}

	if err := cfgpkg.Validate(cfg); err != nil {
		// 打印有效配置，便于诊断
		_ = dumpConfig(stderr, cfg)
		return fail(configFail("配置校验失败", err))
	}

	// 使用最终配置中的日志级别重建 logger
	_ = logger.Close()
	logger = diag.NewLogger(corrID, cfgpkg.EffectiveLevel(cfg), f.logDir)

	if err := preflightInputDir(cfg.Input); err != nil {
		return fail(configFail("输入目录不可用", err))
	}
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		return fail(configFail("装配失败", err))
	}
	// 以装配后的实际输出目录做预检（可能被 options.writer.output_dir 覆盖）
	if err := preflightCheckOutputDir(set.Output); err != nil {
		return fail(configFail("输出目录不可写或无法创建", err))
	}

	logger.DebugStart("config", "effective", "", map[string]string{
		"input":        cfg.Input,
		"output":       set.Output,
		"max_rows":     strconv.Itoa(cfg.MaxRows),
		"marker":       cfg.EffectiveMarker(),
		"on_collision": string(set.Collision),
		"reader":       cfg.Components.Reader,
		"writer":       cfg.Components.Writer,
	})

	rep := diag.NewReporter(stdout, f.status)
	t := logger.Start("pipeline", "run")
	sum, err := pipelineRun(cmd.Context(), comp, set, logger, rep)
	if err != nil {
		code := diag.Classify(err)
		diag.IncOp("pipeline", "error", "error")
		if code != diag.CodeUnknown {
			diag.IncError("pipeline", code)
		}
		rep.RunFinish(false, time.Since(start))
		// 输入目录缺失/为空属于预检类失败
		if errors.Is(err, contract.ErrInputMissing) || errors.Is(err, contract.ErrInputEmpty) {
			return fail(configFail("输入目录不可用", err))
		}
		re := runtimeFail("运行失败", err)
		if errors.Is(err, context.Canceled) {
			re.(*exitError).quiet = true
		}
		return fail(re)
	}
	t.Finish("run", int64(len(sum.Files)))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	for _, m := range diag.SnapshotMetrics() {
		logger.DebugStart("metrics", m, "", nil)
	}
	rep.RunFinish(true, time.Since(start))
	return nil
}

// preflightInputDir: 输入目录必须存在且为目录。
func preflightInputDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", contract.ErrInputMissing, dir)
		}
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", contract.ErrInputMissing, dir)
	}
	return nil
}

// preflightCheckOutputDir: 启动前检查输出目录可写性。
// - 若目录已存在：尝试创建并删除临时文件；失败则判为不可写。
// - 若目录不存在：向上找到第一个已存在的祖先目录，检查其可写性（MkdirAll 会创建中间目录）。
func preflightCheckOutputDir(dir string) error {
	dir = trimmed(dir)
	if dir == "" {
		return errors.New("未指定输出目录")
	}
	if st, err := os.Stat(dir); err == nil {
		if !st.IsDir() {
			return fmt.Errorf("路径存在但不是目录: %s", dir)
		}
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		_ = os.Remove(name)
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	parent := filepath.Dir(filepath.Clean(dir))
	for {
		st, err := os.Stat(parent)
		if err == nil {
			if !st.IsDir() {
				return fmt.Errorf("父路径不是目录: %s", parent)
			}
			break
		}
		if !os.IsNotExist(err) {
			return err
		}
		next := filepath.Dir(parent)
		if next == parent {
			return fmt.Errorf("无法确定父目录: %s", dir)
		}
		parent = next
	}
	tmpd, err := os.MkdirTemp(parent, ".wcheck-*")
	if err != nil {
		return err
	}
	_ = os.RemoveAll(tmpd)
	return nil
}
