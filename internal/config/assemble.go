package config

import (
	"errors"
	"fmt"
	"strings"

	"patternprep/internal/diag"
	"patternprep/internal/pairing"
	"patternprep/internal/pipeline"
	"patternprep/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Input) == "" {
		return errors.New("config: input not set")
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return errors.New("config: output not set")
	}
	if cfg.MaxRows < 1 {
		return errors.New("config: max_rows must be >= 1")
	}
	if m := cfg.EffectiveMarker(); strings.ContainsAny(m, `/\`) {
		return fmt.Errorf("config: marker %q must not contain path separators", m)
	}
	if _, err := pairing.ParseCollisionPolicy(effName(cfg.OnCollision, Defaults().OnCollision)); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q not one of debug|info|warn|error", cfg.Logging.Level)
	}
	// 组件名若为空，使用默认名（由 Defaults() 提供）。此处只要最终有值即可。
	if name := effName(cfg.Components.Reader, Defaults().Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered", name)
	}
	if name := effName(cfg.Components.Writer, Defaults().Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered", name)
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	d := Defaults()
	rn := effName(cfg.Components.Reader, d.Components.Reader)
	wn := effName(cfg.Components.Writer, d.Components.Writer)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.reader: %w", err)
	}
	w, err := registry.Writer[wn](cfg.Output, cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.writer: %w", err)
	}
	// options.writer.output_dir 可覆盖 output；以 Writer 实际根目录为准
	output := cfg.Output
	if rw, ok := w.(interface{ Root() string }); ok && rw.Root() != "" {
		output = rw.Root()
	}
	policy, _ := pairing.ParseCollisionPolicy(effName(cfg.OnCollision, d.OnCollision))

	comp := pipeline.Components{Reader: r, Writer: w}
	set := pipeline.Settings{
		Input:     cfg.Input,
		Output:    output,
		MaxRows:   cfg.MaxRows,
		Marker:    cfg.EffectiveMarker(),
		Collision: policy,
	}
	return comp, set, nil
}

// EffectiveLevel 返回最终日志级别（空则 info）。
func EffectiveLevel(cfg Config) string {
	return diag.ParseLevel(cfg.Logging.Level).String()
}

func effName(got, def string) string {
	if strings.TrimSpace(got) == "" {
		return def
	}
	return strings.TrimSpace(got)
}
