package diag

import (
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 默认日志目录与轮转阈值。
const (
	DefaultLogDir   = "logs"
	DefaultLogBytes = 10 * 1024 * 1024
)

// Logger 为结构化日志器：zap JSON 单行输出到轮转文件。
// 字段约定：corr_id/comp/stage(start|finish|warn|error)/code/dur_ms/count/file_id/kv。
type Logger struct {
	z    *zap.Logger
	sink *RotatingFile
}

// NewLogger 通过配置的 level 初始化，日志写入 dir（为空时用 logs/），10MiB 轮转。
func NewLogger(corrID, level, dir string) *Logger {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultLogDir
	}
	sink := NewRotatingFile(dir, DefaultLogBytes)
	l := newLogger(corrID, level, sink)
	l.sink = sink
	return l
}

// NewLoggerTo 将日志写到任意 io.Writer（测试与 stderr 回退使用）。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	return newLogger(corrID, level, zapcore.AddSync(w))
}

// NewNop 返回丢弃所有事件的日志器。
func NewNop() *Logger { return &Logger{z: zap.NewNop()} }

func newLogger(corrID, level string, ws zapcore.WriteSyncer) *Logger {
	enc := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     utcRFC3339,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), ws, zap.NewAtomicLevelAt(ParseLevel(level)))
	return &Logger{z: zap.New(core).With(zap.String("corr_id", corrID))}
}

func utcRFC3339(t time.Time, pe zapcore.PrimitiveArrayEncoder) {
	pe.AppendString(t.UTC().Format(time.RFC3339))
}

// ParseLevel 解析 debug|info|warn|error；未知值回退 info。
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close 刷新并关闭底层文件。
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	_ = l.z.Sync()
	if l.sink != nil {
		return l.sink.Close()
	}
	return nil
}

func fields(comp, stage, fileID string, kv map[string]string) []zap.Field {
	fs := []zap.Field{zap.String("comp", comp), zap.String("stage", stage)}
	if fileID != "" {
		fs = append(fs, zap.String("file_id", fileID))
	}
	if len(kv) > 0 {
		fs = append(fs, zap.Any("kv", kv))
	}
	return fs
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	return l.StartWith(comp, msg, "", nil)
}

// StartWith 记录带 file_id 与键值的 start。
func (l *Logger) StartWith(comp, msg, fileID string, kv map[string]string) *Timer {
	l.z.Info(msg, fields(comp, "start", fileID, kv)...)
	return &Timer{l: l, comp: comp, fileID: fileID, t0: time.Now()}
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, fileID string, kv map[string]string) {
	l.z.Debug(msg, fields(comp, "start", fileID, kv)...)
}

// Warn 记录非致命异常（容量不足、冲突替换等）。
func (l *Logger) Warn(comp, msg, fileID string, kv map[string]string) {
	l.z.Warn(msg, fields(comp, "warn", fileID, kv)...)
}

// Error 记录 error 事件。
func (l *Logger) Error(comp string, code Code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "", nil)
}

// ErrorWith 支持 file_id 与键值。
func (l *Logger) ErrorWith(comp string, code Code, msg string, durSince *time.Time, fileID string, kv map[string]string) {
	fs := append(fields(comp, "error", fileID, kv), zap.String("code", string(code)))
	if durSince != nil {
		fs = append(fs, zap.Int64("dur_ms", time.Since(*durSince).Milliseconds()))
	}
	l.z.Error(msg, fs...)
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l      *Logger
	comp   string
	fileID string
	t0     time.Time
}

// Since 返回起点，供 Error 计算耗时。
func (t *Timer) Since() *time.Time {
	if t == nil {
		return nil
	}
	return &t.t0
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	dur := time.Since(t.t0)
	fs := append(fields(t.comp, "finish", t.fileID, nil),
		zap.Int64("dur_ms", dur.Milliseconds()), zap.Int64("count", count))
	t.l.z.Info(msg, fs...)
	ObserveDuration(t.comp, "finish", dur.Milliseconds())
}
