package diag

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// 进程内指标（私有 Registry，无导出端点；运行结束时以 debug 事件输出）：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（直方图）
var (
	registry = prometheus.NewRegistry()

	opTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "op_total",
		Help: "Operations by component, stage and result.",
	}, []string{"comp", "stage", "result"})

	errorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "error_total",
		Help: "Errors by component and classified code.",
	}, []string{"comp", "code"})

	opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "op_duration_ms",
		Help:    "Stage duration in milliseconds.",
		Buckets: []float64{1, 5, 25, 100, 500, 2500, 10000},
	}, []string{"comp", "stage"})
)

func init() {
	registry.MustRegister(opTotal, errorTotal, opDuration)
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	opTotal.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp string, code Code) {
	errorTotal.WithLabelValues(comp, string(code)).Inc()
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	opDuration.WithLabelValues(comp, stage).Observe(float64(durMS))
}

// Counter 返回单个样本的当前值；key 形如 SnapshotMetrics 中 "=" 左侧部分。
// 不存在时返回 0。
func Counter(key string) int64 {
	for _, s := range samples() {
		if s.key == key {
			return s.value
		}
	}
	return 0
}

// SnapshotMetrics 返回按名称排序的 "name{labels}=value" 列表。
// 直方图输出 _count 与 _sum 两个样本。
func SnapshotMetrics() []string {
	ss := samples()
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, fmt.Sprintf("%s=%d", s.key, s.value))
	}
	sort.Strings(out)
	return out
}

// ResetMetrics 清空全部指标（测试与多次运行之间使用）。
func ResetMetrics() {
	opTotal.Reset()
	errorTotal.Reset()
	opDuration.Reset()
}

type sample struct {
	key   string
	value int64
}

func samples() []sample {
	mfs, err := registry.Gather()
	if err != nil {
		return nil
	}
	var out []sample
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			labels := labelString(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out = append(out, sample{mf.GetName() + labels, int64(math.Round(m.GetCounter().GetValue()))})
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				out = append(out,
					sample{mf.GetName() + "_count" + labels, int64(h.GetSampleCount())},
					sample{mf.GetName() + "_sum" + labels, int64(math.Round(h.GetSampleSum()))},
				)
			}
		}
	}
	return out
}

// labelString: Gather 已按标签名排序，输出 "{k=v,...}"。
func labelString(lps []*dto.LabelPair) string {
	if len(lps) == 0 {
		return ""
	}
	parts := make([]string, 0, len(lps))
	for _, lp := range lps {
		parts = append(parts, lp.GetName()+"="+lp.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
