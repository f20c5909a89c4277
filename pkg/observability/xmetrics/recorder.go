package xmetrics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Stats 是一类操作（component + operation + status）的累计统计。
type Stats struct {
	Component string
	Operation string
	Status    Status
	Count     int64
	// Total 累计耗时
	Total time.Duration
	// Max 单次最大耗时，无样本时为 0
	Max time.Duration
}

// Recorder 在进程内保存指标，供退出时汇总。
//
// 内部持有一个 SDK MeterProvider 和手动 Reader，不依赖任何导出器：
//
//	rec := xmetrics.NewRecorder()
//	obs, _ := rec.Observer()
//	... // 使用 obs
//	stats, _ := rec.Snapshot(ctx)
//	_ = rec.Shutdown(ctx)
type Recorder struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
}

// NewRecorder 创建 Recorder。
func NewRecorder() *Recorder {
	reader := sdkmetric.NewManualReader()
	return &Recorder{
		reader:   reader,
		provider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

// Observer 创建写入该 Recorder 的 Observer。opts 中的 MeterProvider 会被覆盖。
func (r *Recorder) Observer(opts ...Option) (Observer, error) {
	return NewOTelObserver(append(opts, WithMeterProvider(r.provider))...)
}

// Snapshot 读取当前累计值，按 component、operation、status 排序。
func (r *Recorder) Snapshot(ctx context.Context) ([]Stats, error) {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCollect, err)
	}

	byKey := make(map[statsKey]*Stats)
	entry := func(set attribute.Set) *Stats {
		k := keyOf(set)
		s, ok := byKey[k]
		if !ok {
			s = &Stats{Component: k.component, Operation: k.operation, Status: Status(k.status)}
			byKey[k] = s
		}
		return s
	}

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if m.Name != metricOperationTotal {
					continue
				}
				for _, dp := range data.DataPoints {
					entry(dp.Attributes).Count += dp.Value
				}
			case metricdata.Histogram[float64]:
				if m.Name != metricOperationDuration {
					continue
				}
				for _, dp := range data.DataPoints {
					s := entry(dp.Attributes)
					s.Total += seconds(dp.Sum)
					if v, ok := dp.Max.Value(); ok {
						s.Max = max(s.Max, seconds(v))
					}
				}
			}
		}
	}

	stats := make([]Stats, 0, len(byKey))
	for _, s := range byKey {
		stats = append(stats, *s)
	}
	slices.SortFunc(stats, func(a, b Stats) int {
		return cmp.Or(
			cmp.Compare(a.Component, b.Component),
			cmp.Compare(a.Operation, b.Operation),
			cmp.Compare(a.Status, b.Status),
		)
	})
	return stats, nil
}

// Shutdown 关闭内部 MeterProvider，之后的记录被丢弃。
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

type statsKey struct {
	component string
	operation string
	status    string
}

func keyOf(set attribute.Set) statsKey {
	component, _ := set.Value(attribute.Key("component"))
	operation, _ := set.Value(attribute.Key("operation"))
	status, _ := set.Value(attribute.Key("status"))
	return statsKey{
		component: component.AsString(),
		operation: operation.AsString(),
		status:    status.AsString(),
	}
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}
