package ttyloop

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

var (
	MetricTTYReadBytes       = []string{"ttyloop", "tty", "read", "bytes"}
	MetricTTYReadErrorCount  = []string{"ttyloop", "tty", "read", "error", "count"}
	MetricTTYWriteBytes      = []string{"ttyloop", "tty", "write", "bytes"}
	MetricTTYWriteErrorCount = []string{"ttyloop", "tty", "write", "error", "count"}
	MetricLoopTurnCount      = []string{"ttyloop", "loop", "turn", "count"}
	MetricLoopHandleCount    = []string{"ttyloop", "loop", "handle", "count"}
	MetricBufferAllocBytes   = []string{"ttyloop", "buffer", "alloc", "bytes"}
	MetricSessionEchoCount   = []string{"ttyloop", "session", "echo", "count"}
	MetricSessionStopCount   = []string{"ttyloop", "session", "stop", "count"}
)

type TelemetryLabel string

var (
	LabelError  TelemetryLabel = "error"
	LabelHandle TelemetryLabel = "handle"
	LabelOp     TelemetryLabel = "op"
	LabelStatus TelemetryLabel = "status"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}
