// Package alerts reads IDS telemetry (Suricata alerts and Zeek logs) from a
// search backend or a fixture file.
package alerts

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// ErrUpstream marks failures of the backing search service.
var ErrUpstream = errors.New("alerts: upstream unavailable")

// SuricataAlert is one alert event. Severity follows Suricata: 1 is high,
// 3 is low.
type SuricataAlert struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	SrcIP     string    `json:"src_ip" yaml:"src_ip"`
	DestIP    string    `json:"dest_ip" yaml:"dest_ip"`
	DestPort  int       `json:"dest_port" yaml:"dest_port"`
	Protocol  string    `json:"protocol" yaml:"protocol"`
	Signature string    `json:"signature" yaml:"signature"`
	Severity  int       `json:"severity" yaml:"severity"`
}

// SeverityLabel renders the numeric severity for display.
func (a SuricataAlert) SeverityLabel() string {
	switch {
	case a.Severity <= 0:
		return "Unknown"
	case a.Severity == 1:
		return "High"
	case a.Severity == 2:
		return "Medium"
	default:
		return "Low"
	}
}

// ZeekLog is one Zeek connection or protocol log entry.
type ZeekLog struct {
	ID        string    `json:"id" yaml:"id"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	SrcIP     string    `json:"src_ip" yaml:"src_ip"`
	DestIP    string    `json:"dest_ip" yaml:"dest_ip"`
	DestPort  int       `json:"dest_port" yaml:"dest_port"`
	Proto     string    `json:"proto" yaml:"proto"`
	Service   string    `json:"service,omitempty" yaml:"service"`
	EventType string    `json:"event_type" yaml:"event_type"`
}

// Source returns the most recent entries, newest first.
type Source interface {
	SuricataAlerts(ctx context.Context, limit int) ([]SuricataAlert, error)
	ZeekLogs(ctx context.Context, limit int) ([]ZeekLog, error)
}

// ClampLimit applies the default for non-positive values and caps at MaxLimit.
func ClampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}
