// Package models defines the host metric sample and the wire views derived
// from it.
package models

import (
	"math"
	"time"
)

// LatencyUnreachable marks a latency probe that timed out or failed. It is not
// a measurement.
const LatencyUnreachable = 999.0

// HistoryTimeLayout is the layout of history endpoint timestamps, in local time.
const HistoryTimeLayout = "2006-01-02 15:04:05"

// StoredTimeLayout is the lossless layout of persisted timestamps, always UTC.
const StoredTimeLayout = time.RFC3339Nano

// Sample captures one snapshot of host health. Values are copied, never mutated.
type Sample struct {
	Timestamp      time.Time
	CPUUsage       float64
	MemoryUsage    float64
	DiskIO         float64
	NetworkLatency float64
}

// Unreachable reports whether the latency probe failed for this sample.
func (s Sample) Unreachable() bool {
	return s.NetworkLatency == LatencyUnreachable
}

// StoredRecord is a sample persisted by the store. ID order is append order.
type StoredRecord struct {
	ID int64
	Sample
}

// StreamMessage is the frame pushed to live subscribers once per tick.
type StreamMessage struct {
	CPUUsage       float64 `json:"cpu_usage"`
	MemoryUsage    float64 `json:"memory_usage"`
	DiskIO         float64 `json:"disk_io"`
	NetworkLatency float64 `json:"network_latency"`
	Timestamp      float64 `json:"timestamp"`
}

// HistoryEntry is one row of the history endpoint.
type HistoryEntry struct {
	Timestamp      string  `json:"timestamp"`
	CPUUsage       float64 `json:"cpu_usage"`
	MemoryUsage    float64 `json:"memory_usage"`
	DiskIO         float64 `json:"disk_io"`
	NetworkLatency float64 `json:"network_latency"`
}

// StreamMessage converts the sample for the live stream. The timestamp is epoch
// seconds with sub-second precision.
func (s Sample) StreamMessage() StreamMessage {
	return StreamMessage{
		CPUUsage:       s.CPUUsage,
		MemoryUsage:    s.MemoryUsage,
		DiskIO:         s.DiskIO,
		NetworkLatency: s.NetworkLatency,
		Timestamp:      float64(s.Timestamp.UnixNano()) / float64(time.Second),
	}
}

// HistoryEntry converts the sample for the history endpoint.
func (s Sample) HistoryEntry() HistoryEntry {
	return HistoryEntry{
		Timestamp:      FormatTimestamp(s.Timestamp),
		CPUUsage:       s.CPUUsage,
		MemoryUsage:    s.MemoryUsage,
		DiskIO:         s.DiskIO,
		NetworkLatency: s.NetworkLatency,
	}
}

// FormatTimestamp renders t in local time using HistoryTimeLayout.
func FormatTimestamp(t time.Time) string {
	return t.In(time.Local).Format(HistoryTimeLayout)
}

// ParseTimestamp is the inverse of FormatTimestamp.
func ParseTimestamp(raw string) (time.Time, error) {
	return time.ParseInLocation(HistoryTimeLayout, raw, time.Local)
}

// EncodeStoredTime renders t for persistence without losing sub-second
// precision or the instant across DST changes.
func EncodeStoredTime(t time.Time) string {
	return t.UTC().Format(StoredTimeLayout)
}

// DecodeStoredTime is the inverse of EncodeStoredTime. Rows written in the
// older local HistoryTimeLayout form are still accepted.
func DecodeStoredTime(raw string) (time.Time, error) {
	t, err := time.Parse(StoredTimeLayout, raw)
	if err == nil {
		return t, nil
	}
	if legacy, lerr := ParseTimestamp(raw); lerr == nil {
		return legacy, nil
	}
	return time.Time{}, err
}

// ClampPercent bounds v to [0,100]; NaN maps to 0.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// RoundMillis rounds a latency to two decimals.
func RoundMillis(ms float64) float64 {
	return math.Round(ms*100) / 100
}
