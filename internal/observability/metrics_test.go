package observability

import (
	"testing"
	"time"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/tickets", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/tickets", "GET", 200, 30*time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 401, time.Millisecond)
	m.RecordError("/auth/login", "POST", "UNAUTHORIZED")

	snap := m.Snapshot()
	if len(snap.Requests) != 2 {
		t.Fatalf("Expected 2 request keys, got %d", len(snap.Requests))
	}
	if snap.Requests[0].Key != "/auth/login|POST|401" {
		t.Errorf("Expected sorted keys, got %s first", snap.Requests[0].Key)
	}
	tickets := snap.Requests[1]
	if tickets.Count != 2 {
		t.Errorf("Expected 2 ticket requests, got %d", tickets.Count)
	}
	if tickets.AvgLatencyMs != 20 {
		t.Errorf("Expected 20ms average, got %v", tickets.AvgLatencyMs)
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Key != "/auth/login|POST|UNAUTHORIZED" {
		t.Errorf("Unexpected errors snapshot: %+v", snap.Errors)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	snap := m.Snapshot()
	if snap.Requests == nil || snap.Errors == nil {
		t.Error("Expected empty non-nil slices")
	}
}
