package control

import (
	"testing"
	"time"
)

func TestMetricsRegistryUpdatedAt(t *testing.T) {
	mr := NewMetricsRegistry(nil)
	if _, ok := mr.GetSnapshot()["metrics.updated_at"]; ok {
		t.Fatal("updated_at reported before any Set")
	}

	before := time.Now()
	mr.Set("custom", 1)
	mr.Counters().PagesCopied.Add(2)

	snap := mr.GetSnapshot()
	at, ok := snap["metrics.updated_at"].(time.Time)
	if !ok || at.Before(before) {
		t.Fatalf("updated_at = %v, want a time after %v", snap["metrics.updated_at"], before)
	}
	if snap["custom"] != 1 || snap["tls.pages_copied"] != int64(2) {
		t.Fatalf("snapshot = %v", snap)
	}
}
