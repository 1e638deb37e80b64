package notify

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	if (r.Last() != Notice{}) {
		t.Fatal("empty recorder should return a zero notice")
	}
	Error(r, "Failed to load appointments")
	Success(r, "Appointment booked successfully")
	Error(r, "Failed to book appointment")

	if r.Count(LevelError) != 2 || r.Count(LevelSuccess) != 1 {
		t.Errorf("counts: %d errors, %d successes", r.Count(LevelError), r.Count(LevelSuccess))
	}
	if got := r.Last(); got.Level != LevelError || got.Message != "Failed to book appointment" {
		t.Errorf("last = %+v", got)
	}
	if len(r.All()) != 3 {
		t.Errorf("all = %+v", r.All())
	}
}

func TestLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLog(zap.New(core))

	Error(n, "boom")
	Success(n, "ok")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Level != zap.WarnLevel || entries[0].ContextMap()["message"] != "boom" {
		t.Errorf("error entry = %+v", entries[0])
	}
	if entries[1].Level != zap.InfoLevel {
		t.Errorf("success entry level = %s", entries[1].Level)
	}
}
