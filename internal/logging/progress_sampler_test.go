package logging

import "testing"

func TestNewProgressSamplerDefaultsBucket(t *testing.T) {
	for _, size := range []float64{0, -5} {
		if got := NewProgressSampler(size).bucketPercent; got != 10 {
			t.Fatalf("bucket for %v = %v, want 10", size, got)
		}
	}
	if got := NewProgressSampler(25).bucketPercent; got != 25 {
		t.Fatalf("custom bucket = %v, want 25", got)
	}
}

func TestProgressSamplerNilSampler(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog("video", 10, 100) {
		t.Error("ShouldLog on nil sampler should always return true")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)

	steps := []struct {
		stage          string
		written, total int64
		want           bool
	}{
		{"video", 0, 1000, true},
		{"video", 40, 1000, false},
		{"video", 100, 1000, true},
		{"video", 199, 1000, false},
		{"video", 550, 1000, true},
		{"audio", 0, 200, true},
		{"audio", 200, 200, true},
		{"audio", 240, 200, false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.stage, step.written, step.total); got != step.want {
			t.Fatalf("step %d (%s %d/%d): got %v want %v", i, step.stage, step.written, step.total, got, step.want)
		}
	}
}

func TestProgressSamplerUnknownSize(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.ShouldLog("audio", 0, 0) {
		t.Fatal("first call should log on stage change")
	}
	if s.ShouldLog("audio", unknownSizeStep-1, 0) {
		t.Fatal("unknown size should wait for a full step")
	}
	if !s.ShouldLog("audio", unknownSizeStep, 0) {
		t.Fatal("unknown size should log once a step is crossed")
	}
	s.Reset()
	if !s.ShouldLog("audio", 0, 0) {
		t.Fatal("reset should allow the stage to log again")
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(50, 200); got != 25 {
		t.Fatalf("Percent(50, 200) = %v", got)
	}
	if got := Percent(300, 200); got != 100 {
		t.Fatalf("Percent should cap at 100, got %v", got)
	}
	if got := Percent(10, 0); got != -1 {
		t.Fatalf("unknown total should be -1, got %v", got)
	}
}
