package logging

// unknownSizeStep spaces progress lines when the server sent no length.
const unknownSizeStep = 16 << 20

// ProgressSampler thins download progress logs to one line per bucket of the
// total size, plus one whenever the stage changes.
type ProgressSampler struct {
	bucketPercent float64
	stage         string
	lastBucket    int64
}

// NewProgressSampler constructs a sampler with the given bucket width in
// percent (default 10).
func NewProgressSampler(bucketPercent float64) *ProgressSampler {
	if bucketPercent <= 0 {
		bucketPercent = 10
	}
	return &ProgressSampler{bucketPercent: bucketPercent, lastBucket: -1}
}

// ShouldLog reports whether written bytes out of total deserve a line. A
// total <= 0 means unknown; those downloads log every 16 MiB.
func (s *ProgressSampler) ShouldLog(stage string, written, total int64) bool {
	if s == nil {
		return true
	}
	emit := false
	if stage != s.stage {
		s.stage = stage
		s.lastBucket = -1
		emit = true
	}
	var bucket int64
	if total > 0 {
		bucket = int64(Percent(written, total) / s.bucketPercent)
	} else {
		bucket = written / unknownSizeStep
	}
	if bucket > s.lastBucket {
		s.lastBucket = bucket
		emit = true
	}
	return emit
}

// Reset forgets the last stage and bucket, for a download restarting at zero.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.stage = ""
	s.lastBucket = -1
}

// Percent returns written as a share of total, capped at 100. Unknown totals
// report -1.
func Percent(written, total int64) float64 {
	if total <= 0 {
		return -1
	}
	return min(float64(written)/float64(total)*100, 100)
}
