package engine

import (
	"strings"
	"testing"
)

func TestIncrErrorByKind(t *testing.T) {
	metrics.NoCaptionsErrors.Store(0)
	metrics.UpstreamErrors.Store(0)

	IncrError(KindNoCaptions)
	IncrError(KindNoCaptions)
	IncrError(KindUpstreamUnavailable)

	m := GetMetrics()
	if m["no_captions_errors"] != 2 {
		t.Errorf("no_captions_errors = %d, want 2", m["no_captions_errors"])
	}
	if m["upstream_errors"] != 1 {
		t.Errorf("upstream_errors = %d, want 1", m["upstream_errors"])
	}
}

func TestFormatMetrics(t *testing.T) {
	out := FormatMetrics()
	for k := range GetMetrics() {
		if !strings.Contains(out, k+" ") {
			t.Errorf("FormatMetrics missing %q", k)
		}
	}
}
