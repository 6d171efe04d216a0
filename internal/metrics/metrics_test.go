package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T, r *Recorder, name string) *dto.MetricFamily {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric family %s not found", name)
	return nil
}

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.ObserveAttempt("failed", 2*time.Second)
	r.ObserveAttempt("success", time.Second)
	r.ObserveFile("success", 300)
	r.ObserveFile("skipped", 0)
	r.ObserveMissing([]string{"TMP2m", "TMP2m", "RH2m"})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.attemptsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.attemptsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.downloadsTotal.WithLabelValues("skipped")))
	assert.Equal(t, 300.0, testutil.ToFloat64(r.bytesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.missingFields.WithLabelValues("TMP2m")))

	hist := family(t, r, "gribfetch_download_duration_seconds")
	require.Len(t, hist.GetMetric(), 1)
	assert.Equal(t, uint64(2), hist.GetMetric()[0].GetHistogram().GetSampleCount())
	assert.InDelta(t, 3.0, hist.GetMetric()[0].GetHistogram().GetSampleSum(), 1e-9)
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveAttempt("success", time.Second)
		r.ObserveFile("success", 1)
		r.ObserveMissing([]string{"x"})
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.ObserveFile("failed", 0)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gribfetch_downloads_total{outcome="failed"} 1`)
}
