package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsExist(t *testing.T) {
	tests := []struct {
		name   string
		metric interface{}
	}{
		{"HTTPRequestsTotal", HTTPRequestsTotal},
		{"HTTPRequestDuration", HTTPRequestDuration},
		{"HTTPRequestsInFlight", HTTPRequestsInFlight},
		{"AuthFailuresTotal", AuthFailuresTotal},
		{"DBQueryTotal", DBQueryTotal},
		{"DBQueryDuration", DBQueryDuration},
		{"DBPreparedStatements", DBPreparedStatements},
		{"DBSizeBytes", DBSizeBytes},
		{"DBRecoveriesTotal", DBRecoveriesTotal},
		{"UploadFilesTotal", UploadFilesTotal},
		{"UploadBytesTotal", UploadBytesTotal},
		{"UploadRequestsRejected", UploadRequestsRejected},
		{"ThumbnailGenerationsTotal", ThumbnailGenerationsTotal},
		{"ThumbnailGenerationDuration", ThumbnailGenerationDuration},
		{"StorageOperationsTotal", StorageOperationsTotal},
		{"StorageOperationDuration", StorageOperationDuration},
		{"MediaItemsTotal", MediaItemsTotal},
		{"AppInfo", AppInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.metric == nil {
				t.Errorf("%s metric is nil", tt.name)
			}
		})
	}
}

func TestCounterOperations(t *testing.T) {
	before := testutil.ToFloat64(DBQueryTotal.WithLabelValues("create_tag", "success"))
	DBQueryTotal.WithLabelValues("create_tag", "success").Inc()
	after := testutil.ToFloat64(DBQueryTotal.WithLabelValues("create_tag", "success"))

	if after != before+1 {
		t.Errorf("DBQueryTotal = %v, want %v", after, before+1)
	}

	UploadBytesTotal.WithLabelValues("video").Add(2048)
	if got := testutil.ToFloat64(UploadBytesTotal.WithLabelValues("video")); got < 2048 {
		t.Errorf("UploadBytesTotal = %v, want >= 2048", got)
	}
}

func TestHistogramObservations(t *testing.T) {
	durations := []float64{0.0005, 0.02, 0.3, 4, 12}

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("observing durations panicked: %v", r)
		}
	}()

	for _, d := range durations {
		DBQueryDuration.WithLabelValues("list_media").Observe(d)
		ThumbnailGenerationDuration.WithLabelValues("imaging").Observe(d)
		StorageOperationDuration.WithLabelValues("put").Observe(d)
		HTTPRequestDuration.WithLabelValues("GET", "/api/media").Observe(d)
	}
}

func TestGaugeOperations(t *testing.T) {
	HTTPRequestsInFlight.Set(0)
	HTTPRequestsInFlight.Inc()
	HTTPRequestsInFlight.Inc()
	HTTPRequestsInFlight.Dec()

	if got := testutil.ToFloat64(HTTPRequestsInFlight); got != 1 {
		t.Errorf("HTTPRequestsInFlight = %v, want 1", got)
	}
}
