package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

func sampleReport() *vcontrold.Report {
	return &vcontrold.Report{
		Items: []vcontrold.Result{
			{Command: "getTempA", Value: vcontrold.Number(-2.5), Unit: "C", State: vcontrold.StateSuccess, Duration: 2 * time.Second},
			{Command: "getBrennerStatus", Value: vcontrold.Bool(true), Unit: "bool", State: vcontrold.StateSuccess, Duration: time.Second},
			{Command: "getBetriebArtM1", Value: vcontrold.Text("H+WW"), Unit: "str", State: vcontrold.StateSuccess, Duration: time.Second},
			{Command: "getTempKist", State: vcontrold.StateFailedTemporarily, Duration: time.Second},
		},
		Skipped:  []string{"getTempVListM1", "getPumpeStatusSolar"},
		Duration: 5 * time.Second,
	}
}

func TestObserveReport(t *testing.T) {
	r := NewRecorder()
	r.ObserveReport(sampleReport())

	assert.Equal(t, 3.0, testutil.ToFloat64(r.executions.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.executions.WithLabelValues("failed_temporarily")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.executions.WithLabelValues("skipped")))

	assert.Equal(t, -2.5, testutil.ToFloat64(r.value.WithLabelValues("getTempA", "C")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.value.WithLabelValues("getBrennerStatus", "bool")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.value))

	assert.Equal(t, 1, testutil.CollectAndCount(r.batchDuration))
	assert.Greater(t, testutil.ToFloat64(r.lastBatch), 0.0)
}

func TestObserveResult_FailureDropsReading(t *testing.T) {
	r := NewRecorder()
	r.ObserveResult(vcontrold.Result{Command: "getTempA", Value: vcontrold.Number(4), Unit: "C", State: vcontrold.StateSuccess})
	require.Equal(t, 1, testutil.CollectAndCount(r.value))

	r.ObserveResult(vcontrold.Result{Command: "getTempA", State: vcontrold.StateFailed})
	assert.Equal(t, 0, testutil.CollectAndCount(r.value))
}

func TestSetDevice(t *testing.T) {
	r := NewRecorder()
	r.SetDevice(vcontrold.DeviceIdentity{Model: "V200KW2", ID: 2094, Protocol: "KW"})
	r.SetDevice(vcontrold.DeviceIdentity{Model: "V200KW2", ID: 2094, Protocol: "KW"})

	expected := `
# HELP vcontrold_device_info Identified heating control, always 1.
# TYPE vcontrold_device_info gauge
vcontrold_device_info{id="2094",model="V200KW2",protocol="KW"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(r.deviceInfo, strings.NewReader(expected)))
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.ObserveReport(sampleReport())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vcontrold_value{command="getTempA",unit="C"} -2.5`)
	assert.Contains(t, rec.Body.String(), "vcontrold_batch_duration_seconds_count 1")
}
