package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementUsersCreated()
	m.IncrementRecordsCreated()
	m.IncrementRecordsCreated()
	m.IncrementRecordDecision("approve")
	m.IncrementRecordDecision("reject")
	m.IncrementRecordDecision("approve")
	m.IncrementAuthFailures()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UsersCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RecordDecisions.WithLabelValues("approve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordDecisions.WithLabelValues("reject")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthFailures))
}

func TestHistograms(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveDecide(time.Now())
	m.ObserveHTTPRequest("/records/{id}/approve", "POST", "200", time.Now())

	assert.Equal(t, 1, testutil.CollectAndCount(m.DecideDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}
