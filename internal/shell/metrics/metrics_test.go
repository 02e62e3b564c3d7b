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
)

const templateName = "exoframe-template-arm32v7-nodejs"

func TestNew_Disabled(t *testing.T) {
	m := New(Config{})

	assert.False(t, m.Enabled())
	assert.Nil(t, m.Registry())

	// Calls are accepted and ignored
	m.RecordCheck(templateName, true)
	m.ExecutionStarted()
	m.RecordExecution(templateName, "yarn", false, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.False(t, m.Enabled())
	m.RecordCheck(templateName, false)
}

func TestRecordCheck(t *testing.T) {
	m := New(Config{Enabled: true, Namespace: "hoster"})

	m.RecordCheck(templateName, true)
	m.RecordCheck(templateName, false)
	m.RecordCheck(templateName, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.checks.WithLabelValues(templateName, "match")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.checks.WithLabelValues(templateName, "miss")))
}

func TestRecordExecution(t *testing.T) {
	m := New(Config{Enabled: true, Namespace: "hoster"})

	m.ExecutionStarted()
	m.ExecutionStarted()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.activeExecutions))

	m.RecordExecution(templateName, "npm-ci", false, 30*time.Second)
	m.RecordExecution(templateName, "yarn", true, 2*time.Second)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeExecutions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues(templateName, "npm-ci", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.executions.WithLabelValues(templateName, "yarn", OutcomeFailure)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.executionDuration))
}

func TestHandler_Exposition(t *testing.T) {
	m := New(Config{Enabled: true, Namespace: "hoster"})
	m.RecordCheck(templateName, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `hoster_template_checks_total{result="match",template="exoframe-template-arm32v7-nodejs"} 1`))
}
