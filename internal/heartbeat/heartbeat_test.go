package heartbeat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keshon/disharmony/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type monitor struct {
	hits   atomic.Int32
	status atomic.Int32
}

func newMonitor(t *testing.T, status int) (*monitor, *httptest.Server) {
	t.Helper()
	m := &monitor{}
	m.status.Store(int32(status))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.hits.Add(1)
		w.WriteHeader(int(m.status.Load()))
	}))
	t.Cleanup(srv.Close)
	return m, srv
}

func TestStart_InitialFailureNeverSchedules(t *testing.T) {
	m, srv := newMonitor(t, http.StatusServiceUnavailable)
	hb := New(srv.URL, 5*time.Millisecond, logging.Nop())

	err := hb.Start(context.Background())
	require.Error(t, err)
	assert.False(t, hb.Running())

	time.Sleep(40 * time.Millisecond)
	assert.EqualValues(t, 1, m.hits.Load())
}

func TestStart_RecursAndToleratesLaterFailures(t *testing.T) {
	m, srv := newMonitor(t, http.StatusNoContent)
	hb := New(srv.URL, 5*time.Millisecond, logging.Nop())
	t.Cleanup(hb.Stop)

	require.NoError(t, hb.Start(context.Background()))
	assert.True(t, hb.Running())

	m.status.Store(http.StatusInternalServerError)
	assert.Eventually(t, func() bool { return m.hits.Load() >= 4 }, time.Second, 5*time.Millisecond)
	assert.True(t, hb.Running())

	hb.Stop()
	assert.False(t, hb.Running())
	time.Sleep(10 * time.Millisecond) // let a cancelled in-flight request land
	settled := m.hits.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, settled, m.hits.Load())
}

func TestStart_DisabledWithoutURL(t *testing.T) {
	hb := New("", time.Second, logging.Nop())

	assert.False(t, hb.Enabled())
	assert.NoError(t, hb.Start(context.Background()))
	assert.False(t, hb.Running())
}

func TestPing_NetworkError(t *testing.T) {
	hb := New("http://127.0.0.1:1/ping", time.Second, logging.Nop())
	assert.Error(t, hb.Ping(context.Background()))
}
