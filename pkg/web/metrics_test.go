package web

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiral-chawra/Protofito/pkg/exercise"
	"github.com/hiral-chawra/Protofito/pkg/protocol"
	"github.com/hiral-chawra/Protofito/pkg/session"
)

func TestMetricsReadLiveCounters(t *testing.T) {
	srv, sess, _ := newTestServer(t)
	reg := srv.newMetrics()

	for _, deg := range []float64{170, 80, 170} {
		_, err := sess.Process(armFrame(time.Now(), deg))
		require.NoError(t, err)
	}
	msg, err := protocol.NewFrameMessage(armFrame(time.Time{}, 170))
	require.NoError(t, err)
	raw, err := msg.Bytes()
	require.NoError(t, err)
	require.Nil(t, srv.handleIngestMessage(raw))

	expected := `
# HELP protofito_ticks_total Frames processed in the current session.
# TYPE protofito_ticks_total counter
protofito_ticks_total 3
# HELP protofito_reps Completed repetitions in the current session.
# TYPE protofito_reps gauge
protofito_reps 1
# HELP protofito_ingest_frames_total Frames received on the ingest websocket.
# TYPE protofito_ingest_frames_total counter
protofito_ingest_frames_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"protofito_ticks_total", "protofito_reps", "protofito_ingest_frames_total"))

	sess.Start()
	n, err := testutil.GatherAndCount(reg, "protofito_ticks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP protofito_ticks_total Frames processed in the current session.
# TYPE protofito_ticks_total counter
protofito_ticks_total 0
`), "protofito_ticks_total"))
}

func TestMetricsWithoutIngest(t *testing.T) {
	m, err := exercise.LookupMovement(exercise.PushUp)
	require.NoError(t, err)
	sess, err := session.New(m, session.WithLogger(quietLogger()))
	require.NoError(t, err)
	catalog, err := exercise.DefaultCatalog()
	require.NoError(t, err)

	srv := NewServer(DefaultConfig(), sess, catalog, nil, quietLogger())

	n, err := testutil.GatherAndCount(srv.newMetrics(), "protofito_ingest_queue_dropped_total")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = testutil.GatherAndCount(srv.newMetrics())
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}
