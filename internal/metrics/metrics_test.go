package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveLeaderboard(t *testing.T) {
	before := testutil.ToFloat64(LeaderboardRequests.WithLabelValues("weekly", "ok"))

	ObserveLeaderboard("weekly", "ok", 7)
	ObserveLeaderboard("weekly", "ok", 3)

	assert.Equal(t, before+2, testutil.ToFloat64(LeaderboardRequests.WithLabelValues("weekly", "ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(LeaderboardEntries.WithLabelValues("weekly")))
}
