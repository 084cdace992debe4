package stats

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsUpdater(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux())
	su.RegisterMetric("TestMetric")
	su.Run()
	defer su.Stop()

	su.Incr("TestMetric")
	su.Decr("TestMetric")

	assert.NotNil(t, su.vars.Get("TestMetric"), "expected metric to be registered")
	assert.NotNil(t, su.vars.Get("Uptime"), "expected uptime metric to be initialized")
}
