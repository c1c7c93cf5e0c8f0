package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(prometheus.NewRegistry())
	require.NotNil(t, r)
	assert.NotNil(t, r.QueueDepth)
	assert.NotNil(t, r.BlockedWorkers)
	assert.NotNil(t, r.GraphUpdatesApplied)
	assert.NotNil(t, r.PathsReturned)
}

func TestNewRegistry_MetricsAreActuallyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry(reg)
	r.QueueDepth.Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() == "pathengine_queue_depth" {
			found = true
		}
	}
	assert.True(t, found)
}
