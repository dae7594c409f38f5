package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAction = "search_dogs"

func Test_Collector_ObserveCall(t *testing.T) {
	type testCase struct {
		name       string
		err        error
		successful float64
		failed     float64
	}

	run := func(t *testing.T, tc testCase) {
		c := New()
		c.ObserveCall(testAction, 120*time.Millisecond, tc.err)

		assert.Equal(t, tc.successful, testutil.ToFloat64(c.successfulAPICallsTotal.With(labels(testAction))))
		assert.Equal(t, tc.failed, testutil.ToFloat64(c.failedAPICallsTotal.With(labels(testAction))))
		assert.Equal(t, 1, testutil.CollectAndCount(c.apiDelay))
	}

	testCases := []testCase{
		{name: "success", err: nil, successful: 1, failed: 0},
		{name: "failure", err: errors.New("boom"), successful: 0, failed: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			run(t, tc)
		})
	}
}

func Test_Collector_IncUnauthorized(t *testing.T) {
	c := New()
	c.IncUnauthorized()
	c.IncUnauthorized()

	assert.Equal(t, float64(2), testutil.ToFloat64(c.unauthorizedTotal))
}

func Test_Collector_SetActiveWorkspaces(t *testing.T) {
	c := New()
	c.SetActiveWorkspaces(3)

	assert.Equal(t, float64(3), testutil.ToFloat64(c.activeWorkspaces))
}

func Test_Collector_Registry(t *testing.T) {
	c := New()
	c.ObserveCall(testAction, time.Millisecond, nil)

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
