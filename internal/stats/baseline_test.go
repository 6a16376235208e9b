package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateBaselineIgnoresViralOutlier(t *testing.T) {
	// Eleven typical uploads plus one viral hit. The hit sits far beyond
	// 2.5 IQR and must not drag the baseline up.
	samples := []int64{
		4800, 5100, 4900, 5300, 5000, 4700,
		5200, 4600, 5400, 5050, 4950,
		2_000_000,
	}
	baseline, ok := EstimateBaseline(samples)
	require.True(t, ok)
	assert.InDelta(t, 5000, baseline, 200)
}

func TestEstimateBaselineIgnoresTwoViralOutliers(t *testing.T) {
	// Ten typical uploads plus two hits at roughly 50x the median. The
	// baseline must land within 10% of the mean of the ten normal values.
	samples := []int64{
		4800, 5100, 4900, 5300, 5000, 4700,
		5200, 4600, 5400, 5000,
		250_000, 250_000,
	}
	baseline, ok := EstimateBaseline(samples)
	require.True(t, ok)
	assert.InDelta(t, 5000, baseline, 500)
}

func TestEstimateBaselineTrimsExtremes(t *testing.T) {
	// Too few samples for quartile filtering, enough for the trimmed mean:
	// the single min and max are dropped before averaging.
	samples := []int64{100, 1000, 1100, 1200, 9000}
	baseline, ok := EstimateBaseline(samples)
	require.True(t, ok)
	assert.InDelta(t, 1100, baseline, 1)
}

func TestEstimateBaselineSmallSamplePlainMean(t *testing.T) {
	baseline, ok := EstimateBaseline([]int64{100, 200, 300})
	require.True(t, ok)
	assert.InDelta(t, 200, baseline, 1)
}

func TestEstimateBaselineSingleSample(t *testing.T) {
	baseline, ok := EstimateBaseline([]int64{777})
	require.True(t, ok)
	assert.Equal(t, 777.0, baseline)
}

func TestEstimateBaselineDropsNonPositive(t *testing.T) {
	baseline, ok := EstimateBaseline([]int64{0, 0, 500, -1})
	require.True(t, ok)
	assert.Equal(t, 500.0, baseline)
}

func TestEstimateBaselineEmpty(t *testing.T) {
	_, ok := EstimateBaseline(nil)
	assert.False(t, ok)

	_, ok = EstimateBaseline([]int64{0, 0})
	assert.False(t, ok)
}
