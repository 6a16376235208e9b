// Package stats collects per-channel statistics: subscriber counts from the
// channels feed and an outlier-robust baseline of typical view counts.
package stats

import "sort"

// outlierMinSamples is the sample count below which quartile filtering is
// skipped; quartiles on tiny samples throw away real data.
const outlierMinSamples = 10

// trimMinSamples is the sample count below which the trimmed mean degrades
// to a plain mean.
const trimMinSamples = 5

// EstimateBaseline reduces a channel's recent view counts to one robust
// typical-views figure. Samples beyond 2.5 IQR of the quartiles are dropped
// first, then the top and bottom decile are trimmed before averaging, so a
// single viral hit cannot drag the baseline up. Returns false when no usable
// samples remain.
func EstimateBaseline(samples []int64) (float64, bool) {
	views := make([]int64, 0, len(samples))
	for _, v := range samples {
		if v > 0 {
			views = append(views, v)
		}
	}
	if len(views) == 0 {
		return 0, false
	}
	sort.Slice(views, func(i, j int) bool { return views[i] < views[j] })

	if len(views) >= outlierMinSamples {
		q1 := float64(views[len(views)/4])
		q3 := float64(views[3*len(views)/4])
		iqr := q3 - q1
		lower := q1 - 2.5*iqr
		if lower < 0 {
			lower = 0
		}
		upper := q3 + 2.5*iqr

		kept := views[:0]
		for _, v := range views {
			if f := float64(v); f >= lower && f <= upper {
				kept = append(kept, v)
			}
		}
		views = kept
	}
	if len(views) == 0 {
		return 0, false
	}

	if len(views) >= trimMinSamples {
		trim := len(views) / 10
		if trim < 1 {
			trim = 1
		}
		views = views[trim : len(views)-trim]
	}
	return mean(views), true
}

func mean(views []int64) float64 {
	var sum int64
	for _, v := range views {
		sum += v
	}
	return float64(sum) / float64(len(views))
}
