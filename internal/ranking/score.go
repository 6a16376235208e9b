// Package ranking scores retained videos by how much they outperform their
// channel's baseline, so the feed surfaces standout uploads instead of raw
// view counts.
package ranking

import "math"

// Component weights. They sum to 1.0 with the maximum tier bonuses.
const (
	weightRelative   = 0.35
	weightEngagement = 0.25
	weightForecast   = 0.20
	weightVelocity   = 0.10
)

// performanceCap bounds the views-to-baseline ratio so one monster upload
// cannot saturate the whole score.
const performanceCap = 5.0

// Score is the composite performance score plus its components, kept for
// display and debugging.
type Score struct {
	Total               float64 `json:"total"`
	RelativePerformance float64 `json:"relative_performance"`
	SubscriberReach     float64 `json:"subscriber_reach"`
	ForecastRelative    float64 `json:"forecast_relative_performance"`
	Velocity            float64 `json:"velocity"`
}

// Inputs are the raw signals for one video.
type Inputs struct {
	Views         int64
	AgeHours      float64
	Subscribers   int64
	BaselineViews float64
	// DurationSeconds is nil when the tile carried no duration badge.
	DurationSeconds *int64
}

// ObservedFraction estimates what share of a video's eventual 48-hour views
// has already arrived at the given age. Roughly 60% land in the first 8
// hours and 95% by hour 48.
func ObservedFraction(ageHours float64) float64 {
	switch {
	case ageHours <= 0:
		return 0.05
	case ageHours <= 8:
		return math.Max(0.05, 0.6*(ageHours/8.0))
	case ageHours < 48:
		return 0.6 + 0.35*((ageHours-8.0)/40.0)
	default:
		return 0.95
	}
}

// PredictedViews48h forecasts where the view count is heading by hour 48.
// Past that point the observed count is the forecast.
func PredictedViews48h(views int64, ageHours float64) float64 {
	if ageHours >= 48 {
		return float64(views)
	}
	fraction := ObservedFraction(ageHours)
	if fraction < 0.05 {
		fraction = 0.05
	}
	return float64(views) * 0.95 / fraction
}

// Compute scores one video. Videos on channels without a known subscriber
// count or baseline score zero; ranking needs both reference points.
func Compute(in Inputs) Score {
	s := Score{}
	if in.BaselineViews > 0 {
		s.RelativePerformance = float64(in.Views) / in.BaselineViews
	}
	if in.Subscribers > 0 {
		s.SubscriberReach = float64(in.Views) / float64(in.Subscribers)
	}
	if in.BaselineViews > 0 {
		s.ForecastRelative = PredictedViews48h(in.Views, in.AgeHours) / in.BaselineViews
	}
	if in.AgeHours > 1 {
		s.Velocity = float64(in.Views) / in.AgeHours
	} else {
		s.Velocity = float64(in.Views)
	}

	if in.Subscribers <= 0 || in.BaselineViews <= 0 {
		return s
	}

	total := capRatio(s.RelativePerformance) * weightRelative
	total += math.Min(math.Sqrt(s.SubscriberReach*10), 1.0) * weightEngagement
	total += capRatio(s.ForecastRelative) * weightForecast

	if in.AgeHours > 1 {
		total += math.Min(math.Log10(1+float64(in.Views)/in.AgeHours)/5.0, 1.0) * weightVelocity
	} else {
		// Too young for a meaningful rate; grant the full velocity weight.
		total += weightVelocity
	}

	total += sizeBonus(in.Subscribers)
	total += durationBonus(in.DurationSeconds)

	s.Total = total
	return s
}

func capRatio(ratio float64) float64 {
	return math.Min(ratio, performanceCap) / performanceCap
}

// sizeBonus levels the field for small channels, whose absolute numbers
// can never compete with the mega-channels.
func sizeBonus(subscribers int64) float64 {
	switch {
	case subscribers < 100_000:
		return 0.07
	case subscribers < 1_000_000:
		return 0.05
	case subscribers < 10_000_000:
		return 0.02
	default:
		return 0
	}
}

// durationBonus nudges mid-length videos up. 10 to 30 minutes is the sweet
// spot; unknown durations get the long-form default.
func durationBonus(seconds *int64) float64 {
	if seconds == nil || *seconds <= 0 {
		return 0.015
	}
	switch d := *seconds; {
	case d < 120:
		return 0.01
	case d < 600:
		return 0.02
	case d < 1800:
		return 0.03
	case d < 3600:
		return 0.02
	default:
		return 0.015
	}
}
