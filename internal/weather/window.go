package weather

import (
	"sort"
	"time"

	"climaroute/internal/types"
)

// BuildWindow transforms a raw time-ordered hourly series into a feature
// window of exactly types.WindowSize rows ending at or before now.
//
// The provider returns forecast rows beyond the current hour; those are
// filtered out first. The remaining rows are sorted ascending (the provider is
// assumed ordered but not guaranteed) and the last WindowSize rows are kept.
//
// When fewer than WindowSize rows remain, the most recent row is duplicated
// until the window is full. This keeps the tensor shape valid at the cost of
// flattening recent variability when data is sparse; callers must not treat
// each row as independent observational evidence.
//
// An empty series is a failure: the builder does not synthesize data from
// nothing.
func BuildWindow(obs []types.Observation, now time.Time) (types.FeatureWindow, error) {
	usable := make([]types.Observation, 0, len(obs))
	for _, o := range obs {
		if o.Time.After(now) {
			continue
		}
		usable = append(usable, o)
	}

	if len(usable) == 0 {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			"no usable weather observations at or before the reference time",
			nil,
		)
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Time.Before(usable[j].Time)
	})

	if len(usable) > types.WindowSize {
		usable = usable[len(usable)-types.WindowSize:]
	}
	for len(usable) < types.WindowSize {
		usable = append(usable, usable[len(usable)-1])
	}

	window := make(types.FeatureWindow, types.WindowSize)
	for i, o := range usable {
		window[i] = types.NewFeatureVector(o)
	}
	return window, nil
}
