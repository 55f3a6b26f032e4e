package calculator

import (
	"fmt"

	"MinerviniScreener/internal/model"

	"gonum.org/v1/gonum/stat"
)

// recentVolumeBars is the number of sessions averaged for the recent side of the ratio.
const recentVolumeBars = 3

// VolumeRatio is the mean volume of the last three sessions divided by the
// mean volume of the whole series.
func VolumeRatio(volumes []float64) (float64, error) {
	if len(volumes) < recentVolumeBars {
		return 0, fmt.Errorf("volume ratio needs %d bars, have %d: %w", recentVolumeBars, len(volumes), model.ErrInsufficientHistory)
	}
	avg := stat.Mean(volumes, nil)
	if avg <= 0 {
		return 0, fmt.Errorf("no traded volume in window: %w", model.ErrInsufficientHistory)
	}
	recent := stat.Mean(volumes[len(volumes)-recentVolumeBars:], nil)
	return recent / avg, nil
}
