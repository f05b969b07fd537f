package livemap

import (
	"fmt"
	"math"
)

//marker colors
const (
	ColorGray  = "gray"
	ColorRed   = "red"
	ColorBlue  = "blue"
	ColorGreen = "green"
)

//lateSeconds and earlySeconds are exclusive thresholds
const (
	lateSeconds  = 120
	earlySeconds = -60
)

//DelayColor returns the marker color for delay in seconds
func DelayColor(delay *int) string {
	if delay == nil {
		return ColorGray
	}
	if *delay > lateSeconds {
		return ColorRed
	}
	if *delay < earlySeconds {
		return ColorBlue
	}
	return ColorGreen
}

//FormatDelay presents delay in whole minutes, rounding half away from zero. Late delays get a "+" prefix
func FormatDelay(delay *int) string {
	if delay == nil {
		return "No info"
	}
	minutes := int(math.Round(float64(*delay) / 60))
	if minutes > 0 {
		return fmt.Sprintf("+%d min", minutes)
	}
	return fmt.Sprintf("%d min", minutes)
}
