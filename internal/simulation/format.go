package simulation

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Japanese)

// yen formats v as a whole number with thousands separators.
func yen(v float64) string {
	return printer.Sprintf("%d", int64(roundHalfAway(v)))
}

// percent formats a ratio with two decimals, e.g. 0.0557 as "5.57%".
func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// wholePercent formats a ratio without decimals, e.g. 0.9 as "90%".
func wholePercent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

func roundHalfAway(v float64) float64 {
	if v < 0 {
		return -float64(int64(-v + 0.5))
	}
	return float64(int64(v + 0.5))
}
