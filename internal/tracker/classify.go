package tracker

import "github.com/suspectuso/airdrop-tracker/internal/notifier"

// Thresholds are the inclusive lower bounds of the valued tiers
type Thresholds struct {
	High   float64
	Medium float64
}

// Classify maps an estimated value to a tier. Unknown value is normal.
func Classify(total *float64, th Thresholds) notifier.Priority {
	switch {
	case total == nil:
		return notifier.PriorityNormal
	case *total >= th.High:
		return notifier.PriorityHigh
	case *total >= th.Medium:
		return notifier.PriorityMedium
	default:
		return notifier.PriorityNormal
	}
}
