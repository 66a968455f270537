package scoring

// Fixed classification thresholds; independent of configured weights.
const (
	ThresholdExtremelyUrgent  = 60.0
	ThresholdUrgent           = 40.0
	ThresholdModeratelyUrgent = 20.0
)

const (
	ClassificationExtremelyUrgent  = "Extremely Urgent"
	ClassificationUrgent           = "Urgent"
	ClassificationModeratelyUrgent = "Moderately Urgent"
	ClassificationLowUrgency       = "Low Urgency"
)

// Classify maps a composite urgency score to its tier. This is the only place
// the thresholds live; every producer and display path calls it.
func Classify(compositeUrgency float64) string {
	switch {
	case compositeUrgency >= ThresholdExtremelyUrgent:
		return ClassificationExtremelyUrgent
	case compositeUrgency >= ThresholdUrgent:
		return ClassificationUrgent
	case compositeUrgency >= ThresholdModeratelyUrgent:
		return ClassificationModeratelyUrgent
	default:
		return ClassificationLowUrgency
	}
}
