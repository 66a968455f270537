package models

import "testing"

// NOTE: DB-free; validates the weight invariants only.

func TestDefaultWeightSettingsAreValid(t *testing.T) {
	if err := DefaultWeightSettings("org-1").Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestWeightCategorySumRejected(t *testing.T) {
	// 99 and 101 both miss the 100 target beyond tolerance.
	low := DefaultWeightSettings("org-1")
	low.RiskLateDays = 24
	if err := low.Validate(); err == nil {
		t.Errorf("risk sum 99 must be rejected")
	}

	high := DefaultWeightSettings("org-1")
	high.RiskLateDays = 26
	if err := high.Validate(); err == nil {
		t.Errorf("risk sum 101 must be rejected")
	}

	exact := DefaultWeightSettings("org-1")
	exact.RiskLateDays = 30
	exact.RiskOutstandingAtRisk = 15
	if err := exact.Validate(); err != nil {
		t.Errorf("risk sum 100 must be accepted: %v", err)
	}
}

func TestFeedbackCategorySumRejected(t *testing.T) {
	s := DefaultWeightSettings("org-1")
	s.FeedbackOutlook = 16
	if err := s.Validate(); err == nil {
		t.Errorf("feedback sum 101 must be rejected")
	}
}

func TestUrgencyWeightsOnlyNeedPositiveTotal(t *testing.T) {
	s := DefaultWeightSettings("org-1")
	s.UrgencyRisk = 1
	s.UrgencyDays = 0
	s.UrgencyFeedback = 0
	if err := s.Validate(); err != nil {
		t.Errorf("any positive urgency total must validate: %v", err)
	}

	s.UrgencyRisk = 0
	if err := s.Validate(); err == nil {
		t.Errorf("zero urgency total must be rejected")
	}
}

func TestWeightFieldRanges(t *testing.T) {
	s := DefaultWeightSettings("org-1")
	s.RiskLateDays = -5
	s.RiskOutstandingAtRisk = 50 // keep the sum at 100 so the range check fires
	if err := s.Validate(); err == nil {
		t.Errorf("negative weight must be rejected")
	}
}
