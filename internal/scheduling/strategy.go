package scheduling

import (
	"time"
)

// Reason labels attached to suggested slots.
const (
	ReasonHeuristic = "Heuristic"
	ReasonLearned   = "ML recommended"
)

// Heuristic scores.
const (
	scorePreferred  = 0.8
	scoreAcceptable = 0.6
	scoreFallback   = 0.4
)

// Features describes one candidate appointment for scoring.
type Features struct {
	Hour           int
	Weekday        int // Monday = 0 ... Sunday = 6
	Month          int
	DoctorID       int
	PatientHistory int
}

// FeaturesFor extracts features for an appointment at t.
func FeaturesFor(t time.Time, doctorID, patientHistory int) Features {
	return Features{
		Hour:           t.Hour(),
		Weekday:        mondayFirst(t.Weekday()),
		Month:          int(t.Month()),
		DoctorID:       doctorID,
		PatientHistory: patientHistory,
	}
}

// Vector returns the normalized feature vector fed to learned estimators.
func (f Features) Vector() []float64 {
	return []float64{
		float64(f.Hour) / 24.0,
		float64(f.Weekday) / 6.0,
		float64(f.Month) / 12.0,
		float64(f.DoctorID) / 100.0,
		float64(f.PatientHistory) / 10.0,
	}
}

func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// Strategy scores a candidate slot. Higher is better.
type Strategy interface {
	Name() string
	Score(f Features) float64
}

// HeuristicStrategy prefers mid-morning to early afternoon. It needs no
// training data and always yields one of 0.8, 0.6 or 0.4.
type HeuristicStrategy struct{}

func (HeuristicStrategy) Name() string { return ReasonHeuristic }

func (HeuristicStrategy) Score(f Features) float64 {
	switch {
	case f.Hour >= 10 && f.Hour <= 14:
		return scorePreferred
	case f.Hour >= 9 && f.Hour <= 15:
		return scoreAcceptable
	default:
		return scoreFallback
	}
}

// ForestStrategy scores slots with a regression forest fitted on historical
// slot popularity.
type ForestStrategy struct {
	scaler scaler
	forest *regressionForest
}

func (s *ForestStrategy) Name() string { return ReasonLearned }

func (s *ForestStrategy) Score(f Features) float64 {
	return s.forest.predict(s.scaler.transform(f.Vector()))
}
