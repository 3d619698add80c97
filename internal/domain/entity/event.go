package entity

import (
	"strconv"
	"strings"
)

// EventType is the kind of training event; each carries a reimbursement percentage
type EventType string

const (
	EventTypeUniversityCourse  EventType = "UNIVERSITY_COURSE"
	EventTypeSeminar           EventType = "SEMINAR"
	EventTypeCertificationPrep EventType = "CERTIFICATION_PREPARATION_CLASS"
	EventTypeCertification     EventType = "CERTIFICATION"
	EventTypeTechnicalTraining EventType = "TECHNICAL_TRAINING"
	EventTypeOther             EventType = "OTHER"
)

var eventTypePercentages = map[EventType]float64{
	EventTypeUniversityCourse:  0.80,
	EventTypeSeminar:           0.60,
	EventTypeCertificationPrep: 0.75,
	EventTypeCertification:     1.00,
	EventTypeTechnicalTraining: 0.90,
	EventTypeOther:             0.30,
}

// Percentage returns the share of the cost that is reimbursable
func (t EventType) Percentage() float64 {
	return eventTypePercentages[t]
}

// IsValid reports whether t is a known event type
func (t EventType) IsValid() bool {
	_, ok := eventTypePercentages[t]
	return ok
}

// GradingFormat determines how the final grade is judged and who signs off the final slot
type GradingFormat string

const (
	GradingLetter       GradingFormat = "LETTER"
	GradingPercentage   GradingFormat = "PERCENTAGE"
	GradingPassFail     GradingFormat = "PASS_FAIL"
	GradingPresentation GradingFormat = "PRESENTATION"
)

// IsValid reports whether f is a known grading format
func (f GradingFormat) IsValid() bool {
	switch f {
	case GradingLetter, GradingPercentage, GradingPassFail, GradingPresentation:
		return true
	}
	return false
}

// PassingGrade returns the lowest grade that counts as passing
func (f GradingFormat) PassingGrade() string {
	switch f {
	case GradingLetter:
		return "C"
	case GradingPercentage:
		return "70"
	case GradingPassFail:
		return "PASS"
	}
	return ""
}

// IsPassing judges grade against the format's passing grade
func (f GradingFormat) IsPassing(grade string) bool {
	grade = strings.ToUpper(strings.TrimSpace(grade))
	if grade == "" {
		return false
	}

	switch f {
	case GradingLetter:
		// letters rank A (best) to F; modifiers such as "B+" are ignored
		letter := grade[0]
		if letter < 'A' || letter > 'F' || letter == 'E' {
			return false
		}
		return letter <= f.PassingGrade()[0]
	case GradingPercentage:
		score, err := strconv.ParseFloat(strings.TrimSuffix(grade, "%"), 64)
		if err != nil {
			return false
		}
		passing, _ := strconv.ParseFloat(f.PassingGrade(), 64)
		return score >= passing
	case GradingPassFail:
		return grade == f.PassingGrade()
	case GradingPresentation:
		return true
	}
	return false
}
