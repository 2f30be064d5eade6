package review

import "cloud.google.com/go/civil"

// Outcome is the result of applying a verdict to an enrollment.
type Outcome struct {
	Enrollment        Enrollment
	FirstAttemptToday bool
	StateChanged      bool
}

// TransitionFunc decides the next enrollment from the current one.
type TransitionFunc func(Enrollment) Outcome

// Decide binds a verdict and a day into a TransitionFunc.
func Decide(correct bool, today civil.Date) TransitionFunc {
	return func(e Enrollment) Outcome {
		return Apply(e, correct, today)
	}
}

// Apply runs the daily gate rule.
//
// Only the first attempt of a calendar day may move the state. A
// not-enrolled item and a graduated state are left untouched.
func Apply(e Enrollment, correct bool, today civil.Date) Outcome {
	en, ok := e.(Enrolled)
	if !ok {
		return Outcome{Enrollment: NotEnrolled{}}
	}
	s := en.State
	if s.Gate == Graduated || s.AttemptedOn(today) {
		return Outcome{Enrollment: en}
	}

	s.AttemptCount++
	s.TodayFirstAttemptDate = today
	if correct {
		s.Gate = s.Gate.Next()
		if s.Gate == Graduated {
			s.NextReviewDate = civil.Date{}
		} else {
			s.NextReviewDate = today.AddDays(PromoteIntervalDays)
		}
	} else {
		s.Gate = Gate1
		s.NextReviewDate = today.AddDays(RetryIntervalDays)
	}
	return Outcome{
		Enrollment:        Enrolled{State: s},
		FirstAttemptToday: true,
		StateChanged:      true,
	}
}
