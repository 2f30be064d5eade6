package review

import (
	"testing"

	"cloud.google.com/go/civil"
)

var day0 = civil.Date{Year: 2025, Month: 3, Day: 10}

func enrolledState(t *testing.T, o Outcome) State {
	t.Helper()
	en, ok := o.Enrollment.(Enrolled)
	if !ok {
		t.Fatalf("expected Enrolled, got %T", o.Enrollment)
	}
	return en.State
}

func TestApply_NotEnrolled(t *testing.T) {
	o := Apply(NotEnrolled{}, true, day0)
	if _, ok := o.Enrollment.(NotEnrolled); !ok {
		t.Fatalf("expected NotEnrolled, got %T", o.Enrollment)
	}
	if o.FirstAttemptToday || o.StateChanged {
		t.Errorf("not-enrolled outcome = %+v, want no flags", o)
	}
}

func TestApply_Gate1CorrectPromotes(t *testing.T) {
	s := NewState(1, 2, day0.AddDays(-1))
	o := Apply(Enrolled{State: s}, true, day0)
	got := enrolledState(t, o)

	if got.Gate != Gate2 {
		t.Errorf("Gate = %s, want GATE_2", got.Gate)
	}
	if want := day0.AddDays(7); got.NextReviewDate != want {
		t.Errorf("NextReviewDate = %s, want %s", got.NextReviewDate, want)
	}
	if got.AttemptCount != 1 {
		t.Errorf("AttemptCount = %d, want 1", got.AttemptCount)
	}
	if got.TodayFirstAttemptDate != day0 {
		t.Errorf("TodayFirstAttemptDate = %s, want %s", got.TodayFirstAttemptDate, day0)
	}
	if !o.FirstAttemptToday || !o.StateChanged {
		t.Errorf("flags = %+v, want first and changed", o)
	}
}

func TestApply_Gate2CorrectGraduates(t *testing.T) {
	s := State{Gate: Gate2, NextReviewDate: day0, AttemptCount: 3}
	got := enrolledState(t, Apply(Enrolled{State: s}, true, day0))

	if got.Gate != Graduated {
		t.Errorf("Gate = %s, want GRADUATED", got.Gate)
	}
	if got.NextReviewDate.IsValid() {
		t.Errorf("graduated NextReviewDate = %s, want unset", got.NextReviewDate)
	}
	if err := got.Check(); err != nil {
		t.Errorf("Check() = %v", err)
	}
	if got.AttemptCount != 4 {
		t.Errorf("AttemptCount = %d, want 4", got.AttemptCount)
	}
}

func TestApply_IncorrectDemotes(t *testing.T) {
	for _, g := range []Gate{Gate1, Gate2} {
		s := State{Gate: g, NextReviewDate: day0}
		got := enrolledState(t, Apply(Enrolled{State: s}, false, day0))
		if got.Gate != Gate1 {
			t.Errorf("%s incorrect: Gate = %s, want GATE_1", g, got.Gate)
		}
		if want := day0.AddDays(1); got.NextReviewDate != want {
			t.Errorf("%s incorrect: NextReviewDate = %s, want %s", g, got.NextReviewDate, want)
		}
	}
}

func TestApply_SecondAttemptSameDayIsNoop(t *testing.T) {
	s := State{Gate: Gate1, NextReviewDate: day0}
	first := enrolledState(t, Apply(Enrolled{State: s}, false, day0))

	o := Apply(Enrolled{State: first}, true, day0)
	second := enrolledState(t, o)
	if second != first {
		t.Errorf("second attempt changed state:\n got %+v\nwant %+v", second, first)
	}
	if o.FirstAttemptToday || o.StateChanged {
		t.Errorf("second attempt flags = %+v, want none", o)
	}
}

func TestApply_NextDayCountsAgain(t *testing.T) {
	s := State{Gate: Gate1, NextReviewDate: day0, TodayFirstAttemptDate: day0.AddDays(-1), AttemptCount: 2}
	got := enrolledState(t, Apply(Enrolled{State: s}, true, day0))
	if got.AttemptCount != 3 {
		t.Errorf("AttemptCount = %d, want 3", got.AttemptCount)
	}
}

func TestApply_GraduatedIsTerminal(t *testing.T) {
	s := State{Gate: Graduated, AttemptCount: 5}
	for _, correct := range []bool{true, false} {
		o := Apply(Enrolled{State: s}, correct, day0)
		got := enrolledState(t, o)
		if got != s {
			t.Errorf("graduated state changed: %+v", got)
		}
		if o.StateChanged {
			t.Errorf("graduated StateChanged = true")
		}
	}
}

func TestApply_GateMonotonicity(t *testing.T) {
	rank := map[Gate]int{Gate1: 0, Gate2: 1, Graduated: 2}
	for _, g := range []Gate{Gate1, Gate2} {
		s := State{Gate: g, NextReviewDate: day0}
		up := enrolledState(t, Apply(Enrolled{State: s}, true, day0))
		if rank[up.Gate] != rank[g]+1 {
			t.Errorf("correct from %s went to %s", g, up.Gate)
		}
		down := enrolledState(t, Apply(Enrolled{State: s}, false, day0))
		if down.Gate != Gate1 {
			t.Errorf("incorrect from %s went to %s", g, down.Gate)
		}
	}
}

func TestDecide(t *testing.T) {
	fn := Decide(true, day0)
	got := enrolledState(t, fn(Enrolled{State: State{Gate: Gate1, NextReviewDate: day0}}))
	if got.Gate != Gate2 {
		t.Errorf("Decide(true) gate = %s, want GATE_2", got.Gate)
	}
}

// Scenario: gate 1 correct, later gate 2 correct, graduates.
func TestApply_FullLifecycle(t *testing.T) {
	s := NewState(1, 1, day0)
	d1 := day0.AddDays(1)
	s = enrolledState(t, Apply(Enrolled{State: s}, true, d1))
	if s.Gate != Gate2 || s.NextReviewDate != d1.AddDays(7) {
		t.Fatalf("after day 1: %+v", s)
	}
	d8 := d1.AddDays(7)
	s = enrolledState(t, Apply(Enrolled{State: s}, true, d8))
	if s.Gate != Graduated || s.NextReviewDate.IsValid() || s.AttemptCount != 2 {
		t.Fatalf("after day 8: %+v", s)
	}
}
