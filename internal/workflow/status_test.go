package workflow

import "testing"

func TestTransitionAllowsPipelineOrder(t *testing.T) {
	steps := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusValidating},
		{StatusValidating, StatusValidated},
		{StatusValidated, StatusAnalyzing},
		{StatusAnalyzing, StatusAnalyzed},
		{StatusAnalyzed, StatusCompleted},
	}
	for _, step := range steps {
		got, err := Transition(step.from, step.to)
		if err != nil {
			t.Fatalf("Transition(%s, %s) returned error: %v", step.from, step.to, err)
		}
		if got != step.to {
			t.Fatalf("Transition(%s, %s) = %s", step.from, step.to, got)
		}
	}
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	illegal := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusAnalyzing},
		{StatusPending, StatusCompleted},
		{StatusRejected, StatusValidated},
		{StatusRejected, StatusPending},
		{StatusCompleted, StatusAnalyzed},
		{StatusValidated, StatusCompleted},
	}
	for _, step := range illegal {
		if _, err := Transition(step.from, step.to); err == nil {
			t.Errorf("Transition(%s, %s) should have failed", step.from, step.to)
		}
	}
}

func TestApplyImprovementRestartsPipeline(t *testing.T) {
	for _, from := range []Status{StatusCompleted, StatusAnalyzed, StatusFailed} {
		if !CanTransition(from, StatusPending) {
			t.Errorf("CanTransition(%s, pending) = false", from)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusPending:    false,
		StatusValidating: false,
		StatusValidated:  false,
		StatusRejected:   true,
		StatusAnalyzing:  false,
		StatusAnalyzed:   false,
		StatusCompleted:  true,
		StatusFailed:     true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("analyzing"); err != nil {
		t.Fatalf("ParseStatus(analyzing) returned error: %v", err)
	}
	if _, err := ParseStatus("bogus"); err == nil {
		t.Fatal("ParseStatus(bogus) should have failed")
	}
}
