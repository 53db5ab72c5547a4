package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/ShayCichocki/autonoma/internal/state"
)

// fakeRunner returns canned answers in order.
type fakeRunner struct {
	answers []string
	errs    []error
	calls   int
}

func (f *fakeRunner) RunPrompt(ctx context.Context, system, prompt string) (*Result, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	answer := ""
	if i < len(f.answers) {
		answer = f.answers[i]
	}
	return &Result{Text: answer, ResourceUsed: 100}, nil
}

func TestPlanner_ParsesMilestoneArray(t *testing.T) {
	runner := &fakeRunner{answers: []string{
		"Here is the plan:\n```json\n[{\"name\": \"core\", \"description\": \"build core\", \"phase\": 1, \"estimated_usage\": 5000}]\n```\nGood luck!",
	}}
	p := NewPlanner(runner)

	plan, err := p.Plan(context.Background(), "build a service")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if !plan.Valid {
		t.Fatalf("plan invalid: %s", plan.Reason)
	}
	if len(plan.Milestones) != 1 {
		t.Fatalf("milestones = %d, want 1", len(plan.Milestones))
	}
	m := plan.Milestones[0]
	if m.Name != "core" || m.Phase != 1 || m.EstimatedUsage != 5000 {
		t.Errorf("milestone = %+v", m)
	}
}

func TestPlanner_GarbageAnswerIsInvalidNotError(t *testing.T) {
	runner := &fakeRunner{answers: []string{"I cannot plan this."}}
	p := NewPlanner(runner)

	plan, err := p.Plan(context.Background(), "???")
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plan.Valid {
		t.Error("expected invalid plan for answer without JSON")
	}
	if plan.Reason == "" {
		t.Error("expected a reason on invalid plan")
	}
}

func TestPlanner_BackendErrorPropagates(t *testing.T) {
	runner := &fakeRunner{errs: []error{errors.New("down")}}
	p := NewPlanner(runner)

	if _, err := p.Plan(context.Background(), "anything"); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestDecomposer_ParsesItemSpecs(t *testing.T) {
	runner := &fakeRunner{answers: []string{
		`[{"id": "schema", "description": "design schema"},
		  {"id": "api", "description": "expose api", "dependencies": ["schema"]}]`,
	}}
	d := NewDecomposer(runner)

	specs, err := d.Decompose(context.Background(), state.Milestone{ID: "ms-1", Name: "core", Description: "the core"})
	if err != nil {
		t.Fatalf("Decompose failed: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("specs = %d, want 2", len(specs))
	}
	if specs[1].ID != "api" || len(specs[1].Dependencies) != 1 || specs[1].Dependencies[0] != "schema" {
		t.Errorf("spec = %+v", specs[1])
	}
}

func TestDecomposer_UnparseableAnswerIsError(t *testing.T) {
	runner := &fakeRunner{answers: []string{"no items here"}}
	d := NewDecomposer(runner)

	if _, err := d.Decompose(context.Background(), state.Milestone{ID: "ms-1"}); err == nil {
		t.Fatal("expected error for answer without JSON")
	}
}

func TestDecomposer_EmptyArrayIsError(t *testing.T) {
	runner := &fakeRunner{answers: []string{"[]"}}
	d := NewDecomposer(runner)

	if _, err := d.Decompose(context.Background(), state.Milestone{ID: "ms-1"}); err == nil {
		t.Fatal("expected error for empty item array")
	}
}

func TestImplementer_Success(t *testing.T) {
	runner := &fakeRunner{answers: []string{"changed the files"}}
	im := NewImplementer(runner)

	res, err := im.Execute(context.Background(), state.WorkItem{ID: "w1", Description: "do work"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success {
		t.Errorf("success = false: %s", res.Reason)
	}
	if res.Output != "changed the files" {
		t.Errorf("output = %q", res.Output)
	}
	if res.ResourceUsed != 100 {
		t.Errorf("resource used = %d, want 100", res.ResourceUsed)
	}
}

func TestImplementer_RetriesTransientBackendError(t *testing.T) {
	runner := &fakeRunner{
		errs:    []error{errors.New("transient"), nil},
		answers: []string{"", "done on retry"},
	}
	im := NewImplementer(runner)
	im.backoffBase = 0

	res, err := im.Execute(context.Background(), state.WorkItem{ID: "w1"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !res.Success {
		t.Errorf("success = false after retry: %s", res.Reason)
	}
	if runner.calls != 2 {
		t.Errorf("calls = %d, want 2", runner.calls)
	}
}

func TestImplementer_ExhaustedBackendReportsFailure(t *testing.T) {
	runner := &fakeRunner{errs: []error{errors.New("down"), errors.New("still down")}}
	im := NewImplementer(runner)
	im.backoffBase = 0

	res, err := im.Execute(context.Background(), state.WorkItem{ID: "w1"})
	if err != nil {
		t.Fatalf("Execute returned error, want failed result: %v", err)
	}
	if res.Success {
		t.Error("success = true with backend down")
	}
	if res.Reason == "" {
		t.Error("expected a failure reason")
	}
}

func TestReviewer_ApprovedVerdict(t *testing.T) {
	runner := &fakeRunner{answers: []string{`Looks good. {"approved": true, "feedback": "ship it"}`}}
	r := NewReviewer(runner)

	verdict, err := r.Review(context.Background(), state.WorkItem{ID: "w1"}, "the work")
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if !verdict.Approved {
		t.Errorf("approved = false: %s", verdict.Feedback)
	}
	if verdict.Feedback != "ship it" {
		t.Errorf("feedback = %q", verdict.Feedback)
	}
}

func TestReviewer_UnparseableVerdictRejects(t *testing.T) {
	runner := &fakeRunner{answers: []string{"maybe?"}}
	r := NewReviewer(runner)

	verdict, err := r.Review(context.Background(), state.WorkItem{ID: "w1"}, "the work")
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if verdict.Approved {
		t.Error("unparseable verdict must not approve")
	}
}

func TestReviewer_BackendErrorPropagates(t *testing.T) {
	runner := &fakeRunner{errs: []error{errors.New("down")}}
	r := NewReviewer(runner)

	if _, err := r.Review(context.Background(), state.WorkItem{ID: "w1"}, "work"); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestParseCLIOutput(t *testing.T) {
	out, err := parseCLIOutput([]byte(`{"result": "done", "is_error": false, "usage": {"input_tokens": 40, "output_tokens": 60}}`))
	if err != nil {
		t.Fatalf("parseCLIOutput failed: %v", err)
	}
	if out.Text != "done" {
		t.Errorf("text = %q", out.Text)
	}
	if out.ResourceUsed != 100 {
		t.Errorf("resource used = %d, want 100", out.ResourceUsed)
	}
}

func TestParseCLIOutput_ErrorEnvelope(t *testing.T) {
	if _, err := parseCLIOutput([]byte(`{"result": "quota exceeded", "is_error": true}`)); err == nil {
		t.Fatal("expected error for is_error envelope")
	}
}

func TestParseCLIOutput_Garbage(t *testing.T) {
	if _, err := parseCLIOutput([]byte("not json")); err == nil {
		t.Fatal("expected error for non-JSON output")
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`[1, 2]`, `[1, 2]`, true},
		{"prose before\n[1]\nprose after", `[1]`, true},
		{"no array at all", "", false},
		{"] backwards [", "", false},
	}
	for _, tt := range tests {
		got, ok := extractJSONArray(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("extractJSONArray(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
