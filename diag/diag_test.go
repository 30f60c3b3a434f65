package diag

import "testing"

func TestBuilderBuildsImmutableDiagnostic(t *testing.T) {
	b := New(UnknownMethod, "file.able:3:1").
		SetHeader("Method `lenght` does not exist on `String`").
		AddSection("Did you mean:", "`length`").
		AddNote("case-sensitive lookup")

	d := b.Build()
	if d.Code != UnknownMethod {
		t.Fatalf("Code = %s, want UnknownMethod", d.Code)
	}
	if d.Severity != SeverityError {
		t.Fatalf("Severity = %s, want error", d.Severity)
	}
	if len(d.Sections) != 1 || d.Sections[0].Title != "Did you mean:" {
		t.Fatalf("Sections = %+v", d.Sections)
	}

	// Mutating the builder further must not retroactively change d.
	b.AddNote("a second note")
	if len(d.Notes) != 1 {
		t.Fatalf("Build() result was not a snapshot: Notes = %v", d.Notes)
	}
}

func TestInfoCodesAreNotErrors(t *testing.T) {
	d := New(RevealType, "f.able:1:1").SetHeader("Revealed type: `Integer`").Build()
	if d.Severity != SeverityInfo {
		t.Fatalf("RevealType severity = %s, want info", d.Severity)
	}
}

func TestQueueMergeIsOneDirectional(t *testing.T) {
	q := NewQueue()
	q.AddBuilder(New(UnknownMethod, "a"))

	other := NewQueue()
	other.AddBuilder(New(InvalidCast, "b"))

	q.Merge(other)
	if q.Len() != 2 {
		t.Fatalf("q.Len() = %d, want 2", q.Len())
	}
	if other.Len() != 1 {
		t.Fatalf("Merge should not mutate the source queue, other.Len() = %d", other.Len())
	}
}

func TestHasErrorsIgnoresInfoOnlyQueue(t *testing.T) {
	q := NewQueue()
	q.AddBuilder(New(RevealType, "a"))
	if q.HasErrors() {
		t.Fatalf("a queue with only info diagnostics should report HasErrors() = false")
	}
	q.AddBuilder(New(MethodArgumentCountMismatch, "b"))
	if !q.HasErrors() {
		t.Fatalf("expected HasErrors() = true after adding an error diagnostic")
	}
}

func TestDiscardedQueueNeverReachesCaller(t *testing.T) {
	// Simulates the intersection-dispatch pattern from spec §9: the caller
	// builds a local queue for a speculative branch and drops it entirely
	// rather than merging it.
	speculative := NewQueue()
	speculative.AddBuilder(New(UnknownMethod, "speculative"))

	kept := NewQueue()
	_ = speculative // dropped, never merged into kept
	if kept.Len() != 0 {
		t.Fatalf("kept queue should remain empty, got %d", kept.Len())
	}
}
