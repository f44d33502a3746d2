package voicein

import (
	"testing"

	"github.com/echo-copilot/echo/internal/model"
)

func TestMatchOrdinalWithStripWords(t *testing.T) {
	m := NewMatcher(0.6)
	r := m.Match("the option two please", []string{"Allow", "Deny", "Edit"}, "")
	if r.Method != model.MatchOrdinal || r.MatchedText != "Deny" {
		t.Fatalf("got %+v, want ordinal match on Deny", r)
	}
}

func TestMatchYesNoForPermissionPrompt(t *testing.T) {
	m := NewMatcher(0.6)
	r := m.Match("yeah go ahead", []string{"Allow", "Deny"}, model.BlockPermission)
	if r.Method != model.MatchYesNo || r.MatchedText != "Allow" {
		t.Fatalf("got %+v, want yes/no match on Allow", r)
	}

	r = m.Match("no way", []string{"Allow", "Deny"}, model.BlockPermission)
	if r.Method != model.MatchYesNo || r.MatchedText != "Deny" {
		t.Fatalf("got %+v, want yes/no match on Deny", r)
	}
}

func TestMatchYesNoDoesNotApplyOutsidePermission(t *testing.T) {
	m := NewMatcher(0.6)
	r := m.Match("yes", []string{"Allow", "Deny"}, model.BlockIdle)
	if r.Method == model.MatchYesNo {
		t.Fatal("yes/no shortcut must not apply outside permission prompts")
	}
}

func TestMatchDirectSubstring(t *testing.T) {
	m := NewMatcher(0.6)
	r := m.Match("I want to edit the file", []string{"Edit the file", "Cancel"}, "")
	if r.Method != model.MatchDirect || r.MatchedText != "Edit the file" {
		t.Fatalf("got %+v, want direct match", r)
	}
}

func TestMatchFuzzyAboveThreshold(t *testing.T) {
	m := NewMatcher(0.5)
	r := m.Match("continew", []string{"Continue", "Abort"}, "")
	if r.Method != model.MatchFuzzy || r.MatchedText != "Continue" {
		t.Fatalf("got %+v, want fuzzy match on Continue", r)
	}
}

func TestMatchVerbatimWhenNoOptions(t *testing.T) {
	m := NewMatcher(0.6)
	r := m.Match("  go fix the bug  ", nil, "")
	if r.Method != model.MatchVerbatim || r.MatchedText != "go fix the bug" {
		t.Fatalf("got %+v, want trimmed verbatim", r)
	}
}

func TestMatchFallsBackToVerbatimBelowFuzzyThreshold(t *testing.T) {
	m := NewMatcher(0.95)
	r := m.Match("completely unrelated text", []string{"Allow", "Deny"}, "")
	if r.Method != model.MatchVerbatim {
		t.Fatalf("got %+v, want verbatim fallback", r)
	}
}
