package pitch

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Pitch
		str  string
	}{
		{"C4", 60, "C4"},
		{"C#4", 61, "C#4"},
		{"Db4", 61, "C#4"},
		{"A4", 69, "A4"},
		{"F3", 53, "F3"},
		{"F6", 89, "F6"},
		{"B#3", 60, "C4"},
		{"c4", 60, "C4"},
		{" G5 ", 79, "G5"},
	}

	for _, tt := range tests {
		got, err := Parse(tt.name)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q): got %d, want %d", tt.name, got, tt.want)
		}
		if got.String() != tt.str {
			t.Errorf("Parse(%q).String(): got %q, want %q", tt.name, got.String(), tt.str)
		}
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, name := range []string{"", "C", "H4", "C#", "Cx4", "C99", "4C", "C+4", "C#+4", "C-", "C--1", "C4.0", "C 4"} {
		if _, err := Parse(name); !errors.Is(err, ErrInvalidPitch) {
			t.Errorf("Parse(%q): expected ErrInvalidPitch, got %v", name, err)
		}
	}
}

func TestCentsFrom_ShiftTable(t *testing.T) {
	// 参考录音为 C#4 时，F3..F6 对应 -800..2800 音分
	ref := MustParse("C#4")
	notes := Range(MustParse("F3"), MustParse("F6"))
	if len(notes) != 37 {
		t.Fatalf("expected 37 pitches, got %d", len(notes))
	}
	if c := notes[0].CentsFrom(ref); c != -800 {
		t.Errorf("F3: got %d cents, want -800", c)
	}
	if c := notes[7].CentsFrom(ref); c != -100 || notes[7].String() != "C4" {
		t.Errorf("index 7: got %s %d cents, want C4 -100", notes[7], c)
	}
	if c := notes[36].CentsFrom(ref); c != 2800 {
		t.Errorf("F6: got %d cents, want 2800", c)
	}
}

func TestRange_Empty(t *testing.T) {
	if r := Range(MustParse("C5"), MustParse("C4")); r != nil {
		t.Errorf("expected nil for reversed range, got %v", r)
	}
	if r := Range(None, MustParse("C4")); r != nil {
		t.Errorf("expected nil for None bound, got %v", r)
	}
}

func TestParse_NegativeOctave(t *testing.T) {
	p, err := Parse("C-1")
	if err != nil {
		t.Fatalf("Parse(C-1) failed: %v", err)
	}
	if p != 0 {
		t.Errorf("Parse(C-1): got %d, want 0", p)
	}
}
