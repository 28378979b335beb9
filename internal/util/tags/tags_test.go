package tags

import (
	"reflect"
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"trims and lowercases", []string{"  ML ", "Weights"}, []string{"ml", "weights"}},
		{"dedupes case-insensitively", []string{"NLP", "nlp", "Nlp"}, []string{"nlp"}},
		{"splits commas", []string{"a,b", "b, c"}, []string{"a", "b", "c"}},
		{"collapses inner space", []string{"computer   vision"}, []string{"computer vision"}},
		{"drops empties", []string{"", " , ,"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Truncates(t *testing.T) {
	long := strings.Repeat("é", MaxLength+10)
	got := Normalize([]string{long})
	if len(got) != 1 || len([]rune(got[0])) != MaxLength {
		t.Errorf("expected one %d-rune tag, got %q", MaxLength, got)
	}
}

func TestParse(t *testing.T) {
	if got := Parse("   "); got != nil {
		t.Errorf("expected nil, got %q", got)
	}
	if got := Parse("Audio, speech,AUDIO"); !reflect.DeepEqual(got, []string{"audio", "speech"}) {
		t.Errorf("unexpected %q", got)
	}
}
