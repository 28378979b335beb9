package paths

import (
	"testing"
)

func TestResolveCollisions_NoCollisions(t *testing.T) {
	keys := []string{"datasets/a.csv", "datasets/b.csv", "datasets/c.csv"}

	result, count := ResolveCollisions(keys)

	if count != 0 {
		t.Errorf("expected 0 collisions, got %d", count)
	}
	for i, want := range []string{"datasets/a.csv", "datasets/b.csv", "datasets/c.csv"} {
		if result[i] != want {
			t.Errorf("expected %s, got %s", want, result[i])
		}
	}
}

func TestResolveCollisions_ThreeDuplicates(t *testing.T) {
	keys := []string{"out/model.sim", "out/model.sim", "out/model.sim"}

	result, count := ResolveCollisions(keys)

	if count != 2 {
		t.Errorf("expected 2 renamed, got %d", count)
	}
	want := []string{"out/model.sim", "out/model_2.sim", "out/model_3.sim"}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("result[%d] = %s, want %s", i, result[i], want[i])
		}
	}
}

func TestResolveCollisions_SkipsTakenSuffix(t *testing.T) {
	keys := []string{"d/data.csv", "d/data_2.csv", "d/data.csv"}

	result, count := ResolveCollisions(keys)

	if count != 1 {
		t.Errorf("expected 1 renamed, got %d", count)
	}
	if result[2] != "d/data_3.csv" {
		t.Errorf("expected d/data_3.csv, got %s", result[2])
	}
}

func TestResolveCollisions_NoExtension(t *testing.T) {
	keys := []string{"d/README", "d/README"}

	result, _ := ResolveCollisions(keys)

	if result[1] != "d/README_2" {
		t.Errorf("expected d/README_2, got %s", result[1])
	}
}

func TestResolveCollisions_DotInDirectory(t *testing.T) {
	keys := []string{"v1.2/README", "v1.2/README"}

	result, _ := ResolveCollisions(keys)

	if result[1] != "v1.2/README_2" {
		t.Errorf("expected v1.2/README_2, got %s", result[1])
	}
}

func TestResolveCollisions_Empty(t *testing.T) {
	result, count := ResolveCollisions(nil)
	if len(result) != 0 || count != 0 {
		t.Errorf("expected empty result, got %v, %d", result, count)
	}
}

func TestResolveCollisions_DotFiles(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"datasets/.env", "datasets/.env"}, "datasets/.env_2"},
		{[]string{".gitignore", ".gitignore"}, ".gitignore_2"},
		{[]string{"d/.env.local", "d/.env.local"}, "d/.env_2.local"},
		{[]string{"d.v1/notes", "d.v1/notes"}, "d.v1/notes_2"},
	}
	for _, tt := range tests {
		result, count := ResolveCollisions(tt.in)
		if count != 1 || result[1] != tt.want {
			t.Errorf("ResolveCollisions(%q) = %q (%d renamed), want second key %s", tt.in, result, count, tt.want)
		}
	}
}
