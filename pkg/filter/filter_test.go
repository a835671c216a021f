package filter

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/0xmhha/dropwatch/pkg/decoder"
)

func TestIsValidAction(t *testing.T) {
	f := New([]string{"dat"})

	tests := []struct {
		action decoder.Action
		want   bool
	}{
		{decoder.ActionAdded, true},
		{decoder.ActionRenamedNewName, true},
		{decoder.ActionOther, false},
	}

	for _, tt := range tests {
		if got := f.IsValidAction(tt.action); got != tt.want {
			t.Errorf("IsValidAction(%s) = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestIsProcessable(t *testing.T) {
	f := New([]string{"dat", "csv"})
	dir := filepath.Join("data", "inbox")

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"lowercase match", filepath.Join(dir, "file.dat"), true},
		{"uppercase match", filepath.Join(dir, "FILE.DAT"), true},
		{"mixed case match", filepath.Join(dir, "Report.Csv"), true},
		{"non-matching extension", filepath.Join(dir, "b.txt"), false},
		{"no extension", filepath.Join(dir, "README"), false},
		{"trailing dot", filepath.Join(dir, "file."), false},
		{"final dot wins", filepath.Join(dir, "archive.dat.tmp"), false},
		{"double extension", filepath.Join(dir, "archive.tmp.dat"), true},
		{"dot in directory only", filepath.Join("data.dat", "inbox", "file"), false},
		{"dotfile", filepath.Join(dir, ".dat"), true},
		{"bare name", "x.dat", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IsProcessable(tt.path); got != tt.want {
				t.Errorf("IsProcessable(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestNewNormalizesExtensions(t *testing.T) {
	f := New([]string{" .DAT ", "Txt", "", ".", "csv"})

	got := f.Extensions()
	sort.Strings(got)

	want := []string{"csv", "dat", "txt"}
	if len(got) != len(want) {
		t.Fatalf("Extensions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Extensions()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestEmptyFilterRejectsEverything(t *testing.T) {
	f := New(nil)

	if f.IsProcessable("a.dat") {
		t.Error("IsProcessable() = true with no extensions configured")
	}
}

func TestAccept(t *testing.T) {
	f := New([]string{"dat"})

	tests := []struct {
		name string
		rec  decoder.ChangeRecord
		want bool
	}{
		{"added match", decoder.ChangeRecord{Action: decoder.ActionAdded, RelativePath: "a.dat"}, true},
		{"renamed match", decoder.ChangeRecord{Action: decoder.ActionRenamedNewName, RelativePath: "c.dat"}, true},
		{"added mismatch", decoder.ChangeRecord{Action: decoder.ActionAdded, RelativePath: "b.txt"}, false},
		{"other match", decoder.ChangeRecord{Action: decoder.ActionOther, RelativePath: "a.dat"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Accept(tt.rec, tt.rec.RelativePath); got != tt.want {
				t.Errorf("Accept() = %v, want %v", got, tt.want)
			}
		})
	}
}
