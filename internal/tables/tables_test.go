package tables

import (
	"testing"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/resolver"
)

func entry(name string, v resolver.Value) resolver.Entry {
	return resolver.Entry{Name: name, Value: v}
}

func defaultFamilies(t *testing.T) []Family {
	t.Helper()
	var out []Family
	for _, f := range [][2]string{{"error", "CrError_"}, {"warning", "CrWarning_*"}, {"notify", "CrNotify_"}} {
		fam, err := NewFamily(f[0], f[1])
		if err != nil {
			t.Fatalf("NewFamily(%s): %v", f[1], err)
		}
		out = append(out, fam)
	}
	return out
}

func TestByFamilyOneEntryPerFamily(t *testing.T) {
	entries := []resolver.Entry{
		entry("CrError_Foo", resolver.Known(1)),
		entry("CrWarning_Bar", resolver.Known(2)),
		entry("CrNotify_Baz", resolver.Known(3)),
		entry("Unrelated_Qux", resolver.Known(4)),
	}

	fm, dropped := ByFamily(entries, defaultFamilies(t))

	want := map[string]CodeMap{
		"error":   {1: "CrError_Foo"},
		"warning": {2: "CrWarning_Bar"},
		"notify":  {3: "CrNotify_Baz"},
	}
	for tag, m := range want {
		got := fm.Get(tag)
		if len(got) != len(m) {
			t.Fatalf("%s: expected %d entries, got %v", tag, len(m), got)
		}
		for c, n := range m {
			if got[c] != n {
				t.Errorf("%s[%d] = %q, want %q", tag, c, got[c], n)
			}
		}
	}
	for _, tag := range fm.Tags {
		for _, name := range fm.Get(tag) {
			if name == "Unrelated_Qux" {
				t.Fatalf("Unrelated_Qux leaked into family %s", tag)
			}
		}
	}
	if len(dropped) != 1 || dropped[0].Reason != ReasonUnclassified || dropped[0].Entry.Name != "Unrelated_Qux" {
		t.Errorf("unexpected dropped entries: %+v", dropped)
	}
	if got := fm.Tags; len(got) != 3 || got[0] != "error" || got[2] != "notify" {
		t.Errorf("Tags = %v", got)
	}
}

func TestByFamilyFirstMatchingFamilyWins(t *testing.T) {
	broad, err := NewFamily("any", "Cr*")
	if err != nil {
		t.Fatalf("NewFamily: %v", err)
	}
	families := append(defaultFamilies(t), broad)

	fm, _ := ByFamily([]resolver.Entry{entry("CrError_X", resolver.Known(9)), entry("CrOther", resolver.Known(9))}, families)
	if fm.Get("error")[9] != "CrError_X" {
		t.Errorf("CrError_X should belong to error")
	}
	if fm.Get("any")[9] != "CrOther" {
		t.Errorf("CrOther should fall through to any")
	}
}

func TestByFamilyFirstSeenWinsPerFamily(t *testing.T) {
	entries := []resolver.Entry{
		entry("CrError_A", resolver.Known(7)),
		entry("CrError_B", resolver.Known(7)),
		entry("CrWarning_C", resolver.Known(7)),
	}
	fm, dropped := ByFamily(entries, defaultFamilies(t))
	if fm.Get("error")[7] != "CrError_A" {
		t.Errorf("error[7] = %q", fm.Get("error")[7])
	}
	if fm.Get("warning")[7] != "CrWarning_C" {
		t.Errorf("families must not share collisions, warning[7] = %q", fm.Get("warning")[7])
	}
	if len(dropped) != 1 || dropped[0].Reason != ReasonShadowed || dropped[0].Kept != "CrError_A" || dropped[0].Family != "error" {
		t.Errorf("unexpected dropped: %+v", dropped)
	}
}

func TestSingleFirstSeenWins(t *testing.T) {
	m, dropped := Single([]resolver.Entry{
		entry("A", resolver.Known(7)),
		entry("B", resolver.Known(7)),
	})
	if len(m) != 1 || m[7] != "A" {
		t.Fatalf("map = %v, want {7: A}", m)
	}
	for _, name := range m {
		if name == "B" {
			t.Fatalf("B must not appear in the map")
		}
	}
	if len(dropped) != 1 || dropped[0].Kept != "A" {
		t.Errorf("dropped = %+v", dropped)
	}
}

func TestUnresolvedEntriesAreDropped(t *testing.T) {
	entries := []resolver.Entry{
		entry("CrError_A", resolver.Unresolved),
		entry("CrError_B", resolver.Known(0)),
	}

	m, dropped := Single(entries)
	if len(m) != 1 || m[0] != "CrError_B" {
		t.Errorf("single map = %v", m)
	}
	if len(dropped) != 1 || dropped[0].Reason != ReasonUnresolved {
		t.Errorf("single dropped = %+v", dropped)
	}

	fm, fdropped := ByFamily(entries, defaultFamilies(t))
	for _, tag := range fm.Tags {
		for _, name := range fm.Get(tag) {
			if name == "CrError_A" {
				t.Fatalf("unresolved entry in family %s", tag)
			}
		}
	}
	if len(fdropped) != 1 || fdropped[0].Reason != ReasonUnresolved {
		t.Errorf("family dropped = %+v", fdropped)
	}
}

func TestCodesSorted(t *testing.T) {
	m := CodeMap{0x8000: "b", 1: "a", -1: "neg"}
	codes := m.Codes()
	if len(codes) != 3 || codes[0] != -1 || codes[1] != 1 || codes[2] != 0x8000 {
		t.Fatalf("Codes() = %v", codes)
	}
}

func TestNewFamilyRejectsBadInput(t *testing.T) {
	if _, err := NewFamily("", "CrError_"); err == nil {
		t.Errorf("expected error for empty tag")
	}
	if _, err := NewFamily("bad", "Cr[Error"); err == nil {
		t.Errorf("expected error for invalid glob")
	}
}
