// Package tables groups resolved enum entries into code->name maps.
package tables

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/robert-at-pretension-io/crsdk-enumgen/internal/resolver"
)

// Reasons an entry is left out of every map.
const (
	ReasonUnresolved   = "unresolved"
	ReasonShadowed     = "shadowed"
	ReasonUnclassified = "unclassified"
)

// CodeMap maps an integer code to the first name seen for it.
type CodeMap map[int64]string

// Add stores name under code unless the code is already taken. It reports
// whether name was stored.
func (m CodeMap) Add(code int64, name string) bool {
	if _, ok := m[code]; ok {
		return false
	}
	m[code] = name
	return true
}

// Codes returns the keys in ascending order.
func (m CodeMap) Codes() []int64 {
	codes := make([]int64, 0, len(m))
	for c := range m {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Family is a group of names sharing a naming pattern.
type Family struct {
	Tag     string
	Pattern string
	matcher glob.Glob
}

// NewFamily compiles pattern. A pattern without glob metacharacters is a
// plain prefix, so "CrError_" behaves like "CrError_*".
func NewFamily(tag, pattern string) (Family, error) {
	if tag == "" {
		return Family{}, fmt.Errorf("family for pattern %q has no tag", pattern)
	}
	expr := pattern
	if !strings.ContainsAny(expr, "*?[{\\") {
		expr += "*"
	}
	g, err := glob.Compile(expr)
	if err != nil {
		return Family{}, fmt.Errorf("family %s: compiling %q: %w", tag, pattern, err)
	}
	return Family{Tag: tag, Pattern: pattern, matcher: g}, nil
}

// Match reports whether name belongs to the family.
func (f Family) Match(name string) bool {
	return f.matcher != nil && f.matcher.Match(name)
}

// Dropped is an entry left out of the final maps.
type Dropped struct {
	Entry  resolver.Entry `json:"entry"`
	Reason string         `json:"reason"`
	// Family is set for shadowed entries of a family map.
	Family string `json:"family,omitempty"`
	// Kept is the name that owns the code when Reason is shadowed.
	Kept string `json:"kept,omitempty"`
}

// FamilyMap holds one CodeMap per family, in family order.
type FamilyMap struct {
	Tags []string
	Maps map[string]CodeMap
}

// Get returns the map for tag; unknown tags yield an empty map.
func (fm FamilyMap) Get(tag string) CodeMap {
	if m, ok := fm.Maps[tag]; ok {
		return m
	}
	return CodeMap{}
}

// ByFamily applies the prefix-family policy. The first family whose
// pattern matches a name owns the entry; unmatched names are dropped.
func ByFamily(entries []resolver.Entry, families []Family) (FamilyMap, []Dropped) {
	fm := FamilyMap{Maps: make(map[string]CodeMap, len(families))}
	for _, f := range families {
		if _, ok := fm.Maps[f.Tag]; ok {
			continue
		}
		fm.Tags = append(fm.Tags, f.Tag)
		fm.Maps[f.Tag] = CodeMap{}
	}

	var dropped []Dropped
	for _, e := range entries {
		if !e.Value.Resolved {
			dropped = append(dropped, Dropped{Entry: e, Reason: ReasonUnresolved})
			continue
		}
		fam, ok := classify(e.Name, families)
		if !ok {
			dropped = append(dropped, Dropped{Entry: e, Reason: ReasonUnclassified})
			continue
		}
		m := fm.Maps[fam.Tag]
		if !m.Add(e.Value.N, e.Name) {
			dropped = append(dropped, Dropped{Entry: e, Reason: ReasonShadowed, Family: fam.Tag, Kept: m[e.Value.N]})
		}
	}
	return fm, dropped
}

// Single applies the single-map policy: every resolved entry, first seen
// wins per code.
func Single(entries []resolver.Entry) (CodeMap, []Dropped) {
	m := CodeMap{}
	var dropped []Dropped
	for _, e := range entries {
		if !e.Value.Resolved {
			dropped = append(dropped, Dropped{Entry: e, Reason: ReasonUnresolved})
			continue
		}
		if !m.Add(e.Value.N, e.Name) {
			dropped = append(dropped, Dropped{Entry: e, Reason: ReasonShadowed, Kept: m[e.Value.N]})
		}
	}
	return m, dropped
}

func classify(name string, families []Family) (Family, bool) {
	for _, f := range families {
		if f.Match(name) {
			return f, true
		}
	}
	return Family{}, false
}
