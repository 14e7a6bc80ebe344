package tables

import (
	"sort"
	"strconv"
)

// Row is one code->name association of a named table.
type Row struct {
	Table string `json:"table"`
	Code  int64  `json:"code"`
	Name  string `json:"name"`
}

// Snapshot is the flat relational view of a set of tables.
type Snapshot []Row

// Rows flattens m into rows of table, ordered by code.
func Rows(table string, m CodeMap) Snapshot {
	out := make(Snapshot, 0, len(m))
	for _, c := range m.Codes() {
		out = append(out, Row{Table: table, Code: c, Name: m[c]})
	}
	return out
}

// Delta captures added and removed rows between two snapshots. A renamed
// code shows up as one removal and one addition.
type Delta struct {
	Added   Snapshot `json:"added"`
	Removed Snapshot `json:"removed"`
}

// Empty reports whether the snapshots were identical.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Snapshot) Delta {
	return Delta{
		Added:   diffRows(prev, next),
		Removed: diffRows(next, prev),
	}
}

func diffRows(from, to Snapshot) Snapshot {
	seen := make(map[string]struct{}, len(from))
	for _, r := range from {
		seen[rowKey(r)] = struct{}{}
	}
	out := Snapshot{}
	for _, r := range to {
		if _, ok := seen[rowKey(r)]; !ok {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Code < out[j].Code
	})
	return out
}

func rowKey(r Row) string {
	return r.Table + "|" + strconv.FormatInt(r.Code, 10) + "|" + r.Name
}
