package history

import "sort"

// Delta compares a run with the one before it.
type Delta struct {
	Errors   int
	Warnings int
	// Changed holds identifiers whose count moved, with the signed difference.
	Changed map[string]int
}

// Compare returns how cur differs from prev.
func Compare(prev, cur Run) Delta {
	d := Delta{
		Errors:   cur.Errors - prev.Errors,
		Warnings: cur.Warnings - prev.Warnings,
		Changed:  make(map[string]int),
	}
	for id, n := range cur.Counts {
		if diff := n - prev.Counts[id]; diff != 0 {
			d.Changed[id] = diff
		}
	}
	for id, n := range prev.Counts {
		if _, ok := cur.Counts[id]; !ok && n != 0 {
			d.Changed[id] = -n
		}
	}
	return d
}

// Movers lists the changed identifiers, largest absolute change first.
func (d Delta) Movers() []string {
	ids := make([]string, 0, len(d.Changed))
	for id := range d.Changed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := abs(d.Changed[ids[i]]), abs(d.Changed[ids[j]])
		if a != b {
			return a > b
		}
		return ids[i] < ids[j]
	})
	return ids
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
