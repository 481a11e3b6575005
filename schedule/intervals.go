package schedule

import "sort"

// =============================================================================
// INTERVAL - Half-open minute range within one day
// =============================================================================

// Interval is a [Start, End) range of minutes within a single day.
// An interval with End <= Start is empty.
type Interval struct {
	Start Minute
	End   Minute
}

func (iv Interval) Empty() bool  { return iv.End <= iv.Start }
func (iv Interval) Minutes() int { return int(iv.End - iv.Start) }

// Clip restricts the interval to [lo, hi). Returns an empty interval when
// there is no overlap.
func (iv Interval) Clip(lo, hi Minute) Interval {
	if iv.Start < lo {
		iv.Start = lo
	}
	if iv.End > hi {
		iv.End = hi
	}
	return iv
}

// SplitAround removes [cutStart, cutEnd) from the interval, returning the
// surviving pieces. Used to carve the lunch window out of holiday intervals
// so lunch minutes are never counted twice: the base calculation already
// subtracts lunch.
func (iv Interval) SplitAround(cutStart, cutEnd Minute) []Interval {
	if iv.Empty() {
		return nil
	}
	// No overlap with the cut: keep as-is.
	if iv.End <= cutStart || iv.Start >= cutEnd {
		return []Interval{iv}
	}
	var out []Interval
	if iv.Start < cutStart {
		out = append(out, Interval{Start: iv.Start, End: cutStart})
	}
	if iv.End > cutEnd {
		out = append(out, Interval{Start: cutEnd, End: iv.End})
	}
	return out
}

// =============================================================================
// MERGE - Minimal covering set of intervals
// =============================================================================

// Merge collapses overlapping or touching intervals into a minimal ordered
// set. Two partial-holiday records covering the same minutes must subtract
// those minutes once, not twice; merging first makes the later subtraction
// a plain sum.
//
// Sort ascending by start, then fold: whenever the current run's end reaches
// the next interval's start, extend the run to max(run.End, next.End);
// otherwise flush the run and start a new one.
func Merge(intervals []Interval) []Interval {
	in := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.Empty() {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}

	sort.Slice(in, func(i, j int) bool {
		if in[i].Start != in[j].Start {
			return in[i].Start < in[j].Start
		}
		return in[i].End < in[j].End
	})

	merged := []Interval{in[0]}
	for _, next := range in[1:] {
		cur := &merged[len(merged)-1]
		if cur.End >= next.Start {
			if next.End > cur.End {
				cur.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

// TotalMinutes sums the sizes of the intervals. Call after Merge: on a
// merged set this is the size of the union.
func TotalMinutes(intervals []Interval) int {
	total := 0
	for _, iv := range intervals {
		total += iv.Minutes()
	}
	return total
}
