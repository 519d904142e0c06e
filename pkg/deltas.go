package daplis

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// PairKey names the histogram bucket for a pixel pair. The smaller pixel
// always comes first so both calculation modes fill the same buckets.
func PairKey(left, right int) string {
	return fmt.Sprintf("%d,%d", left, right)
}

// DeltaSet holds time differences in picoseconds keyed by pixel pair.
type DeltaSet struct {
	Deltas map[string][]float64
}

func NewDeltaSet() *DeltaSet {
	return &DeltaSet{Deltas: make(map[string][]float64)}
}

// Merge appends all differences from other into s.
func (s *DeltaSet) Merge(other *DeltaSet) {
	for key, values := range other.Deltas {
		s.Deltas[key] = append(s.Deltas[key], values...)
	}
}

// Pairs returns the bucket keys in sorted order.
func (s *DeltaSet) Pairs() []string {
	keys := maps.Keys(s.Deltas)
	sort.Strings(keys)
	return keys
}

// Count returns the total number of differences over all pairs.
func (s *DeltaSet) Count() int {
	total := 0
	for _, values := range s.Deltas {
		total += len(values)
	}
	return total
}

// CalculateDifferences computes pairwise time differences for one file.
// Each pair takes the first pixel from the left group and the second from
// the right group, with the larger pixel number as the second; differences
// are right minus left, restricted to hits in the same acquisition cycle
// and closer than window picoseconds.
func CalculateDifferences(f *FileData, pixmap PixelMap, selection PixelSelection, window float64) (*DeltaSet, error) {
	set := NewDeltaSet()
	times := make(map[int][][]float64)
	for _, pixel := range selection.Flattened() {
		if pixel < 0 || pixel >= TotalPixels {
			return nil, &ErrBadPixel{Pixel: pixel}
		}
		if _, ok := times[pixel]; !ok {
			times[pixel] = f.PixelTimes(pixmap, pixel)
		}
	}

	for _, q := range selection.Left {
		for _, w := range selection.Right {
			if w <= q {
				continue
			}
			key := PairKey(q, w)
			if _, ok := set.Deltas[key]; !ok {
				set.Deltas[key] = []float64{}
			}
			if slices.Contains(f.SkippedPixels, q) || slices.Contains(f.SkippedPixels, w) {
				continue
			}
			for c := 0; c < f.Cycles; c++ {
				set.Deltas[key] = sweepCycle(times[q][c], times[w][c], window, set.Deltas[key])
			}
		}
	}
	return set, nil
}

// sweepCycle collects all differences b[j]-a[i] with magnitude below window.
// Timestamps within a cycle are non-decreasing, so the candidate range in b
// only ever advances.
func sweepCycle(a, b []float64, window float64, out []float64) []float64 {
	lo := 0
	for _, ta := range a {
		for lo < len(b) && b[lo] <= ta-window {
			lo++
		}
		for j := lo; j < len(b) && b[j] < ta+window; j++ {
			out = append(out, b[j]-ta)
		}
	}
	return out
}
