package daplis

import (
	"sort"

	"golang.org/x/exp/slices"
)

type mixEntry struct {
	time   float64
	parity int
}

// CalculateDifferencesMix computes time differences between consecutive
// hits of a combined stream. All selected pixels are merged into a single
// time-ordered sequence spanning the whole file, with each cycle shifted by
// cycleLength so hits never wrap. A difference is kept when the two
// neighbours come from different pixel groups and lie closer than window;
// its sign follows the group order, not the arrival order.
//
// Pixels from the left group get even parity marks and pixels from the
// right group odd ones, so a same-group neighbour pair always has an even
// parity difference and is dropped.
func CalculateDifferencesMix(f *FileData, pixmap PixelMap, selection PixelSelection, window, cycleLength float64) (*DeltaSet, error) {
	set := NewDeltaSet()
	for _, q := range selection.Left {
		for _, w := range selection.Right {
			if w <= q {
				continue
			}
			key := PairKey(q, w)
			if _, ok := set.Deltas[key]; !ok {
				set.Deltas[key] = []float64{}
			}
		}
	}

	if cycleLength <= 0 {
		cycleLength = f.MaxTime()
	}

	entries := []mixEntry{}
	pixelParity := make(map[int]int)
	for j, pixel := range selection.Flattened() {
		if pixel < 0 || pixel >= TotalPixels {
			return nil, &ErrBadPixel{Pixel: pixel}
		}
		parity := 2 * j
		if !slices.Contains(selection.Left, pixel) {
			parity = 2*j + 1
		}
		pixelParity[pixel] = parity
		if slices.Contains(f.SkippedPixels, pixel) {
			continue
		}
		cycles := f.PixelTimes(pixmap, pixel)
		for c, times := range cycles {
			shift := cycleLength * float64(c)
			for _, t := range times {
				if t <= 0 {
					continue
				}
				entries = append(entries, mixEntry{time: t + shift, parity: parity})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].time < entries[j].time })

	parityPixel := make(map[int]int, len(pixelParity))
	for pixel, parity := range pixelParity {
		parityPixel[parity] = pixel
	}

	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		parityDiff := cur.parity - prev.parity
		if parityDiff%2 == 0 {
			continue
		}
		dt := cur.time - prev.time
		if dt >= window {
			continue
		}
		if parityDiff < 0 {
			dt = -dt
		}
		left, right := parityPixel[prev.parity], parityPixel[cur.parity]
		if left > right {
			left, right = right, left
		}
		key := PairKey(left, right)
		if _, ok := set.Deltas[key]; !ok {
			continue
		}
		set.Deltas[key] = append(set.Deltas[key], dt)
	}
	return set, nil
}
