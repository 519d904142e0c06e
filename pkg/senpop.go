package daplis

import (
	"golang.org/x/exp/slices"
)

// CountPopulation counts valid hits per pixel over the whole file.
func CountPopulation(f *FileData, pixmap PixelMap) []int64 {
	counts := make([]int64, TotalPixels)
	for tdc := range f.Streams {
		stream := &f.Streams[tdc]
		for slot, valid := range stream.Valid {
			if !valid {
				continue
			}
			counts[pixmap.Pixel(tdc, int(stream.Pixel[slot]))]++
		}
	}
	return counts
}

// AccumulatePopulation adds counts into total pixel by pixel.
func AccumulatePopulation(total, counts []int64) {
	for i, c := range counts {
		total[i] += c
	}
}

// PopulationRates converts accumulated counts to an average hit rate in Hz,
// normalised by the acquisition window length and the number of cycles and
// files that contributed.
func PopulationRates(counts []int64, acqWindowPs float64, cycles, files int) []float64 {
	rates := make([]float64, len(counts))
	if acqWindowPs == 0 || cycles == 0 || files == 0 {
		return rates
	}
	for i, c := range counts {
		rates[i] = float64(c) / acqWindowPs * 1e12 / float64(cycles) / float64(files)
	}
	return rates
}

// CorrectPopulationAddress reorders counts for motherboards on side "23",
// where the pixel address read out does not match the physical position.
func CorrectPopulationAddress(counts []int64) []int64 {
	fixed := make([]int64, len(counts))
	for i := range fixed {
		fixed[i] = counts[CorrectedPixel(i)]
	}
	return fixed
}

// MaskPopulation zeroes the counts of hot pixels.
func MaskPopulation(counts []int64, masked []int) {
	for i := range counts {
		if slices.Contains(masked, i) {
			counts[i] = 0
		}
	}
}
