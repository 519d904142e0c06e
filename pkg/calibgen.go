package daplis

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// GenerateTdcCalibration builds a TDC nonlinearity correction matrix from
// raw data files. The files must come from a flood illumination run so that
// hits populate the fine bins uniformly; the measured occupancy of each bin
// then gives its true width in picoseconds.
//
// The returned matrix has one row per pixel with the left edge of each fine
// bin. Pixels with no hits get a nil row.
func GenerateTdcCalibration(files []string, timestamps int, pixmap PixelMap) ([][]float64, error) {
	counts := make([][]float64, TotalPixels)
	for p := range counts {
		counts[p] = make([]float64, FineBins)
	}

	for i, filename := range files {
		if configuration.Verbosity > 0 {
			message := fmt.Sprintf("Accumulating fine bin counts from file %d/%d: %s",
				i+1, len(files), filename)
			logger.Info(message, "calibgen")
		}
		f, err := Unpack(filename, timestamps)
		if err != nil {
			return nil, err
		}
		for tdc := range f.Streams {
			stream := &f.Streams[tdc]
			for slot, valid := range stream.Valid {
				if !valid {
					continue
				}
				pixel := pixmap.Pixel(tdc, int(stream.Pixel[slot]))
				bin := int(stream.Time[slot]) % FineBins
				counts[pixel][bin]++
			}
		}
	}

	matrix := make([][]float64, TotalPixels)
	widths := make([]float64, FineBins)
	positions := make([]float64, FineBins)
	for p := 0; p < TotalPixels; p++ {
		total := floats.Sum(counts[p])
		if total == 0 {
			continue
		}
		for b := range widths {
			widths[b] = counts[p][b] / total * CoarseTickPs
		}
		floats.CumSum(positions, widths)
		row := make([]float64, FineBins)
		for b := 1; b < FineBins; b++ {
			row[b] = positions[b-1]
		}
		matrix[p] = row
	}
	return matrix, nil
}
