package daplis

import "fmt"

// CalibrationData holds the nonlinearity corrections for one board identity.
// Matrix rows are indexed by pixel and fine code; a nil row means the store
// had no data for that pixel. Offset is nil unless offset calibration was
// requested. Instances are immutable once loaded and safe to share across
// workers.
type CalibrationData struct {
	Matrix  [][]float64
	Offset  []float64
	Missing []int
}

// Calibrate converts every valid time code in f to picoseconds, in place.
// With data == nil the conversion is the plain linear scaling; otherwise the
// coarse part is scaled linearly and the fine part replaced by the per-pixel
// correction from the table, plus the per-pixel offset when loaded. Pixels
// listed in data.Missing stay raw and are recorded on f for the caller.
// Calibration is one way: a second call is rejected.
func Calibrate(f *FileData, pixmap PixelMap, data *CalibrationData) error {
	if f.Calibrated {
		return &ErrAlreadyCalibrated{Filename: f.Filename}
	}

	if data == nil {
		for k := range f.Streams {
			stream := &f.Streams[k]
			for i := range stream.Time {
				if stream.Valid[i] {
					stream.Time[i] *= LinearTick
				}
			}
		}
		f.Calibrated = true
		return nil
	}

	if len(data.Matrix) != TotalPixels {
		return fmt.Errorf("calibration matrix has %d rows, want %d", len(data.Matrix), TotalPixels)
	}

	for p := 0; p < TotalPixels; p++ {
		row := data.Matrix[p]
		if row == nil {
			f.SkippedPixels = append(f.SkippedPixels, p)
			continue
		}
		tdc, sub := pixmap.Coords(p)
		stream := &f.Streams[tdc]
		for i := range stream.Time {
			if !stream.Valid[i] || stream.Pixel[i] != uint8(sub) {
				continue
			}
			code := int(stream.Time[i])
			fine := code % FineBins
			t := float64(code-fine)*LinearTick + row[fine]
			if data.Offset != nil {
				t += data.Offset[p]
			}
			stream.Time[i] = t
		}
	}
	f.Calibrated = true

	if configuration.Verbosity > 1 && len(f.SkippedPixels) > 0 {
		message := fmt.Sprintf("%d pixels without calibration data in %s", len(f.SkippedPixels), f.Filename)
		logger.Info(message, "calibration")
	}
	return nil
}
