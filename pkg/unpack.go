package daplis

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Raw data words are 32-bit little endian:
// bit 31      valid flag
// bits 29-28  pixel within the TDC
// bits 27-0   time code in 2500/140 ps units
const (
	validMask  = 0x80000000
	pixelShift = 28
	pixelMask  = 0x3
	timeMask   = 0x0FFFFFFF

	wordSize = 4

	// Each cycle carries data for 64 TDCs plus one extra slot with no
	// pixels attached, dropped during decoding.
	tdcSlots = NumTDC + 1
)

const (
	// FineBins is the number of sub-bins in one coarse TDC tick.
	FineBins = 140
	// CoarseTickPs is the length of one coarse TDC tick in picoseconds.
	CoarseTickPs = 2500.0
	// LinearTick is the uncalibrated width of one time code in picoseconds.
	LinearTick = CoarseTickPs / FineBins
)

// TDCStream holds every record slot of one TDC over a whole file. Slots of
// cycle c occupy the index range [c*timestamps, (c+1)*timestamps), so cycle
// boundaries need no markers inside the data. Pixel is meaningful only where
// Valid is set.
type TDCStream struct {
	Valid []bool
	Pixel []uint8
	Time  []float64
}

// FileData is one decoded acquisition file. Streams are created fresh per
// file and rewritten in place exactly once by Calibrate.
type FileData struct {
	Filename   string
	Cycles     int
	Timestamps int
	Streams    []TDCStream

	// Calibrated is set by Calibrate; SkippedPixels lists pixels left raw
	// because the calibration table had no rows for them.
	Calibrated    bool
	SkippedPixels []int
}

// Unpack reads a raw acquisition file and decodes it into per-TDC streams.
// timestamps is the number of records per cycle per TDC slot.
func Unpack(filename string, timestamps int) (*FileData, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ErrOpenFile{Filename: filename, Err: err}
	}
	return unpackWords(filename, raw, timestamps)
}

func unpackWords(filename string, raw []byte, timestamps int) (*FileData, error) {
	if len(raw)%wordSize != 0 {
		return nil, &ErrMalformedFile{
			Filename: filename,
			Words:    len(raw) / wordSize,
			Reason:   "length is not a whole number of 32-bit words",
		}
	}
	words := len(raw) / wordSize
	cycleWords := timestamps * tdcSlots
	if words%cycleWords != 0 {
		return nil, &ErrMalformedFile{
			Filename: filename,
			Words:    words,
			Reason:   fmt.Sprintf("%d words do not divide into cycles of %d", words, cycleWords),
		}
	}
	cycles := words / cycleWords

	data := &FileData{
		Filename:   filename,
		Cycles:     cycles,
		Timestamps: timestamps,
		Streams:    make([]TDCStream, NumTDC),
	}
	slots := cycles * timestamps
	for k := range data.Streams {
		data.Streams[k] = TDCStream{
			Valid: make([]bool, slots),
			Pixel: make([]uint8, slots),
			Time:  make([]float64, slots),
		}
	}

	// The file is cycle major: each cycle holds timestamps words for TDC 0,
	// then TDC 1, and so on through the extra 65th slot. Regrouping per TDC
	// is the transpose of that layout.
	for c := 0; c < cycles; c++ {
		for k := 0; k < NumTDC; k++ {
			stream := &data.Streams[k]
			src := (c*tdcSlots + k) * timestamps * wordSize
			dst := c * timestamps
			for s := 0; s < timestamps; s++ {
				w := binary.LittleEndian.Uint32(raw[src+s*wordSize:])
				if w&validMask == 0 {
					continue
				}
				stream.Valid[dst+s] = true
				stream.Pixel[dst+s] = uint8((w >> pixelShift) & pixelMask)
				stream.Time[dst+s] = float64(w & timeMask)
			}
		}
	}
	return data, nil
}

// CycleBounds returns the slot range [start, end) of cycle c.
func (f *FileData) CycleBounds(c int) (start, end int) {
	return c * f.Timestamps, (c + 1) * f.Timestamps
}

// PixelTimes collects the valid times of one pixel split by cycle.
func (f *FileData) PixelTimes(pixmap PixelMap, pixel int) [][]float64 {
	tdc, sub := pixmap.Coords(pixel)
	stream := &f.Streams[tdc]
	perCycle := make([][]float64, f.Cycles)
	for c := 0; c < f.Cycles; c++ {
		start, end := f.CycleBounds(c)
		var times []float64
		for i := start; i < end; i++ {
			if stream.Valid[i] && stream.Pixel[i] == uint8(sub) {
				times = append(times, stream.Time[i])
			}
		}
		perCycle[c] = times
	}
	return perCycle
}

// MaxTime returns the largest time value in the file, zero when the file
// carries no valid records.
func (f *FileData) MaxTime() float64 {
	max := 0.0
	for k := range f.Streams {
		stream := &f.Streams[k]
		for i, t := range stream.Time {
			if stream.Valid[i] && t > max {
				max = t
			}
		}
	}
	return max
}
