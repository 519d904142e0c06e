package daplis

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct{}

func (testLogger) Info(message string, module string) {}
func (testLogger) Error(message string)               {}

func TestMain(m *testing.M) {
	SetLogger(testLogger{})
	SetConfiguration(Configuration{})
	os.Exit(m.Run())
}

type hit struct {
	cycle int
	tdc   int
	slot  int
	sub   int
	code  uint32
}

func buildWord(sub int, code uint32) uint32 {
	return validMask | uint32(sub)<<pixelShift | (code & timeMask)
}

func buildFrame(cycles, timestamps int, hits []hit) []byte {
	words := make([]uint32, cycles*tdcSlots*timestamps)
	for _, h := range hits {
		idx := (h.cycle*tdcSlots+h.tdc)*timestamps + h.slot
		words[idx] = buildWord(h.sub, h.code)
	}
	raw := make([]byte, len(words)*wordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[i*wordSize:], w)
	}
	return raw
}

func countValid(f *FileData) int {
	total := 0
	for k := range f.Streams {
		for _, valid := range f.Streams[k].Valid {
			if valid {
				total++
			}
		}
	}
	return total
}

func TestUnpackDecodesHits(t *testing.T) {
	raw := buildFrame(2, 4, []hit{
		{cycle: 0, tdc: 0, slot: 0, sub: 1, code: 100},
		{cycle: 0, tdc: 5, slot: 2, sub: 3, code: 200},
		{cycle: 1, tdc: 0, slot: 1, sub: 0, code: 50},
	})

	f, err := unpackWords("test.dat", raw, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Cycles)
	assert.Equal(t, 4, f.Timestamps)
	require.Len(t, f.Streams, NumTDC)
	assert.Equal(t, 3, countValid(f))

	// Every stream carries one slot per record, hit or not.
	for k := range f.Streams {
		assert.Len(t, f.Streams[k].Valid, 2*4)
		assert.Len(t, f.Streams[k].Time, 2*4)
	}

	assert.True(t, f.Streams[0].Valid[0])
	assert.Equal(t, uint8(1), f.Streams[0].Pixel[0])
	assert.Equal(t, 100.0, f.Streams[0].Time[0])

	assert.True(t, f.Streams[5].Valid[2])
	assert.Equal(t, uint8(3), f.Streams[5].Pixel[2])
	assert.Equal(t, 200.0, f.Streams[5].Time[2])

	// Cycle 1 hits land in the second half of the stream.
	assert.True(t, f.Streams[0].Valid[5])
	assert.Equal(t, uint8(0), f.Streams[0].Pixel[5])
	assert.Equal(t, 50.0, f.Streams[0].Time[5])
}

func TestUnpackIgnoresWordsWithoutValidFlag(t *testing.T) {
	raw := buildFrame(1, 4, nil)
	// A word carrying a time code but no valid flag must not be decoded.
	binary.LittleEndian.PutUint32(raw, buildWord(2, 1234)&^uint32(validMask))

	f, err := unpackWords("test.dat", raw, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, countValid(f))
}

func TestUnpackDropsExtraTdcSlot(t *testing.T) {
	raw := buildFrame(1, 4, []hit{
		{cycle: 0, tdc: NumTDC, slot: 0, sub: 0, code: 777},
	})

	f, err := unpackWords("test.dat", raw, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, countValid(f))
}

func TestUnpackEmptyFile(t *testing.T) {
	f, err := unpackWords("empty.dat", []byte{}, 512)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Cycles)
	require.Len(t, f.Streams, NumTDC)
	assert.Empty(t, f.Streams[0].Valid)
}

func TestUnpackMalformedFile(t *testing.T) {
	var malformed *ErrMalformedFile

	f, err := unpackWords("odd.dat", make([]byte, 6), 4)
	require.Error(t, err)
	assert.True(t, errors.As(err, &malformed))
	assert.Nil(t, f)

	// One word short of a whole cycle.
	raw := buildFrame(1, 4, nil)
	f, err = unpackWords("short.dat", raw[:len(raw)-wordSize], 4)
	require.Error(t, err)
	assert.True(t, errors.As(err, &malformed))
	assert.Nil(t, f)
}

func TestUnpackMissingFile(t *testing.T) {
	_, err := Unpack(filepath.Join(t.TempDir(), "does-not-exist.dat"), 4)
	require.Error(t, err)
	var open *ErrOpenFile
	assert.True(t, errors.As(err, &open))
}

func TestUnpackFromDisk(t *testing.T) {
	raw := buildFrame(1, 4, []hit{
		{cycle: 0, tdc: 3, slot: 0, sub: 2, code: 4242},
	})
	filename := filepath.Join(t.TempDir(), "acq.dat")
	require.NoError(t, os.WriteFile(filename, raw, 0o644))

	f, err := Unpack(filename, 4)
	require.NoError(t, err)
	assert.Equal(t, filename, f.Filename)
	assert.Equal(t, 1, countValid(f))
	assert.True(t, f.Streams[3].Valid[0])
	assert.Equal(t, 4242.0, f.Streams[3].Time[0])
}

func TestPixelTimesSplitsByCycle(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	// Pixel 21 sits on TDC 5, sub-channel 1 in the block layout.
	raw := buildFrame(2, 4, []hit{
		{cycle: 0, tdc: 5, slot: 0, sub: 1, code: 10},
		{cycle: 0, tdc: 5, slot: 1, sub: 1, code: 20},
		{cycle: 0, tdc: 5, slot: 2, sub: 3, code: 15},
		{cycle: 1, tdc: 5, slot: 0, sub: 1, code: 30},
	})
	f, err := unpackWords("test.dat", raw, 4)
	require.NoError(t, err)

	perCycle := f.PixelTimes(pixmap, 21)
	require.Len(t, perCycle, 2)
	assert.Equal(t, []float64{10, 20}, perCycle[0])
	assert.Equal(t, []float64{30}, perCycle[1])

	// The sub-channel 3 hit belongs to pixel 23 instead.
	assert.Equal(t, []float64{15}, f.PixelTimes(pixmap, 23)[0])
}

func TestMaxTime(t *testing.T) {
	raw := buildFrame(1, 4, []hit{
		{cycle: 0, tdc: 0, slot: 0, sub: 0, code: 10},
		{cycle: 0, tdc: 9, slot: 3, sub: 2, code: 99999},
	})
	f, err := unpackWords("test.dat", raw, 4)
	require.NoError(t, err)
	assert.Equal(t, 99999.0, f.MaxTime())

	empty, err := unpackWords("empty.dat", buildFrame(1, 4, nil), 4)
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.MaxTime())
}
