package daplis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountPopulation(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(2, 4)
	addHit(f, pixmap, 21, 0, 0, 10)
	addHit(f, pixmap, 21, 1, 0, 20)
	addHit(f, pixmap, 0, 0, 0, 30)

	counts := CountPopulation(f, pixmap)
	require.Len(t, counts, TotalPixels)
	assert.Equal(t, int64(2), counts[21])
	assert.Equal(t, int64(1), counts[0])

	var total int64
	for _, c := range counts {
		total += c
	}
	assert.Equal(t, int64(3), total)
}

func TestAccumulatePopulation(t *testing.T) {
	total := make([]int64, TotalPixels)
	counts := make([]int64, TotalPixels)
	counts[7] = 3
	counts[200] = 5

	AccumulatePopulation(total, counts)
	AccumulatePopulation(total, counts)
	assert.Equal(t, int64(6), total[7])
	assert.Equal(t, int64(10), total[200])
}

func TestPopulationRates(t *testing.T) {
	counts := make([]int64, TotalPixels)
	counts[5] = 100

	rates := PopulationRates(counts, 4e9, 2, 5)
	assert.InDelta(t, 2500.0, rates[5], 1e-9)
	assert.Equal(t, 0.0, rates[6])
}

func TestPopulationRatesZeroGuards(t *testing.T) {
	counts := make([]int64, TotalPixels)
	counts[5] = 100

	assert.Equal(t, 0.0, PopulationRates(counts, 0, 2, 5)[5])
	assert.Equal(t, 0.0, PopulationRates(counts, 4e9, 0, 5)[5])
	assert.Equal(t, 0.0, PopulationRates(counts, 4e9, 2, 0)[5])
}

func TestCorrectPopulationAddress(t *testing.T) {
	counts := make([]int64, TotalPixels)
	counts[128] = 7
	counts[127] = 3

	fixed := CorrectPopulationAddress(counts)
	assert.Equal(t, int64(7), fixed[0])
	assert.Equal(t, int64(3), fixed[128])
	assert.Equal(t, int64(0), fixed[127])
}

func TestMaskPopulation(t *testing.T) {
	counts := make([]int64, TotalPixels)
	counts[3] = 10
	counts[7] = 20
	counts[8] = 30

	MaskPopulation(counts, []int{3, 7})
	assert.Equal(t, int64(0), counts[3])
	assert.Equal(t, int64(0), counts[7])
	assert.Equal(t, int64(30), counts[8])
}
