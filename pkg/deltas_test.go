package daplis

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFileData builds an empty decoded file for tests that work on
// timestamps directly, bypassing the raw word format.
func testFileData(cycles, timestamps int) *FileData {
	f := &FileData{
		Filename:   "test.dat",
		Cycles:     cycles,
		Timestamps: timestamps,
		Streams:    make([]TDCStream, NumTDC),
	}
	slots := cycles * timestamps
	for k := range f.Streams {
		f.Streams[k] = TDCStream{
			Valid: make([]bool, slots),
			Pixel: make([]uint8, slots),
			Time:  make([]float64, slots),
		}
	}
	return f
}

func addHit(f *FileData, pixmap PixelMap, pixel, cycle, slot int, time float64) {
	tdc, sub := pixmap.Coords(pixel)
	i := cycle*f.Timestamps + slot
	f.Streams[tdc].Valid[i] = true
	f.Streams[tdc].Pixel[i] = uint8(sub)
	f.Streams[tdc].Time[i] = time
}

func flatSelection(pixels ...int) PixelSelection {
	return PixelSelection{Left: pixels, Right: pixels}
}

func groupedSelection(left, right []int) PixelSelection {
	return PixelSelection{Left: left, Right: right, Grouped: true}
}

func TestCalculateDifferencesWindow(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(1, 4)
	addHit(f, pixmap, 4, 0, 0, 100)
	addHit(f, pixmap, 4, 0, 1, 5000)
	addHit(f, pixmap, 8, 0, 0, 150)
	addHit(f, pixmap, 8, 0, 1, 5050)

	set, err := CalculateDifferences(f, pixmap, flatSelection(4, 8), 200)
	require.NoError(t, err)
	assert.Equal(t, []float64{50, 50}, set.Deltas["4,8"])
	assert.Equal(t, 2, set.Count())
}

func TestCalculateDifferencesSign(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(1, 4)
	addHit(f, pixmap, 4, 0, 0, 500)
	addHit(f, pixmap, 8, 0, 0, 400)

	set, err := CalculateDifferences(f, pixmap, flatSelection(4, 8), 200)
	require.NoError(t, err)
	assert.Equal(t, []float64{-100}, set.Deltas["4,8"])
}

func TestCalculateDifferencesStrictWindow(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(1, 4)
	addHit(f, pixmap, 4, 0, 0, 100)
	addHit(f, pixmap, 8, 0, 0, 300)

	set, err := CalculateDifferences(f, pixmap, flatSelection(4, 8), 200)
	require.NoError(t, err)
	assert.Empty(t, set.Deltas["4,8"])

	set, err = CalculateDifferences(f, pixmap, flatSelection(4, 8), 201)
	require.NoError(t, err)
	assert.Equal(t, []float64{200}, set.Deltas["4,8"])
}

func TestCalculateDifferencesCycleIsolation(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(2, 4)
	addHit(f, pixmap, 4, 0, 0, 100)
	addHit(f, pixmap, 8, 1, 0, 150)

	set, err := CalculateDifferences(f, pixmap, flatSelection(4, 8), 1e6)
	require.NoError(t, err)
	values, ok := set.Deltas["4,8"]
	require.True(t, ok, "pair bucket must exist even when empty")
	assert.Empty(t, values)
}

func TestCalculateDifferencesAllCombinations(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(1, 4)
	addHit(f, pixmap, 4, 0, 0, 100)
	addHit(f, pixmap, 4, 0, 1, 110)
	addHit(f, pixmap, 8, 0, 0, 105)
	addHit(f, pixmap, 8, 0, 1, 115)

	set, err := CalculateDifferences(f, pixmap, flatSelection(4, 8), 1000)
	require.NoError(t, err)
	assert.ElementsMatch(t, []float64{5, 15, -5, 5}, set.Deltas["4,8"])
}

func TestCalculateDifferencesPairOrder(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(1, 4)
	addHit(f, pixmap, 4, 0, 0, 100)
	addHit(f, pixmap, 8, 0, 0, 150)

	// The selection order does not matter, buckets are keyed smaller,larger.
	set, err := CalculateDifferences(f, pixmap, flatSelection(8, 4), 200)
	require.NoError(t, err)
	assert.Equal(t, []string{"4,8"}, set.Pairs())
	assert.Equal(t, []float64{50}, set.Deltas["4,8"])
}

func TestCalculateDifferencesGroupedKeepsOrderedPairsOnly(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(1, 4)
	addHit(f, pixmap, 5, 0, 0, 100)
	addHit(f, pixmap, 10, 0, 0, 150)

	// A right-group pixel below the left-group pixel never forms a pair.
	set, err := CalculateDifferences(f, pixmap, groupedSelection([]int{10}, []int{5}), 200)
	require.NoError(t, err)
	assert.Empty(t, set.Pairs())

	set, err = CalculateDifferences(f, pixmap, groupedSelection([]int{5}, []int{10}), 200)
	require.NoError(t, err)
	assert.Equal(t, []float64{50}, set.Deltas["5,10"])
}

func TestCalculateDifferencesSkippedPixels(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(1, 4)
	addHit(f, pixmap, 4, 0, 0, 100)
	addHit(f, pixmap, 8, 0, 0, 150)
	f.SkippedPixels = []int{4}

	set, err := CalculateDifferences(f, pixmap, flatSelection(4, 8), 200)
	require.NoError(t, err)
	values, ok := set.Deltas["4,8"]
	require.True(t, ok)
	assert.Empty(t, values)
}

func TestCalculateDifferencesBadPixel(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	f := testFileData(1, 4)

	_, err := CalculateDifferences(f, pixmap, flatSelection(4, 300), 200)
	require.Error(t, err)
	var bad *ErrBadPixel
	assert.True(t, errors.As(err, &bad))
}

func TestCalculateDifferencesMatchesBruteForce(t *testing.T) {
	pixmap := NewPixelMap(LayoutBlock)
	rng := rand.New(rand.NewSource(1))
	timestamps := 64
	window := 500.0

	timesA := make([]float64, 50)
	timesB := make([]float64, 50)
	for i := range timesA {
		timesA[i] = rng.Float64() * 10000
		timesB[i] = rng.Float64() * 10000
	}
	sort.Float64s(timesA)
	sort.Float64s(timesB)

	f := testFileData(1, timestamps)
	for i, v := range timesA {
		addHit(f, pixmap, 4, 0, i, v)
	}
	for i, v := range timesB {
		addHit(f, pixmap, 8, 0, i, v)
	}

	var want []float64
	for _, a := range timesA {
		for _, b := range timesB {
			if math.Abs(b-a) < window {
				want = append(want, b-a)
			}
		}
	}

	set, err := CalculateDifferences(f, pixmap, flatSelection(4, 8), window)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, set.Deltas["4,8"])
}

func TestDeltaSetMerge(t *testing.T) {
	a := NewDeltaSet()
	a.Deltas["4,8"] = []float64{10}
	a.Deltas["4,12"] = []float64{}
	b := NewDeltaSet()
	b.Deltas["4,8"] = []float64{-20, 30}

	a.Merge(b)
	assert.Equal(t, []float64{10, -20, 30}, a.Deltas["4,8"])
	assert.Equal(t, 3, a.Count())
	assert.Equal(t, []string{"4,12", "4,8"}, a.Pairs())
}

func TestPairKey(t *testing.T) {
	assert.Equal(t, "4,8", PairKey(4, 8))
	assert.Equal(t, "130,200", PairKey(130, 200))
}
