package daplis

import (
	"encoding/json"

	"golang.org/x/exp/slices"
)

const (
	// TotalPixels is the number of pixels in one sensor half.
	TotalPixels = 256
	// NumTDC is the number of TDCs carrying pixel data.
	NumTDC = 64
	// PixelsPerTDC is the number of pixels wired to one TDC.
	PixelsPerTDC = 4
)

// FirmwareLayout selects how pixels are wired to TDCs. It is resolved from
// the firmware version tag once at setup.
type FirmwareLayout int

const (
	// LayoutSkip is firmware 2212s: neighboring pixels sit on neighboring
	// TDCs, so pixel = sub*64 + tdc.
	LayoutSkip FirmwareLayout = iota
	// LayoutBlock is firmware 2212b: four neighboring pixels share one TDC,
	// so pixel = tdc*4 + sub.
	LayoutBlock
)

func ParseFirmware(version string) (FirmwareLayout, error) {
	switch version {
	case "2212s":
		return LayoutSkip, nil
	case "2212b":
		return LayoutBlock, nil
	}
	return 0, &ErrUnknownFirmware{Version: version}
}

func (l FirmwareLayout) String() string {
	switch l {
	case LayoutSkip:
		return "2212s"
	case LayoutBlock:
		return "2212b"
	default:
		return "UNKNOWN"
	}
}

// PixelMap translates between flat pixel numbers and (TDC, sub-channel)
// coordinates for one firmware layout. It has no state besides the layout
// and is safe to share across workers.
type PixelMap struct {
	layout FirmwareLayout
}

func NewPixelMap(layout FirmwareLayout) PixelMap {
	return PixelMap{layout: layout}
}

func (m PixelMap) Coords(pixel int) (tdc int, sub int) {
	if m.layout == LayoutBlock {
		return pixel / PixelsPerTDC, pixel % PixelsPerTDC
	}
	return pixel % NumTDC, pixel / NumTDC
}

func (m PixelMap) Pixel(tdc int, sub int) int {
	if m.layout == LayoutBlock {
		return tdc*PixelsPerTDC + sub
	}
	return sub*NumTDC + tdc
}

// CorrectedPixel maps a requested pixel number to the position it is
// actually read out at on motherboards mounted on side "23", where the
// address lines of the two sensor halves are swapped.
func CorrectedPixel(pixel int) int {
	if pixel > 127 {
		return 255 - pixel
	}
	return pixel + 128
}

// PixelSelection holds the pixels to correlate: either one flat list, in
// which case every unordered pair within it is analyzed, or a left and a
// right group for left-vs-right analysis.
type PixelSelection struct {
	Left    []int
	Right   []int
	Grouped bool
}

// UnmarshalJSON accepts a flat list of pixel numbers, a list of two groups,
// or the mixed form where single numbers stand for one-pixel groups, e.g.
// [3, 5, 12], [[66, 67], [170, 171]] or [15, [25, 26, 27]].
func (s *PixelSelection) UnmarshalJSON(data []byte) error {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return &ErrBadPixelSelection{Reason: "pixels must be a list"}
	}

	var flat []int
	groups := make([][]int, 0, len(elements))
	hasGroup := false
	for _, element := range elements {
		var pixel int
		if err := json.Unmarshal(element, &pixel); err == nil {
			flat = append(flat, pixel)
			groups = append(groups, []int{pixel})
			continue
		}
		var group []int
		if err := json.Unmarshal(element, &group); err == nil {
			hasGroup = true
			groups = append(groups, group)
			continue
		}
		return &ErrBadPixelSelection{Reason: "entries must be pixel numbers or lists of pixel numbers"}
	}

	if !hasGroup {
		*s = PixelSelection{Left: flat, Right: flat}
		return nil
	}
	if len(groups) != 2 {
		return &ErrBadPixelSelection{Reason: "grouped selection needs exactly two groups"}
	}
	*s = PixelSelection{Left: groups[0], Right: groups[1], Grouped: true}
	return nil
}

func (s PixelSelection) MarshalJSON() ([]byte, error) {
	if !s.Grouped {
		return json.Marshal(s.Left)
	}
	return json.Marshal([2][]int{s.Left, s.Right})
}

// Validate checks that the selection is non-empty and inside the sensor.
func (s PixelSelection) Validate() error {
	if len(s.Left) == 0 && len(s.Right) == 0 {
		return &ErrBadPixelSelection{Reason: "no pixels selected"}
	}
	for _, pixel := range s.Flattened() {
		if pixel < 0 || pixel >= TotalPixels {
			return &ErrBadPixel{Pixel: pixel}
		}
	}
	return nil
}

// Flattened returns all selected pixels in selector order, left group first.
func (s PixelSelection) Flattened() []int {
	if !s.Grouped {
		return s.Left
	}
	flat := make([]int, 0, len(s.Left)+len(s.Right))
	flat = append(flat, s.Left...)
	flat = append(flat, s.Right...)
	return flat
}

// Corrected rewrites the selection through CorrectedPixel for motherboards
// on side "23".
func (s PixelSelection) Corrected() PixelSelection {
	if !s.Grouped {
		fixed := correctedPixels(s.Left)
		return PixelSelection{Left: fixed, Right: fixed}
	}
	return PixelSelection{
		Left:    correctedPixels(s.Left),
		Right:   correctedPixels(s.Right),
		Grouped: true,
	}
}

// WithoutPixels drops the given pixels, typically a hot-pixel mask, from
// the selection.
func (s PixelSelection) WithoutPixels(masked []int) PixelSelection {
	if !s.Grouped {
		kept := keepUnmasked(s.Left, masked)
		return PixelSelection{Left: kept, Right: kept}
	}
	return PixelSelection{
		Left:    keepUnmasked(s.Left, masked),
		Right:   keepUnmasked(s.Right, masked),
		Grouped: true,
	}
}

func correctedPixels(pixels []int) []int {
	fixed := make([]int, len(pixels))
	for i, pixel := range pixels {
		fixed[i] = CorrectedPixel(pixel)
	}
	return fixed
}

func keepUnmasked(pixels []int, masked []int) []int {
	kept := make([]int, 0, len(pixels))
	for _, pixel := range pixels {
		if !slices.Contains(masked, pixel) {
			kept = append(kept, pixel)
		}
	}
	return kept
}
