package daplis

import "fmt"

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

// ErrMalformedFile represents a raw data file whose length does not divide
// into whole acquisition cycles.
type ErrMalformedFile struct {
	Filename string
	Words    int
	Reason   string
}

func (e *ErrMalformedFile) Error() string {
	return fmt.Sprintf("malformed data file %q: %s", e.Filename, e.Reason)
}

// ErrUnknownFirmware represents an unrecognized firmware version tag.
type ErrUnknownFirmware struct {
	Version string
}

func (e *ErrUnknownFirmware) Error() string {
	return fmt.Sprintf("firmware version %q is not recognized, expected 2212s or 2212b", e.Version)
}

// ErrMissingCalibration represents a board identity with no calibration
// data in the database.
type ErrMissingCalibration struct {
	Daughterboard string
	Motherboard   string
	Firmware      string
	Offset        bool
}

func (e *ErrMissingCalibration) Error() string {
	kind := "TDC"
	if e.Offset {
		kind = "offset"
	}
	return fmt.Sprintf("no %s calibration found for board %s/%s firmware %s",
		kind, e.Daughterboard, e.Motherboard, e.Firmware)
}

// ErrBadConfiguration represents an invalid configuration value.
type ErrBadConfiguration struct {
	Reason string
}

func (e *ErrBadConfiguration) Error() string {
	return fmt.Sprintf("bad configuration: %s", e.Reason)
}

// ErrBadPixelSelection represents a pixel selector with an invalid shape.
type ErrBadPixelSelection struct {
	Reason string
}

func (e *ErrBadPixelSelection) Error() string {
	return fmt.Sprintf("bad pixel selection: %s", e.Reason)
}

// ErrBadPixel represents a requested pixel outside the sensor.
type ErrBadPixel struct {
	Pixel int
}

func (e *ErrBadPixel) Error() string {
	return fmt.Sprintf("pixel %d out of range, sensor has pixels 0..%d", e.Pixel, TotalPixels-1)
}

// ErrAlreadyCalibrated represents a second calibration pass over the same data.
type ErrAlreadyCalibrated struct {
	Filename string
}

func (e *ErrAlreadyCalibrated) Error() string {
	return fmt.Sprintf("data from %q is already calibrated", e.Filename)
}
