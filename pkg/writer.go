package daplis

import (
	"errors"
	"fmt"

	hdf5 "github.com/next-exp/hdf5-go"
)

type Writer struct {
	File         *hdf5.File
	Filename     string
	RunInfoDone  bool
	RunGroup     *hdf5.Group
	DTGroup      *hdf5.Group
	SensorsGroup *hdf5.Group
	RunInfoTable *hdf5.Dataset
	DeltaTable   *hdf5.Dataset
	FileTable    *hdf5.Dataset
	Population   *hdf5.Dataset
	Rates        *hdf5.Dataset
	DeltaCounter int
	FileCounter  int
	PopCounter   int
	RateCounter  int
}

func NewWriter(filename string) *Writer {
	// Set string size for HDF5
	hdf5.SetStringLength(STRLEN)

	if configuration.UseBlosc {
		blosc_version, blosc_date, err := hdf5.RegisterBlosc()
		fmt.Println("Blosc version: ", blosc_version, " date: ", blosc_date)
		if err != nil {
			logger.Error(err.Error())
		}
	}

	writer := &Writer{}
	fmt.Println("hdf5writer: Creating file: ", filename)
	writer.File = openFile(filename)
	writer.Filename = filename
	writer.RunGroup = createGroup(writer.File, "Run")
	writer.DTGroup = createGroup(writer.File, "DT")
	writer.SensorsGroup = createGroup(writer.File, "Sensors")
	writer.RunInfoTable = createTable(writer.RunGroup, "runInfo", RunInfoHDF5{})
	writer.FileTable = createTable(writer.RunGroup, "files", FileInfoHDF5{})
	writer.DeltaTable = createTable(writer.DTGroup, "deltas", DeltaHDF5{})
	return writer
}

// WriteRunInfo stores the settings the run was processed with. Only the
// first call writes; later calls are ignored.
func (w *Writer) WriteRunInfo(config Configuration) {
	if w.RunInfoDone {
		return
	}
	info := RunInfoHDF5{
		daughterboard: convertToHdf5String(config.Daughterboard),
		motherboard:   convertToHdf5String(config.Motherboard),
		firmware:      convertToHdf5String(config.Firmware),
		timestamps:    int32(config.Timestamps),
		delta_window:  config.DeltaWindow,
		cycle_length:  config.CycleLength,
		calibrated:    boolToInt32(config.ApplyCalibration),
		offsets:       boolToInt32(config.IncludeOffset),
	}
	writeEntryToTable(w.RunInfoTable, info, 0)
	w.RunInfoDone = true
}

// WriteDeltas appends all differences in the set to the deltas table,
// pair by pair in key order. Empty pairs are skipped.
func (w *Writer) WriteDeltas(set *DeltaSet) {
	for _, key := range set.Pairs() {
		values := set.Deltas[key]
		if len(values) == 0 {
			continue
		}
		var left, right int32
		fmt.Sscanf(key, "%d,%d", &left, &right)

		// The array MUST be allocated at creation, if not, HDF5 will panic
		// doing appends will not work
		rows := make([]DeltaHDF5, len(values))
		for i, delta := range values {
			rows[i] = DeltaHDF5{
				pixel_left:  left,
				pixel_right: right,
				delta_ps:    delta,
			}
		}
		writeArrayToTable(w.DeltaTable, &rows, w.DeltaCounter)
		w.DeltaCounter += len(rows)
	}
}

func (w *Writer) WriteFileInfo(fileNumber, cycles, skipped int) {
	entry := FileInfoHDF5{
		file_number: int32(fileNumber),
		cycles:      int32(cycles),
		skipped:     int32(skipped),
	}
	writeEntryToTable(w.FileTable, entry, w.FileCounter)
	w.FileCounter++
}

// WritePopulation appends one row of per-pixel hit counts.
func (w *Writer) WritePopulation(counts []int64) {
	if w.Population == nil {
		w.Population = create2dArray(w.SensorsGroup, "population", TotalPixels, hdf5.T_NATIVE_INT64)
	}
	data := make([]int64, TotalPixels)
	copy(data, counts)
	write2dArray(w.Population, &data, w.PopCounter, TotalPixels)
	w.PopCounter++
}

// WriteRates appends one row of per-pixel hit rates in Hz.
func (w *Writer) WriteRates(rates []float64) {
	if w.Rates == nil {
		w.Rates = create2dArray(w.SensorsGroup, "rates", TotalPixels, hdf5.T_NATIVE_DOUBLE)
	}
	data := make([]float64, TotalPixels)
	copy(data, rates)
	write2dArray(w.Rates, &data, w.RateCounter, TotalPixels)
	w.RateCounter++
}

func (w *Writer) Close() error {
	fmt.Println("Closing file hdf writer ", w.Filename)
	var errs []error

	if err := w.RunInfoTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing run info table: %w", err))
	}
	if err := w.FileTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file table: %w", err))
	}
	if err := w.DeltaTable.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing deltas table: %w", err))
	}
	if w.Population != nil {
		if err := w.Population.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing population array: %w", err))
		}
	}
	if w.Rates != nil {
		if err := w.Rates.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing rates array: %w", err))
		}
	}
	if err := w.RunGroup.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing run group: %w", err))
	}
	if err := w.DTGroup.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing DT group: %w", err))
	}
	if err := w.SensorsGroup.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing sensors group: %w", err))
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
