package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	_ "github.com/ianlancetaylor/cgosymbolizer"
	sqlx "github.com/jmoiron/sqlx"
	daplis "github.com/linospad2/daplis_go/pkg"
)

var dbConn *sqlx.DB
var configuration daplis.Configuration

var (
	logger         Logger
	VerbosityLevel int
)

func init() {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	handlerStdOut := NewHandler(os.Stdout, opts)
	handlerStdErr := slog.NewJSONHandler(os.Stderr, opts)
	logger = Logger{
		InfoLog:  slog.New(handlerStdOut),
		ErrorLog: slog.New(handlerStdErr),
	}
}

func main() {
	configFilename := flag.String("config", "", "Configuration file path")
	flag.Parse()

	var err error
	configuration, err = LoadConfiguration(*configFilename)
	if err != nil {
		message := fmt.Errorf("Error reading configuration file: %w", err)
		logger.Error(message.Error())
		return
	}
	daplis.SetConfiguration(configuration)
	daplis.SetLogger(logger)

	VerbosityLevel = configuration.Verbosity
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Reading configuration file: %s", *configFilename)
		logger.Info(message, "main")
	}
	if VerbosityLevel > 0 {
		printConfiguration(configuration, logger)
	}

	if err := daplis.ValidateConfiguration(configuration); err != nil {
		message := fmt.Errorf("Invalid configuration: %w", err)
		logger.Error(message.Error())
		return
	}
	firmware, _ := daplis.ParseFirmware(configuration.Firmware)
	pixmap := daplis.NewPixelMap(firmware)

	var calibration *daplis.CalibrationData
	if configuration.ApplyCalibration {
		dbConn, err = daplis.ConnectToDatabase(configuration)
		if err != nil {
			message := fmt.Errorf("Error connecting to database: %w", err)
			logger.Error(message.Error())
			return
		}
		defer dbConn.Close()

		store := daplis.NewCalibrationStore(dbConn)
		calibration, err = store.Load(configuration.Daughterboard, configuration.Motherboard,
			configuration.Firmware, configuration.IncludeOffset)
		if err != nil {
			message := fmt.Errorf("Error loading calibration: %w", err)
			logger.Error(message.Error())
			return
		}
	}

	files, err := findDataFiles(configuration.Path)
	if err != nil {
		message := fmt.Errorf("Error listing data files: %w", err)
		logger.Error(message.Error())
		return
	}
	files = selectFiles(files, configuration.Skip, configuration.MaxFiles)
	if len(files) == 0 {
		message := fmt.Sprintf("No data files found in %s", configuration.Path)
		logger.Error(message)
		return
	}
	if VerbosityLevel > 0 {
		message := fmt.Sprintf("Number of files: %d", len(files))
		logger.Info(message, "main")
	}

	numWorkers := configuration.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	start := time.Now()
	jobs := make(chan WorkerData, 100)
	results := make(chan FileResult, 100)

	for w := 1; w <= numWorkers; w++ {
		go worker(w, jobs, results, pixmap, calibration)
	}
	go sendFilesToWorkers(files, jobs)

	var writer *daplis.Writer
	if configuration.WriteData {
		writer = daplis.NewWriter(configuration.FileOut)
		writer.WriteRunInfo(configuration)
	}

	total := make([]int64, daplis.TotalPixels)
	acqWindow := 0.0
	cycles := 0
	processed := 0
	failed := 0
	for result := range results {
		if result.Err != nil {
			message := fmt.Errorf("error processing file %s: %w", result.Filename, result.Err)
			logger.Error(message.Error())
			failed++
		} else {
			daplis.AccumulatePopulation(total, result.Counts)
			if result.MaxTime > acqWindow {
				acqWindow = result.MaxTime
			}
			if result.Cycles > cycles {
				cycles = result.Cycles
			}
			if configuration.WriteData {
				writer.WritePopulation(result.Counts)
				writer.WriteFileInfo(result.Index, result.Cycles, len(result.Skipped))
			}
			processed++
		}
		if processed+failed == len(files) {
			break
		}
	}
	fmt.Println("Total files processed: ", processed)

	if configuration.CorrectAddress {
		total = daplis.CorrectPopulationAddress(total)
	}
	if configuration.ApplyMask {
		daplis.MaskPopulation(total, configuration.MaskedPixels)
	}

	var totalHits int64 = 0
	for _, c := range total {
		totalHits += c
	}
	fmt.Println("Total hits: ", totalHits)

	rates := daplis.PopulationRates(total, acqWindow, cycles, processed)
	if VerbosityLevel > 0 {
		printBrightestPixels(rates)
	}

	if configuration.WriteData {
		writer.WriteRates(rates)
		if err := writer.Close(); err != nil {
			logger.Error(err.Error())
		}
	}

	duration := time.Since(start)
	fmt.Printf("Total time: %d ms\n", duration.Milliseconds())
}

func printBrightestPixels(rates []float64) {
	indices := make([]int, len(rates))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(i, j int) bool {
		return rates[indices[i]] > rates[indices[j]]
	})
	for _, p := range indices[:5] {
		message := fmt.Sprintf("Pixel %d: %.1f Hz", p, rates[p])
		logger.Info(message, "main")
	}
}

func findDataFiles(path string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(path, "*.dat"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func selectFiles(files []string, skip int, maxFiles int) []string {
	if skip > len(files) {
		skip = len(files)
	}
	files = files[skip:]
	if maxFiles > 0 && maxFiles < len(files) {
		files = files[:maxFiles]
	}
	return files
}
