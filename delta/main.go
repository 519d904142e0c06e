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

	selection := configuration.Pixels
	if err := selection.Validate(); err != nil {
		message := fmt.Errorf("Invalid pixel selection: %w", err)
		logger.Error(message.Error())
		return
	}
	if configuration.CorrectAddress {
		selection = selection.Corrected()
	}
	if configuration.ApplyMask {
		selection = selection.WithoutPixels(configuration.MaskedPixels)
		if err := selection.Validate(); err != nil {
			message := fmt.Errorf("No pixels left after masking: %w", err)
			logger.Error(message.Error())
			return
		}
	}
	if configuration.MixMode && !selection.Grouped {
		logger.Info("Mix mode needs two pixel groups, a flat selection produces no differences", "main")
	}

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
		go worker(w, jobs, results, pixmap, selection, calibration)
	}
	go sendFilesToWorkers(files, jobs)

	var writer *daplis.Writer
	if configuration.WriteData {
		writer = daplis.NewWriter(configuration.FileOut)
		writer.WriteRunInfo(configuration)
	}

	total := daplis.NewDeltaSet()
	processed := 0
	failed := 0
	for result := range results {
		if result.Err != nil {
			message := fmt.Errorf("error processing file %s: %w", result.Filename, result.Err)
			logger.Error(message.Error())
			failed++
		} else {
			total.Merge(result.Deltas)
			if configuration.WriteData {
				writer.WriteDeltas(result.Deltas)
				writer.WriteFileInfo(result.Index, result.Cycles, len(result.Skipped))
			}
			processed++
		}
		if processed+failed == len(files) {
			break
		}
	}
	fmt.Println("Total files processed: ", processed)

	for _, pair := range total.Pairs() {
		count := len(total.Deltas[pair])
		if count == 0 {
			message := fmt.Sprintf("No differences for pair %s", pair)
			logger.Info(message, "main")
		} else if VerbosityLevel > 0 {
			message := fmt.Sprintf("Pair %s: %d differences", pair, count)
			logger.Info(message, "main")
		}
	}
	fmt.Println("Total differences: ", total.Count())

	if configuration.WriteData {
		if err := writer.Close(); err != nil {
			logger.Error(err.Error())
		}
	}

	duration := time.Since(start)
	fmt.Printf("Total time: %d ms\n", duration.Milliseconds())
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
