package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
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

	start := time.Now()
	matrix, err := daplis.GenerateTdcCalibration(files, configuration.Timestamps, pixmap)
	if err != nil {
		message := fmt.Errorf("Error generating calibration: %w", err)
		logger.Error(message.Error())
		return
	}

	withData := 0
	for _, row := range matrix {
		if row != nil {
			withData++
		}
	}
	message := fmt.Sprintf("Calibration generated for %d pixels", withData)
	logger.Info(message, "main")

	dbConn, err = daplis.ConnectToDatabase(configuration)
	if err != nil {
		message := fmt.Errorf("Error connecting to database: %w", err)
		logger.Error(message.Error())
		return
	}
	defer dbConn.Close()

	if configuration.DBDriver == "sqlite" {
		if err := daplis.CreateCalibrationTables(dbConn); err != nil {
			message := fmt.Errorf("Error creating calibration tables: %w", err)
			logger.Error(message.Error())
			return
		}
	}

	err = daplis.SaveTdcCalibration(dbConn, configuration.Daughterboard,
		configuration.Motherboard, configuration.Firmware, matrix)
	if err != nil {
		message := fmt.Errorf("Error saving calibration: %w", err)
		logger.Error(message.Error())
		return
	}
	logger.Info("Calibration stored", "main")

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
