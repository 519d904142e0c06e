package main

import (
	"encoding/json"
	"fmt"
	"os"

	daplis "github.com/linospad2/daplis_go/pkg"
)

func LoadConfiguration(filename string) (daplis.Configuration, error) {
	var config daplis.Configuration

	// Set default values
	config.Timestamps = 512
	config.DeltaWindow = 50000
	config.CycleLength = 0
	config.Firmware = "2212s"
	config.ApplyCalibration = true
	config.IncludeOffset = false
	config.ApplyMask = false
	config.CorrectAddress = false
	config.MixMode = false
	config.Skip = 0
	config.MaxFiles = 0
	config.Verbosity = 0
	config.NumWorkers = 1
	config.WriteData = true
	config.DBDriver = "sqlite"
	config.DBFile = "calibration.db"
	config.Host = "localhost"
	config.User = "daplis"
	config.DBName = "daplis"
	config.UseBlosc = false
	config.CompressionLevel = 4

	data, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	err = json.Unmarshal(data, &config)
	if err != nil {
		return config, err
	}
	return config, nil
}

func printConfiguration(config daplis.Configuration, logger Logger) {
	logger.Info(fmt.Sprintf("Path: %s", config.Path), "config")
	logger.Info(fmt.Sprintf("File out: %s", config.FileOut), "config")
	logger.Info(fmt.Sprintf("Daughterboard: %s", config.Daughterboard), "config")
	logger.Info(fmt.Sprintf("Motherboard: %s", config.Motherboard), "config")
	logger.Info(fmt.Sprintf("Firmware: %s", config.Firmware), "config")
	logger.Info(fmt.Sprintf("Timestamps: %d", config.Timestamps), "config")
	logger.Info(fmt.Sprintf("Delta window: %.0f ps", config.DeltaWindow), "config")
	logger.Info(fmt.Sprintf("Cycle length: %.0f ps", config.CycleLength), "config")
	logger.Info(fmt.Sprintf("Apply calibration: %t", config.ApplyCalibration), "config")
	logger.Info(fmt.Sprintf("Include offset: %t", config.IncludeOffset), "config")
	logger.Info(fmt.Sprintf("Apply mask: %t", config.ApplyMask), "config")
	logger.Info(fmt.Sprintf("Correct address: %t", config.CorrectAddress), "config")
	logger.Info(fmt.Sprintf("Mix mode: %t", config.MixMode), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max files: %d", config.MaxFiles), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("Write data: %t", config.WriteData), "config")
	logger.Info(fmt.Sprintf("Number of workers: %d", config.NumWorkers), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
}
