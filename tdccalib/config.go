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
	config.Firmware = "2212s"
	config.Skip = 0
	config.MaxFiles = 0
	config.Verbosity = 0
	config.DBDriver = "sqlite"
	config.DBFile = "calibration.db"
	config.Host = "localhost"
	config.User = "daplis"
	config.DBName = "daplis"
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
	logger.Info(fmt.Sprintf("Daughterboard: %s", config.Daughterboard), "config")
	logger.Info(fmt.Sprintf("Motherboard: %s", config.Motherboard), "config")
	logger.Info(fmt.Sprintf("Firmware: %s", config.Firmware), "config")
	logger.Info(fmt.Sprintf("Timestamps: %d", config.Timestamps), "config")
	logger.Info(fmt.Sprintf("Skip: %d", config.Skip), "config")
	logger.Info(fmt.Sprintf("Max files: %d", config.MaxFiles), "config")
	logger.Info(fmt.Sprintf("Verbosity: %d", config.Verbosity), "config")
	logger.Info(fmt.Sprintf("DB driver: %s", config.DBDriver), "config")
	logger.Info(fmt.Sprintf("DB file: %s", config.DBFile), "config")
}
