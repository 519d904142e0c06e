package main

import (
	"fmt"

	daplis "github.com/linospad2/daplis_go/pkg"
)

type WorkerData struct {
	Filename string
	Index    int
}

type FileResult struct {
	Filename string
	Index    int
	Cycles   int
	Skipped  []int
	Counts   []int64
	MaxTime  float64
	Err      error
}

func worker(id int, jobs <-chan WorkerData, results chan<- FileResult,
	pixmap daplis.PixelMap, calibration *daplis.CalibrationData) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Worker %d recovered from panic: %v\n", id, r)
			results <- FileResult{Err: fmt.Errorf("worker panic: %v", r)}
		}
	}()

	for job := range jobs {
		if VerbosityLevel > 1 {
			message := fmt.Sprintf("Worker %d processing file %s", id, job.Filename)
			logger.Info(message, "worker")
		}
		results <- processFile(job, pixmap, calibration)
	}
}

func processFile(job WorkerData, pixmap daplis.PixelMap, calibration *daplis.CalibrationData) FileResult {
	result := FileResult{Filename: job.Filename, Index: job.Index}

	f, err := daplis.Unpack(job.Filename, configuration.Timestamps)
	if err != nil {
		result.Err = err
		return result
	}
	if err := daplis.Calibrate(f, pixmap, calibration); err != nil {
		result.Err = err
		return result
	}

	result.Counts = daplis.CountPopulation(f, pixmap)
	result.MaxTime = f.MaxTime()
	result.Cycles = f.Cycles
	result.Skipped = f.SkippedPixels
	return result
}

func sendFilesToWorkers(files []string, jobs chan<- WorkerData) {
	for i, filename := range files {
		jobs <- WorkerData{Filename: filename, Index: i}
	}
	close(jobs)
}
