package daplis

import (
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ConnectToDatabase opens the calibration database. The online database is
// MySQL; sqlite points at a local calibration file and needs no server.
func ConnectToDatabase(config Configuration) (*sqlx.DB, error) {
	switch config.DBDriver {
	case "mysql":
		port := "3306"
		dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true",
			config.User, config.Passwd, config.Host, port, config.DBName)
		return sqlx.Connect("mysql", dbURI)
	case "sqlite":
		return sqlx.Connect("sqlite", config.DBFile)
	}
	return nil, &ErrBadConfiguration{Reason: fmt.Sprintf("unknown database driver %q", config.DBDriver)}
}

type calibrationKey struct {
	daughterboard string
	motherboard   string
	firmware      string
	offset        bool
}

// CalibrationStore loads calibration tables by board identity and caches
// them for the lifetime of the process. Loaded tables are immutable, so the
// store can be shared by all workers.
type CalibrationStore struct {
	db    *sqlx.DB
	mu    sync.Mutex
	cache map[calibrationKey]*CalibrationData
}

func NewCalibrationStore(db *sqlx.DB) *CalibrationStore {
	return &CalibrationStore{
		db:    db,
		cache: make(map[calibrationKey]*CalibrationData),
	}
}

// Load returns the calibration data for the given board identity, reading
// it from the database on the first request.
func (s *CalibrationStore) Load(daughterboard, motherboard, firmware string, includeOffset bool) (*CalibrationData, error) {
	key := calibrationKey{daughterboard, motherboard, firmware, includeOffset}
	s.mu.Lock()
	defer s.mu.Unlock()
	if data, ok := s.cache[key]; ok {
		return data, nil
	}
	data, err := loadCalibrationData(s.db, daughterboard, motherboard, firmware, includeOffset)
	if err != nil {
		return nil, err
	}
	s.cache[key] = data
	return data, nil
}

type tdcCalibrationRow struct {
	Pixel      int     `db:"Pixel"`
	Bin        int     `db:"Bin"`
	Correction float64 `db:"Correction"`
}

type pixelOffsetRow struct {
	Pixel  int     `db:"Pixel"`
	Offset float64 `db:"Offset"`
}

func loadCalibrationData(db *sqlx.DB, daughterboard, motherboard, firmware string, includeOffset bool) (*CalibrationData, error) {
	if configuration.Verbosity > 0 {
		message := fmt.Sprintf("Reading TDC calibration for %s/%s firmware %s from database",
			daughterboard, motherboard, firmware)
		logger.Info(message, "database")
	}

	query := "SELECT Pixel, Bin, Correction FROM TdcCalibration WHERE Daughterboard = ? AND Motherboard = ? AND Firmware = ?"
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}
	rows, err := db.Queryx(query, daughterboard, motherboard, firmware)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	data := &CalibrationData{Matrix: make([][]float64, TotalPixels)}
	found := 0
	for rows.Next() {
		result := tdcCalibrationRow{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		if result.Pixel < 0 || result.Pixel >= TotalPixels || result.Bin < 0 || result.Bin >= FineBins {
			continue
		}
		if data.Matrix[result.Pixel] == nil {
			data.Matrix[result.Pixel] = make([]float64, FineBins)
			found++
		}
		data.Matrix[result.Pixel][result.Bin] = result.Correction
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading DB rows: %w", err)
	}
	if found == 0 {
		return nil, &ErrMissingCalibration{
			Daughterboard: daughterboard,
			Motherboard:   motherboard,
			Firmware:      firmware,
		}
	}
	for p := 0; p < TotalPixels; p++ {
		if data.Matrix[p] == nil {
			data.Missing = append(data.Missing, p)
		}
	}

	if includeOffset {
		offset, err := loadPixelOffsets(db, daughterboard, motherboard, firmware)
		if err != nil {
			return nil, err
		}
		data.Offset = offset
	}
	return data, nil
}

func loadPixelOffsets(db *sqlx.DB, daughterboard, motherboard, firmware string) ([]float64, error) {
	query := "SELECT Pixel, Offset FROM PixelOffset WHERE Daughterboard = ? AND Motherboard = ? AND Firmware = ?"
	if configuration.Verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), "database")
	}
	rows, err := db.Queryx(query, daughterboard, motherboard, firmware)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	offset := make([]float64, TotalPixels)
	found := 0
	for rows.Next() {
		result := pixelOffsetRow{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		if result.Pixel < 0 || result.Pixel >= TotalPixels {
			continue
		}
		offset[result.Pixel] = result.Offset
		found++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading DB rows: %w", err)
	}
	if found == 0 {
		return nil, &ErrMissingCalibration{
			Daughterboard: daughterboard,
			Motherboard:   motherboard,
			Firmware:      firmware,
			Offset:        true,
		}
	}
	return offset, nil
}

const createTdcCalibrationTable = `
CREATE TABLE IF NOT EXISTS TdcCalibration (
	Daughterboard TEXT NOT NULL,
	Motherboard   TEXT NOT NULL,
	Firmware      TEXT NOT NULL,
	Pixel         INTEGER NOT NULL,
	Bin           INTEGER NOT NULL,
	Correction    REAL NOT NULL
)`

const createPixelOffsetTable = `
CREATE TABLE IF NOT EXISTS PixelOffset (
	Daughterboard TEXT NOT NULL,
	Motherboard   TEXT NOT NULL,
	Firmware      TEXT NOT NULL,
	Pixel         INTEGER NOT NULL,
	Offset        REAL NOT NULL
)`

// CreateCalibrationTables prepares the schema in a fresh local database.
func CreateCalibrationTables(db *sqlx.DB) error {
	if _, err := db.Exec(createTdcCalibrationTable); err != nil {
		return fmt.Errorf("error creating TdcCalibration table: %w", err)
	}
	if _, err := db.Exec(createPixelOffsetTable); err != nil {
		return fmt.Errorf("error creating PixelOffset table: %w", err)
	}
	return nil
}

// SaveTdcCalibration stores a generated correction matrix under the given
// board identity. Pixels with nil rows are not written.
func SaveTdcCalibration(db *sqlx.DB, daughterboard, motherboard, firmware string, matrix [][]float64) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	query := "INSERT INTO TdcCalibration (Daughterboard, Motherboard, Firmware, Pixel, Bin, Correction) VALUES (?, ?, ?, ?, ?, ?)"
	for p, row := range matrix {
		if row == nil {
			continue
		}
		for b, correction := range row {
			if _, err := tx.Exec(query, daughterboard, motherboard, firmware, p, b, correction); err != nil {
				tx.Rollback()
				return fmt.Errorf("error inserting calibration row: %w", err)
			}
		}
	}
	return tx.Commit()
}
