package daplis

type Configuration struct {
	Path             string         `json:"path"`
	FileOut          string         `json:"file_out"`
	Daughterboard    string         `json:"daughterboard"`
	Motherboard      string         `json:"motherboard"`
	Firmware         string         `json:"firmware"`
	Timestamps       int            `json:"timestamps"`
	DeltaWindow      float64        `json:"delta_window"`
	CycleLength      float64        `json:"cycle_length"`
	Pixels           PixelSelection `json:"pixels"`
	ApplyCalibration bool           `json:"apply_calibration"`
	IncludeOffset    bool           `json:"include_offset"`
	ApplyMask        bool           `json:"apply_mask"`
	MaskedPixels     []int          `json:"masked_pixels"`
	CorrectAddress   bool           `json:"correct_address"`
	MixMode          bool           `json:"mix_mode"`
	MaxFiles         int            `json:"max_files"`
	Skip             int            `json:"skip"`
	Verbosity        int            `json:"verbosity"`
	NumWorkers       int            `json:"num_workers"`
	WriteData        bool           `json:"write_data"`
	DBDriver         string         `json:"db_driver"`
	Host             string         `json:"host"`
	User             string         `json:"user"`
	Passwd           string         `json:"pass"`
	DBName           string         `json:"dbname"`
	DBFile           string         `json:"db_file"`
	UseBlosc         bool           `json:"use_blosc"`
	CompressionLevel int            `json:"compression_level"`
	BloscAlgorithm   BloscAlgorithm `json:"blosc_algorithm"`
	BloscShuffle     BloscShuffle   `json:"blosc_shuffle"`
}

var configuration Configuration

func GetConfiguration() Configuration {
	return configuration
}

func SetConfiguration(config Configuration) {
	configuration = config
}

// ValidateConfiguration checks the fields the pipeline depends on before any
// data file is touched. Everything reported here is fatal for the whole run.
func ValidateConfiguration(config Configuration) error {
	if _, err := ParseFirmware(config.Firmware); err != nil {
		return err
	}
	if config.Timestamps <= 0 {
		return &ErrBadConfiguration{Reason: "timestamps per cycle must be positive"}
	}
	if config.DeltaWindow <= 0 {
		return &ErrBadConfiguration{Reason: "delta window must be positive"}
	}
	switch config.DBDriver {
	case "mysql", "sqlite":
	default:
		return &ErrBadConfiguration{Reason: "db_driver must be mysql or sqlite"}
	}
	if config.CompressionLevel < 0 || config.CompressionLevel > 9 {
		return &ErrBadConfiguration{Reason: "compression level must be 0..9"}
	}
	return nil
}
