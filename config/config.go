package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"fpbridge/pkg/types"
)

const VERSION = "1.0.0"

// Defaults
const (
	DEFAULT_HTTP_PORT   = 8080
	DEFAULT_DEVICE_IP   = "127.0.0.1"
	DEFAULT_DEVICE_PORT = 3999

	DEFAULT_DEVICE_TIMEOUT = 10.0  // seconds
	DEFAULT_POLL_ATTEMPTS  = 50    // receive loop attempts per command
	DEFAULT_POLL_INTERVAL  = 0.010 // seconds between attempts
)

// ConfigFile represents JSON configuration file structure
type ConfigFile struct {
	HTTP struct {
		Addr string `json:"addr"`
		Port int    `json:"port"`
	} `json:"http"`
	Device struct {
		IP      string  `json:"ip"`
		Port    int     `json:"port"`
		Timeout float64 `json:"timeout"` // socket timeout, seconds
	} `json:"device"`
	Protocol struct {
		PollAttempts int     `json:"poll_attempts"`
		PollInterval float64 `json:"poll_interval"` // seconds
	} `json:"protocol"`
	Operator struct {
		Code     string `json:"code"`
		Password string `json:"password"`
		Till     string `json:"till"`
	} `json:"operator"`
	Logging struct {
		LogFile    string `json:"log_file"`
		LogFileLow string `json:"log_file_low"` // raw frame hex dumps
		Rotation   struct {
			Enabled  bool  `json:"enabled"`
			MaxSize  int64 `json:"max_size"`
			MaxFiles int   `json:"max_files"`
			MaxDays  int   `json:"max_days"`
		} `json:"rotation"`
	} `json:"logging"`
	Journal struct {
		SqlitePath string `json:"sqlite_path"` // empty = journal disabled
	} `json:"journal"`
}

// LoadConfig builds runtime config from defaults, an optional config.json
// and the positional command line arguments [httpPort] [datecsIp] [datecsPort].
// Positional arguments win over the file.
func LoadConfig(configPath string, args []string) *types.Config {
	cfg := &types.Config{
		HTTPAddr:         "",
		HTTPPort:         DEFAULT_HTTP_PORT,
		DeviceIP:         DEFAULT_DEVICE_IP,
		DevicePort:       DEFAULT_DEVICE_PORT,
		DeviceTimeout:    DEFAULT_DEVICE_TIMEOUT,
		PollAttempts:     DEFAULT_POLL_ATTEMPTS,
		PollInterval:     DEFAULT_POLL_INTERVAL,
		OperatorCode:     "1",
		OperatorPassword: "1",
		OperatorTill:     "1",
		LogFile:          "bridge.log",
	}

	if configPath == "" {
		// config.json next to the executable, if there is one
		if exe, err := os.Executable(); err == nil {
			candidate := filepath.Join(filepath.Dir(exe), "config.json")
			if _, err := os.Stat(candidate); err == nil {
				configPath = candidate
			}
		}
	}

	if configPath != "" {
		if err := applyConfigFile(cfg, configPath); err != nil {
			fmt.Printf("Warning: config file %s: %v\n", configPath, err)
		}
	}

	applyArgs(cfg, args)
	return cfg
}

func applyConfigFile(cfg *types.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file ConfigFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if file.HTTP.Addr != "" {
		cfg.HTTPAddr = file.HTTP.Addr
	}
	if file.HTTP.Port > 0 {
		cfg.HTTPPort = file.HTTP.Port
	}
	if file.Device.IP != "" {
		cfg.DeviceIP = file.Device.IP
	}
	if file.Device.Port > 0 {
		cfg.DevicePort = file.Device.Port
	}
	if file.Device.Timeout > 0 {
		cfg.DeviceTimeout = file.Device.Timeout
	}
	if file.Protocol.PollAttempts > 0 {
		cfg.PollAttempts = file.Protocol.PollAttempts
	}
	if file.Protocol.PollInterval > 0 {
		cfg.PollInterval = file.Protocol.PollInterval
	}
	if file.Operator.Code != "" {
		cfg.OperatorCode = file.Operator.Code
	}
	if file.Operator.Password != "" {
		cfg.OperatorPassword = file.Operator.Password
	}
	if file.Operator.Till != "" {
		cfg.OperatorTill = file.Operator.Till
	}
	if file.Logging.LogFile != "" {
		cfg.LogFile = file.Logging.LogFile
	}
	cfg.LogFileLow = file.Logging.LogFileLow
	cfg.LogRotationEnabled = file.Logging.Rotation.Enabled
	cfg.LogRotationMaxSize = file.Logging.Rotation.MaxSize
	cfg.LogRotationMaxFiles = file.Logging.Rotation.MaxFiles
	cfg.LogRotationMaxDays = file.Logging.Rotation.MaxDays
	cfg.JournalPath = file.Journal.SqlitePath

	return nil
}

// applyArgs applies the positional arguments [httpPort] [datecsIp] [datecsPort]
func applyArgs(cfg *types.Config, args []string) {
	if len(args) > 0 {
		if port, err := strconv.Atoi(args[0]); err == nil && port > 0 && port < 65536 {
			cfg.HTTPPort = port
		} else {
			fmt.Printf("Warning: invalid http port %q, using %d\n", args[0], cfg.HTTPPort)
		}
	}
	if len(args) > 1 {
		cfg.DeviceIP = args[1]
	}
	if len(args) > 2 {
		if port, err := strconv.Atoi(args[2]); err == nil && port > 0 && port < 65536 {
			cfg.DevicePort = port
		} else {
			fmt.Printf("Warning: invalid device port %q, using %d\n", args[2], cfg.DevicePort)
		}
	}
}

// SaveConfigExample writes an example config.json
func SaveConfigExample(path string) error {
	var file ConfigFile
	file.HTTP.Addr = ""
	file.HTTP.Port = DEFAULT_HTTP_PORT
	file.Device.IP = DEFAULT_DEVICE_IP
	file.Device.Port = DEFAULT_DEVICE_PORT
	file.Device.Timeout = DEFAULT_DEVICE_TIMEOUT
	file.Protocol.PollAttempts = DEFAULT_POLL_ATTEMPTS
	file.Protocol.PollInterval = DEFAULT_POLL_INTERVAL
	file.Operator.Code = "1"
	file.Operator.Password = "1"
	file.Operator.Till = "1"
	file.Logging.LogFile = "bridge.log"
	file.Logging.LogFileLow = ""
	file.Logging.Rotation.Enabled = true
	file.Logging.Rotation.MaxSize = 10 * 1024 * 1024
	file.Logging.Rotation.MaxFiles = 5
	file.Journal.SqlitePath = "./data/journal.db"

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
