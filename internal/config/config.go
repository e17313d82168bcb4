package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker            string
	MQTTClientIDAutopilot string
	MQTTClientIDConsole   string
	MQTTClientIDWeb       string
	MQTTClientIDTrigger   string
	MQTTClientIDPose      string
	MQTTClientIDScanSim   string

	// Topics
	TopicScan         string
	TopicJoy          string
	TopicInferredPose string
	TopicDrive        string
	TopicOdom         string
	TopicPFOdom       string
	TopicImuRaw       string
	TopicImu          string

	// Model
	ModelPath string

	// Control loop
	ControlRateHz float64

	// Recording
	SyncSlop       float64 // approximate-time join tolerance, seconds
	SyncQueueDepth int
	DatasetDir     string
	FiguresDir     string

	// Trigger input
	TriggerGPIOPin        string
	TriggerSampleInterval int // milliseconds

	// Pose producer (NMEA GPS)
	PoseSerialPort string
	PoseBaudRate   int

	// Scan simulator
	ScanSimBeams    int
	ScanSimInterval int // milliseconds

	// Web Server
	WebServerPort int
}

// Package-level unexported variables for the config singleton. External code
// must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_AUTOPILOT":
		c.MQTTClientIDAutopilot = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_TRIGGER":
		c.MQTTClientIDTrigger = value
	case "MQTT_CLIENT_ID_POSE":
		c.MQTTClientIDPose = value
	case "MQTT_CLIENT_ID_SCANSIM":
		c.MQTTClientIDScanSim = value

	// Topics
	case "TOPIC_SCAN":
		c.TopicScan = value
	case "TOPIC_JOY":
		c.TopicJoy = value
	case "TOPIC_INFERRED_POSE":
		c.TopicInferredPose = value
	case "TOPIC_DRIVE":
		c.TopicDrive = value
	case "TOPIC_ODOM":
		c.TopicOdom = value
	case "TOPIC_PF_ODOM":
		c.TopicPFOdom = value
	case "TOPIC_IMU_RAW":
		c.TopicImuRaw = value
	case "TOPIC_IMU":
		c.TopicImu = value

	// Model
	case "MODEL_PATH":
		c.ModelPath = value

	// Control loop
	case "CONTROL_RATE_HZ":
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CONTROL_RATE_HZ %q: %w", value, err)
		}
		if rate <= 0 {
			return fmt.Errorf("CONTROL_RATE_HZ must be positive, got %g", rate)
		}
		c.ControlRateHz = rate

	// Recording
	case "SYNC_SLOP":
		slop, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SYNC_SLOP %q: %w", value, err)
		}
		if slop <= 0 {
			return fmt.Errorf("SYNC_SLOP must be positive, got %g", slop)
		}
		c.SyncSlop = slop
	case "SYNC_QUEUE_DEPTH":
		depth, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SYNC_QUEUE_DEPTH %q: %w", value, err)
		}
		if depth < 1 {
			return fmt.Errorf("SYNC_QUEUE_DEPTH must be at least 1, got %d", depth)
		}
		c.SyncQueueDepth = depth
	case "DATASET_DIR":
		c.DatasetDir = value
	case "FIGURES_DIR":
		c.FiguresDir = value

	// Trigger input
	case "TRIGGER_GPIO_PIN":
		c.TriggerGPIOPin = value
	case "TRIGGER_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TRIGGER_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.TriggerSampleInterval = interval

	// Pose producer
	case "POSE_SERIAL_PORT":
		c.PoseSerialPort = value
	case "POSE_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid POSE_BAUD_RATE %q: %w", value, err)
		}
		c.PoseBaudRate = rate

	// Scan simulator
	case "SCANSIM_BEAMS":
		beams, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SCANSIM_BEAMS %q: %w", value, err)
		}
		c.ScanSimBeams = beams
	case "SCANSIM_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SCANSIM_INTERVAL %q: %w", value, err)
		}
		c.ScanSimInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// applyDefaults fills optional fields left unset by the config file.
func (c *Config) applyDefaults() {
	if c.ControlRateHz == 0 {
		c.ControlRateHz = 40.0
	}
	if c.SyncSlop == 0 {
		c.SyncSlop = 0.05
	}
	if c.SyncQueueDepth == 0 {
		c.SyncQueueDepth = 20
	}
	if c.DatasetDir == "" {
		c.DatasetDir = "car_dataset"
	}
	if c.FiguresDir == "" {
		c.FiguresDir = "figures"
	}
	if c.TriggerSampleInterval == 0 {
		c.TriggerSampleInterval = 20
	}
	if c.PoseBaudRate == 0 {
		c.PoseBaudRate = 9600
	}
	if c.ScanSimBeams == 0 {
		c.ScanSimBeams = 1081
	}
	if c.ScanSimInterval == 0 {
		c.ScanSimInterval = 25
	}
	if c.WebServerPort == 0 {
		c.WebServerPort = 8080
	}
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.ModelPath == "" {
		return fmt.Errorf("MODEL_PATH is required")
	}
	if c.TopicScan == "" {
		return fmt.Errorf("TOPIC_SCAN is required")
	}
	if c.TopicJoy == "" {
		return fmt.Errorf("TOPIC_JOY is required")
	}
	if c.TopicInferredPose == "" {
		return fmt.Errorf("TOPIC_INFERRED_POSE is required")
	}
	if c.TopicDrive == "" {
		return fmt.Errorf("TOPIC_DRIVE is required")
	}
	if c.TopicOdom == "" {
		return fmt.Errorf("TOPIC_ODOM is required")
	}
	if c.TopicPFOdom == "" {
		return fmt.Errorf("TOPIC_PF_ODOM is required")
	}
	if c.TopicImuRaw == "" {
		return fmt.Errorf("TOPIC_IMU_RAW is required")
	}
	if c.TopicImu == "" {
		return fmt.Errorf("TOPIC_IMU is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
