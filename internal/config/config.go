// Package config loads the wheel-sensor configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/wheel-sensor/internal/control"
	"github.com/sweeney/wheel-sensor/internal/gpio"
	"github.com/sweeney/wheel-sensor/internal/link"
	"github.com/sweeney/wheel-sensor/internal/logic"
)

// Config represents the daemon configuration.
type Config struct {
	GPIO     GPIOConfig     `yaml:"gpio"`
	Wheel    WheelConfig    `yaml:"wheel"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Link     LinkConfig     `yaml:"link"`
	Control  ControlConfig  `yaml:"control"`
	Redis    RedisConfig    `yaml:"redis"`
	HTTP     HTTPConfig     `yaml:"http"`

	// RestartDelay is how long to wait before exiting after a fatal
	// link bring-up failure.
	RestartDelay time.Duration `yaml:"restart_delay"`
}

// GPIOConfig selects the sensor input line.
type GPIOConfig struct {
	Chip     string        `yaml:"chip"`
	Line     int           `yaml:"line"`
	Debounce time.Duration `yaml:"debounce"` // 0 disables kernel debounce
}

// WheelConfig holds the conversion constants.
type WheelConfig struct {
	PulsesPerRev  float32 `yaml:"pulses_per_rev"`
	PulsesPerKcal float32 `yaml:"pulses_per_kcal"`
	ThresholdStep float32 `yaml:"threshold_step"` // kcal between box openings
	Window        int     `yaml:"window"`         // RPM smoothing depth
}

// ScheduleConfig holds the three loop cadences.
type ScheduleConfig struct {
	RPMInterval       time.Duration `yaml:"rpm_interval"`
	ThresholdInterval time.Duration `yaml:"threshold_interval"`
	ReportInterval    time.Duration `yaml:"report_interval"`
}

// LinkConfig configures the broadcast link.
type LinkConfig struct {
	Transport string     `yaml:"transport"` // "mqtt" or "can"
	MQTT      MQTTConfig `yaml:"mqtt"`
	CAN       CANConfig  `yaml:"can"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// CANConfig configures the SocketCAN transport.
type CANConfig struct {
	Interface  string `yaml:"interface"`
	RPMFrameID uint32 `yaml:"rpm_frame_id"`
	CmdFrameID uint32 `yaml:"cmd_frame_id"`
}

// ControlConfig selects the local control channel. An empty port uses stdin.
type ControlConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// RedisConfig configures the optional state mirror. Empty addr disables it.
type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// HTTPConfig configures the status server. Empty addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	p := logic.DefaultParams()
	return &Config{
		GPIO: GPIOConfig{
			Chip: gpio.DefaultChip,
			Line: gpio.DefaultLine,
		},
		Wheel: WheelConfig{
			PulsesPerRev:  p.PulsesPerRev,
			PulsesPerKcal: p.PulsesPerKcal,
			ThresholdStep: p.ThresholdStep,
			Window:        p.WindowSize,
		},
		Schedule: ScheduleConfig{
			RPMInterval:       20 * time.Millisecond,
			ThresholdInterval: 100 * time.Millisecond,
			ReportInterval:    500 * time.Millisecond,
		},
		Link: LinkConfig{
			Transport: link.TransportMQTT,
			MQTT: MQTTConfig{
				Broker:   "tcp://127.0.0.1:1883",
				ClientID: link.DefaultMQTTClientID,
				Topic:    link.DefaultMQTTTopic,
			},
			CAN: CANConfig{
				Interface:  link.DefaultCANInterface,
				RPMFrameID: link.DefaultRPMFrameID,
				CmdFrameID: link.DefaultCmdFrameID,
			},
		},
		Control: ControlConfig{
			Baud: control.DefaultBaudRate,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		RestartDelay: 5 * time.Second,
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate rejects values the control loop cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Wheel.PulsesPerRev <= 0 {
		errs = append(errs, fmt.Errorf("wheel.pulses_per_rev must be positive, got %v", c.Wheel.PulsesPerRev))
	}
	if c.Wheel.PulsesPerKcal <= 0 {
		errs = append(errs, fmt.Errorf("wheel.pulses_per_kcal must be positive, got %v", c.Wheel.PulsesPerKcal))
	}
	if c.Wheel.ThresholdStep <= 0 {
		errs = append(errs, fmt.Errorf("wheel.threshold_step must be positive, got %v", c.Wheel.ThresholdStep))
	}
	for _, iv := range []struct {
		name string
		d    time.Duration
	}{
		{"rpm_interval", c.Schedule.RPMInterval},
		{"threshold_interval", c.Schedule.ThresholdInterval},
		{"report_interval", c.Schedule.ReportInterval},
	} {
		if iv.d < time.Millisecond {
			errs = append(errs, fmt.Errorf("schedule.%s must be at least 1ms, got %v", iv.name, iv.d))
		}
	}
	switch c.Link.Transport {
	case link.TransportMQTT, link.TransportCAN:
	default:
		errs = append(errs, fmt.Errorf("link.transport must be %q or %q, got %q", link.TransportMQTT, link.TransportCAN, c.Link.Transport))
	}
	return errors.Join(errs...)
}

// Params returns the derivation constants for the logic package.
func (c *Config) Params() logic.Params {
	return logic.Params{
		PulsesPerRev:  c.Wheel.PulsesPerRev,
		PulsesPerKcal: c.Wheel.PulsesPerKcal,
		ThresholdStep: c.Wheel.ThresholdStep,
		WindowSize:    c.Wheel.Window,
	}
}

// LinkConfig returns the transport configuration for link.Begin.
func (c *Config) LinkConfig() link.Config {
	return link.Config{
		Transport: c.Link.Transport,
		MQTT: link.MQTTConfig{
			Broker:   c.Link.MQTT.Broker,
			ClientID: c.Link.MQTT.ClientID,
			Topic:    c.Link.MQTT.Topic,
		},
		CAN: link.CANConfig{
			Interface:  c.Link.CAN.Interface,
			RPMFrameID: c.Link.CAN.RPMFrameID,
			CmdFrameID: c.Link.CAN.CmdFrameID,
		},
	}
}

// LinkTarget describes where the link points, for display.
func (c *Config) LinkTarget() string {
	if c.Link.Transport == link.TransportCAN {
		return c.Link.CAN.Interface
	}
	return c.Link.MQTT.Broker
}

// ensureDefaults fills fields left zero by a partial file.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}

	if c.Wheel.PulsesPerRev == 0 {
		c.Wheel.PulsesPerRev = def.Wheel.PulsesPerRev
	}
	if c.Wheel.PulsesPerKcal == 0 {
		c.Wheel.PulsesPerKcal = def.Wheel.PulsesPerKcal
	}
	if c.Wheel.ThresholdStep == 0 {
		c.Wheel.ThresholdStep = def.Wheel.ThresholdStep
	}
	if c.Wheel.Window <= 0 {
		c.Wheel.Window = def.Wheel.Window
	}

	if c.Schedule.RPMInterval == 0 {
		c.Schedule.RPMInterval = def.Schedule.RPMInterval
	}
	if c.Schedule.ThresholdInterval == 0 {
		c.Schedule.ThresholdInterval = def.Schedule.ThresholdInterval
	}
	if c.Schedule.ReportInterval == 0 {
		c.Schedule.ReportInterval = def.Schedule.ReportInterval
	}

	if c.Link.Transport == "" {
		c.Link.Transport = def.Link.Transport
	}
	if c.Link.MQTT.Broker == "" {
		c.Link.MQTT.Broker = def.Link.MQTT.Broker
	}
	if c.Link.MQTT.ClientID == "" {
		c.Link.MQTT.ClientID = def.Link.MQTT.ClientID
	}
	if c.Link.MQTT.Topic == "" {
		c.Link.MQTT.Topic = def.Link.MQTT.Topic
	}
	if c.Link.CAN.Interface == "" {
		c.Link.CAN.Interface = def.Link.CAN.Interface
	}
	if c.Link.CAN.RPMFrameID == 0 {
		c.Link.CAN.RPMFrameID = def.Link.CAN.RPMFrameID
	}
	if c.Link.CAN.CmdFrameID == 0 {
		c.Link.CAN.CmdFrameID = def.Link.CAN.CmdFrameID
	}

	if c.Control.Baud == 0 {
		c.Control.Baud = def.Control.Baud
	}

	if c.RestartDelay == 0 {
		c.RestartDelay = def.RestartDelay
	}
}
