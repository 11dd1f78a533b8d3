// Command wheel-sensor counts wheel pulses, broadcasts RPM telemetry and
// opens boxes as the rider's energy total crosses each threshold.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/wheel-sensor/internal/config"
	"github.com/sweeney/wheel-sensor/internal/control"
	"github.com/sweeney/wheel-sensor/internal/gpio"
	"github.com/sweeney/wheel-sensor/internal/link"
	"github.com/sweeney/wheel-sensor/internal/logic"
	"github.com/sweeney/wheel-sensor/internal/mirror"
	"github.com/sweeney/wheel-sensor/internal/pulse"
	"github.com/sweeney/wheel-sensor/internal/status"
	"github.com/sweeney/wheel-sensor/internal/web"
)

// errLinkBringUp marks a failure the supervisor should recover from by
// restarting the process.
var errLinkBringUp = errors.New("link bring-up failed")

func main() {
	configPath := flag.String("config", "/etc/wheel-sensor.yaml", "Path to YAML configuration")
	logLevel := flag.Int("log", int(LogLevelInfo), "Log level (0=none, 1=error, 2=warn, 3=info, 4=debug)")
	httpAddr := flag.String("http", "", `HTTP status address override ("off" disables)`)
	transport := flag.String("transport", "", "Link transport override (mqtt or can)")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration and exit")

	flag.Parse()

	logger := NewLeveledLogger(log.New(os.Stderr, "", log.LstdFlags), LogLevel(*logLevel))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	applyOverrides(cfg, *httpAddr, *transport)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	if *printConfig {
		data, err := cfg.Marshal()
		if err != nil {
			logger.Fatalf("%v", err)
		}
		fmt.Print(string(data))
		return
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal: %v", err)
		if d := exitDelay(err, cfg.RestartDelay); d > 0 {
			logger.Info("exiting in %v", d)
			time.Sleep(d)
		}
		os.Exit(1)
	}
}

// exitDelay returns how long to wait before exiting on err. Only link
// bring-up failures wait.
func exitDelay(err error, restartDelay time.Duration) time.Duration {
	if errors.Is(err, errLinkBringUp) && restartDelay > 0 {
		return restartDelay
	}
	return 0
}

// applyOverrides folds command-line overrides into cfg.
func applyOverrides(cfg *config.Config, httpAddr, transport string) {
	switch httpAddr {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = httpAddr
	}
	if transport != "" {
		cfg.Link.Transport = transport
	}
}

func linkBringUpError(err error) error {
	return fmt.Errorf("%w: %v", errLinkBringUp, err)
}

func run(cfg *config.Config, logger *LeveledLogger) error {
	start := time.Now()
	counter := &pulse.Counter{}

	lnk, err := link.Begin(cfg.LinkConfig())
	if err != nil {
		return linkBringUpError(err)
	}
	defer lnk.Close()
	logger.Info("link up: transport=%s target=%s", cfg.Link.Transport, cfg.LinkTarget())

	src, err := gpio.NewRealSource(cfg.GPIO.Chip, cfg.GPIO.Line, cfg.GPIO.Debounce)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	if err := src.Start(counter.OnEdge); err != nil {
		return fmt.Errorf("start gpio: %w", err)
	}
	defer src.Close()

	ctrl, err := openControl(cfg.Control)
	if err != nil {
		return fmt.Errorf("open control channel: %w", err)
	}
	defer ctrl.Close()

	tracker := status.NewTracker(start, status.Config{
		RPMIntervalMs:       cfg.Schedule.RPMInterval.Milliseconds(),
		ThresholdIntervalMs: cfg.Schedule.ThresholdInterval.Milliseconds(),
		ReportIntervalMs:    cfg.Schedule.ReportInterval.Milliseconds(),
		PulsesPerRev:        cfg.Wheel.PulsesPerRev,
		PulsesPerKcal:       cfg.Wheel.PulsesPerKcal,
		ThresholdStep:       cfg.Wheel.ThresholdStep,
		Transport:           cfg.Link.Transport,
		LinkTarget:          cfg.LinkTarget(),
		HTTPAddr:            cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	l := &loop{
		state:   logic.NewState(cfg.Params(), 0),
		counter: counter,
		link:    lnk,
		ctrl:    ctrl,
		tracker: tracker,
		log:     logger,
		clock:   millisClock(start, time.Now),
	}
	if cs, ok := lnk.(link.ConnectionStatus); ok {
		l.linkStatus = cs
	}

	if cfg.Redis.Addr != "" {
		m, err := mirror.NewRedisMirror(context.Background(), cfg.Redis.Addr)
		if err != nil {
			logger.Warn("mirror disabled: %v", err)
		} else {
			w := mirror.NewWorker(m, 2*time.Second, logger.Warn)
			defer w.Close()
			l.mirror = w
			logger.Info("mirroring state to redis at %s", cfg.Redis.Addr)
		}
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		logger.Info("http status server listening on %s", cfg.HTTP.Addr)
	}

	logger.Info("started: pulses_per_rev=%v pulses_per_kcal=%v step=%v rpm=%v threshold=%v report=%v",
		cfg.Wheel.PulsesPerRev, cfg.Wheel.PulsesPerKcal, cfg.Wheel.ThresholdStep,
		cfg.Schedule.RPMInterval, cfg.Schedule.ThresholdInterval, cfg.Schedule.ReportInterval)

	rpmTicker := time.NewTicker(cfg.Schedule.RPMInterval)
	defer rpmTicker.Stop()
	thresholdTicker := time.NewTicker(cfg.Schedule.ThresholdInterval)
	defer thresholdTicker.Stop()
	reportTicker := time.NewTicker(cfg.Schedule.ReportInterval)
	defer reportTicker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(l, ticks{
		RPM:       rpmTicker.C,
		Threshold: thresholdTicker.C,
		Report:    reportTicker.C,
	}, sigCh)
}

// openControl returns the serial control channel, or stdin/stdout when no
// port is configured.
func openControl(cfg config.ControlConfig) (control.Channel, error) {
	if cfg.Port == "" {
		return control.FromReader(os.Stdin, os.Stdout, nil), nil
	}
	return control.OpenSerial(cfg.Port, cfg.Baud)
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
