package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/wheel-sensor/internal/config"
	"github.com/sweeney/wheel-sensor/internal/control"
	"github.com/sweeney/wheel-sensor/internal/link"
	"github.com/sweeney/wheel-sensor/internal/logic"
	"github.com/sweeney/wheel-sensor/internal/message"
	"github.com/sweeney/wheel-sensor/internal/mirror"
	"github.com/sweeney/wheel-sensor/internal/pulse"
	"github.com/sweeney/wheel-sensor/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := config.Default()
	applyOverrides(cfg, "", "")
	if cfg.HTTP.Addr != config.Default().HTTP.Addr {
		t.Errorf("empty override changed http addr to %q", cfg.HTTP.Addr)
	}

	applyOverrides(cfg, ":9090", link.TransportCAN)
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("http addr: got %q, want :9090", cfg.HTTP.Addr)
	}
	if cfg.Link.Transport != link.TransportCAN {
		t.Errorf("transport: got %q, want can", cfg.Link.Transport)
	}

	applyOverrides(cfg, "off", "")
	if cfg.HTTP.Addr != "" {
		t.Errorf("off should disable http, got %q", cfg.HTTP.Addr)
	}
}

func TestExitDelay(t *testing.T) {
	bringUp := linkBringUpError(errors.New("mqtt: connection timeout"))
	tests := []struct {
		name  string
		err   error
		delay time.Duration
		want  time.Duration
	}{
		{"link bring-up waits", bringUp, 5 * time.Second, 5 * time.Second},
		{"wrapped bring-up waits", fmt.Errorf("run: %w", bringUp), time.Second, time.Second},
		{"zero delay never waits", bringUp, 0, 0},
		{"gpio failure exits at once", errors.New("init gpio: no such chip"), 5 * time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitDelay(tt.err, tt.delay); got != tt.want {
				t.Errorf("exitDelay: got %v, want %v", got, tt.want)
			}
		})
	}

	if !strings.Contains(bringUp.Error(), "connection timeout") {
		t.Errorf("cause lost from error: %q", bringUp)
	}
}

func TestMillisClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	clock := millisClock(start, func() time.Time { return now })

	if got := clock(); got != 0 {
		t.Errorf("at start: got %d, want 0", got)
	}
	now = start.Add(1500 * time.Millisecond)
	if got := clock(); got != 1500 {
		t.Errorf("after 1.5s: got %d, want 1500", got)
	}
	// 2^32 ms later the clock wraps back to zero.
	now = start.Add((1<<32 + 20) * time.Millisecond)
	if got := clock(); got != 20 {
		t.Errorf("after wrap: got %d, want 20", got)
	}
}

func TestLeveledLoggerFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLeveledLogger(log.New(&buf, "", 0), LogLevelWarn)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	got := buf.String()
	if strings.Contains(got, "[DEBUG]") || strings.Contains(got, "[INFO]") {
		t.Errorf("below-level messages logged: %q", got)
	}
	if !strings.Contains(got, "[WARN] w") || !strings.Contains(got, "[ERROR] e") {
		t.Errorf("missing messages: %q", got)
	}

	l.DebugFrame([]byte{'C', 1, 0})
	if strings.Contains(buf.String(), "link tx") {
		t.Errorf("frame logged below debug: %q", buf.String())
	}

	buf.Reset()
	l = NewLeveledLogger(log.New(&buf, "", 0), LogLevelDebug)
	l.DebugFrame([]byte{'C', 1, 0})
	if got := buf.String(); !strings.Contains(got, "43 01 00") || !strings.Contains(got, "target=1 open") {
		t.Errorf("frame not decoded: %q", got)
	}

	buf.Reset()
	l.DebugFrame([]byte{'Z'})
	if got := buf.String(); !strings.Contains(got, "unknown tag") {
		t.Errorf("undecodable frame: %q", got)
	}
}

// --- loop tests ---

// seqClock returns successive values from ms, repeating the last one.
// Only called from the loop goroutine.
func seqClock(ms ...uint32) func() uint32 {
	i := 0
	return func() uint32 {
		v := ms[i]
		if i < len(ms)-1 {
			i++
		}
		return v
	}
}

type recordedActuation struct {
	a      logic.Actuation
	source string
}

// recordingSink captures mirror traffic synchronously.
type recordingSink struct {
	readings   []status.Reading
	actuations []recordedActuation
}

func (s *recordingSink) Publish(r status.Reading) {
	s.readings = append(s.readings, r)
}

func (s *recordingSink) RecordActuation(a logic.Actuation, source string) {
	s.actuations = append(s.actuations, recordedActuation{a, source})
}

type harness struct {
	loop    *loop
	counter *pulse.Counter
	link    *link.FakeLink
	ctrl    *control.FakeChannel
	sink    *recordingSink
	tracker *status.Tracker
}

// newHarness builds a loop with one pulse per rev, one pulse per kcal and a
// 5 kcal step.
func newHarness(clock func() uint32) *harness {
	h := &harness{
		counter: &pulse.Counter{},
		link:    link.NewFakeLink(),
		ctrl:    control.NewFakeChannel(),
		sink:    &recordingSink{},
		tracker: status.NewTracker(time.Now(), status.Config{}),
	}
	h.loop = &loop{
		state:      logic.NewState(logic.Params{PulsesPerRev: 1, PulsesPerKcal: 1, ThresholdStep: 5, WindowSize: 10}, 0),
		counter:    h.counter,
		link:       h.link,
		linkStatus: h.link,
		ctrl:       h.ctrl,
		mirror:     h.sink,
		tracker:    h.tracker,
		log:        NewLeveledLogger(log.New(io.Discard, "", 0), LogLevelDebug),
		clock:      clock,
	}
	return h
}

func (h *harness) edges(n int) {
	for i := 0; i < n; i++ {
		h.counter.OnEdge()
	}
}

func decodeRPM(t *testing.T, frame []byte) float32 {
	t.Helper()
	m, err := message.Decode(frame)
	if err != nil {
		t.Fatalf("decode %v: %v", frame, err)
	}
	if m.Tag != message.TagRPM {
		t.Fatalf("expected RPM frame, got %v", m)
	}
	return m.RPM
}

func near(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 0.01
}

func TestOnRPMTickSendsAverage(t *testing.T) {
	h := newHarness(seqClock(100))
	h.edges(10)

	h.loop.onRPMTick()

	frames := h.link.Sent()
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
	if got := decodeRPM(t, frames[0]); !near(got, 6000) {
		t.Errorf("rpm: got %v, want 6000", got)
	}
	if got := h.counter.Snapshot().Interval; got != 0 {
		t.Errorf("interval not cleared: %d", got)
	}
}

func TestOnRPMTickZeroElapsedSkips(t *testing.T) {
	h := newHarness(seqClock(0))
	h.edges(3)

	h.loop.onRPMTick()

	if n := len(h.link.Sent()); n != 0 {
		t.Errorf("expected no frames, got %d", n)
	}
	if got := h.counter.Snapshot().Interval; got != 3 {
		t.Errorf("pulses should roll into next interval, got %d", got)
	}
}

func TestOnThresholdTickOnePerTick(t *testing.T) {
	h := newHarness(seqClock(100))
	h.edges(12) // 12 kcal: thresholds at 5 and 10

	h.loop.onThresholdTick()
	h.loop.onThresholdTick()
	h.loop.onThresholdTick()

	frames := h.link.Sent()
	want := [][]byte{
		message.EncodeActuationCommand(1, message.StateOpen),
		message.EncodeActuationCommand(2, message.StateOpen),
	}
	if len(frames) != len(want) {
		t.Fatalf("expected %d frames, got %d: %v", len(want), len(frames), frames)
	}
	for i := range want {
		if !bytes.Equal(frames[i], want[i]) {
			t.Errorf("frame %d: got %v, want %v", i, frames[i], want[i])
		}
	}
	if len(h.sink.actuations) != 2 || h.sink.actuations[1].source != mirror.SourceThreshold {
		t.Errorf("mirror actuations: %+v", h.sink.actuations)
	}
	if h.loop.counts.Actuations != 2 {
		t.Errorf("actuation count: got %d, want 2", h.loop.counts.Actuations)
	}
}

func TestOnLineOverride(t *testing.T) {
	h := newHarness(seqClock(100))

	h.loop.onLine("7,1")
	h.loop.onLine("garbage")
	h.loop.onLine("1,2,3")

	frames := h.link.Sent()
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d: %v", len(frames), frames)
	}
	if !bytes.Equal(frames[0], []byte{'C', 7, 1}) {
		t.Errorf("frame: got %v", frames[0])
	}
	if h.loop.counts.Overrides != 1 {
		t.Errorf("overrides: got %d, want 1", h.loop.counts.Overrides)
	}
	if len(h.sink.actuations) != 1 || h.sink.actuations[0].source != mirror.SourceOverride {
		t.Errorf("mirror actuations: %+v", h.sink.actuations)
	}
}

func TestSendFailureCountedNotRetried(t *testing.T) {
	h := newHarness(seqClock(100))
	h.link.SendError = errors.New("radio down")
	h.edges(10)

	h.loop.onRPMTick()
	h.loop.onReport()

	if h.link.Attempts != 1 {
		t.Errorf("attempts: got %d, want 1", h.link.Attempts)
	}
	if got := h.tracker.Snapshot().Counts.SendFailures; got != 1 {
		t.Errorf("send failures: got %d, want 1", got)
	}
}

func TestOnReportWritesStatus(t *testing.T) {
	h := newHarness(seqClock(100))
	h.edges(10)
	h.loop.onRPMTick()
	h.loop.onThresholdTick()
	h.link.Connected = false

	h.loop.onReport()

	want := "RPM: 6000.00\nPULSE: 10\nkCal: 10.00\n"
	if got := h.ctrl.Output(); got != want {
		t.Errorf("status output: got %q, want %q", got, want)
	}

	snap := h.tracker.Snapshot()
	if snap.Reading.Pulses != 10 || snap.Reading.OpenedBoxes != 1 || snap.Reading.NextTargetKcal != 10 {
		t.Errorf("tracker reading: %+v", snap.Reading)
	}
	if snap.LinkConnected {
		t.Error("tracker should report link disconnected")
	}
	if len(h.sink.readings) != 1 {
		t.Errorf("mirror readings: got %d, want 1", len(h.sink.readings))
	}
}

// runHarness starts runLoop and returns its tick channels and a stop
// function that delivers sig and returns the loop's result. Channels are
// unbuffered, so each send completes only after the previous handler ran.
func runHarness(h *harness) (rpm, threshold, report chan time.Time, stop func(os.Signal) error) {
	rpm = make(chan time.Time)
	threshold = make(chan time.Time)
	report = make(chan time.Time)
	sig := make(chan os.Signal)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(h.loop, ticks{RPM: rpm, Threshold: threshold, Report: report}, sig)
	}()

	stop = func(s os.Signal) error {
		sig <- s
		return <-errCh
	}
	return rpm, threshold, report, stop
}

func TestRunLoopFullCycle(t *testing.T) {
	h := newHarness(seqClock(100, 200))
	h.edges(10)

	rpm, threshold, report, stop := runHarness(h)

	rpm <- time.Time{}
	threshold <- time.Time{}
	threshold <- time.Time{}
	threshold <- time.Time{}
	h.ctrl.Send("7,1")
	h.ctrl.Send("not a command")
	report <- time.Time{}

	if err := stop(syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}

	frames := h.link.Sent()
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d: %v", len(frames), frames)
	}
	if got := decodeRPM(t, frames[0]); !near(got, 6000) {
		t.Errorf("rpm: got %v, want 6000", got)
	}
	for i, want := range [][]byte{{'C', 1, 0}, {'C', 2, 0}, {'C', 7, 1}} {
		if !bytes.Equal(frames[i+1], want) {
			t.Errorf("frame %d: got %v, want %v", i+1, frames[i+1], want)
		}
	}

	c := h.tracker.Snapshot().Counts
	want := status.Counts{Reports: 1, Actuations: 2, Overrides: 1}
	if c != want {
		t.Errorf("counts: got %+v, want %+v", c, want)
	}
	if !strings.HasPrefix(h.ctrl.Output(), "RPM: 6000.00\n") {
		t.Errorf("status output: %q", h.ctrl.Output())
	}
}

func TestRunLoopSurvivesClosedControl(t *testing.T) {
	h := newHarness(seqClock(100))
	h.edges(10)

	rpm, _, report, stop := runHarness(h)

	h.ctrl.End()
	rpm <- time.Time{}
	report <- time.Time{}

	if err := stop(syscall.SIGINT); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
	if n := len(h.link.Sent()); n != 1 {
		t.Errorf("expected loop to keep running after control EOF, got %d frames", n)
	}
	if got := h.tracker.Snapshot().Counts.Reports; got != 1 {
		t.Errorf("reports: got %d, want 1", got)
	}
}

func TestRunLoopWithoutControl(t *testing.T) {
	h := newHarness(seqClock(100))
	h.loop.ctrl = nil

	_, _, report, stop := runHarness(h)
	report <- time.Time{}

	if err := stop(syscall.SIGTERM); err != nil {
		t.Fatalf("runLoop returned error: %v", err)
	}
}
