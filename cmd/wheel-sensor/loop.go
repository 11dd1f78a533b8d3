package main

import (
	"os"
	"syscall"
	"time"

	"github.com/sweeney/wheel-sensor/internal/control"
	"github.com/sweeney/wheel-sensor/internal/link"
	"github.com/sweeney/wheel-sensor/internal/logic"
	"github.com/sweeney/wheel-sensor/internal/message"
	"github.com/sweeney/wheel-sensor/internal/mirror"
	"github.com/sweeney/wheel-sensor/internal/pulse"
	"github.com/sweeney/wheel-sensor/internal/status"
)

// mirrorSink receives readings and actuation events off the loop.
// Implemented by *mirror.Worker.
type mirrorSink interface {
	Publish(r status.Reading)
	RecordActuation(a logic.Actuation, source string)
}

// loop owns all derived state. Only the runLoop goroutine touches it; the
// pulse counter is the one structure shared with the edge handler.
type loop struct {
	state      *logic.State
	counter    *pulse.Counter
	link       link.Link
	linkStatus link.ConnectionStatus // optional
	ctrl       control.Channel       // optional
	mirror     mirrorSink            // optional
	tracker    *status.Tracker       // optional
	log        *LeveledLogger
	clock      func() uint32

	counts  status.Counts
	lastAvg float32
	kcal    float32
}

type ticks struct {
	RPM       <-chan time.Time
	Threshold <-chan time.Time
	Report    <-chan time.Time
}

// millisClock returns a wrapping millisecond clock measured from start.
func millisClock(start time.Time, now func() time.Time) func() uint32 {
	return func() uint32 {
		return uint32(now().Sub(start).Milliseconds())
	}
}

func (l *loop) send(frame []byte) bool {
	l.log.DebugFrame(frame)
	if err := l.link.Send(frame); err != nil {
		l.counts.SendFailures++
		l.log.Warn("link send error: %v", err)
		return false
	}
	return true
}

func (l *loop) onRPMTick() {
	avg, ok := l.state.StepRPM(l.clock(), l.counter.TakeInterval)
	if !ok {
		return
	}
	l.lastAvg = avg
	l.send(message.EncodeRPMReport(avg))
}

func (l *loop) onThresholdTick() {
	kcal, a, fired := l.state.StepThreshold(l.counter.Lifetime())
	l.kcal = kcal
	if !fired {
		return
	}
	l.log.Info("threshold: %.2f kcal reached, opening box %d", kcal, a.Index)
	l.counts.Actuations++
	l.send(message.EncodeActuationCommand(byte(a.Index), a.State))
	if l.mirror != nil {
		l.mirror.RecordActuation(a, mirror.SourceThreshold)
	}
}

func (l *loop) onLine(line string) {
	cmd, ok := message.DecodeOverrideCommand(line)
	if !ok {
		l.log.Debug("control: ignoring %q", line)
		return
	}
	if cmd.Open() {
		l.log.Info("override: open box %d", cmd.Target)
	} else {
		l.log.Info("override: close box %d (state %d)", cmd.Target, cmd.State)
	}
	l.counts.Overrides++
	l.send(message.EncodeActuationCommand(cmd.Target, cmd.State))
	if l.mirror != nil {
		l.mirror.RecordActuation(logic.Actuation{Index: uint32(cmd.Target), State: cmd.State}, mirror.SourceOverride)
	}
}

func (l *loop) reading() status.Reading {
	c := l.counter.Snapshot()
	l.log.Debug("report: interval=%d lifetime=%d", c.Interval, c.Lifetime)
	return status.Reading{
		RPM:            l.state.LastRPM(),
		AvgRPM:         l.lastAvg,
		Pulses:         c.Lifetime,
		Kcal:           l.kcal,
		OpenedBoxes:    l.state.Trigger.Opened(),
		NextTargetKcal: l.state.Trigger.NextTarget(),
	}
}

func (l *loop) onReport() {
	r := l.reading()
	l.counts.Reports++

	if l.ctrl != nil {
		err := control.WriteStatus(l.ctrl, control.Status{RPM: r.AvgRPM, Pulses: r.Pulses, Kcal: r.Kcal})
		if err != nil {
			l.log.Warn("control: write status: %v", err)
		}
	}
	if l.tracker != nil {
		l.tracker.Update(r, l.counts)
		if l.linkStatus != nil {
			l.tracker.SetLinkConnected(l.linkStatus.IsConnected())
		}
	}
	if l.mirror != nil {
		l.mirror.Publish(r)
	}
}

func runLoop(l *loop, t ticks, sig <-chan os.Signal) error {
	var lines <-chan string
	if l.ctrl != nil {
		lines = l.ctrl.Lines()
	}

	for {
		select {
		case s := <-sig:
			name := "UNKNOWN"
			if s == syscall.SIGINT {
				name = "SIGINT"
			} else if s == syscall.SIGTERM {
				name = "SIGTERM"
			}
			l.log.Info("received %s, shutting down (pulses=%d kcal=%.2f opened=%d)",
				name, l.counter.Lifetime(), l.kcal, l.state.Trigger.Opened())
			return nil

		case <-t.RPM:
			l.onRPMTick()

		case <-t.Threshold:
			l.onThresholdTick()

		case <-t.Report:
			l.onReport()

		case line, ok := <-lines:
			if !ok {
				l.log.Info("control: channel closed")
				lines = nil
				continue
			}
			l.onLine(line)
		}
	}
}
