package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	RPM            float32      `json:"rpm"`
	AvgRPM         float32      `json:"avg_rpm"`
	Pulses         uint32       `json:"pulses"`
	Kcal           float32      `json:"kcal"`
	OpenedBoxes    uint32       `json:"opened_boxes"`
	NextTargetKcal float32      `json:"next_target_kcal"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	Link           LinkStatus   `json:"link"`
	Counts         CountsJSON   `json:"counts"`
	Network        *NetworkJSON `json:"network,omitempty"`
	Config         ConfigJSON   `json:"config"`
}

// LinkStatus reports broadcast link state.
type LinkStatus struct {
	Connected bool   `json:"connected"`
	Transport string `json:"transport"`
	Target    string `json:"target"`
}

// CountsJSON is the JSON representation of link counters.
type CountsJSON struct {
	Reports      int `json:"reports"`
	Actuations   int `json:"actuations"`
	Overrides    int `json:"overrides"`
	SendFailures int `json:"send_failures"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	RPMIntervalMs       int64   `json:"rpm_interval_ms"`
	ThresholdIntervalMs int64   `json:"threshold_interval_ms"`
	ReportIntervalMs    int64   `json:"report_interval_ms"`
	PulsesPerRev        float32 `json:"pulses_per_rev"`
	PulsesPerKcal       float32 `json:"pulses_per_kcal"`
	ThresholdStep       float32 `json:"threshold_step"`
	HTTPAddr            string  `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	r := snap.Reading
	inner := StatusInner{
		RPM:            r.RPM,
		AvgRPM:         r.AvgRPM,
		Pulses:         r.Pulses,
		Kcal:           r.Kcal,
		OpenedBoxes:    r.OpenedBoxes,
		NextTargetKcal: r.NextTargetKcal,
		UptimeSeconds:  int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:      snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:      snap.Now.UTC().Format(time.RFC3339),
		Link: LinkStatus{
			Connected: snap.LinkConnected,
			Transport: snap.Config.Transport,
			Target:    snap.Config.LinkTarget,
		},
		Counts: CountsJSON{
			Reports:      snap.Counts.Reports,
			Actuations:   snap.Counts.Actuations,
			Overrides:    snap.Counts.Overrides,
			SendFailures: snap.Counts.SendFailures,
		},
		Config: ConfigJSON{
			RPMIntervalMs:       snap.Config.RPMIntervalMs,
			ThresholdIntervalMs: snap.Config.ThresholdIntervalMs,
			ReportIntervalMs:    snap.Config.ReportIntervalMs,
			PulsesPerRev:        snap.Config.PulsesPerRev,
			PulsesPerKcal:       snap.Config.PulsesPerKcal,
			ThresholdStep:       snap.Config.ThresholdStep,
			HTTPAddr:            snap.Config.HTTPAddr,
		},
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
