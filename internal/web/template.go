package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/wheel-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"f2": func(v float32) string {
		return fmt.Sprintf("%.2f", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Wheel Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.big { font-size: 2em; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Wheel Sensor</h1>

<p class="big" id="kcal">{{f2 .Reading.Kcal}} kCal</p>

<h2>Wheel</h2>
<table>
<tr><th>RPM (smoothed)</th><td id="avg-rpm">{{f2 .Reading.AvgRPM}}</td></tr>
<tr><th>RPM (last)</th><td>{{f2 .Reading.RPM}}</td></tr>
<tr><th>Pulses</th><td>{{.Reading.Pulses}}</td></tr>
<tr><th>Boxes opened</th><td id="opened">{{.Reading.OpenedBoxes}}</td></tr>
<tr><th>Next box at</th><td>{{f2 .Reading.NextTargetKcal}} kCal</td></tr>
</table>

<h2>Link</h2>
<table>
<tr><th>Status</th><td class="{{if .LinkConnected}}connected{{else}}disconnected{{end}}">{{if .LinkConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Transport</th><td>{{.Config.Transport}} ({{.Config.LinkTarget}})</td></tr>
<tr><th>RPM reports</th><td>{{.Counts.Reports}}</td></tr>
<tr><th>Actuations</th><td>{{.Counts.Actuations}}</td></tr>
<tr><th>Overrides</th><td>{{.Counts.Overrides}}</td></tr>
<tr><th>Send failures</th><td>{{.Counts.SendFailures}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>RPM interval</th><td>{{.Config.RPMIntervalMs}}ms</td></tr>
<tr><th>Threshold interval</th><td>{{.Config.ThresholdIntervalMs}}ms</td></tr>
<tr><th>Threshold step</th><td>{{f2 .Config.ThresholdStep}} kCal</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
