package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dc01-interlock/internal/logic"
	"github.com/sweeney/dc01-interlock/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatUptime,
	"modeClass": func(m logic.Mode) string {
		switch m {
		case logic.ModeNormalOp:
			return "ok"
		case logic.ModeFailure:
			return "bad"
		}
		return "warn"
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>DC-01</title>
<style>
body { font: 14px/1.4 ui-monospace, monospace; max-width: 640px; margin: 1.5em auto; padding: 0 1em; background: #fafafa; }
h1 { font-size: 1.3em; border-bottom: 2px solid #333; }
h2 { font-size: 1.05em; margin-top: 1.4em; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 3px 6px; border-bottom: 1px solid #e2e2e2; }
th { width: 45%; font-weight: normal; color: #555; }
.ok { color: #1a7f37; font-weight: bold; }
.warn { color: #b35900; font-weight: bold; }
.bad { color: #c62828; font-weight: bold; }
.off { color: #999; }
</style>
</head>
<body>
<h1>DC-01 Interlock</h1>

<h2>Device</h2>
<table>
<tr><th>Mode</th><td id="mode" class="{{modeClass .Device.Mode}}">{{.Device.Mode}}</td></tr>
<tr><th>Output</th><td id="output" class="{{if .Device.Connected}}ok{{else}}off{{end}}">{{if .Device.Connected}}CONNECTED{{else}}DISCONNECTED{{end}}</td></tr>
<tr><th>Relays</th><td>{{if .Device.Relay1}}closed{{else}}open{{end}} / {{if .Device.Relay2}}closed{{else}}open{{end}}</td></tr>
<tr><th>DCC side 1</th><td>{{yesno .Device.Side1}}</td></tr>
<tr><th>DCC side 2</th><td>{{yesno .Device.Side2}}</td></tr>
<tr><th>Failure</th><td class="{{if .Device.Failure}}bad{{end}}">{{.Device.Failure}}</td></tr>
<tr><th>Buttons held</th><td>{{if .Device.GoHeld}}GO {{end}}{{if .Device.StopHeld}}STOP {{end}}{{if .Device.OverrideHeld}}OVERRIDE{{end}}</td></tr>
</table>

<h2>Relay self-test</h2>
<table>
<tr><th>State</th><td id="selftest">{{.SelfTest.State}}</td></tr>
<tr><th>Step</th><td>{{.SelfTest.Step}}</td></tr>
<tr><th>Error</th><td>{{.SelfTest.Error}}</td></tr>
<tr><th>Pending</th><td>{{yesno .Device.SelfTestPending}}</td></tr>
<tr><th>Since last test</th><td>{{.Device.CooldownMs}}ms (max {{.Config.NoTestMaxMs}}ms)</td></tr>
</table>

<h2>Host</h2>
<table>
<tr><th>Alive</th><td class="{{if .Device.HostAlive}}ok{{else}}bad{{end}}">{{yesno .Device.HostAlive}}</td></tr>
<tr><th>Silent for</th><td>{{.Device.HostCounterMs}}ms (timeout {{.Config.HostTimeoutMs}}ms)</td></tr>
<tr><th>Listening</th><td>{{yesno .Host.Ready}}</td></tr>
<tr><th>Frames in / out</th><td>{{.Host.FramesIn}} / {{.Host.FramesOut}}</td></tr>
<tr><th>Port</th><td>{{.Config.SerialPort}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}ok{{else}}bad{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Mode changes</th><td>{{.Device.Counts.ModeChanges}}</td></tr>
<tr><th>Connects</th><td>{{.Device.Counts.Connects}}</td></tr>
<tr><th>Disconnects</th><td>{{.Device.Counts.Disconnects}}</td></tr>
<tr><th>Self-tests passed</th><td>{{.Device.Counts.SelfTestsPassed}}</td></tr>
<tr><th>Self-tests failed</th><td>{{.Device.Counts.SelfTestsFailed}}</td></tr>
<tr><th>Self-tests interrupted</th><td>{{.Device.Counts.SelfTestsInterrupted}}</td></tr>
<tr><th>Host warnings</th><td>{{.Device.Counts.HostWarnings}}</td></tr>
<tr><th>Host timeouts</th><td>{{.Device.Counts.HostTimeouts}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Watchdog</th><td>{{if .Config.Watchdog}}{{.Config.Watchdog}}{{else}}disabled{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

// formatUptime renders d as "3d 04:05:06", or "04:05:06" under a day.
func formatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	days := secs / 86400
	secs %= 86400
	clock := fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	if days > 0 {
		return fmt.Sprintf("%dd %s", days, clock)
	}
	return clock
}

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
