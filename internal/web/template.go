package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/fish-feeder/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": formatUptime,
	"stamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
	"modeOrIdle": func(s string) string {
		if s == "" {
			return "IDLE"
		}
		return s
	},
}).Parse(indexHTML))

// formatUptime renders d as "1d 2h 3m 4s", omitting leading zero units.
func formatUptime(d time.Duration) string {
	secs := int64(d / time.Second)
	units := []struct {
		size int64
		tag  string
	}{{86400, "d"}, {3600, "h"}, {60, "m"}}
	out := ""
	for _, u := range units {
		if n := secs / u.size; n > 0 || out != "" {
			out += fmt.Sprintf("%d%s ", n, u.tag)
		}
		secs %= u.size
	}
	return fmt.Sprintf("%s%ds", out, secs)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Fish Feeder</title>
<style>
body { font: 14px/1.4 monospace; max-width: 640px; margin: 1.5em auto; padding: 0 1em; color: #222; }
h1 { font-size: 1.5em; margin-bottom: 0.2em; }
h2 { font-size: 1.1em; margin: 1.2em 0 0.3em; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 3px 6px; border-bottom: 1px solid #e4e4e4; }
th { width: 35%; font-weight: normal; color: #555; }
.idle { color: #888; }
.seeking { color: #1a7f37; font-weight: bold; }
.calibrating { color: #b35900; font-weight: bold; }
.connected { color: #1a7f37; }
.disconnected { color: #c62828; }
.live-dot { display: inline-block; width: 9px; height: 9px; border-radius: 50%; margin-left: 8px; }
.live-dot.ok { background: #1a7f37; }
.live-dot.err { background: #c62828; }
.live-dot.pending { background: #b35900; }
</style>
</head>
<body>
<h1>Fish Feeder<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Actuator</h2>
<table>
<tr><th>Mode</th><td id="mode" class="{{if eq (modeOrIdle (printf "%s" .Actuator.Mode)) "SEEKING"}}seeking{{else if eq (modeOrIdle (printf "%s" .Actuator.Mode)) "CALIBRATING"}}calibrating{{else}}idle{{end}}">{{modeOrIdle (printf "%s" .Actuator.Mode)}}</td></tr>
<tr><th>Position</th><td id="position">{{.Actuator.Position}}</td></tr>
<tr><th>Target</th><td id="target">{{.Actuator.Target}}</td></tr>
<tr><th>Buckets</th><td id="buckets">{{.Actuator.Buckets}} / {{.Config.Buckets}}</td></tr>
<tr><th>Calibrated</th><td>{{if .Actuator.HasCalibrated}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Schedule</h2>
<table>
<tr><th>Feeding time</th><td>{{.Schedule.FeedingTime}} {{.Config.Timezone}}</td></tr>
<tr><th>Last feed</th><td id="last-feed">{{stamp .Schedule.LastFeed}}</td></tr>
<tr><th>Clock sync</th><td>{{if .Schedule.ResyncOK}}ok{{else}}failing{{end}} ({{.Config.NTPServer}})</td></tr>
<tr><th>Tone</th><td id="tone">{{if .Tone.Playing}}{{.Tone.Pattern}} {{.Tone.Frequency}}Hz{{else}}silent{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Queued</th><td id="mqtt-buffered">{{.MQTTBuffered}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Feeds</th><td id="feeds">{{.Counts.Feeds}}</td></tr>
<tr><th>Extends</th><td id="extends">{{.Counts.Extends}}</td></tr>
<tr><th>Ejects</th><td id="ejects">{{.Counts.Ejects}}</td></tr>
<tr><th>Calibrations</th><td id="calibrations">{{.Counts.Calibrations}}</td></tr>
<tr><th>Resync failures</th><td id="resync-failures">{{.Counts.ResyncFails}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{stamp .StartTime}}</td></tr>
<tr><th>Step period</th><td>{{.Config.StepPeriodMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Manual extend</th><td>{{if .Config.ManualExtend}}on{{else}}off{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var modeEl = document.getElementById("mode");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function set(id, v) {
    document.getElementById(id).textContent = v;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        modeEl.textContent = s.actuator.mode;
        modeEl.className = s.actuator.mode.toLowerCase();
        set("position", s.actuator.position);
        set("target", s.actuator.target);
        set("buckets", s.actuator.buckets + " / " + s.config.buckets);
        set("last-feed", s.schedule.last_feed || "never");
        set("tone", s.tone.playing ? s.tone.pattern + " " + s.tone.frequency_hz + "Hz" : "silent");
        set("feeds", s.event_counts.feeds);
        set("extends", s.event_counts.extends);
        set("ejects", s.event_counts.ejects);
        set("calibrations", s.event_counts.calibrations);
        set("resync-failures", s.event_counts.resync_failures);
        set("mqtt-buffered", s.mqtt.buffered);
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
