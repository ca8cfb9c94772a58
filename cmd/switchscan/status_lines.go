package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"switchscan/internal/config"
	"switchscan/internal/daemon"
	"switchscan/internal/deps"
	"switchscan/internal/listener"
	"switchscan/internal/liveness"
	"switchscan/internal/messenger"
	"switchscan/internal/preflight"
)

// statusReport is the --json form of `switchscan status`.
type statusReport struct {
	App          *messenger.Status  `json:"app"`
	Running      bool               `json:"running"`
	Listener     processStatus      `json:"listener"`
	Heartbeat    heartbeatStatus    `json:"heartbeat"`
	Dependencies []deps.Status      `json:"dependencies"`
	Preflight    []preflight.Result `json:"preflight"`
}

type processStatus struct {
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Error   string `json:"error,omitempty"`
}

type heartbeatStatus struct {
	Present    bool    `json:"present"`
	AgeSeconds float64 `json:"age_seconds"`
	Fresh      bool    `json:"fresh"`
}

func buildStatusReport(cfg *config.Config, app *messenger.Status, now time.Time) statusReport {
	report := statusReport{App: app, Running: app != nil}
	if cfg == nil {
		return report
	}
	report.Listener = listenerProcess(cfg)
	age, ok := liveness.Age(cfg.Paths.HeartbeatFile, now)
	report.Heartbeat = heartbeatStatus{
		Present:    ok,
		AgeSeconds: age.Seconds(),
		Fresh:      ok && age < staleAfter(cfg),
	}
	report.Dependencies = checkDependencies(cfg)
	report.Preflight = checkPreflight(cfg)
	return report
}

func listenerProcess(cfg *config.Config) processStatus {
	path := cfg.LockPath(listener.Role)
	held, err := daemon.Probe(path)
	if err != nil {
		return processStatus{Error: err.Error()}
	}
	if !held {
		return processStatus{}
	}
	return processStatus{Running: true, PID: daemon.ReadPID(path)}
}

func staleAfter(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Liveness.StaleAfterMs) * time.Millisecond
}

func checkDependencies(cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return deps.CheckBinaries(deps.Requirements(cfg))
}

func checkPreflight(cfg *config.Config) []preflight.Result {
	if cfg == nil {
		return nil
	}
	return preflight.RunAll(cfg)
}

func appStatusLines(st *messenger.Status, now time.Time, colorize bool) []string {
	if st == nil {
		return []string{renderStatusLine("App", statusInfo, "Not running", colorize)}
	}
	lines := make([]string, 0, 8)
	started := "Running"
	if !st.StartedAt.IsZero() {
		started = fmt.Sprintf("Running since %s", humanize.RelTime(st.StartedAt, now, "ago", "from now"))
	}
	if st.Self != "" {
		started += " as " + st.Self
	}
	lines = append(lines, renderStatusLine("App", statusOK, started, colorize))

	connKind := statusOK
	switch {
	case !st.Connected:
		connKind = statusError
	case st.Degraded:
		connKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Connection", connKind, st.Connection, colorize))

	if st.Warm {
		lines = append(lines, renderStatusLine("History", statusOK, "Loaded", colorize))
	} else {
		lines = append(lines, renderStatusLine("History", statusInfo, "Loading", colorize))
	}

	threads := fmt.Sprintf("%d threads", st.Threads)
	threadKind := statusInfo
	if st.Unread > 0 {
		threads += fmt.Sprintf(", %d unread", st.Unread)
		threadKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Threads", threadKind, threads, colorize))

	scanLine := fmt.Sprintf("%s screen, %s mode", st.Screen, st.Mode)
	if st.Composing {
		scanLine += ", composing"
	}
	lines = append(lines, renderStatusLine("Scan", statusInfo, scanLine, colorize))

	if strings.TrimSpace(st.Device) == "" {
		lines = append(lines, renderStatusLine("Switch", statusWarn, "No device (headless or unplugged)", colorize))
	} else {
		lines = append(lines, renderStatusLine("Switch", statusOK, st.Device, colorize))
	}

	speech := fmt.Sprintf("%s spoken, %s superseded", humanize.Comma(int64(st.Speech.Spoken)), humanize.Comma(int64(st.Speech.Superseded)))
	speechKind := statusOK
	if st.Speech.Failures > 0 {
		speech += fmt.Sprintf(", %d failures, %d resets", st.Speech.Failures, st.Speech.Resets)
		speechKind = statusWarn
	}
	lines = append(lines, renderStatusLine("Speech", speechKind, speech, colorize))

	if st.EventsDropped > 0 {
		lines = append(lines, renderStatusLine("Events", statusWarn, fmt.Sprintf("%d dropped", st.EventsDropped), colorize))
	}
	return lines
}

func backgroundLines(cfg *config.Config, now time.Time, colorize bool) []string {
	if cfg == nil {
		return []string{renderStatusLine("Listener", statusInfo, "Unknown", colorize)}
	}
	report := buildStatusReport(cfg, nil, now)
	lines := make([]string, 0, 2)
	switch proc := report.Listener; {
	case proc.Error != "":
		lines = append(lines, renderStatusLine("Listener", statusError, proc.Error, colorize))
	case proc.Running && proc.PID > 0:
		lines = append(lines, renderStatusLine("Listener", statusOK, fmt.Sprintf("Running (pid %d)", proc.PID), colorize))
	case proc.Running:
		lines = append(lines, renderStatusLine("Listener", statusOK, "Running", colorize))
	default:
		lines = append(lines, renderStatusLine("Listener", statusInfo, "Not running", colorize))
	}

	hb := report.Heartbeat
	switch {
	case !hb.Present:
		lines = append(lines, renderStatusLine("Heartbeat", statusInfo, "Absent (listener narrates)", colorize))
	case hb.Fresh:
		age := time.Duration(hb.AgeSeconds * float64(time.Second))
		lines = append(lines, renderStatusLine("Heartbeat", statusOK, fmt.Sprintf("Fresh, written %s", ago(age, now)), colorize))
	default:
		age := time.Duration(hb.AgeSeconds * float64(time.Second))
		lines = append(lines, renderStatusLine("Heartbeat", statusWarn, fmt.Sprintf("Stale, written %s", ago(age, now)), colorize))
	}
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	if len(statuses) == 0 {
		return []string{renderStatusLine("Programs", statusOK, "None required", colorize)}
	}
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			lines = append(lines, renderStatusLine(dep.Name, statusOK, fmt.Sprintf("Ready (command: %s)", dep.Command), colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		} else {
			missing = append(missing, dep.Name)
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func preflightLines(results []preflight.Result, colorize bool) []string {
	if len(results) == 0 {
		return []string{renderStatusLine("Checks", statusInfo, "Unavailable without a config", colorize)}
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		kind := statusOK
		if !r.Passed {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
	}
	return lines
}
