package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"switchscan/internal/config"
)

// Requirement defines an external program switchscan relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the programs the configuration asks for.
func Requirements(cfg *config.Config) []Requirement {
	var reqs []Requirement
	if engine := strings.TrimSpace(cfg.Speech.Engine); engine != "" && engine != "none" {
		reqs = append(reqs, Requirement{
			Name:        "Speech engine",
			Command:     engine,
			Description: "Narrates focus changes and incoming messages",
		})
	}
	if fields := strings.Fields(cfg.Input.Composer); len(fields) > 0 {
		reqs = append(reqs, Requirement{
			Name:        "Composer",
			Command:     fields[0],
			Description: "Collects text for Send Message and Reply",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, st := range statuses {
		if !st.Available && !st.Optional {
			out = append(out, st)
		}
	}
	return out
}
