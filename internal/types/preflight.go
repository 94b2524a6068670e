package types

import "strings"

// Verdict is the result of a single preflight check or of the whole set.
type Verdict int

const (
	VerdictOff Verdict = iota
	VerdictFail
	VerdictWait
	VerdictPass
)

func (v Verdict) String() string {
	switch v {
	case VerdictOff:
		return "off"
	case VerdictFail:
		return "fail"
	case VerdictWait:
		return "wait"
	case VerdictPass:
		return "pass"
	default:
		return "unknown"
	}
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	*v = ParseVerdict(string(text))
	return nil
}

// ParseVerdict accepts the names produced by String. Unknown values map to Off.
func ParseVerdict(s string) Verdict {
	switch s {
	case "fail":
		return VerdictFail
	case "wait":
		return VerdictWait
	case "pass":
		return VerdictPass
	default:
		return VerdictOff
	}
}

// PreflightCheck identifies one category of the preflight check engine.
type PreflightCheck int

const (
	CheckBattery PreflightCheck = iota
	CheckSensors
	CheckKalmanFilter
	CheckPositioning
	CheckHome
	CheckTrajectoryAndLights

	NumPreflightChecks = int(CheckTrajectoryAndLights) + 1
)

var checkNames = [NumPreflightChecks]string{
	"battery",
	"sensors",
	"kalman-filter",
	"positioning",
	"home",
	"trajectory-and-lights",
}

func (c PreflightCheck) String() string {
	if c < 0 || int(c) >= NumPreflightChecks {
		return "unknown"
	}
	return checkNames[c]
}

// PreflightStatus holds one verdict per check category, indexed by PreflightCheck.
type PreflightStatus [NumPreflightChecks]Verdict

// Get returns the verdict of a single check; out of range checks are Off.
func (p PreflightStatus) Get(c PreflightCheck) Verdict {
	if c < 0 || int(c) >= NumPreflightChecks {
		return VerdictOff
	}
	return p[c]
}

// Summary combines all enabled checks. With no enabled check the result is
// Off; otherwise Fail beats Wait and Wait beats Pass.
func (p PreflightStatus) Summary() Verdict {
	summary := VerdictOff
	for _, v := range p {
		switch v {
		case VerdictFail:
			return VerdictFail
		case VerdictWait:
			summary = VerdictWait
		case VerdictPass:
			if summary == VerdictOff {
				summary = VerdictPass
			}
		}
	}
	return summary
}

// ParsePreflightStatus parses a comma separated list of verdicts in check
// order, e.g. "pass,pass,wait,off,pass,fail". Missing entries are Off.
func ParsePreflightStatus(s string) PreflightStatus {
	var status PreflightStatus
	if s == "" {
		return status
	}
	for i, field := range strings.Split(s, ",") {
		if i >= NumPreflightChecks {
			break
		}
		status[i] = ParseVerdict(strings.TrimSpace(field))
	}
	return status
}
