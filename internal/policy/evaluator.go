// Package policy decides what happens to a message once validation has
// classified it. In enforce mode threats are rejected; in monitor mode
// they pass through but are still recorded, which lets operators trial
// rule changes against live traffic before turning rejection on.
package policy

import "fmt"

// Mode selects how threat findings are acted on.
type Mode string

const (
	ModeEnforce Mode = "enforce"
	ModeMonitor Mode = "monitor"
)

// ParseMode validates a mode string from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeEnforce, ModeMonitor:
		return Mode(s), nil
	case "":
		return ModeEnforce, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want enforce or monitor)", s)
	}
}

// Action is the decision for a single message.
type Action string

const (
	ActionAllow       Action = "allow"
	ActionReject      Action = "reject"
	ActionAllowLogged Action = "allow_logged"
)

// DecideAction maps a threat verdict to an action under the given
// mode. Clean messages are always allowed.
func DecideAction(mode Mode, matched bool) Action {
	if !matched {
		return ActionAllow
	}

	switch mode {
	case ModeMonitor:
		return ActionAllowLogged
	default:
		return ActionReject
	}
}
