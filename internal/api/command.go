package api

import (
	"errors"
	"fmt"

	"trip-playback/internal/sim"
)

var errBadRequest = errors.New("bad request")

// actions lists every command apply understands. Anything else is counted
// under a single "unknown" label.
var actions = map[string]bool{
	"start": true, "reset": true, "speed": true, "select": true, "close": true, "dismiss": true,
	"drawer": true, "account": true, "account_entry": true, "search": true,
}

func actionLabel(action string) string {
	if actions[action] {
		return action
	}
	return "unknown"
}

// Command is one panel or header action. HTTP handlers build it from the
// route and body, websocket clients send it as JSON.
type Command struct {
	Action string   `json:"action"`
	Speed  *float64 `json:"speed,omitempty"`
	Stop   string   `json:"stop,omitempty"`
	Open   *bool    `json:"open,omitempty"`
	Entry  string   `json:"entry,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// apply runs cmd against the session. The result is the value the action
// produced, if any.
func (s *Server) apply(sess *sim.Session, cmd Command) (any, error) {
	if s.metrics != nil {
		s.metrics.Commands.WithLabelValues(actionLabel(cmd.Action)).Inc()
	}
	p := sess.Panel
	switch cmd.Action {
	case "start":
		return nil, p.Start()
	case "reset":
		p.Reset()
		return nil, nil
	case "speed":
		if cmd.Speed == nil {
			return nil, fmt.Errorf("%w: speed is required", errBadRequest)
		}
		v, err := p.SetSpeed(*cmd.Speed)
		if err != nil {
			return nil, err
		}
		return map[string]float64{"speed": v}, nil
	case "select":
		return p.SelectStop(cmd.Stop)
	case "close":
		p.CloseStop()
		return nil, nil
	case "dismiss":
		p.DismissNotice()
		return nil, nil
	case "drawer":
		if cmd.Open == nil {
			return nil, fmt.Errorf("%w: open is required", errBadRequest)
		}
		sess.Header.SetDrawer(*cmd.Open)
		return sess.Header.State(), nil
	case "account":
		if cmd.Open == nil {
			return nil, fmt.Errorf("%w: open is required", errBadRequest)
		}
		sess.Header.SetAccountMenu(*cmd.Open)
		return sess.Header.State(), nil
	case "account_entry":
		if err := sess.Header.ChooseAccountEntry(cmd.Entry); err != nil {
			return nil, err
		}
		return sess.Header.State(), nil
	case "search":
		sess.Header.SetSearch(cmd.Text)
		return sess.Header.State(), nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", errBadRequest, cmd.Action)
	}
}
