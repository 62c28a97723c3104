package review

import (
	"encoding/json"
	"fmt"
	"os"

	"chip-quant/pkg/geometry"
)

// Script replays a recorded (or synthetic) sequence of commands. It is the
// non-interactive CommandSource: headless runs feed a transcript instead of
// a human.
type Script struct {
	commands []Command
	pos      int
}

// NewScript builds a script from an ordered command list.
func NewScript(cmds ...Command) *Script {
	return &Script{commands: cmds}
}

// Next implements CommandSource. Exhausting the script before every stage
// has seen its Continue is an abort condition.
func (s *Script) Next(Stage) (Command, error) {
	if s.pos >= len(s.commands) {
		return nil, fmt.Errorf("transcript exhausted after %d commands: %w", s.pos, ErrAborted)
	}
	cmd := s.commands[s.pos]
	s.pos++
	return cmd, nil
}

// transcriptOp is the on-disk form of one command.
type transcriptOp struct {
	Op   string            `json:"op"`
	Near *geometry.Point2D `json:"near,omitempty"`
	To   *geometry.Point2D `json:"to,omitempty"`
	Rect *geometry.Rect    `json:"rect,omitempty"`
}

// ParseTranscript decodes a JSON op list into a Script.
func ParseTranscript(data []byte) (*Script, error) {
	var ops []transcriptOp
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, fmt.Errorf("malformed transcript: %w", err)
	}

	cmds := make([]Command, 0, len(ops))
	for i, op := range ops {
		switch op.Op {
		case "continue":
			cmds = append(cmds, Continue{})
		case "abort":
			cmds = append(cmds, Abort{})
		case "reposition":
			if op.Near == nil || op.To == nil {
				return nil, fmt.Errorf("transcript op %d: reposition requires near and to", i)
			}
			cmds = append(cmds, Reposition{Near: *op.Near, To: *op.To})
		case "flag_region":
			if op.Rect == nil {
				return nil, fmt.Errorf("transcript op %d: flag_region requires rect", i)
			}
			cmds = append(cmds, FlagRegion{Region: *op.Rect})
		case "remove_region":
			if op.Rect == nil {
				return nil, fmt.Errorf("transcript op %d: remove_region requires rect", i)
			}
			cmds = append(cmds, RemoveRegion{Region: *op.Rect})
		case "undo_flag":
			cmds = append(cmds, UndoLastFlag{})
		case "undo_removal":
			cmds = append(cmds, UndoLastRemoval{})
		default:
			return nil, fmt.Errorf("transcript op %d: unknown op %q", i, op.Op)
		}
	}
	return NewScript(cmds...), nil
}

// LoadTranscript reads and parses a transcript file.
func LoadTranscript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	return ParseTranscript(data)
}
