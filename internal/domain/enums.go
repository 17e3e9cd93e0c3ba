package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Relation is one of the three positional relationships the Playfair transform
// induces between a plaintext digraph and its ciphertext digraph.
type Relation int

const (
	Row Relation = iota
	Column
	Rectangle
)

// Relations lists every relation in action-index order.
var Relations = [...]Relation{Row, Column, Rectangle}

var ErrUnknownRelation = errors.New("unknown relation")

func (r Relation) String() string {
	switch r {
	case Row:
		return "row"
	case Column:
		return "column"
	case Rectangle:
		return "rectangle"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

func (r Relation) Valid() bool { return r >= Row && r <= Rectangle }

// ParseRelation accepts the relation name or its common short forms.
func ParseRelation(s string) (Relation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "row", "r":
		return Row, nil
	case "column", "col", "c":
		return Column, nil
	case "rectangle", "rect", "square", "sqr", "s":
		return Rectangle, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRelation, s)
}

func (r Relation) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRelation, int(r))
	}
	return []byte(r.String()), nil
}

func (r *Relation) UnmarshalText(b []byte) error {
	v, err := ParseRelation(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Status is the episode state. Running carries the cursor separately.
type Status int

const (
	Running Status = iota
	TerminalSuccess
	TerminalFailure
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case TerminalSuccess:
		return "success"
	case TerminalFailure:
		return "failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) Terminal() bool { return s == TerminalSuccess || s == TerminalFailure }

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "running":
		*s = Running
	case "success":
		*s = TerminalSuccess
	case "failure":
		*s = TerminalFailure
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}
