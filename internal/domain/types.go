package domain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Size  = 5
	Cells = Size * Size // 25

	// Unused marks a free cell in a snapshot and an absent character in a state vector.
	Unused = '*'

	// VectorLen is 4 digraph characters followed by the 25 cells.
	VectorLen = 4 + Cells
)

// Pair is the current digraph pair: (D1, D2) from the plaintext stream and
// (E1, E2) from the ciphertext stream at the same offsets.
type Pair struct {
	D1, D2 rune
	E1, E2 rune
}

// Letters returns the four characters in d1, d2, e1, e2 order.
func (p Pair) Letters() [4]rune { return [4]rune{p.D1, p.D2, p.E1, p.E2} }

func (p Pair) String() string {
	return fmt.Sprintf("%c%c->%c%c", p.D1, p.D2, p.E1, p.E2)
}

var ErrInvalidStream = errors.New("invalid digraph stream")

// Stream is an index-paired plaintext/ciphertext character sequence.
type Stream struct {
	Plain  string `json:"plain"`
	Cipher string `json:"cipher"`
}

func (s Stream) Len() int { return len(s.Plain) }

// Validate checks both sides are equal, even, non-empty and printable ASCII.
func (s Stream) Validate() error {
	if len(s.Plain) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidStream)
	}
	if len(s.Plain) != len(s.Cipher) {
		return fmt.Errorf("%w: plaintext has %d characters, ciphertext %d", ErrInvalidStream, len(s.Plain), len(s.Cipher))
	}
	if len(s.Plain)%2 != 0 {
		return fmt.Errorf("%w: odd length %d", ErrInvalidStream, len(s.Plain))
	}
	for i := 0; i < len(s.Plain); i++ {
		if !printable(s.Plain[i]) || !printable(s.Cipher[i]) {
			return fmt.Errorf("%w: unsupported character at %d", ErrInvalidStream, i)
		}
	}
	return nil
}

// printable reports whether c is visible ASCII other than Unused.
func printable(c byte) bool { return c > ' ' && c < 0x7f && c != Unused }

// PairAt returns the digraph pair starting at pos. pos must be even and < Len.
func (s Stream) PairAt(pos int) Pair {
	return Pair{
		D1: rune(s.Plain[pos]), D2: rune(s.Plain[pos+1]),
		E1: rune(s.Cipher[pos]), E2: rune(s.Cipher[pos+1]),
	}
}

// Snapshot is the 25-slot rendering of a key table, free cells hold Unused.
type Snapshot [Cells]rune

// EmptySnapshot has every slot Unused.
func EmptySnapshot() Snapshot {
	var s Snapshot
	for i := range s {
		s[i] = Unused
	}
	return s
}

// String renders the table as five space-separated rows.
func (s Snapshot) String() string {
	var b strings.Builder
	for r := 0; r < Size; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c < Size; c++ {
			if c > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(s[r*Size+c])
		}
	}
	return b.String()
}

func (s Snapshot) MarshalText() ([]byte, error) { return []byte(string(s[:])), nil }

func (s *Snapshot) UnmarshalText(b []byte) error {
	rs := []rune(string(b))
	if len(rs) != Cells {
		return fmt.Errorf("snapshot must have %d cells, got %d", Cells, len(rs))
	}
	copy(s[:], rs)
	return nil
}

// Vector is the numeric state handed to an external learner.
type Vector [VectorLen]int

// Rewards configures the episode reward signal.
type Rewards struct {
	Good   int `json:"good" yaml:"good"`
	Living int `json:"living" yaml:"living"`
	Bad    int `json:"bad" yaml:"bad"`
}

// DefaultRewards mirrors the values the learner was tuned against.
func DefaultRewards() Rewards { return Rewards{Good: 1000, Living: 10, Bad: -20} }

// Sample is one training stream together with the key that produced it.
type Sample struct {
	Stream
	Key string `json:"key,omitempty"`
}

// Step is one resolved (or rejected) relation attempt.
type Step struct {
	Pos      int      `json:"pos"`
	Relation Relation `json:"relation"`
	Reward   int      `json:"reward"`
}

// Record is a finished episode as persisted by storage.
type Record struct {
	ID        string   `json:"id"`
	Seed      uint64   `json:"seed"`
	Status    Status   `json:"status"`
	Reward    int      `json:"reward"`
	Steps     []Step   `json:"steps,omitempty"`
	Length    int      `json:"length"`
	Key       string   `json:"key,omitempty"`
	Snapshot  Snapshot `json:"snapshot"`
	Placed    int      `json:"placed"`
	Agreement int      `json:"agreement"`
	CreatedAt int64    `json:"createdAt,omitempty"`
}

// RecordMeta is a lightweight listing entry.
type RecordMeta struct {
	ID        string `json:"id"`
	Status    Status `json:"status"`
	Reward    int    `json:"reward"`
	CreatedAt int64  `json:"createdAt"`
}
