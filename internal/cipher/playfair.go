// Package cipher implements the Playfair transform used to produce training streams.
package cipher

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"svw.info/playfair/internal/domain"
)

// Alphabet is the 25 letters of a key table; 'j' is folded into 'i'.
const Alphabet = "abcdefghiklmnopqrstuvwxyz"

var (
	ErrOddLength = errors.New("text length must be even")
	ErrBadLetter = errors.New("character not in key")
	ErrBadKey    = errors.New("invalid key")
)

// Key is a 5x5 key table stored row by row.
type Key [domain.Cells]rune

// ParseKey reads a 25-letter key holding every letter of Alphabet once.
func ParseKey(s string) (Key, error) {
	var k Key
	rs := []rune(strings.ToLower(s))
	if len(rs) != domain.Cells {
		return k, fmt.Errorf("%w: need %d letters, got %d", ErrBadKey, domain.Cells, len(rs))
	}
	seen := map[rune]bool{}
	for i, r := range rs {
		if !strings.ContainsRune(Alphabet, r) || seen[r] {
			return k, fmt.Errorf("%w: bad or repeated letter %q", ErrBadKey, r)
		}
		seen[r] = true
		k[i] = r
	}
	return k, nil
}

func (k Key) String() string { return string(k[:]) }

// Snapshot renders the key as a fully placed table.
func (k Key) Snapshot() domain.Snapshot { return domain.Snapshot(k) }

// Index returns the cell of r, or -1.
func (k Key) Index(r rune) int {
	for i, x := range k {
		if x == r {
			return i
		}
	}
	return -1
}

// Prepare keeps only ASCII letters, lowercased.
func Prepare(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if l, ok := Letter(r); ok {
			b.WriteRune(l)
		}
	}
	return b.String()
}

// Letter lowercases r and reports whether it is one of 'a'..'z'.
func Letter(r rune) (rune, bool) {
	r = unicode.ToLower(r)
	return r, r >= 'a' && r <= 'z'
}

// normalize applies the digraph substitutions: j becomes i and a doubled letter
// has its second half replaced with x.
func normalize(a, b rune) (rune, rune) {
	if a == 'j' {
		a = 'i'
	}
	if b == 'j' {
		b = 'i'
	}
	if a == b {
		b = 'x'
	}
	return a, b
}

// Relation reports which relation the key induces for the digraph ab.
func Relation(k Key, a, b rune) (domain.Relation, error) {
	a, b = normalize(a, b)
	i1, i2 := k.Index(a), k.Index(b)
	if i1 < 0 || i2 < 0 {
		return 0, fmt.Errorf("%w: %c%c", ErrBadLetter, a, b)
	}
	return relationOf(i1, i2), nil
}

func relationOf(i1, i2 int) domain.Relation {
	switch {
	case i1/domain.Size == i2/domain.Size:
		return domain.Row
	case i1%domain.Size == i2%domain.Size:
		return domain.Column
	default:
		return domain.Rectangle
	}
}

// Encipher transforms an even-length text of key letters (plus j).
func Encipher(k Key, text string) (string, error) {
	return transform(k, text, 1, true)
}

// Decipher inverts Encipher. The result carries the j->i and doubled-letter
// substitutions, never the original plaintext.
func Decipher(k Key, text string) (string, error) {
	return transform(k, text, domain.Size-1, false)
}

func transform(k Key, text string, shift int, substitute bool) (string, error) {
	if len(text)%2 != 0 {
		return "", ErrOddLength
	}
	out := make([]rune, 0, len(text))
	rs := []rune(text)
	for i := 0; i < len(rs); i += 2 {
		a, b := rs[i], rs[i+1]
		if substitute {
			a, b = normalize(a, b)
		}
		i1, i2 := k.Index(a), k.Index(b)
		if i1 < 0 || i2 < 0 {
			return "", fmt.Errorf("%w: %c%c at %d", ErrBadLetter, a, b, i)
		}
		r1, c1 := i1/domain.Size, i1%domain.Size
		r2, c2 := i2/domain.Size, i2%domain.Size
		switch relationOf(i1, i2) {
		case domain.Row:
			out = append(out, k[r1*domain.Size+(c1+shift)%domain.Size], k[r2*domain.Size+(c2+shift)%domain.Size])
		case domain.Column:
			out = append(out, k[((r1+shift)%domain.Size)*domain.Size+c1], k[((r2+shift)%domain.Size)*domain.Size+c2])
		default:
			out = append(out, k[r1*domain.Size+c2], k[r2*domain.Size+c1])
		}
	}
	return string(out), nil
}
