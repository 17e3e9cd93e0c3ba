package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svw.info/playfair/internal/domain"
)

// monarchy is the textbook key table:
//
//	m o n a r
//	c h y b d
//	e f g i k
//	l p q s t
//	u v w x z
const monarchy = "monarchybdefgiklpqstuvwxz"

func TestEncipherRules(t *testing.T) {
	k, err := ParseKey(monarchy)
	require.NoError(t, err)

	cases := []struct {
		name  string
		plain string
		want  string
	}{
		{"row", "ar", "rm"},
		{"column", "mu", "cm"},
		{"rectangle", "hs", "bp"},
		{"j folds to i", "jk", "ke"},
		{"doubled letter", "ll", "su"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encipher(k, tc.plain)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecipherInvertsEncipher(t *testing.T) {
	k, err := ParseKey(monarchy)
	require.NoError(t, err)

	cases := []struct {
		raw, want string
	}{
		{"In, XX", "inxx"},
		{"balloons", "balxoxns"},
		{"jo", "io"},
	}
	for _, tc := range cases {
		plain := Prepare(tc.raw)
		ct, err := Encipher(k, plain)
		require.NoError(t, err)
		pt, err := Decipher(k, ct)
		require.NoError(t, err)
		assert.Equal(t, tc.want, pt, tc.raw)

		again, err := Encipher(k, pt)
		require.NoError(t, err)
		assert.Equal(t, ct, again)
	}
}

func TestRelation(t *testing.T) {
	k, err := ParseKey(monarchy)
	require.NoError(t, err)
	for _, tc := range []struct {
		a, b rune
		want domain.Relation
	}{
		{'m', 'r', domain.Row},
		{'o', 'v', domain.Column},
		{'c', 'z', domain.Rectangle},
		{'l', 'l', domain.Rectangle}, // becomes "lx"
	} {
		got, err := Relation(k, tc.a, tc.b)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%c%c", tc.a, tc.b)
	}
}

func TestErrors(t *testing.T) {
	k, err := ParseKey(monarchy)
	require.NoError(t, err)
	_, err = Encipher(k, "abc")
	assert.ErrorIs(t, err, ErrOddLength)
	_, err = Encipher(k, "a1")
	assert.ErrorIs(t, err, ErrBadLetter)
	_, err = ParseKey("abc")
	assert.ErrorIs(t, err, ErrBadKey)
	_, err = ParseKey("monarchybdefgiklpqstuvwxj")
	assert.ErrorIs(t, err, ErrBadKey)
}
