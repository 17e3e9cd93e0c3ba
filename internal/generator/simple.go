package generator

import (
	"math/rand/v2"

	"svw.info/playfair/internal/cipher"
	"svw.info/playfair/internal/domain"
)

// GenerateKey shuffles the key alphabet into a random table.
func GenerateKey(rng *rand.Rand) cipher.Key {
	var k cipher.Key
	copy(k[:], []rune(cipher.Alphabet))
	rng.Shuffle(len(k), func(i, j int) { k[i], k[j] = k[j], k[i] })
	return k
}

// NewSample enciphers plain under key. The plaintext side of the sample is the
// decipherment of the ciphertext, so both streams pair up digraph by digraph.
func NewSample(key cipher.Key, plain string) (domain.Sample, error) {
	ct, err := cipher.Encipher(key, plain)
	if err != nil {
		return domain.Sample{}, err
	}
	pt, err := cipher.Decipher(key, ct)
	if err != nil {
		return domain.Sample{}, err
	}
	return domain.Sample{Stream: domain.Stream{Plain: pt, Cipher: ct}, Key: key.String()}, nil
}

func randomText(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + rng.IntN(26))
	}
	return string(b)
}
