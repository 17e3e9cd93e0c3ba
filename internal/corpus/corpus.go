// Package corpus turns a plain text file into training samples.
package corpus

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"svw.info/playfair/internal/cipher"
	"svw.info/playfair/internal/domain"
	"svw.info/playfair/internal/generator"
)

// DefaultChunk is the stream length of one sample.
const DefaultChunk = 100

var ErrChunkSize = errors.New("chunk size must be positive and even")

// Chunks strips r down to lowercase letters and cuts it into size-long
// pieces. A trailing piece shorter than size is dropped. Input is read rune by
// rune, so line length is unbounded.
func Chunks(r io.Reader, size int) ([]string, error) {
	if size <= 0 || size%2 != 0 {
		return nil, ErrChunkSize
	}
	var (
		out []string
		buf = make([]byte, 0, size)
		br  = bufio.NewReader(r)
	)
	for {
		ch, _, err := br.ReadRune()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		l, ok := cipher.Letter(ch)
		if !ok {
			continue
		}
		buf = append(buf, byte(l))
		if len(buf) == size {
			out = append(out, string(buf))
			buf = buf[:0]
		}
	}
}

// File is a StreamSource over a text file. Each chunk gets its own random key.
type File struct {
	Path  string
	Chunk int
	Seed  uint64

	chunks []string
	next   int
	rng    *rand.Rand
}

func NewFile(path string, chunk int, seed uint64) *File {
	if chunk == 0 {
		chunk = DefaultChunk
	}
	return &File{Path: path, Chunk: chunk, Seed: seed}
}

func (f *File) load() error {
	if f.chunks != nil {
		return nil
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("open corpus: %w", err)
	}
	defer fh.Close()
	chunks, err := Chunks(fh, f.Chunk)
	if err != nil {
		return fmt.Errorf("read corpus %s: %w", f.Path, err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("corpus %s holds fewer than %d letters", f.Path, f.Chunk)
	}
	f.chunks = chunks
	f.rng = rand.New(rand.NewPCG(f.Seed, 1))
	return nil
}

// Samples returns the next n chunks enciphered, cycling through the file.
func (f *File) Samples(ctx context.Context, n int) ([]domain.Sample, error) {
	if err := f.load(); err != nil {
		return nil, err
	}
	out := make([]domain.Sample, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := f.chunks[f.next%len(f.chunks)]
		f.next++
		s, err := generator.NewSample(generator.GenerateKey(f.rng), text)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
