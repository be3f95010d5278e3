package server

import (
	"bufio"
	"io"
	"strings"
)

// tokenizer yields whitespace-separated tokens from line-oriented input.
// A command's arguments may span lines; discardLine drops whatever is left
// of the line the last token came from.
type tokenizer struct {
	sc      *bufio.Scanner
	pending []string
}

func newTokenizer(r io.Reader) *tokenizer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1024*1024)
	return &tokenizer{sc: sc}
}

// next returns the next token, reading more lines as needed. It returns
// false at end of input or on a read error.
func (t *tokenizer) next() (string, bool) {
	for len(t.pending) == 0 {
		if !t.sc.Scan() {
			return "", false
		}
		t.pending = strings.Fields(t.sc.Text())
	}
	tok := t.pending[0]
	t.pending = t.pending[1:]
	return tok, true
}

// err reports the read error that stopped next, if any. It is nil after a
// clean end of input.
func (t *tokenizer) err() error {
	return t.sc.Err()
}

func (t *tokenizer) discardLine() {
	t.pending = nil
}
