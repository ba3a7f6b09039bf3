package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/vvka-141/dbobj/internal/ddl"
)

// Calculator computes file digests.
type Calculator interface {
	CalculateRaw(content []byte) string
	CalculateNormalized(content []byte) string
}

// SHA256 is the default Calculator. It is stateless and safe for concurrent use.
type SHA256 struct{}

func New() SHA256 {
	return SHA256{}
}

func (c SHA256) CalculateRaw(content []byte) string {
	return digest(content)
}

// CalculateNormalized hashes the canonical rendering of the file's tokens.
// Text the lexer rejects falls back to a lower-cased, whitespace-collapsed
// form so that a broken file still gets a stable digest.
func (c SHA256) CalculateNormalized(content []byte) string {
	return digest([]byte(Canonical(string(content))))
}

// Canonical returns the comment-free token rendering of text.
func Canonical(text string) string {
	toks, err := ddl.Lex("", ddl.Normalize(text))
	if err != nil {
		return collapse(text)
	}
	kept := toks[:0]
	for _, t := range toks {
		if !t.IsComment() {
			kept = append(kept, t)
		}
	}
	return ddl.Render(kept)
}

func collapse(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastWasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		lastWasSpace = false
	}
	return strings.TrimSpace(b.String())
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

var _ Calculator = SHA256{}
