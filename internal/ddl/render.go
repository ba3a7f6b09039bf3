package ddl

import "strings"

// spacedBeforeParen are words after which "(" keeps a separating space.
var spacedBeforeParen = map[string]bool{
	"in": true, "and": true, "or": true, "not": true, "check": true,
	"exists": true, "any": true, "all": true, "as": true, "table": true,
}

// Render joins tokens into canonical single-spaced text. Words appear
// lower-cased; literals, quoted identifiers and operators appear as written.
// Comments are skipped.
func Render(toks []Token) string {
	var b strings.Builder
	var prev *Token
	for i := range toks {
		t := &toks[i]
		if t.IsComment() {
			continue
		}
		if prev != nil && needsSpace(prev, t) {
			b.WriteByte(' ')
		}
		if t.Kind == TokenWord {
			b.WriteString(t.Text)
		} else {
			b.WriteString(t.Raw)
		}
		prev = t
	}
	return b.String()
}

func needsSpace(prev, cur *Token) bool {
	if prev.IsPunct("(") || prev.IsPunct("[") || prev.IsPunct(".") || prev.Raw == "::" {
		return false
	}
	if cur.IsPunct(")") || cur.IsPunct("]") || cur.IsPunct(",") || cur.IsPunct(".") ||
		cur.IsPunct("[") || cur.Raw == "::" {
		return false
	}
	if cur.IsPunct("(") {
		if prev.Kind == TokenWord {
			return spacedBeforeParen[prev.Text]
		}
		return prev.Kind != TokenQuotedIdent
	}
	return true
}
