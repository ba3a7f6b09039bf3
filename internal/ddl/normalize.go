package ddl

import "strings"

// Normalize prepares raw definition text for lexing.
//
// Line endings become "\n". Outside string literals, quoted identifiers,
// dollar bodies and comments, the two-character sequence `\n` becomes a real
// newline and `\"` becomes `"`. Everything else is left untouched, so byte
// offsets into the result are stable for later tag insertion.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if !strings.Contains(text, `\`) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))

	state := stateNormal
	depth := 0
	dollarTag := ""

	for i := 0; i < len(text); i++ {
		c := text[i]
		var next byte
		if i+1 < len(text) {
			next = text[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case c == '\\' && next == 'n':
				b.WriteByte('\n')
				i++
				continue
			case c == '\\' && next == '"':
				// The unescaped quote opens a quoted identifier.
				b.WriteByte('"')
				state = stateQuotedIdent
				i++
				continue
			case c == '-' && next == '-':
				state = stateLineComment
			case c == '/' && next == '*':
				state = stateBlockComment
				depth = 1
				b.WriteString("/*")
				i++
				continue
			case c == '\'':
				state = stateSingleQuote
			case c == '"':
				state = stateQuotedIdent
			case c == '$':
				if tag := dollarTagAt(text, i); tag != "" {
					state = stateDollarQuote
					dollarTag = tag
					b.WriteString(tag)
					i += len(tag) - 1
					continue
				}
			}
			b.WriteByte(c)

		case stateLineComment:
			b.WriteByte(c)
			if c == '\n' {
				state = stateNormal
			}

		case stateBlockComment:
			switch {
			case c == '/' && next == '*':
				depth++
				b.WriteString("/*")
				i++
			case c == '*' && next == '/':
				depth--
				b.WriteString("*/")
				i++
				if depth == 0 {
					state = stateNormal
				}
			default:
				b.WriteByte(c)
			}

		case stateSingleQuote:
			b.WriteByte(c)
			if c == '\'' {
				if next == '\'' {
					b.WriteByte(next)
					i++
				} else {
					state = stateNormal
				}
			}

		case stateQuotedIdent:
			switch {
			case c == '\\' && next == '"':
				// Closing quote written as an escape artifact.
				b.WriteByte('"')
				state = stateNormal
				i++
			case c == '"':
				b.WriteByte(c)
				if next == '"' {
					b.WriteByte(next)
					i++
				} else {
					state = stateNormal
				}
			default:
				b.WriteByte(c)
			}

		case stateDollarQuote:
			if strings.HasPrefix(text[i:], dollarTag) {
				b.WriteString(dollarTag)
				i += len(dollarTag) - 1
				state = stateNormal
				dollarTag = ""
				continue
			}
			b.WriteByte(c)
		}
	}

	return b.String()
}
