// Package tags extracts and applies inline metadata tags.
//
// A tag is a token of the form #name or #name=value inside a block comment.
// Names consist of ASCII letters, digits and hyphens; a value is the
// non-whitespace run after '='. Other words in a comment are prose.
//
// The set of tag names is open: this package validates syntax only. Consumers
// such as the code generator and the replication configurator decide which
// names they interpret and ignore the rest.
package tags

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vvka-141/dbobj/internal/ddl"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Token is one tag occurrence found in a comment.
type Token struct {
	Name   string
	Value  string
	Offset int
}

// Scan finds all tag tokens in the interior text of one comment.
// The returned error, if any, describes the first malformed token.
func Scan(comment string) ([]Token, error) {
	var out []Token
	i := 0
	for i < len(comment) {
		for i < len(comment) && isSpace(comment[i]) {
			i++
		}
		start := i
		for i < len(comment) && !isSpace(comment[i]) {
			i++
		}
		word := comment[start:i]
		if !strings.HasPrefix(word, "#") {
			continue
		}
		tok, err := parseToken(word)
		if err != nil {
			return out, &scanError{token: word, offset: start, reason: err.Error()}
		}
		tok.Offset = start
		out = append(out, tok)
	}
	return out, nil
}

type scanError struct {
	token  string
	offset int
	reason string
}

func (e *scanError) Error() string { return e.reason }

func parseToken(word string) (Token, error) {
	body := word[1:]
	name, value, hasValue := strings.Cut(body, "=")
	if name == "" {
		return Token{}, fmt.Errorf("missing tag name")
	}
	for _, r := range name {
		if !isNameRune(r) {
			return Token{}, fmt.Errorf("tag name may contain only letters, digits and hyphens")
		}
	}
	if hasValue && value == "" {
		return Token{}, fmt.Errorf("empty value for tag %q", name)
	}
	return Token{Name: strings.ToLower(name), Value: value}, nil
}

// Validate checks a tag built outside of a comment, for example from the command line.
func Validate(tag dbobj.Tag) error {
	word := tag.String()
	if strings.ContainsAny(tag.Value, " \t\n") {
		return &dbobj.TagSyntaxError{Token: word, Reason: "tag value may not contain whitespace"}
	}
	if strings.Contains(tag.Value, "*/") {
		return &dbobj.TagSyntaxError{Token: word, Reason: "tag value may not contain a comment terminator"}
	}
	if _, err := parseToken(word); err != nil {
		return &dbobj.TagSyntaxError{Token: word, Reason: err.Error()}
	}
	return nil
}

// ParseArg parses "name" or "name=value" with an optional leading '#'.
func ParseArg(arg string) (dbobj.Tag, error) {
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "#")
	name, value, _ := strings.Cut(arg, "=")
	tag := dbobj.Tag{Name: strings.ToLower(name), Value: value}
	if err := Validate(tag); err != nil {
		return dbobj.Tag{}, err
	}
	return tag, nil
}

// Extract attaches the tags found in res.Comments to the object and its
// fields. Tags on the same target keep source order.
func Extract(res *ddl.Result) error {
	obj := res.Object
	obj.Tags = nil
	for i := range obj.Fields {
		obj.Fields[i].Tags = nil
	}

	for _, c := range res.Comments {
		found, err := Scan(c.Text)
		if err != nil {
			se := err.(*scanError)
			line, col := position(obj.Source, c.Start+2+se.offset)
			return &dbobj.TagSyntaxError{File: obj.Path, Line: line, Column: col, Token: se.token, Reason: se.reason}
		}
		if len(found) == 0 {
			continue
		}

		owner := res.Owner(c)
		for _, tok := range found {
			tag := dbobj.Tag{Name: tok.Name, Value: tok.Value, Field: owner}
			if owner == "" {
				obj.Tags = append(obj.Tags, tag)
				continue
			}
			f, _ := obj.Field(owner)
			f.Tags = append(f.Tags, tag)
		}
	}
	return nil
}

// Parse runs the DDL parser and the tag extractor on one file.
func Parse(path, text string) (*dbobj.SchemaObject, error) {
	res, err := ddl.Parse(path, text)
	if err != nil {
		return nil, err
	}
	if err := Extract(res); err != nil {
		return nil, err
	}
	return res.Object, nil
}

// Apply returns obj.Source with tag inserted as an inline comment directly
// after its target: the field definition when tag.Field is set, otherwise the
// end of the CREATE statement. Applying a tag that is already present with the
// same value returns the source unchanged. A tag present with another value is
// rewritten in place and any further occurrences of it on the target are removed.
func Apply(obj *dbobj.SchemaObject, tag dbobj.Tag) (string, error) {
	if err := Validate(tag); err != nil {
		return "", err
	}

	existing := obj.Tags
	insertAt := obj.Span.End
	target := ""
	if tag.Field != "" {
		f, ok := obj.Field(tag.Field)
		if !ok {
			return "", fmt.Errorf("%s %q has no field %q: %w", obj.Kind, obj.Name, tag.Field, dbobj.ErrTagTargetNotFound)
		}
		existing = f.Tags
		insertAt = f.Span.End
		target = f.Name
	}

	t, ok := existing.Lookup(tag.Name)
	if !ok {
		comment := " /* " + tag.String() + " */"
		return obj.Source[:insertAt] + comment + obj.Source[insertAt:], nil
	}
	if t.Value == tag.Value {
		return obj.Source, nil
	}

	spans, err := occurrences(obj, target, tag.Name)
	if err != nil {
		return "", err
	}
	src := obj.Source
	for i := len(spans) - 1; i >= 0; i-- {
		sp := spans[i]
		if i == 0 {
			src = src[:sp.start] + tag.String() + src[sp.end:]
			continue
		}
		start := sp.start
		for start > 0 && isSpace(src[start-1]) {
			start--
		}
		src = src[:start] + src[sp.end:]
	}
	return src, nil
}

type span struct{ start, end int }

// occurrences locates, in source order, every name tag owned by target
// ("" for the object itself).
func occurrences(obj *dbobj.SchemaObject, target, name string) ([]span, error) {
	res, err := ddl.Parse(obj.Path, obj.Source)
	if err != nil {
		return nil, err
	}
	if res.Object.Source != obj.Source {
		return nil, fmt.Errorf("%s: cannot locate existing tags in unnormalized source", obj.Path)
	}
	var out []span
	for _, c := range res.Comments {
		if res.Owner(c) != target {
			continue
		}
		found, err := Scan(c.Text)
		if err != nil {
			return nil, &dbobj.TagSyntaxError{File: obj.Path, Line: c.Line, Column: c.Column, Reason: err.Error()}
		}
		interior := c.Start + len("/*")
		for _, tok := range found {
			if tok.Name != name {
				continue
			}
			n := 0
			for tok.Offset+n < len(c.Text) && !isSpace(c.Text[tok.Offset+n]) {
				n++
			}
			out = append(out, span{start: interior + tok.Offset, end: interior + tok.Offset + n})
		}
	}
	return out, nil
}

// Names returns the distinct tag names used anywhere on obj, sorted.
func Names(obj *dbobj.SchemaObject) []string {
	seen := make(map[string]bool)
	for _, t := range obj.AllTags() {
		seen[t.Name] = true
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func position(src string, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	before := src[:offset]
	line = strings.Count(before, "\n") + 1
	col = offset - strings.LastIndex(before, "\n")
	return line, col
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\v' || c == '\f'
}

func isNameRune(r rune) bool {
	return r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
