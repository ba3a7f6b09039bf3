package ddl

import (
	"fmt"
	"strings"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Result is a parsed definition file: the declared object plus the block
// comments that may carry tags.
type Result struct {
	Object   *dbobj.SchemaObject
	Comments []Token

	anchors []anchor
}

// anchor records where a field definition sits so comments can be attributed.
// limit is the offset where the next element (or the closing parenthesis) starts.
type anchor struct {
	field string
	start int
	end   int
	limit int
}

// Owner returns the name of the field a block comment belongs to, or "" when
// it belongs to the object itself. A comment belongs to a field when it lies
// inside the field definition, or starts on the line where the definition
// ends and before the next element begins.
func (r *Result) Owner(c Token) string {
	src := r.Object.Source
	for _, a := range r.anchors {
		if c.Start >= a.start && c.Start < a.end {
			return a.field
		}
		if c.Start >= a.end && c.Start < a.limit && !strings.Contains(src[a.end:c.Start], "\n") {
			return a.field
		}
	}
	return ""
}

// columnKeywords start a column constraint and therefore end a type or default.
var columnKeywords = map[string]bool{
	"constraint": true, "not": true, "null": true, "default": true, "primary": true,
	"unique": true, "references": true, "check": true, "collate": true, "generated": true,
}

// functionOptions end a RETURNS clause.
var functionOptions = map[string]bool{
	"language": true, "as": true, "immutable": true, "stable": true, "volatile": true,
	"strict": true, "security": true, "cost": true, "rows": true, "parallel": true,
	"set": true, "called": true, "leakproof": true, "window": true, "not": true,
	"external": true, "support": true, "transform": true, "begin": true, "return": true,
}

// multiWordTypeStarts begin types whose first word cannot be a parameter name.
var multiWordTypeStarts = map[string]bool{
	"double": true, "character": true, "timestamp": true, "time": true,
	"bit": true, "interval": true, "national": true,
}

// Parse parses the definition file at path. The returned object's Source is
// the normalized text and all spans refer to it.
func Parse(path, text string) (*Result, error) {
	src := Normalize(text)
	toks, err := Lex(path, src)
	if err != nil {
		return nil, err
	}

	p := &parser{path: path, src: src}
	for _, t := range toks {
		switch {
		case t.Kind == TokenBlockComment:
			p.comments = append(p.comments, t)
		case t.Kind == TokenLineComment:
		default:
			p.toks = append(p.toks, t)
		}
	}
	return p.parse()
}

type parser struct {
	path     string
	src      string
	toks     []Token
	comments []Token
	anchors  []anchor
}

func (p *parser) errorAt(t Token, format string, args ...any) error {
	return &dbobj.ParseError{File: p.path, Line: t.Line, Column: t.Column, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) errorAtEnd(format string, args ...any) error {
	line := strings.Count(p.src, "\n") + 1
	return &dbobj.ParseError{File: p.path, Line: line, Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) parse() (*Result, error) {
	var obj *dbobj.SchemaObject

	for s := 0; s < len(p.toks); {
		e := s
		for e < len(p.toks) && !p.toks[e].IsPunct(";") {
			e++
		}

		if p.toks[s].Is("create") {
			kind, body, ok := p.classify(s, e)
			if ok {
				var next *dbobj.SchemaObject
				var err error
				if kind == dbobj.KindTable {
					next, err = p.parseTable(s, body, e)
				} else {
					next, err = p.parseFunction(s, body, e)
				}
				if err != nil {
					return nil, err
				}
				switch {
				case obj == nil:
					obj = next
				case obj.Kind == dbobj.KindFunction && next.Kind == dbobj.KindFunction && obj.Name == next.Name:
					// Overloads of one function may share a file.
				default:
					return nil, p.errorAt(p.toks[s], "file already declares %s %q; one object per file", obj.Kind, obj.Name)
				}
			}
		}
		s = e + 1
	}

	if obj == nil {
		return nil, &dbobj.ParseError{File: p.path, Line: 1, Reason: "no CREATE TABLE or CREATE FUNCTION statement found"}
	}
	obj.Path = p.path
	obj.Source = p.src
	return &Result{Object: obj, Comments: p.comments, anchors: p.anchors}, nil
}

// classify inspects a CREATE statement and returns the object kind and the
// index of the token after TABLE/FUNCTION/PROCEDURE.
func (p *parser) classify(s, e int) (dbobj.ObjectKind, int, bool) {
	i := s + 1
	if i+1 < e && p.toks[i].Is("or") && p.toks[i+1].Is("replace") {
		i += 2
	}
	if i < e && (p.toks[i].Is("global") || p.toks[i].Is("local")) {
		i++
	}
	if i < e && (p.toks[i].Is("temp") || p.toks[i].Is("temporary") || p.toks[i].Is("unlogged")) {
		i++
	}
	if i >= e {
		return "", 0, false
	}
	switch {
	case p.toks[i].Is("table"):
		return dbobj.KindTable, i + 1, true
	case p.toks[i].Is("function"), p.toks[i].Is("procedure"):
		return dbobj.KindFunction, i + 1, true
	}
	return "", 0, false
}

func isIdent(t Token) bool {
	return t.Kind == TokenWord || t.Kind == TokenQuotedIdent
}

// qualifiedName reads [schema.]name starting at i.
func (p *parser) qualifiedName(i, e int) (schema, name string, next int, err error) {
	if i >= e || !isIdent(p.toks[i]) {
		if i < len(p.toks) {
			return "", "", i, p.errorAt(p.toks[i], "expected object name")
		}
		return "", "", i, p.errorAtEnd("expected object name")
	}
	name = p.toks[i].Text
	i++
	if i+1 < e && p.toks[i].IsPunct(".") && isIdent(p.toks[i+1]) {
		schema, name = name, p.toks[i+1].Text
		i += 2
	}
	return schema, name, i, nil
}

// closeParen returns the index of the parenthesis matching the one at open,
// or -1 when the statement ends first.
func (p *parser) closeParen(open, e int) int {
	depth := 0
	for i := open; i < e; i++ {
		switch {
		case p.toks[i].IsPunct("("):
			depth++
		case p.toks[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits toks[from:to] at commas outside parentheses and brackets.
func (p *parser) splitTopLevel(from, to int) [][]Token {
	var parts [][]Token
	depth := 0
	start := from
	for i := from; i < to; i++ {
		t := p.toks[i]
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("]"):
			depth--
		case t.IsPunct(",") && depth == 0:
			parts = append(parts, p.toks[start:i])
			start = i + 1
		}
	}
	if start < to || len(parts) > 0 {
		parts = append(parts, p.toks[start:to])
	}
	return parts
}

func (p *parser) statementSpan(s, e int) dbobj.Span {
	end := p.toks[len(p.toks)-1].End
	if e < len(p.toks) {
		end = p.toks[e].End
	} else if e > 0 {
		end = p.toks[e-1].End
	}
	return dbobj.Span{Line: p.toks[s].Line, Column: p.toks[s].Column, Start: p.toks[s].Start, End: end}
}

func (p *parser) parseTable(s, i, e int) (*dbobj.SchemaObject, error) {
	if i+2 < e && p.toks[i].Is("if") && p.toks[i+1].Is("not") && p.toks[i+2].Is("exists") {
		i += 3
	}
	schema, name, i, err := p.qualifiedName(i, e)
	if err != nil {
		return nil, err
	}
	if i >= e || !p.toks[i].IsPunct("(") {
		if i < len(p.toks) {
			return nil, p.errorAt(p.toks[i], "expected '(' after table name %q", name)
		}
		return nil, p.errorAtEnd("expected '(' after table name %q", name)
	}
	open := i
	closeIdx := p.closeParen(open, e)
	if closeIdx < 0 {
		return nil, p.errorAt(p.toks[open], "unterminated body of table %q", name)
	}

	obj := &dbobj.SchemaObject{
		Kind:   dbobj.KindTable,
		Schema: schema,
		Name:   name,
		Span:   p.statementSpan(s, e),
	}

	elements := p.splitTopLevel(open+1, closeIdx)
	seen := make(map[string]bool)
	for idx, elem := range elements {
		if len(elem) == 0 {
			return nil, p.errorAt(p.toks[open], "empty element in body of table %q", name)
		}

		if isTableConstraint(elem) {
			c, err := p.parseTableConstraint(elem)
			if err != nil {
				return nil, err
			}
			if c != nil {
				obj.Constraints = append(obj.Constraints, *c)
			}
			continue
		}

		field, constraints, err := p.parseColumn(elem)
		if err != nil {
			return nil, err
		}
		if seen[field.Name] {
			return nil, p.errorAt(elem[0], "duplicate field %q in table %q", field.Name, name)
		}
		seen[field.Name] = true
		obj.Fields = append(obj.Fields, field)
		obj.Constraints = append(obj.Constraints, constraints...)

		limit := p.toks[closeIdx].Start
		if idx+1 < len(elements) && len(elements[idx+1]) > 0 {
			limit = elements[idx+1][0].Start
		}
		p.anchors = append(p.anchors, anchor{field: field.Name, start: field.Span.Start, end: field.Span.End, limit: limit})
	}

	if err := p.applyTableConstraints(obj, p.toks[open]); err != nil {
		return nil, err
	}
	return obj, nil
}

func isTableConstraint(elem []Token) bool {
	t := elem[0]
	if t.Kind != TokenWord {
		return false
	}
	switch t.Text {
	case "constraint", "check", "like":
		return true
	case "exclude":
		// EXCLUDE is not reserved, so "exclude boolean" is a column.
		return len(elem) > 1 && (elem[1].Is("using") || elem[1].IsPunct("("))
	case "primary", "foreign":
		return len(elem) > 1 && elem[1].Is("key")
	case "unique":
		return len(elem) > 1 && (elem[1].IsPunct("(") || elem[1].Is("nulls"))
	}
	return false
}

func (p *parser) parseColumn(elem []Token) (dbobj.Field, []dbobj.Constraint, error) {
	first := elem[0]
	if !isIdent(first) {
		return dbobj.Field{}, nil, p.errorAt(first, "expected column name, found %q", first.Raw)
	}
	f := dbobj.Field{
		Name:     first.Text,
		Nullable: true,
		Span: dbobj.Span{
			Line:   first.Line,
			Column: first.Column,
			Start:  first.Start,
			End:    elem[len(elem)-1].End,
		},
	}

	k := untilKeyword(elem, 1, columnKeywords)
	if k == 1 {
		return dbobj.Field{}, nil, p.errorAt(first, "column %q has no type", f.Name)
	}
	f.Type = Render(elem[1:k])

	var constraints []dbobj.Constraint
	conName := ""
	for k < len(elem) {
		t := elem[k]
		switch {
		case t.Is("constraint") && k+1 < len(elem):
			conName = elem[k+1].Text
			k += 2
			continue
		case t.Is("not") && k+1 < len(elem) && elem[k+1].Is("null"):
			f.Nullable = false
			k += 2
		case t.Is("null"):
			f.Nullable = true
			k++
		case t.Is("default"):
			end := untilKeyword(elem, k+1, columnKeywords)
			f.Default = Render(elem[k+1 : end])
			f.HasDefault = true
			k = end
		case t.Is("generated"):
			end := untilKeyword(elem, k+1, columnKeywords)
			f.Default = Render(elem[k:end])
			f.HasDefault = true
			f.Generated = true
			k = end
		case t.Is("primary") && k+1 < len(elem) && elem[k+1].Is("key"):
			f.PrimaryKey = true
			f.Nullable = false
			constraints = append(constraints, dbobj.Constraint{Kind: dbobj.ConstraintPrimaryKey, Name: conName, Fields: []string{f.Name}})
			k += 2
		case t.Is("unique"):
			f.Unique = true
			constraints = append(constraints, dbobj.Constraint{Kind: dbobj.ConstraintUnique, Name: conName, Fields: []string{f.Name}})
			k = skipNullsDistinct(elem, k+1)
		case t.Is("references"):
			fk, next, err := p.parseReference(elem, k+1)
			if err != nil {
				return dbobj.Field{}, nil, err
			}
			f.References = &dbobj.ForeignKey{Table: fk.RefTable}
			if len(fk.RefColumns) > 0 {
				f.References.Column = fk.RefColumns[0]
			}
			fk.Name = conName
			fk.Fields = []string{f.Name}
			constraints = append(constraints, fk)
			k = next
		case t.Is("check"):
			expr, next, err := p.parenGroup(elem, k+1, "check")
			if err != nil {
				return dbobj.Field{}, nil, err
			}
			constraints = append(constraints, dbobj.Constraint{Kind: dbobj.ConstraintCheck, Name: conName, Fields: []string{f.Name}, Expression: expr})
			k = next
		case t.Is("collate"):
			k += 2
		default:
			k++
		}
		conName = ""
	}
	return f, constraints, nil
}

// untilKeyword returns the index of the first token at or after from that is
// one of the keywords and sits outside parentheses, or len(toks).
func untilKeyword(toks []Token, from int, keywords map[string]bool) int {
	depth := 0
	for i := from; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.IsPunct("(") || t.IsPunct("["):
			depth++
		case t.IsPunct(")") || t.IsPunct("]"):
			depth--
		case depth == 0 && t.Kind == TokenWord && keywords[t.Text]:
			return i
		}
	}
	return len(toks)
}

func skipNullsDistinct(toks []Token, k int) int {
	if k < len(toks) && toks[k].Is("nulls") {
		k++
		if k < len(toks) && toks[k].Is("not") {
			k++
		}
		if k < len(toks) && toks[k].Is("distinct") {
			k++
		}
	}
	return k
}

// parenGroup reads "( ... )" at toks[k] and returns the rendered interior.
func (p *parser) parenGroup(toks []Token, k int, what string) (string, int, error) {
	if k >= len(toks) || !toks[k].IsPunct("(") {
		at := toks[len(toks)-1]
		if k < len(toks) {
			at = toks[k]
		}
		return "", k, p.errorAt(at, "expected '(' after %s", what)
	}
	depth := 0
	for i := k; i < len(toks); i++ {
		switch {
		case toks[i].IsPunct("("):
			depth++
		case toks[i].IsPunct(")"):
			depth--
			if depth == 0 {
				return Render(toks[k+1 : i]), i + 1, nil
			}
		}
	}
	return "", k, p.errorAt(toks[k], "unterminated %s expression", what)
}

// identList reads "( a, b )" at toks[k].
func (p *parser) identList(toks []Token, k int, what string) ([]string, int, error) {
	if k >= len(toks) || !toks[k].IsPunct("(") {
		at := toks[len(toks)-1]
		if k < len(toks) {
			at = toks[k]
		}
		return nil, k, p.errorAt(at, "expected column list after %s", what)
	}
	var names []string
	for i := k + 1; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.IsPunct(")"):
			return names, i + 1, nil
		case t.IsPunct(","):
		case isIdent(t):
			names = append(names, t.Text)
		default:
			return nil, k, p.errorAt(t, "unexpected %q in %s column list", t.Raw, what)
		}
	}
	return nil, k, p.errorAt(toks[k], "unterminated %s column list", what)
}

// parseReference reads "table [(cols)] [actions]" after REFERENCES.
func (p *parser) parseReference(toks []Token, k int) (dbobj.Constraint, int, error) {
	c := dbobj.Constraint{Kind: dbobj.ConstraintForeignKey}
	if k >= len(toks) || !isIdent(toks[k]) {
		return c, k, p.errorAt(toks[k-1], "expected table name after REFERENCES")
	}
	c.RefTable = toks[k].Text
	k++
	if k+1 < len(toks) && toks[k].IsPunct(".") && isIdent(toks[k+1]) {
		c.RefTable = toks[k+1].Text
		k += 2
	}
	if k < len(toks) && toks[k].IsPunct("(") {
		cols, next, err := p.identList(toks, k, "REFERENCES")
		if err != nil {
			return c, k, err
		}
		c.RefColumns = cols
		k = next
	}

	for k < len(toks) {
		t := toks[k]
		switch {
		case t.Is("match") && k+1 < len(toks):
			k += 2
		case t.Is("on") && k+2 < len(toks):
			k += 2
			switch {
			case toks[k].Is("set") || toks[k].Is("no"):
				k += 2
				if k < len(toks) && toks[k].IsPunct("(") {
					_, next, err := p.identList(toks, k, "ON DELETE SET")
					if err != nil {
						return c, k, err
					}
					k = next
				}
			default:
				k++
			}
		case t.Is("not") && k+1 < len(toks) && toks[k+1].Is("deferrable"):
			k += 2
		case t.Is("deferrable"):
			k++
		case t.Is("initially") && k+1 < len(toks):
			k += 2
		default:
			return c, k, nil
		}
	}
	return c, k, nil
}

func (p *parser) parseTableConstraint(elem []Token) (*dbobj.Constraint, error) {
	k := 0
	name := ""
	if elem[0].Is("constraint") {
		if len(elem) < 3 {
			return nil, p.errorAt(elem[0], "incomplete constraint definition")
		}
		name = elem[1].Text
		k = 2
	}

	t := elem[k]
	switch {
	case t.Is("primary") && k+1 < len(elem) && elem[k+1].Is("key"):
		cols, _, err := p.identList(elem, k+2, "PRIMARY KEY")
		if err != nil {
			return nil, err
		}
		return &dbobj.Constraint{Kind: dbobj.ConstraintPrimaryKey, Name: name, Fields: cols}, nil

	case t.Is("unique"):
		cols, _, err := p.identList(elem, skipNullsDistinct(elem, k+1), "UNIQUE")
		if err != nil {
			return nil, err
		}
		return &dbobj.Constraint{Kind: dbobj.ConstraintUnique, Name: name, Fields: cols}, nil

	case t.Is("foreign") && k+1 < len(elem) && elem[k+1].Is("key"):
		cols, next, err := p.identList(elem, k+2, "FOREIGN KEY")
		if err != nil {
			return nil, err
		}
		if next >= len(elem) || !elem[next].Is("references") {
			return nil, p.errorAt(t, "FOREIGN KEY without REFERENCES")
		}
		c, _, err := p.parseReference(elem, next+1)
		if err != nil {
			return nil, err
		}
		c.Name = name
		c.Fields = cols
		return &c, nil

	case t.Is("check"):
		expr, _, err := p.parenGroup(elem, k+1, "CHECK")
		if err != nil {
			return nil, err
		}
		return &dbobj.Constraint{Kind: dbobj.ConstraintCheck, Name: name, Expression: expr}, nil

	case t.Is("exclude"), t.Is("like"):
		return nil, nil
	}
	return nil, p.errorAt(t, "unsupported table constraint %q", t.Raw)
}

// applyTableConstraints folds table-level constraints into their fields.
func (p *parser) applyTableConstraints(obj *dbobj.SchemaObject, at Token) error {
	for _, c := range obj.Constraints {
		for _, col := range c.Fields {
			if _, ok := obj.Field(col); !ok {
				return p.errorAt(at, "%s constraint on table %q names unknown column %q", c.Kind, obj.Name, col)
			}
		}
		switch c.Kind {
		case dbobj.ConstraintPrimaryKey:
			for _, col := range c.Fields {
				f, _ := obj.Field(col)
				f.PrimaryKey = true
				f.Nullable = false
			}
		case dbobj.ConstraintUnique:
			if len(c.Fields) == 1 {
				f, _ := obj.Field(c.Fields[0])
				f.Unique = true
			}
		case dbobj.ConstraintForeignKey:
			for i, col := range c.Fields {
				f, _ := obj.Field(col)
				if f.References != nil {
					continue
				}
				f.References = &dbobj.ForeignKey{Table: c.RefTable}
				if i < len(c.RefColumns) {
					f.References.Column = c.RefColumns[i]
				}
			}
		}
	}
	return nil
}

func (p *parser) parseFunction(s, i, e int) (*dbobj.SchemaObject, error) {
	schema, name, i, err := p.qualifiedName(i, e)
	if err != nil {
		return nil, err
	}
	if i >= e || !p.toks[i].IsPunct("(") {
		if i < len(p.toks) {
			return nil, p.errorAt(p.toks[i], "expected '(' after function name %q", name)
		}
		return nil, p.errorAtEnd("expected '(' after function name %q", name)
	}
	open := i
	closeIdx := p.closeParen(open, e)
	if closeIdx < 0 {
		return nil, p.errorAt(p.toks[open], "unterminated parameter list of function %q", name)
	}

	obj := &dbobj.SchemaObject{
		Kind:   dbobj.KindFunction,
		Schema: schema,
		Name:   name,
		Span:   p.statementSpan(s, e),
	}

	params := p.splitTopLevel(open+1, closeIdx)
	seen := make(map[string]bool)
	for idx, elem := range params {
		if len(elem) == 0 {
			return nil, p.errorAt(p.toks[open], "empty parameter in function %q", name)
		}
		f, err := p.parseParam(elem, idx)
		if err != nil {
			return nil, err
		}
		if seen[f.Name] {
			return nil, p.errorAt(elem[0], "duplicate parameter %q in function %q", f.Name, name)
		}
		seen[f.Name] = true
		obj.Fields = append(obj.Fields, f)

		limit := p.toks[closeIdx].Start
		if idx+1 < len(params) && len(params[idx+1]) > 0 {
			limit = params[idx+1][0].Start
		}
		p.anchors = append(p.anchors, anchor{field: f.Name, start: f.Span.Start, end: f.Span.End, limit: limit})
	}

	rest := p.toks[closeIdx+1 : e]
	for k := 0; k < len(rest); k++ {
		switch {
		case rest[k].Is("returns") && obj.Returns == "":
			end := untilKeyword(rest, k+1, functionOptions)
			obj.Returns = Render(rest[k+1 : end])
			k = end - 1
		case rest[k].Is("language") && k+1 < len(rest):
			obj.Language = strings.ToLower(strings.Trim(rest[k+1].Text, "'"))
			k++
		}
	}
	return obj, nil
}

func (p *parser) parseParam(elem []Token, idx int) (dbobj.Field, error) {
	first := elem[0]
	f := dbobj.Field{
		Nullable: true,
		Span: dbobj.Span{
			Line:   first.Line,
			Column: first.Column,
			Start:  first.Start,
			End:    elem[len(elem)-1].End,
		},
	}

	k := 0
	if t := elem[0]; t.Is("in") || t.Is("out") || t.Is("inout") || t.Is("variadic") {
		k++
	}

	typeEnd := len(elem)
	depth := 0
	for j := k; j < len(elem); j++ {
		t := elem[j]
		if t.IsPunct("(") || t.IsPunct("[") {
			depth++
		} else if t.IsPunct(")") || t.IsPunct("]") {
			depth--
		} else if depth == 0 && (t.Is("default") || (t.Kind == TokenOperator && t.Raw == "=")) {
			typeEnd = j
			f.Default = Render(elem[j+1:])
			f.HasDefault = true
			break
		}
	}

	decl := elem[k:typeEnd]
	if len(decl) == 0 {
		return f, p.errorAt(first, "parameter %d has no type", idx+1)
	}
	named := len(decl) > 1 && isIdent(decl[0]) &&
		!(decl[0].Kind == TokenWord && multiWordTypeStarts[decl[0].Text]) &&
		!decl[1].IsPunct("(") && !decl[1].IsPunct("[") && !decl[1].IsPunct(".")
	if named {
		f.Name = decl[0].Text
		f.Type = Render(decl[1:])
	} else {
		f.Name = fmt.Sprintf("$%d", idx+1)
		f.Type = Render(decl)
	}
	return f, nil
}
