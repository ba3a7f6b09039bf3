package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateRaw(t *testing.T) {
	calc := New()
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", calc.CalculateRaw(nil))
	assert.Len(t, calc.CalculateRaw([]byte("create table t (id int);")), 64)
	assert.NotEqual(t,
		calc.CalculateRaw([]byte("create table t (id int);")),
		calc.CalculateRaw([]byte("create table t (id  int);")),
	)
}

func TestCalculateNormalized(t *testing.T) {
	base := "CREATE TABLE users (\n  id int PRIMARY KEY,\n  name text\n);"

	tests := []struct {
		name    string
		content string
		same    bool
	}{
		{"identical", base, true},
		{"reformatted", "create table users(id INT primary key, name TEXT);", true},
		{"crlf line endings", "CREATE TABLE users (\r\n  id int PRIMARY KEY,\r\n  name text\r\n);", true},
		{"line comment", "-- users\n" + base, true},
		{"tag edit", "CREATE TABLE users (\n  id int PRIMARY KEY,\n  name text /* #list */\n);", true},
		{"type change", "CREATE TABLE users (\n  id int PRIMARY KEY,\n  name varchar(10)\n);", false},
		{"string literal case", "CREATE TABLE users (\n  id int PRIMARY KEY,\n  name text DEFAULT 'A'\n);", false},
		{"quoted identifier", "CREATE TABLE \"Users\" (\n  id int PRIMARY KEY,\n  name text\n);", false},
	}

	calc := New()
	want := calc.CalculateNormalized([]byte(base))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.CalculateNormalized([]byte(tt.content))
			if tt.same {
				assert.Equal(t, want, got)
			} else {
				assert.NotEqual(t, want, got)
			}
		})
	}
}

func TestCanonical_LiteralsKeepCase(t *testing.T) {
	assert.Equal(t,
		Canonical("create table t (s text default 'Mixed');"),
		Canonical("CREATE  TABLE T(S TEXT DEFAULT 'Mixed') ;"),
	)
}

func TestCanonical_FallbackOnLexError(t *testing.T) {
	assert.Equal(t, "create table t (s text default 'oops", Canonical("CREATE TABLE t (s text\n default 'oops"))
}
