// Package ddl turns the text of one object definition file into a
// dbobj.SchemaObject.
//
// Parsing happens in three steps:
//
//  1. Normalize rewrites line endings and strips escape artifacts left by
//     tools that stored the SQL as an escaped string.
//  2. Lex runs a state machine over the normalized text. It understands line
//     comments, nested block comments, single-quoted literals, quoted
//     identifiers and dollar-quoted bodies, so that delimiters inside any of
//     them never confuse the parser.
//  3. Parse walks the token stream to find the CREATE TABLE or
//     CREATE FUNCTION statement and extracts fields and constraints.
//
// Block comments are returned alongside the object so the tags package can
// attach metadata to the field or table they belong to.
//
// Parsing is pure: the same text always produces the same object.
package ddl
