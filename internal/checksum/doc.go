// Package checksum fingerprints object definition files.
//
// Two digests are produced per file:
//
//   - Raw: SHA-256 of the exact bytes, which changes on any edit.
//   - Normalized: SHA-256 of the canonical token stream of the DDL, with
//     comments dropped, keywords and unquoted identifiers lower-cased and
//     whitespace collapsed. Reformatting a file or editing its tags does not
//     change it; changing a column, type or default does.
//
// Manifests record the normalized digest so check-version can tell a changed
// definition from a cosmetic edit.
package checksum
