// Package replication configures PostgreSQL logical replication routes
// between an application database and a named peer.
//
// A route's publication lives on the source endpoint and its subscription on
// the target. Configure compares the publication's live table set with the
// requested one and emits only the difference, so running it again with the
// same table list changes nothing. Publication changes for one route commit
// in a single transaction; the subscription is created or refreshed
// afterwards because CREATE SUBSCRIPTION cannot run inside a transaction.
//
// Replica identity comes from a field tagged #replica-identity, which must be
// covered by a unique constraint over NOT NULL columns, or from the primary
// key. A table tagged #replica-identity=full uses REPLICA IDENTITY FULL.
package replication
