package replication

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// fakeServer is an in-memory PostgreSQL stand-in that understands the
// statements the configurator emits.
type fakeServer struct {
	mu sync.Mutex

	walLevel      string
	publications  map[string][]string
	subscriptions map[string]bool

	// executed lists every statement that took effect, in order.
	executed []string

	// failOn makes the first failTimes statements containing it fail with failErr.
	failOn    string
	failErr   error
	failTimes int

	commits   int
	rollbacks int
	closed    int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		walLevel:      "logical",
		publications:  make(map[string][]string),
		subscriptions: make(map[string]bool),
	}
}

func (s *fakeServer) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executed = nil
	s.commits, s.rollbacks = 0, 0
}

func (s *fakeServer) statements(containing string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, stmt := range s.executed {
		if strings.Contains(stmt, containing) {
			out = append(out, stmt)
		}
	}
	return out
}

func (s *fakeServer) check(stmt string) error {
	if s.failOn != "" && s.failTimes > 0 && strings.Contains(stmt, s.failOn) {
		s.failTimes--
		return s.failErr
	}
	return nil
}

// apply mutates catalog state for stmt. Caller holds mu.
func (s *fakeServer) apply(stmt string) {
	s.executed = append(s.executed, stmt)
	words := strings.Fields(stmt)
	switch {
	case strings.HasPrefix(stmt, "CREATE PUBLICATION "):
		s.publications[words[2]] = nil
	case strings.HasPrefix(stmt, "ALTER PUBLICATION "):
		name, op := words[2], words[3]
		_, list, _ := strings.Cut(stmt, " TABLE ")
		tables := strings.Split(list, ", ")
		current := s.publications[name]
		if op == "ADD" {
			current = append(current, tables...)
		} else {
			drop := make(map[string]bool)
			for _, t := range tables {
				drop[t] = true
			}
			kept := current[:0]
			for _, t := range current {
				if !drop[t] {
					kept = append(kept, t)
				}
			}
			current = kept
		}
		sort.Strings(current)
		s.publications[name] = current
	case strings.HasPrefix(stmt, "CREATE SUBSCRIPTION "):
		s.subscriptions[words[2]] = true
	}
}

func (s *fakeServer) conn() *fakeConn { return &fakeConn{server: s} }

type fakeConn struct {
	server *fakeServer
}

func (c *fakeConn) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	s.apply(sql)
	return pgconn.NewCommandTag("OK"), nil
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) dbobj.Row {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	switch sql {
	case queryWalLevel:
		return fakeRow{value: s.walLevel}
	case queryPublicationExists:
		_, ok := s.publications[args[0].(string)]
		return fakeRow{value: ok}
	case querySubscriptionExists:
		return fakeRow{value: s.subscriptions[args[0].(string)]}
	}
	return fakeRow{err: fmt.Errorf("unexpected query %q", sql)}
}

func (c *fakeConn) QueryStrings(_ context.Context, sql string, args ...any) ([]string, error) {
	s := c.server
	s.mu.Lock()
	defer s.mu.Unlock()
	if sql != queryPublicationTables {
		return nil, fmt.Errorf("unexpected query %q", sql)
	}
	return append([]string{}, s.publications[args[0].(string)]...), nil
}

func (c *fakeConn) Begin(context.Context) (dbobj.Tx, error) {
	return &fakeTx{server: c.server}, nil
}

func (c *fakeConn) Ping(context.Context) error { return nil }

func (c *fakeConn) Close() {
	c.server.mu.Lock()
	c.server.closed++
	c.server.mu.Unlock()
}

// fakeTx buffers statements until Commit.
type fakeTx struct {
	server  *fakeServer
	pending []string
	done    bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.server.mu.Lock()
	defer t.server.mu.Unlock()
	if err := t.server.check(sql); err != nil {
		return pgconn.CommandTag{}, err
	}
	t.pending = append(t.pending, sql)
	return pgconn.NewCommandTag("OK"), nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.server.mu.Lock()
	defer t.server.mu.Unlock()
	if t.done {
		return errors.New("transaction already closed")
	}
	t.done = true
	for _, stmt := range t.pending {
		t.server.apply(stmt)
	}
	t.server.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.server.mu.Lock()
	defer t.server.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.pending = nil
	t.server.rollbacks++
	return nil
}

type fakeRow struct {
	value any
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *string:
		*d = r.value.(string)
	case *bool:
		*d = r.value.(bool)
	default:
		return fmt.Errorf("unsupported scan target %T", dest[0])
	}
	return nil
}

// fakeDialer maps endpoint names to servers and counts dial attempts.
type fakeDialer struct {
	servers map[string]*fakeServer
	failing map[string]error
	dials   map[string]int
}

func newFakeDialer(servers map[string]*fakeServer) *fakeDialer {
	return &fakeDialer{servers: servers, failing: make(map[string]error), dials: make(map[string]int)}
}

func (d *fakeDialer) Dial(_ context.Context, ep dbobj.Endpoint) (dbobj.DBConnection, error) {
	d.dials[ep.Name]++
	if err := d.failing[ep.Name]; err != nil {
		return nil, err
	}
	s, ok := d.servers[ep.Name]
	if !ok {
		return nil, fmt.Errorf("no server for %s", ep.Name)
	}
	return s.conn(), nil
}

// stubApprover returns a fixed answer and records the subject.
type stubApprover struct {
	approve  bool
	subjects []string
	details  [][]string
}

func (a *stubApprover) RequestApproval(_ context.Context, subject string, details []string) (bool, error) {
	a.subjects = append(a.subjects, subject)
	a.details = append(a.details, details)
	return a.approve, nil
}

var (
	_ dbobj.DBConnection = (*fakeConn)(nil)
	_ dbobj.Tx           = (*fakeTx)(nil)
	_ Dialer             = (*fakeDialer)(nil)
	_ dbobj.Approver     = (*stubApprover)(nil)
)
