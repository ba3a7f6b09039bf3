package replication

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vvka-141/dbobj/internal/registry"
	"github.com/vvka-141/dbobj/internal/retry"
	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Catalog queries.
const (
	queryWalLevel           = "SHOW wal_level"
	queryPublicationExists  = "SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_publication WHERE pubname = $1)"
	queryPublicationTables  = "SELECT schemaname || '.' || tablename FROM pg_catalog.pg_publication_tables WHERE pubname = $1 ORDER BY 1"
	querySubscriptionExists = "SELECT EXISTS (SELECT 1 FROM pg_catalog.pg_subscription WHERE subname = $1)"
)

// Dialer opens a connection to a replication endpoint. It makes a single
// attempt; an unreachable endpoint is fatal for the route.
type Dialer interface {
	Dial(ctx context.Context, endpoint dbobj.Endpoint) (dbobj.DBConnection, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, endpoint dbobj.Endpoint) (dbobj.DBConnection, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, endpoint dbobj.Endpoint) (dbobj.DBConnection, error) {
	return f(ctx, endpoint)
}

// Configurator reconciles replication routes with the live publication and
// subscription state.
type Configurator struct {
	registry *registry.Registry
	dialer   Dialer
	approver dbobj.Approver
	executor *retry.Executor
	logger   dbobj.Logger
}

// NewConfigurator panics if any dependency is nil.
func NewConfigurator(reg *registry.Registry, dialer Dialer, approver dbobj.Approver, executor *retry.Executor, logger dbobj.Logger) *Configurator {
	if reg == nil {
		panic("registry cannot be nil")
	}
	if dialer == nil {
		panic("dialer cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if executor == nil {
		panic("executor cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Configurator{registry: reg, dialer: dialer, approver: approver, executor: executor, logger: logger}
}

// session holds the open connections of one route.
type session struct {
	source dbobj.DBConnection
	target dbobj.DBConnection
}

func (s *session) close() {
	if s.source != nil {
		s.source.Close()
	}
	if s.target != nil {
		s.target.Close()
	}
}

// Plan validates route and computes its delta without changing anything.
func (c *Configurator) Plan(ctx context.Context, route *dbobj.ReplicationRoute) (*Plan, error) {
	identities, err := ResolveTables(c.registry, route)
	if err != nil {
		return nil, err
	}
	s, err := c.open(ctx, route)
	if err != nil {
		return nil, err
	}
	defer s.close()
	return c.plan(ctx, s, route, identities)
}

// Configure applies route: the publication delta in one transaction on the
// source, then the subscription on the target. Dropping tables requires
// approval. With dryRun set the plan is returned without executing it.
func (c *Configurator) Configure(ctx context.Context, route *dbobj.ReplicationRoute, dryRun bool) (*Plan, error) {
	identities, err := ResolveTables(c.registry, route)
	if err != nil {
		return nil, err
	}
	s, err := c.open(ctx, route)
	if err != nil {
		return nil, err
	}
	defer s.close()

	plan, err := c.plan(ctx, s, route, identities)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return plan, nil
	}
	if plan.Empty() {
		c.logger.Info("Replication %s is up to date", route)
		route.Applied = append([]string{}, plan.Requested...)
		return plan, nil
	}

	if plan.Destructive() {
		details := make([]string, 0, len(plan.Drop))
		for _, t := range plan.Drop {
			details = append(details, "DROP TABLE "+t+" from publication "+plan.Publication)
		}
		approved, err := c.approver.RequestApproval(ctx, plan.Publication, details)
		if err != nil {
			return nil, fmt.Errorf("approval failed: %w", err)
		}
		if !approved {
			return nil, fmt.Errorf("removing %d table(s) from %s: %w", len(plan.Drop), plan.Publication, dbobj.ErrApprovalDenied)
		}
	}

	if len(plan.PublicationStatements) > 0 {
		err := c.executor.Execute(ctx, func(ctx context.Context) error {
			return applyInTransaction(ctx, s.source, plan.PublicationStatements, c.logger)
		})
		if err != nil {
			return nil, &dbobj.ReplicationConfigError{
				Route:    route.String(),
				Endpoint: route.Source.String(),
				Reason:   "publication changes rolled back",
				Err:      err,
			}
		}
		c.logger.Info("Publication %s: +%d -%d table(s)", plan.Publication, len(plan.Add), len(plan.Drop))
	}

	if plan.SubscriptionStatement != "" {
		// CREATE SUBSCRIPTION cannot run inside a transaction block.
		c.logger.Verbose("%s", plan.display)
		if _, err := s.target.Exec(ctx, plan.SubscriptionStatement); err != nil {
			return nil, &dbobj.ReplicationConfigError{
				Route:    route.String(),
				Endpoint: route.Target.String(),
				Reason:   "subscription change failed after the publication was updated",
				Err:      err,
			}
		}
		c.logger.Info("Subscription %s is current", plan.Subscription)
	}

	route.Applied = append([]string{}, plan.Requested...)
	return plan, nil
}

// open connects to both endpoints, source first. A failure aborts the route.
func (c *Configurator) open(ctx context.Context, route *dbobj.ReplicationRoute) (*session, error) {
	s := &session{}
	var err error
	if s.source, err = c.dial(ctx, route, route.Source); err != nil {
		return nil, err
	}
	if s.target, err = c.dial(ctx, route, route.Target); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (c *Configurator) dial(ctx context.Context, route *dbobj.ReplicationRoute, ep dbobj.Endpoint) (dbobj.DBConnection, error) {
	c.logger.Verbose("Connecting to %s", ep)
	conn, err := c.dialer.Dial(ctx, ep)
	if err != nil {
		if !errors.Is(err, dbobj.ErrConnectionFailed) {
			err = fmt.Errorf("%w: %w", dbobj.ErrConnectionFailed, err)
		}
		return nil, &dbobj.ReplicationConfigError{
			Route:    route.String(),
			Endpoint: ep.String(),
			Reason:   "endpoint unreachable",
			Err:      err,
		}
	}
	return conn, nil
}

func (c *Configurator) plan(ctx context.Context, s *session, route *dbobj.ReplicationRoute, identities map[string]Identity) (*Plan, error) {
	fail := func(ep dbobj.Endpoint, reason string, err error) error {
		return &dbobj.ReplicationConfigError{Route: route.String(), Endpoint: ep.String(), Reason: reason, Err: err}
	}

	var walLevel string
	if err := s.source.QueryRow(ctx, queryWalLevel).Scan(&walLevel); err != nil {
		return nil, fail(route.Source, "cannot read wal_level", err)
	}
	if !strings.EqualFold(walLevel, "logical") {
		return nil, fail(route.Source, fmt.Sprintf("wal_level is %q, logical replication requires \"logical\"", walLevel), nil)
	}

	plan := &Plan{
		Route:        route.String(),
		Publication:  route.Publication,
		Subscription: route.Subscription,
	}
	for t := range identities {
		plan.Requested = append(plan.Requested, t)
	}
	plan.Requested = uniqueSorted(plan.Requested)

	if err := s.source.QueryRow(ctx, queryPublicationExists, route.Publication).Scan(&plan.PublicationExists); err != nil {
		return nil, fail(route.Source, "cannot read publication", err)
	}
	if plan.PublicationExists {
		applied, err := s.source.QueryStrings(ctx, queryPublicationTables, route.Publication)
		if err != nil {
			return nil, fail(route.Source, "cannot read publication tables", err)
		}
		plan.Applied = uniqueSorted(applied)
	}
	if err := s.target.QueryRow(ctx, querySubscriptionExists, route.Subscription).Scan(&plan.SubscriptionExists); err != nil {
		return nil, fail(route.Target, "cannot read subscription", err)
	}

	plan.Add, plan.Drop = diff(plan.Applied, plan.Requested)

	source := route.Source.Config
	if source == nil {
		return nil, fail(route.Source, "endpoint has no connection settings", dbobj.ErrInvalidConfig)
	}
	if !plan.SubscriptionExists && !staticCredentials(source.AuthMethod) {
		return nil, fail(route.Source,
			fmt.Sprintf("%s authentication issues short-lived tokens; a subscription needs a password or certificate", source.AuthMethod),
			dbobj.ErrInvalidConfig)
	}
	buildStatements(plan, identities, source)
	return plan, nil
}

func staticCredentials(m dbobj.AuthMethod) bool {
	return m == dbobj.AuthMethodStandard || m == dbobj.AuthMethodCertificate
}

// applyInTransaction runs statements in order and commits. Any failure rolls
// back so the previously applied state stays intact.
func applyInTransaction(ctx context.Context, conn dbobj.DBConnection, statements []string, logger dbobj.Logger) (err error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				logger.Error("rollback failed: %v", rbErr)
			}
		}
	}()

	for _, stmt := range statements {
		logger.Verbose("%s", stmt)
		if _, err = tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}
