package replication

import (
	"fmt"
	"strings"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// Plan is the delta between a route's applied and requested table sets and
// the statements that reconcile them.
type Plan struct {
	Route string

	Publication        string
	PublicationExists  bool
	Subscription       string
	SubscriptionExists bool

	Requested []string
	Applied   []string
	Add       []string
	Drop      []string

	// PublicationStatements run in one transaction on the source.
	PublicationStatements []string
	// SubscriptionStatement runs on the target after commit; empty when the
	// subscription is current.
	SubscriptionStatement string

	// display is SubscriptionStatement with the password masked.
	display string
}

// Empty reports whether applying the plan would change nothing.
func (p *Plan) Empty() bool {
	return len(p.PublicationStatements) == 0 && p.SubscriptionStatement == ""
}

// Destructive reports whether the plan removes tables from the publication.
func (p *Plan) Destructive() bool {
	return len(p.Drop) > 0
}

// Statements returns every statement in execution order.
func (p *Plan) Statements() []string {
	out := append([]string{}, p.PublicationStatements...)
	if p.SubscriptionStatement != "" {
		out = append(out, p.SubscriptionStatement)
	}
	return out
}

// String renders the plan for dry runs.
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Route %s\n", p.Route)
	fmt.Fprintf(&b, "  publication  %s (%s)\n", p.Publication, existence(p.PublicationExists))
	fmt.Fprintf(&b, "  subscription %s (%s)\n", p.Subscription, existence(p.SubscriptionExists))
	if p.Empty() {
		b.WriteString("  up to date\n")
		return b.String()
	}
	for _, t := range p.Add {
		fmt.Fprintf(&b, "  + %s\n", t)
	}
	for _, t := range p.Drop {
		fmt.Fprintf(&b, "  - %s\n", t)
	}
	for _, s := range p.PublicationStatements {
		fmt.Fprintf(&b, "  %s;\n", s)
	}
	if p.display != "" {
		fmt.Fprintf(&b, "  %s;\n", p.display)
	}
	return b.String()
}

func existence(ok bool) string {
	if ok {
		return "exists"
	}
	return "missing"
}

// diff returns the members of want missing from have and the members of have
// missing from want. Both inputs are sorted.
func diff(have, want []string) (add, drop []string) {
	i, j := 0, 0
	for i < len(have) || j < len(want) {
		switch {
		case i == len(have):
			add = append(add, want[j])
			j++
		case j == len(want):
			drop = append(drop, have[i])
			i++
		case have[i] == want[j]:
			i++
			j++
		case have[i] < want[j]:
			drop = append(drop, have[i])
			i++
		default:
			add = append(add, want[j])
			j++
		}
	}
	return add, drop
}

func tableList(tables []string) string {
	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = quoteQualified(t)
	}
	return strings.Join(quoted, ", ")
}

// buildStatements fills the statement fields of p. identities covers every
// requested table.
func buildStatements(p *Plan, identities map[string]Identity, source *dbobj.ConnectionConfig) {
	pub := quoteIdent(p.Publication)
	if !p.PublicationExists {
		p.PublicationStatements = append(p.PublicationStatements, "CREATE PUBLICATION "+pub)
	}
	for _, t := range p.Add {
		if id := identities[t]; id.Tagged() {
			p.PublicationStatements = append(p.PublicationStatements, id.Statement())
		}
	}
	if len(p.Add) > 0 {
		p.PublicationStatements = append(p.PublicationStatements,
			fmt.Sprintf("ALTER PUBLICATION %s ADD TABLE %s", pub, tableList(p.Add)))
	}
	if len(p.Drop) > 0 {
		p.PublicationStatements = append(p.PublicationStatements,
			fmt.Sprintf("ALTER PUBLICATION %s DROP TABLE %s", pub, tableList(p.Drop)))
	}

	sub := quoteIdent(p.Subscription)
	switch {
	case !p.SubscriptionExists:
		create := "CREATE SUBSCRIPTION %s CONNECTION %s PUBLICATION %s"
		p.SubscriptionStatement = fmt.Sprintf(create, sub, quoteLiteral(ConnInfo(source)), pub)
		masked := *source
		if masked.Password != "" {
			masked.Password = "xxxxx"
		}
		p.display = fmt.Sprintf(create, sub, quoteLiteral(ConnInfo(&masked)), pub)
	case len(p.Add) > 0 || len(p.Drop) > 0:
		p.SubscriptionStatement = fmt.Sprintf("ALTER SUBSCRIPTION %s REFRESH PUBLICATION", sub)
		p.display = p.SubscriptionStatement
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
