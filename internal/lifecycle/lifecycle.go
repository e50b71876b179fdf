// Package lifecycle implements the position status transition tables of
// spec §3 "Lifecycle": a finite set of (from, to) pairs per instrument
// family. Any pair not in a family's table is an illegal transition;
// terminal states have no outgoing edges.
package lifecycle

import "github.com/attestor-io/core/pkg/cerrors"

// Status is the closed set of position lifecycle states plus
// instrument-family-specific extensions.
type Status string

const (
	Proposed  Status = "PROPOSED"
	Formed    Status = "FORMED"
	Settled   Status = "SETTLED"
	Cancelled Status = "CANCELLED"
	Closed    Status = "CLOSED"

	// CreditEvent is a CDS-family extension: the reference entity has
	// triggered a credit event and the position awaits protection
	// settlement.
	CreditEvent Status = "CREDIT_EVENT"
	// Exercised is an option/swaption-family extension: the holder has
	// exercised and the position awaits cash settlement.
	Exercised Status = "EXERCISED"
	// Expired is an option/swaption-family extension: the position
	// lapsed unexercised.
	Expired Status = "EXPIRED"
)

// Family names an instrument family whose transition table may differ
// from the generic one.
type Family string

const (
	Generic   Family = "GENERIC"
	Equity    Family = "EQUITY"
	CDS       Family = "CDS"
	Swaption  Family = "SWAPTION"
	Collateral Family = "COLLATERAL"
)

type edge struct {
	from, to Status
}

var tables = map[Family]map[edge]bool{
	Generic: edgeSet(
		edge{Proposed, Formed},
		edge{Formed, Settled},
		edge{Formed, Cancelled},
		edge{Proposed, Cancelled},
		edge{Settled, Closed},
	),
	Equity: edgeSet(
		edge{Proposed, Formed},
		edge{Formed, Settled},
		edge{Formed, Cancelled},
		edge{Proposed, Cancelled},
		edge{Settled, Closed},
	),
	CDS: edgeSet(
		edge{Proposed, Formed},
		edge{Formed, Cancelled},
		edge{Proposed, Cancelled},
		edge{Formed, CreditEvent},
		edge{CreditEvent, Settled},
		edge{Formed, Closed},
		edge{Settled, Closed},
	),
	Swaption: edgeSet(
		edge{Proposed, Formed},
		edge{Formed, Cancelled},
		edge{Proposed, Cancelled},
		edge{Formed, Exercised},
		edge{Formed, Expired},
		edge{Exercised, Settled},
		edge{Settled, Closed},
	),
	Collateral: edgeSet(
		edge{Proposed, Formed},
		edge{Formed, Settled},
		edge{Settled, Settled}, // substitution keeps the position FORMED/SETTLED, re-entrant
		edge{Settled, Closed},
	),
}

func edgeSet(edges ...edge) map[edge]bool {
	m := make(map[edge]bool, len(edges))
	for _, e := range edges {
		m[e] = true
	}
	return m
}

var terminal = map[Status]bool{
	Cancelled: true,
	Closed:    true,
	Expired:   true,
}

// Check reports whether (from, to) is a legal transition for family. Any
// pair not in the family's table is illegal, including every pair whose
// from is a terminal state (spec §3 "Terminal states have no outgoing
// edges").
func Check(family Family, from, to Status) *cerrors.Error {
	table, ok := tables[family]
	if !ok {
		table = tables[Generic]
	}
	if terminal[from] {
		return cerrors.IllegalTransition(string(family), string(from), string(to))
	}
	if !table[edge{from, to}] {
		return cerrors.IllegalTransition(string(family), string(from), string(to))
	}
	return nil
}

// IsTerminal reports whether status has no outgoing edges in any family.
func IsTerminal(status Status) bool {
	return terminal[status]
}
