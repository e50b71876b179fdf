package lifecycle

import "testing"

func TestCheckTableMembership(t *testing.T) {
	tests := []struct {
		name    string
		family  Family
		from    Status
		to      Status
		wantErr bool
	}{
		{"equity propose to form", Equity, Proposed, Formed, false},
		{"equity form to settle", Equity, Formed, Settled, false},
		{"equity settle to propose is illegal", Equity, Settled, Proposed, true},
		{"cds form to credit event", CDS, Formed, CreditEvent, false},
		{"cds credit event to settle", CDS, CreditEvent, Settled, false},
		{"cds propose direct to settle is illegal", CDS, Proposed, Settled, true},
		{"swaption form to exercised", Swaption, Formed, Exercised, false},
		{"swaption form to expired", Swaption, Formed, Expired, false},
		{"swaption exercised to expired is illegal", Swaption, Exercised, Expired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.family, tt.from, tt.to)
			if tt.wantErr && err == nil {
				t.Errorf("Check(%s,%s,%s) = nil, want illegal-transition error", tt.family, tt.from, tt.to)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Check(%s,%s,%s) = %v, want nil", tt.family, tt.from, tt.to, err)
			}
		})
	}
}

func TestTerminalStatesHaveNoOutgoingEdges(t *testing.T) {
	for _, term := range []Status{Cancelled, Closed, Expired} {
		if !IsTerminal(term) {
			t.Errorf("expected %s to be terminal", term)
		}
		for _, family := range []Family{Generic, Equity, CDS, Swaption, Collateral} {
			if err := Check(family, term, Formed); err == nil {
				t.Errorf("Check(%s, %s, Formed) = nil, want illegal-transition error (terminal state must have no outgoing edges)", family, term)
			}
		}
	}
}
