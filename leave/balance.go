/*
balance.go - Per-owner annual balance summary

PURPOSE:
  The annual grant is a fixed per-employee constant (no accrual
  modeling); the balance is simply grant minus the sum of UsedLeaveDays
  across the owner's deductible records, with the per-record detail rows
  alongside for the report view.
*/
package leave

import (
	"context"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE
// =============================================================================

// Balance summarizes one member's consumption against the annual grant.
type Balance struct {
	Member    *Member
	Granted   decimal.Decimal
	Used      decimal.Decimal
	Remaining decimal.Decimal
	Details   []BalanceDetail
}

// BalanceDetail is one deductible record's contribution.
type BalanceDetail struct {
	Record *Record
	Days   decimal.Decimal
}

// BalanceReporter builds balance summaries.
type BalanceReporter struct {
	store   Store
	members MemberStore
	granted decimal.Decimal
}

// NewBalanceReporter creates a reporter with the configured annual grant.
func NewBalanceReporter(store Store, members MemberStore, grantedDays decimal.Decimal) *BalanceReporter {
	return &BalanceReporter{store: store, members: members, granted: grantedDays}
}

// BalanceFor summarizes one member.
func (r *BalanceReporter) BalanceFor(ctx context.Context, member *Member) (*Balance, error) {
	records, err := r.store.FindByOwner(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	used := decimal.Zero
	var details []BalanceDetail
	for _, rec := range records {
		if !rec.Type.Deductible() {
			continue
		}
		used = used.Add(rec.UsedDays())
		details = append(details, BalanceDetail{Record: rec, Days: rec.UsedDays()})
	}

	return &Balance{
		Member:    member,
		Granted:   r.granted,
		Used:      used,
		Remaining: r.granted.Sub(used),
		Details:   details,
	}, nil
}

// AllBalances summarizes every member.
func (r *BalanceReporter) AllBalances(ctx context.Context) ([]*Balance, error) {
	members, err := r.members.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	balances := make([]*Balance, 0, len(members))
	for _, m := range members {
		b, err := r.BalanceFor(ctx, m)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, nil
}
