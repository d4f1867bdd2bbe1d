package application

import (
	"sort"

	"github.com/vinco360/crm-replicator/internal/domain"
)

// Execution priority per entity kind; higher runs earlier, default is 0.
// Redemption handlers resolve their sibling event and account by scanning the
// rest of the package, so redemptions go first. The rule is data, not a
// special-cased branch, and the sort is stable: relative order of everything
// else is preserved.
var executionPriority = map[domain.EntityKind]int{
	domain.KindRedemption: 100,
}

// Orderer imposes the deterministic execution order of a package's records.
type Orderer struct {
	priority map[domain.EntityKind]int
}

func NewOrderer() *Orderer {
	return &Orderer{priority: executionPriority}
}

func (o *Orderer) rank(kind domain.EntityKind) int {
	return o.priority[kind]
}

// Order returns a new slice with the package's records in execution order.
// Applying Order to its own output is a no-op.
func (o *Orderer) Order(records []domain.MutationRecord) []domain.MutationRecord {
	out := make([]domain.MutationRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return o.rank(out[i].Kind) > o.rank(out[j].Kind)
	})
	return out
}
