package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"unistock/internal/core/apperror"
	"unistock/internal/core/id"
	"unistock/internal/core/types"
)

// MemStore is an in-memory Store with transactional semantics, used in
// tests and local development. It enforces the same batch atomicity and
// non-negative balance constraint as the PostgreSQL store, and serializes
// transactions with a single lock so check-and-append sequences running
// under RunInTransaction never interleave.
type MemStore struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemStore creates an empty in-memory ledger store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

type memTxKey struct{}

// RunInTransaction implements tx.Manager. The whole store is locked for
// the duration of fn; on error every entry appended inside fn is discarded.
func (m *MemStore) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		// Nested call reuses the outer transaction.
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := len(m.entries)
	ctx = context.WithValue(ctx, memTxKey{}, true)
	if err := fn(ctx); err != nil {
		m.entries = m.entries[:snapshot]
		return err
	}
	return nil
}

// ReadOnly runs fn under the same store lock as a regular transaction.
// The in-memory store has no access modes, so the only guarantee carried
// over is that fn sees one consistent snapshot.
func (m *MemStore) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}

// lock acquires the store lock unless the context already holds it via
// RunInTransaction. Returns an unlock func.
func (m *MemStore) lock(ctx context.Context) func() {
	if ctx.Value(memTxKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// Append implements Store. The batch is all-or-nothing: validation and the
// non-negativity constraint are checked before anything is recorded.
func (m *MemStore) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	unlock := m.lock(ctx)
	defer unlock()

	for i := range entries {
		if err := entries[i].Validate(); err != nil {
			return err
		}
		if id.IsNil(entries[i].ID) {
			entries[i].ID = id.New()
		}
		if entries[i].CreatedAt.IsZero() {
			entries[i].CreatedAt = time.Now().UTC()
		}
	}

	// Mirror of the reg_balances CHECK constraint: reject batches that
	// would drive any partition negative.
	deltas := make(map[Key]types.Quantity)
	for _, e := range entries {
		deltas[e.Key()] += e.QtyDelta
	}
	for key, delta := range deltas {
		if m.balanceLocked(key)+delta < 0 {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "balance constraint violated").
				WithDetail("itemId", key.ItemID.String()).
				WithDetail("variantId", key.VariantID.String()).
				WithDetail("lot", string(key.Lot))
		}
	}

	m.entries = append(m.entries, entries...)
	return nil
}

// Query implements Store.
func (m *MemStore) Query(ctx context.Context, filter Filter) ([]Entry, error) {
	unlock := m.lock(ctx)
	defer unlock()

	var out []Entry
	for _, e := range m.entries {
		if !matches(&e, &filter) {
			continue
		}
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// BalanceForUpdate implements the balance Guard. The transaction lock held
// by RunInTransaction already excludes concurrent commits, so this is a
// plain read.
func (m *MemStore) BalanceForUpdate(ctx context.Context, key Key) (types.Quantity, error) {
	unlock := m.lock(ctx)
	defer unlock()
	return m.balanceLocked(key), nil
}

func (m *MemStore) balanceLocked(key Key) types.Quantity {
	var total types.Quantity
	for _, e := range m.entries {
		if e.Key() == key {
			total += e.QtyDelta
		}
	}
	return total
}

func matches(e *Entry, f *Filter) bool {
	if f.ItemID != nil && e.ItemID != *f.ItemID {
		return false
	}
	if f.VariantID != nil && e.VariantID != *f.VariantID {
		return false
	}
	if f.Lot != nil && e.Lot != *f.Lot {
		return false
	}
	if f.RefID != nil && e.RefID != *f.RefID {
		return false
	}
	if len(f.Kinds) > 0 {
		found := false
		for _, k := range f.Kinds {
			if e.Kind == k {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.FromDate != nil && e.CreatedAt.Before(*f.FromDate) {
		return false
	}
	if f.ToDate != nil && !e.CreatedAt.Before(*f.ToDate) {
		return false
	}
	return true
}

var _ Store = (*MemStore)(nil)
