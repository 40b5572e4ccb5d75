package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/tdex-network/escrowd/internal/core/domain"
)

// store holds the committed state. Writers are serialized by writer for the
// whole duration of a transaction, while lock only protects the maps.
type store struct {
	lock   sync.RWMutex
	writer sync.Mutex

	assets   map[string]domain.Asset
	holdings map[string]domain.Holding
	offers   map[string]domain.Offer
	vaults   map[string]domain.Vault
}

func newStore() *store {
	return &store{
		assets:   make(map[string]domain.Asset),
		holdings: make(map[string]domain.Holding),
		offers:   make(map[string]domain.Offer),
		vaults:   make(map[string]domain.Vault),
	}
}

// tx stages the changes of a transaction. A nil entry marks a deletion.
type tx struct {
	assets   map[string]*domain.Asset
	holdings map[string]*domain.Holding
	offers   map[string]*domain.Offer
	vaults   map[string]*domain.Vault
}

func newTx() *tx {
	return &tx{
		assets:   make(map[string]*domain.Asset),
		holdings: make(map[string]*domain.Holding),
		offers:   make(map[string]*domain.Offer),
		vaults:   make(map[string]*domain.Vault),
	}
}

func txFromContext(ctx context.Context) *tx {
	if t, ok := ctx.Value("tx").(*tx); ok {
		return t
	}
	return nil
}

func (s *store) commit(t *tx) {
	s.lock.Lock()
	defer s.lock.Unlock()

	apply(s.assets, t.assets)
	apply(s.holdings, t.holdings)
	apply(s.offers, t.offers)
	apply(s.vaults, t.vaults)
}

func apply[T any](rows map[string]T, staged map[string]*T) {
	for key, v := range staged {
		if v == nil {
			delete(rows, key)
			continue
		}
		rows[key] = *v
	}
}

func lookup[T any](
	lock *sync.RWMutex, rows map[string]T, staged map[string]*T, key string,
) (*T, bool) {
	if staged != nil {
		if v, ok := staged[key]; ok {
			if v == nil {
				return nil, false
			}
			cp := *v
			return &cp, true
		}
	}

	lock.RLock()
	defer lock.RUnlock()

	v, ok := rows[key]
	if !ok {
		return nil, false
	}
	return &v, true
}

func scan[T any](
	lock *sync.RWMutex, rows map[string]T, staged map[string]*T,
) []T {
	lock.RLock()
	merged := make(map[string]T, len(rows))
	for key, v := range rows {
		merged[key] = v
	}
	lock.RUnlock()

	apply(merged, staged)

	keys := make([]string, 0, len(merged))
	for key := range merged {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	list := make([]T, 0, len(keys))
	for _, key := range keys {
		list = append(list, merged[key])
	}
	return list
}

func put[T any](
	lock *sync.RWMutex, rows map[string]T, staged map[string]*T, key string,
	v T,
) {
	if staged != nil {
		staged[key] = &v
		return
	}

	lock.Lock()
	defer lock.Unlock()
	rows[key] = v
}

func remove[T any](
	lock *sync.RWMutex, rows map[string]T, staged map[string]*T, key string,
) {
	if staged != nil {
		staged[key] = nil
		return
	}

	lock.Lock()
	defer lock.Unlock()
	delete(rows, key)
}
