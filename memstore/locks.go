package memstore

import "sync"

// lockTable hands out one mutex per row key. A transaction keeps every mutex
// it takes until commit or rollback.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

func (l *lockTable) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

func itemKey(id string) string { return "inventory_item:" + id }
func categoryKey(id string) string { return "category:" + id }
func saleKey(id string) string { return "sale:" + id }
func skuKey(sku string) string { return "inventory_sku:" + sku }
func categoryNameKey(n string) string { return "category_name:" + n }

const capitalKey = "capital_structure"
