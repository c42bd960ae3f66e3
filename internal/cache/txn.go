package cache

import "sync"

// Txn is an optimistic change to one entry that can be rolled back to the state captured by [Store.Begin].
type Txn struct {
	store    *Store
	key      Key
	snapshot Entry
	existed  bool

	once sync.Once
}

// Begin snapshots key.
func (s *Store) Begin(key Key) *Txn {
	e, ok := s.Get(key)
	return &Txn{store: s, key: key, snapshot: e, existed: ok}
}

// Snapshot returns the value captured when the transaction began.
func (t *Txn) Snapshot() (any, bool) {
	return t.snapshot.Value, t.existed
}

// Apply updates the entry through [Store.Update].
func (t *Txn) Apply(fn func(old any, ok bool) (any, bool)) bool {
	return t.store.Update(t.key, fn)
}

// Commit keeps the applied change. Subsequent Rollback calls are no-ops.
func (t *Txn) Commit() {
	t.once.Do(func() {})
}

// Rollback restores the exact snapshot, discarding any write that landed after Begin.
// A key that did not exist at Begin is removed.
func (t *Txn) Rollback() {
	t.once.Do(func() {
		t.store.restore(t.key, t.snapshot, t.existed)
	})
}

// Optimistic applies change to key, runs mutate, and rolls back when mutate fails.
// The mutation error is returned unchanged.
func Optimistic[T any](s *Store, key Key, change func(old T, ok bool) (T, bool), mutate func() error) error {
	txn := s.Begin(key)
	txn.Apply(func(old any, ok bool) (any, bool) {
		typed, isT := old.(T)
		return change(typed, ok && isT)
	})

	if err := mutate(); err != nil {
		txn.Rollback()
		return err
	}
	txn.Commit()
	return nil
}
