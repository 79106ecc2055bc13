package ledger

import "sync"

// keyedMutex serializes work per key while leaving different keys fully
// parallel. Reconciliations for one student must not interleave; students
// never contend with each other.
type keyedMutex struct {
	locks sync.Map
}

func (k *keyedMutex) lock(key string) func() {
	v, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
