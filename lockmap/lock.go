// Package lockmap provides one lock per inode number without keeping a lock
// for every inode.
//
// Lock entries are created on first use and dropped when the last holder or
// waiter lets go. The entry tables are sharded by inum % NSHARD so that
// operations on unrelated inodes rarely touch the same table.
package lockmap

import (
	"sync"

	"github.com/mit-pdos/raidfs/common"
)

type entry struct {
	mu   sync.Mutex
	refs uint64 // holders plus waiters
}

type shard struct {
	mu      *sync.Mutex
	entries map[common.Inum]*entry
}

func mkShard() *shard {
	return &shard{
		mu:      new(sync.Mutex),
		entries: make(map[common.Inum]*entry),
	}
}

func (s *shard) ref(inum common.Inum) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[inum]
	if !ok {
		e = &entry{}
		s.entries[inum] = e
	}
	e.refs++
	return e
}

func (s *shard) unref(inum common.Inum) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[inum]
	if !ok {
		panic("lockmap: release of unheld inode")
	}
	e.refs--
	if e.refs == 0 {
		delete(s.entries, inum)
	}
	return e
}

const NSHARD uint64 = 43

type LockMap struct {
	shards []*shard
}

func MkLockMap() *LockMap {
	shards := make([]*shard, NSHARD)
	for i := range shards {
		shards[i] = mkShard()
	}
	return &LockMap{shards: shards}
}

func (lmap *LockMap) shard(inum common.Inum) *shard {
	return lmap.shards[uint64(inum)%NSHARD]
}

func (lmap *LockMap) Acquire(inum common.Inum) {
	lmap.shard(inum).ref(inum).mu.Lock()
}

func (lmap *LockMap) Release(inum common.Inum) {
	lmap.shard(inum).unref(inum).mu.Unlock()
}
