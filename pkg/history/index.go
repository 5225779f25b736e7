package history

import (
	"sync"

	"github.com/google/btree"

	"riskcore/pkg/common"
)

type item struct {
	rec common.PredictionRecord
}

func (i item) Less(than btree.Item) bool {
	return i.rec.Seq < than.(item).rec.Seq
}

// memIndex keeps the most recent prediction records ordered by sequence
// number for fast range and recent-N queries.
type memIndex struct {
	tree  *btree.BTree
	lock  sync.RWMutex
	limit int
}

func newMemIndex(degree, limit int) *memIndex {
	return &memIndex{
		tree:  btree.New(degree),
		limit: limit,
	}
}

func (mi *memIndex) Insert(rec common.PredictionRecord) {
	mi.lock.Lock()
	defer mi.lock.Unlock()

	mi.tree.ReplaceOrInsert(item{rec: rec})
	for mi.tree.Len() > mi.limit {
		mi.tree.DeleteMin()
	}
}

// Recent returns up to n records in ascending sequence order.
func (mi *memIndex) Recent(n int) []common.PredictionRecord {
	mi.lock.RLock()
	defer mi.lock.RUnlock()

	out := make([]common.PredictionRecord, 0, n)
	mi.tree.Descend(func(i btree.Item) bool {
		out = append(out, i.(item).rec)
		return len(out) < n
	})
	// flip back to ascending order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Range calls fn for every cached record with fromSeq <= Seq <= toSeq.
func (mi *memIndex) Range(fromSeq, toSeq uint64, fn func(common.PredictionRecord) bool) {
	mi.lock.RLock()
	defer mi.lock.RUnlock()

	mi.tree.AscendRange(
		item{rec: common.PredictionRecord{Seq: fromSeq}},
		item{rec: common.PredictionRecord{Seq: toSeq + 1}},
		func(i btree.Item) bool {
			return fn(i.(item).rec)
		})
}

func (mi *memIndex) Count() int {
	mi.lock.RLock()
	defer mi.lock.RUnlock()
	return mi.tree.Len()
}

func (mi *memIndex) Clear() {
	mi.lock.Lock()
	defer mi.lock.Unlock()
	mi.tree.Clear(false)
}
