package streamer

import (
	"github.com/strata3d/strata/engine/graph"
)

// loadQueue is a FIFO of NodeRecords awaiting load with a membership test:
// a record already queued is never enqueued twice, so the queue is bounded by
// the number of distinct nodes.
type loadQueue struct {
	items   []*graph.NodeRecord
	members map[int]struct{}
}

func newLoadQueue() *loadQueue {
	return &loadQueue{
		members: make(map[int]struct{}),
	}
}

// push appends a record. Records already queued are ignored, so the queue is
// bounded by the number of distinct nodes regardless of caller discipline.
func (q *loadQueue) push(record *graph.NodeRecord) {
	if _, queued := q.members[record.NodeIndex]; queued {
		return
	}
	q.members[record.NodeIndex] = struct{}{}
	q.items = append(q.items, record)
}

// pop removes and returns the oldest record, or nil when the queue is empty.
func (q *loadQueue) pop() *graph.NodeRecord {
	if len(q.items) == 0 {
		return nil
	}
	record := q.items[0]
	q.items = q.items[1:]
	delete(q.members, record.NodeIndex)
	return record
}

// contains reports whether a node is queued.
func (q *loadQueue) contains(nodeIndex int) bool {
	_, queued := q.members[nodeIndex]
	return queued
}

// len returns the number of queued records.
func (q *loadQueue) len() int {
	return len(q.items)
}

// clear empties the queue.
func (q *loadQueue) clear() {
	q.items = nil
	q.members = make(map[int]struct{})
}
