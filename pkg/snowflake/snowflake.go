// Package snowflake generates 64-bit, time-ordered message ids. Ids sort by
// generation time, so they double as the clustering key for message storage.
package snowflake

import (
	"errors"
	"sync"
	"time"
)

const (
	nodeBits  = 10
	stepBits  = 12
	nodeMax   = -1 ^ (-1 << nodeBits)
	stepMask  = -1 ^ (-1 << stepBits)
	timeShift = nodeBits + stepBits
	nodeShift = stepBits

	// Custom epoch: 2024-01-01 00:00:00 UTC.
	epoch int64 = 1704067200000
)

// Node hands out ids for a single service instance. Each deployed instance
// must be configured with a distinct node number (0-1023).
type Node struct {
	mu   sync.Mutex
	last int64
	node int64
	step int64
}

func NewNode(node int64) (*Node, error) {
	if node < 0 || node > nodeMax {
		return nil, errors.New("snowflake: node number must be between 0 and 1023")
	}
	return &Node{node: node}, nil
}

// Generate returns the next id. Safe for concurrent use.
func (n *Node) Generate() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < n.last {
		// Clock went backwards; hold at the last observed millisecond so ids
		// stay monotonic.
		now = n.last
	}

	if now == n.last {
		n.step = (n.step + 1) & stepMask
		if n.step == 0 {
			for now <= n.last {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		n.step = 0
	}
	n.last = now

	return ((now - epoch) << timeShift) | (n.node << nodeShift) | n.step
}
