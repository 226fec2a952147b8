package chain

import (
	"sync"
	"time"

	"github.com/R3E-Network/hiero_client/internal/wire"
)

// IDGenerator issues transaction ids whose valid start is strictly increasing
// per payer, so two submissions from one payer never collide.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last map[wire.EntityID]time.Time
}

// NewIDGenerator returns a generator reading the clock from now (time.Now if nil).
func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now, last: make(map[wire.EntityID]time.Time)}
}

// Next returns a fresh id for payer.
func (g *IDGenerator) Next(payer wire.EntityID) wire.TransactionID {
	g.mu.Lock()
	defer g.mu.Unlock()

	start := g.now().UTC()
	if prev, ok := g.last[payer]; ok && !start.After(prev) {
		start = prev.Add(time.Nanosecond)
	}
	g.last[payer] = start
	return wire.TransactionID{Payer: payer, ValidStart: wire.TimestampFromTime(start)}
}
