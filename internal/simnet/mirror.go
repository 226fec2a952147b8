package simnet

import (
	"sync"

	"github.com/R3E-Network/hiero_client/internal/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type mirrorFault struct {
	after int
	code  codes.Code
}

// Mirror streams confirmed topic messages: history first, then live messages
// as they reach consensus.
type Mirror struct {
	net *Network

	mu     sync.Mutex
	faults []mirrorFault
	opened int
	sent   int
	active int
}

var _ wire.MirrorServer = (*Mirror)(nil)

// NewMirror returns a mirror over net.
func NewMirror(net *Network) *Mirror {
	return &Mirror{net: net}
}

// ScriptFault makes the next subscription fail with code after it has sent
// after frames. Scripted faults are consumed one per subscription.
func (m *Mirror) ScriptFault(after int, code codes.Code) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, mirrorFault{after: after, code: code})
}

// Opened returns how many subscriptions were accepted.
func (m *Mirror) Opened() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// Sent returns how many frames were sent across all subscriptions.
func (m *Mirror) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent
}

// Active returns how many subscriptions are currently streaming.
func (m *Mirror) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Mirror) SubscribeTopic(q *wire.TopicQuery, stream wire.TopicSender) error {
	switch m.net.kindOf(q.Topic) {
	case "topic":
	case "":
		return status.Errorf(codes.NotFound, "topic %s not found", q.Topic)
	default:
		return status.Errorf(codes.InvalidArgument, "%s is not a topic", q.Topic)
	}

	m.mu.Lock()
	m.opened++
	m.active++
	fault := mirrorFault{after: -1}
	if len(m.faults) > 0 {
		fault = m.faults[0]
		m.faults = m.faults[1:]
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()

	ctx := stream.Context()
	var sent uint64
	next := 0
	for {
		batch, changed := m.net.messagesSince(q.Topic, next)
		next += len(batch)
		for _, msg := range batch {
			if q.Start != nil && msg.ConsensusTimestamp.Before(*q.Start) {
				continue
			}
			if q.End != nil && !msg.ConsensusTimestamp.Before(*q.End) {
				return nil
			}
			if fault.after >= 0 && int(sent) == fault.after {
				return status.Errorf(fault.code, "scripted fault after %d frames", sent)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
			sent++
			m.mu.Lock()
			m.sent++
			m.mu.Unlock()
			if q.Limit > 0 && sent >= q.Limit {
				return nil
			}
		}
		if fault.after >= 0 && int(sent) == fault.after {
			return status.Errorf(fault.code, "scripted fault after %d frames", sent)
		}
		select {
		case <-ctx.Done():
			return status.FromContextError(ctx.Err()).Err()
		case <-changed:
		}
	}
}
