package childtracker

import (
	"context"
	"time"
)

// StateChange records one change of visibility state.
type StateChange struct {
	ElementID string    `json:"element" yaml:"element"`
	From      StateID   `json:"from" yaml:"from"`
	To        StateID   `json:"to" yaml:"to"`
	At        time.Time `json:"at" yaml:"at"`
}

// Publisher receives transitions. Publish is called with the tracker's lock
// held and must not block.
type Publisher interface {
	Publish(ctx context.Context, tr StateChange) error
}

// ChannelPublisher forwards transitions to a Go channel.
// Non-blocking publish with drop on backpressure.
type ChannelPublisher struct {
	ch chan<- StateChange
}

// NewChannelPublisher creates a ChannelPublisher with the given output channel.
func NewChannelPublisher(ch chan<- StateChange) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

func (p *ChannelPublisher) Publish(ctx context.Context, tr StateChange) error {
	select {
	case p.ch <- tr:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil // Non-blocking drop
	}
}

func (p *ChannelPublisher) Close() error {
	close(p.ch)
	return nil
}
