package comm

import (
	"bytes"
	"context"
	"fmt"
)

// DefaultQueueDepth is the number of messages buffered per ordered pair of
// ranks in a local group.
const DefaultQueueDepth = 16

type message struct {
	tag  int
	data []byte
}

type localGroup struct {
	size  int
	links [][]chan message // links[src][dst]
}

type localComm struct {
	group *localGroup
	rank  int
}

// NewLocalGroup returns the communicators of a group of size ranks that
// exchange messages over in-process channels. Each call creates an
// independent group.
func NewLocalGroup(size int) ([]Communicator, error) {
	return NewLocalGroupDepth(size, DefaultQueueDepth)
}

// NewLocalGroupDepth is NewLocalGroup with an explicit per-pair queue
// depth. A depth of 0 makes every Send wait for the matching Recv.
func NewLocalGroupDepth(size, depth int) ([]Communicator, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	g := &localGroup{size: size, links: make([][]chan message, size)}
	for src := range g.links {
		g.links[src] = make([]chan message, size)
		for dst := range g.links[src] {
			if src != dst {
				g.links[src][dst] = make(chan message, max(depth, 0))
			}
		}
	}
	comms := make([]Communicator, size)
	for r := range comms {
		comms[r] = &localComm{group: g, rank: r}
	}
	return comms, nil
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.group.size }

func (c *localComm) peer(r int) error {
	if err := CheckRank(c, r); err != nil {
		return err
	}
	if r == c.rank {
		return fmt.Errorf("%w: rank %d", ErrSelfMessage, r)
	}
	return nil
}

func (c *localComm) Send(ctx context.Context, dest, tag int, data []byte) error {
	if err := c.peer(dest); err != nil {
		return err
	}
	m := message{tag: tag, data: bytes.Clone(data)}
	select {
	case c.group.links[c.rank][dest] <- m:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("comm: send %d->%d tag %d: %w", c.rank, dest, tag, ctx.Err())
	}
}

func (c *localComm) Recv(ctx context.Context, src, tag int) ([]byte, error) {
	if err := c.peer(src); err != nil {
		return nil, err
	}
	select {
	case m := <-c.group.links[src][c.rank]:
		if m.tag != tag {
			return nil, fmt.Errorf("%w: rank %d expected tag %d from %d, got %d", ErrTagMismatch, c.rank, tag, src, m.tag)
		}
		return m.data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("comm: recv %d<-%d tag %d: %w", c.rank, src, tag, ctx.Err())
	}
}
