// Package comm provides the point-to-point messaging used by the parallel
// image compositor.
//
// A Communicator is an explicit handle passed to each participant; there is
// no process-wide default group. NewLocalGroup connects ranks running as
// goroutines in one process.
package comm

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidRank is returned for a rank outside [0, Size).
	ErrInvalidRank = errors.New("comm: invalid rank")

	// ErrSelfMessage is returned when a rank sends to or receives from
	// itself.
	ErrSelfMessage = errors.New("comm: message to self")

	// ErrTagMismatch is returned when the next message from a rank carries
	// a different tag than the one requested.
	ErrTagMismatch = errors.New("comm: tag mismatch")

	// ErrInvalidSize is returned for a group size below one.
	ErrInvalidSize = errors.New("comm: invalid group size")
)

// Communicator sends and receives tagged byte messages between the ranks
// of a fixed group. Messages between a pair of ranks are delivered in the
// order they were sent.
type Communicator interface {
	Rank() int
	Size() int

	// Send delivers a copy of data to dest. It may block until the
	// receiver has room or ctx is done.
	Send(ctx context.Context, dest, tag int, data []byte) error

	// Recv returns the next message from src, which must carry tag.
	Recv(ctx context.Context, src, tag int) ([]byte, error)
}

// CheckRank returns an error wrapping ErrInvalidRank when rank is outside
// c's group.
func CheckRank(c Communicator, rank int) error {
	if rank < 0 || rank >= c.Size() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidRank, rank, c.Size())
	}
	return nil
}

type self struct{}

// Self returns the communicator of a group containing only the caller.
func Self() Communicator { return self{} }

func (self) Rank() int { return 0 }
func (self) Size() int { return 1 }

func (s self) Send(_ context.Context, dest, _ int, _ []byte) error {
	if err := CheckRank(s, dest); err != nil {
		return err
	}
	return ErrSelfMessage
}

func (s self) Recv(_ context.Context, src, _ int) ([]byte, error) {
	if err := CheckRank(s, src); err != nil {
		return nil, err
	}
	return nil, ErrSelfMessage
}
