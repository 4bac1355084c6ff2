package comm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestSelf(t *testing.T) {
	c := Self()
	if c.Rank() != 0 || c.Size() != 1 {
		t.Fatalf("Self = rank %d size %d", c.Rank(), c.Size())
	}
	ctx := context.Background()
	if err := c.Send(ctx, 0, 0, nil); !errors.Is(err, ErrSelfMessage) {
		t.Errorf("Send to self: %v", err)
	}
	if err := c.Send(ctx, 1, 0, nil); !errors.Is(err, ErrInvalidRank) {
		t.Errorf("Send to rank 1: %v", err)
	}
	if _, err := c.Recv(ctx, -1, 0); !errors.Is(err, ErrInvalidRank) {
		t.Errorf("Recv from rank -1: %v", err)
	}
}

func TestNewLocalGroupInvalidSize(t *testing.T) {
	if _, err := NewLocalGroup(0); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("err = %v, want ErrInvalidSize", err)
	}
}

func TestLocalGroupFIFO(t *testing.T) {
	comms, err := NewLocalGroup(3)
	if err != nil {
		t.Fatal(err)
	}
	const n = 40
	err = Run(context.Background(), comms, func(ctx context.Context, c Communicator) error {
		switch c.Rank() {
		case 1, 2:
			for i := 0; i < n; i++ {
				if err := c.Send(ctx, 0, 7, []byte{byte(c.Rank()), byte(i)}); err != nil {
					return err
				}
			}
		case 0:
			for _, src := range []int{2, 1} {
				for i := 0; i < n; i++ {
					got, err := c.Recv(ctx, src, 7)
					if err != nil {
						return err
					}
					if diff := cmp.Diff([]byte{byte(src), byte(i)}, got); diff != "" {
						return fmt.Errorf("message %d from %d (-want +got):\n%s", i, src, diff)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocalGroupCopiesData(t *testing.T) {
	comms, err := NewLocalGroup(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	buf := []byte{1, 2, 3}
	if err := comms[0].Send(ctx, 1, 0, buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 9
	got, err := comms[1].Recv(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 1 {
		t.Errorf("received %v, sender's later write leaked", got)
	}
}

func TestLocalGroupErrors(t *testing.T) {
	comms, err := NewLocalGroup(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := comms[0].Send(ctx, 0, 0, nil); !errors.Is(err, ErrSelfMessage) {
		t.Errorf("send to self: %v", err)
	}
	if err := comms[0].Send(ctx, 2, 0, nil); !errors.Is(err, ErrInvalidRank) {
		t.Errorf("send to rank 2: %v", err)
	}
	if err := comms[0].Send(ctx, 1, 5, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if _, err := comms[1].Recv(ctx, 0, 6); !errors.Is(err, ErrTagMismatch) {
		t.Errorf("tag mismatch: %v", err)
	}
}

func TestRecvHonorsContext(t *testing.T) {
	comms, err := NewLocalGroup(2)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := comms[0].Recv(ctx, 1, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestRunCancelsPeers(t *testing.T) {
	comms, err := NewLocalGroup(2)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("boom")
	err = Run(context.Background(), comms, func(ctx context.Context, c Communicator) error {
		if c.Rank() == 1 {
			return boom
		}
		_, err := c.Recv(ctx, 1, 0)
		return err
	})
	if !errors.Is(err, boom) {
		t.Errorf("Run = %v, want boom", err)
	}
}

func TestGroupsAreIndependent(t *testing.T) {
	a, _ := NewLocalGroup(2)
	b, _ := NewLocalGroup(2)
	ctx := context.Background()
	if err := a[0].Send(ctx, 1, 0, []byte("a")); err != nil {
		t.Fatal(err)
	}
	short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if _, err := b[1].Recv(short, 0, 0); err == nil {
		t.Error("message crossed between groups")
	}
}
