package composite

import (
	"context"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/mrjoshuak/go-volcast/comm"
)

// WholeImageCompositor exchanges the full output image between ranks. Each
// rank first merges its own inputs in registration order, then the ranks
// reduce pairwise in rank order.
//
// In z-buffer mode the nearest depth wins and ties keep the earlier input
// (lower rank, then earlier registration). Otherwise the last covering
// input wins (higher rank, then later registration). Pixels no input covers
// take the background color exactly, with depth 1.
type WholeImageCompositor struct {
	state
}

var _ ImageCompositor = (*WholeImageCompositor)(nil)

// NewWholeImageCompositor creates a compositor on comm.Self() unless
// WithCommunicator says otherwise.
func NewWholeImageCompositor(opts ...Option) *WholeImageCompositor {
	return &WholeImageCompositor{state: newState(opts)}
}

// Execute composites the registered inputs of every rank. Ranks holding the
// result get the final image; the others get nil. Every rank must call
// Execute with equivalent configuration.
func (c *WholeImageCompositor) Execute(ctx context.Context) (*Image, error) {
	if c.rows == 0 {
		return nil, fmt.Errorf("%w: output size not set", ErrImproperUse)
	}
	if err := comm.CheckRank(c.comm, c.root); err != nil {
		return nil, fmt.Errorf("%w: root: %w", ErrImproperUse, err)
	}
	if err := c.checkInputs(); err != nil {
		return nil, err
	}

	log := c.log.With().Int("rank", c.comm.Rank()).Int("size", c.comm.Size()).Logger()
	log.Debug().
		Int("rows", c.rows).
		Int("cols", c.cols).
		Int("inputs", len(c.inputs)).
		Int("chunk", c.chunkSize).
		Bool("zbuffer", c.zbuffer).
		Bool("allReduce", c.allNeed).
		Int("root", c.root).
		Msg("compositing")

	p := c.mergeLocal()
	holds, err := c.exchange(ctx, p)
	if err != nil {
		return nil, err
	}
	if !holds {
		log.Debug().Msg("result held elsewhere")
		return nil, nil
	}
	return NewImage(c.finish(p)), nil
}

func (c *WholeImageCompositor) mergeLocal() pixels {
	p := newPixels(c.rows * c.cols)
	var px [elemSize]float32
	for _, in := range c.inputs {
		f := in.frame
		for row := 0; row < f.Height; row++ {
			for col := 0; col < f.Width; col++ {
				i := row*f.Width + col
				px[0], px[1], px[2], px[3] = f.R[i], f.G[i], f.B[i], f.A[i]
				px[4] = 0
				if c.zbuffer {
					px[4] = f.Depth(row, col)
					if math32.IsNaN(px[4]) || math32.IsInf(px[4], 1) {
						px[4] = 1
					}
				}
				p.merge((in.row+row)*c.cols+in.col+col, px[:], c.zbuffer)
			}
		}
	}
	return p
}

func (c *WholeImageCompositor) finish(p pixels) *Frame {
	f := NewFrame(c.cols, c.rows, c.zbuffer)
	bg := c.background
	for i, n := 0, p.len(); i < n; i++ {
		e := p[i*elemSize : (i+1)*elemSize]
		if math32.IsInf(e[4], 1) {
			f.R[i], f.G[i], f.B[i], f.A[i] = bg.R, bg.G, bg.B, bg.A
			if f.Z != nil {
				f.Z[i] = 1
			}
			continue
		}
		f.R[i], f.G[i], f.B[i], f.A[i] = e[0], e[1], e[2], e[3]
		if f.Z != nil {
			f.Z[i] = e[4]
		}
	}
	return f
}
