package composite

import (
	"context"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/mrjoshuak/go-volcast/compression"
	"github.com/mrjoshuak/go-volcast/internal/xdr"
)

// Every pixel travels as r, g, b, a and a merge key. In z mode the key is
// depth; otherwise it is 0. Uncovered pixels carry +Inf.
const elemSize = 5

const (
	tagReduce = iota + 1
	tagBroadcast
	tagForward
)

const chunkCompressed uint8 = 1

type pixels []float32

func newPixels(n int) pixels {
	p := make(pixels, n*elemSize)
	inf := math32.Inf(1)
	for i := elemSize - 1; i < len(p); i += elemSize {
		p[i] = inf
	}
	return p
}

func (p pixels) len() int { return len(p) / elemSize }

// merge combines p[i] as the left operand with src as the right operand.
// In z mode the smaller key wins and ties keep the left operand. Otherwise
// any covered right operand wins.
func (p pixels) merge(i int, src []float32, zbuffer bool) {
	dst := p[i*elemSize : (i+1)*elemSize]
	key := src[elemSize-1]
	if zbuffer {
		if key < dst[elemSize-1] {
			copy(dst, src[:elemSize])
		}
		return
	}
	if !math32.IsInf(key, 1) {
		copy(dst, src[:elemSize])
	}
}

// chunks calls fn for consecutive pixel ranges of at most size pixels.
func chunks(n, size int, fn func(off, count int) error) error {
	for off := 0; off < n; off += size {
		if err := fn(off, min(size, n-off)); err != nil {
			return err
		}
	}
	return nil
}

func encodeChunk(p pixels, off, count int, compress bool) ([]byte, error) {
	values := p[off*elemSize : (off+count)*elemSize]
	w := xdr.NewBufferWriter(9 + len(values)*4)
	var flags uint8
	if compress {
		flags = chunkCompressed
	}
	w.WriteUint8(flags)
	w.WriteUint32(uint32(off))
	w.WriteUint32(uint32(count))
	if !compress {
		w.WriteFloat32s(values)
		return w.Bytes(), nil
	}
	raw := xdr.NewBufferWriter(len(values) * 4)
	raw.WriteFloat32s(values)
	data, err := compression.CompressPlanes(raw.Bytes(), 4, compression.CompressionLevelBestSpeed)
	if err != nil {
		return nil, err
	}
	w.WriteBytes(data)
	return w.Bytes(), nil
}

func decodeChunk(data []byte, off, count int, dst []float32) error {
	r := xdr.NewReader(data)
	flags, _ := r.ReadUint8()
	gotOff, _ := r.ReadUint32()
	gotCount, err := r.ReadUint32()
	if err != nil {
		return fmt.Errorf("composite: chunk header: %w", err)
	}
	if int(gotOff) != off || int(gotCount) != count {
		return fmt.Errorf("composite: chunk %d+%d, want %d+%d", gotOff, gotCount, off, count)
	}
	payload, _ := r.ReadBytes(r.Len())
	if flags&chunkCompressed != 0 {
		raw, err := compression.DecompressPlanes(payload, count*elemSize*4, 4)
		if err != nil {
			return fmt.Errorf("composite: chunk payload: %w", err)
		}
		payload = raw
	}
	if err := xdr.NewReader(payload).ReadFloat32s(dst[:count*elemSize]); err != nil {
		return fmt.Errorf("composite: chunk payload: %w", err)
	}
	return nil
}

func (s *state) sendPixels(ctx context.Context, dest, tag int, p pixels) error {
	return chunks(p.len(), s.chunkSize, func(off, count int) error {
		data, err := encodeChunk(p, off, count, s.compress)
		if err != nil {
			return err
		}
		return s.comm.Send(ctx, dest, tag, data)
	})
}

// recvPixels receives p from src chunk by chunk. With merge set each chunk
// is merged into p as the right operand, otherwise it overwrites p.
func (s *state) recvPixels(ctx context.Context, src, tag int, p pixels, merge bool) error {
	buf := make([]float32, min(s.chunkSize, p.len())*elemSize)
	return chunks(p.len(), s.chunkSize, func(off, count int) error {
		data, err := s.comm.Recv(ctx, src, tag)
		if err != nil {
			return err
		}
		if err := decodeChunk(data, off, count, buf); err != nil {
			return fmt.Errorf("from rank %d: %w", src, err)
		}
		if !merge {
			copy(p[off*elemSize:], buf[:count*elemSize])
			return nil
		}
		for i := 0; i < count; i++ {
			p.merge(off+i, buf[i*elemSize:], s.zbuffer)
		}
		return nil
	})
}

// exchange reduces p across every rank and reports whether this rank holds
// the result. Rank r sends to r-s at the first step s where r%(2s) == s;
// the receiving lower rank is always the left operand, so rank order is
// preserved. Rank 0 then broadcasts down the same tree or forwards to the
// root.
func (s *state) exchange(ctx context.Context, p pixels) (bool, error) {
	rank, size := s.comm.Rank(), s.comm.Size()

	for step := 1; step < size; step *= 2 {
		if rank%(2*step) == step {
			if err := s.sendPixels(ctx, rank-step, tagReduce, p); err != nil {
				return false, fmt.Errorf("composite: reduce: %w", err)
			}
			break
		}
		if rank+step < size {
			if err := s.recvPixels(ctx, rank+step, tagReduce, p, true); err != nil {
				return false, fmt.Errorf("composite: reduce: %w", err)
			}
		}
	}

	if s.allNeed {
		top := 1
		for top < size {
			top *= 2
		}
		for step := top / 2; step >= 1; step /= 2 {
			switch {
			case rank%(2*step) == 0 && rank+step < size:
				if err := s.sendPixels(ctx, rank+step, tagBroadcast, p); err != nil {
					return false, fmt.Errorf("composite: broadcast: %w", err)
				}
			case rank%(2*step) == step:
				if err := s.recvPixels(ctx, rank-step, tagBroadcast, p, false); err != nil {
					return false, fmt.Errorf("composite: broadcast: %w", err)
				}
			}
		}
		return true, nil
	}

	switch {
	case s.root == 0:
		return rank == 0, nil
	case rank == 0:
		if err := s.sendPixels(ctx, s.root, tagForward, p); err != nil {
			return false, fmt.Errorf("composite: forward: %w", err)
		}
		return false, nil
	case rank == s.root:
		if err := s.recvPixels(ctx, 0, tagForward, p, false); err != nil {
			return false, fmt.Errorf("composite: forward: %w", err)
		}
		return true, nil
	}
	return false, nil
}
