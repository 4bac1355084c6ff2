package composite

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrjoshuak/go-volcast/comm"
	"github.com/mrjoshuak/go-volcast/volume"
)

// DefaultChunkSize bounds the pixels carried by one rank message.
const DefaultChunkSize = 1000000

// ImageCompositor merges registered partial images into one output image
// across the ranks of a communicator.
type ImageCompositor interface {
	SetOutputImageSize(rows, cols int) error
	GetOutputImageSize() (rows, cols int)
	AddImageInput(img *Image, row, col int) error
	SetShouldOutputZBuffer(enable bool)
	GetShouldOutputZBuffer() bool
	SetBackground(c volume.RGBA)
	SetRoot(rank int) (int, error)
	GetRoot() int
	SetAllProcessorsNeedResult(enable bool)
	GetAllProcessorsNeedResult() bool
	SetChunkSize(pixels int) error
	SetCompressMessages(enable bool)
	SetCommunicator(c comm.Communicator) error
	Execute(ctx context.Context) (*Image, error)
}

// Option configures a compositor.
type Option func(*state)

// WithLogger sets the logger used for per-execution debug output.
func WithLogger(log zerolog.Logger) Option {
	return func(s *state) { s.log = log }
}

// WithCommunicator sets the communicator. The default is comm.Self().
func WithCommunicator(c comm.Communicator) Option {
	return func(s *state) {
		if c != nil {
			s.comm = c
		}
	}
}

type input struct {
	img      *Image
	frame    *Frame
	row, col int
}

// state is the configuration shared by compositor implementations. It is
// not reset by Execute.
type state struct {
	rows, cols int
	inputs     []input
	zbuffer    bool
	background volume.RGBA
	root       int
	allNeed    bool
	chunkSize  int
	compress   bool
	comm       comm.Communicator
	log        zerolog.Logger
}

func newState(opts []Option) state {
	s := state{
		chunkSize: DefaultChunkSize,
		comm:      comm.Self(),
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// SetOutputImageSize sets the output size. It must precede AddImageInput
// and fails while a registered input would not fit the new size.
func (s *state) SetOutputImageSize(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: output size %dx%d", ErrImproperUse, rows, cols)
	}
	for _, in := range s.inputs {
		if err := checkPlacement(in.frame, in.row, in.col, rows, cols); err != nil {
			return err
		}
	}
	s.rows, s.cols = rows, cols
	return nil
}

func checkPlacement(f *Frame, row, col, rows, cols int) error {
	if row < 0 || col < 0 || row+f.Height > rows || col+f.Width > cols ||
		len(f.R) != f.Width*f.Height {
		return fmt.Errorf("%w: %dx%d input at %d,%d outside %dx%d output",
			ErrImproperUse, f.Width, f.Height, row, col, cols, rows)
	}
	return nil
}

// checkInputs verifies every registered input against the output size.
func (s *state) checkInputs() error {
	for _, in := range s.inputs {
		if err := checkPlacement(in.frame, in.row, in.col, s.rows, s.cols); err != nil {
			return err
		}
	}
	return nil
}

// GetOutputImageSize returns the output size, zero when unset.
func (s *state) GetOutputImageSize() (rows, cols int) { return s.rows, s.cols }

// AddImageInput registers img at the given offset. Serialized images are
// materialized to learn their size. Only a reference is kept, so img must
// not change until Execute returns.
func (s *state) AddImageInput(img *Image, row, col int) error {
	if s.rows == 0 {
		return fmt.Errorf("%w: output size not set", ErrImproperUse)
	}
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrImproperUse)
	}
	f, err := img.Materialize()
	if err != nil {
		return err
	}
	if err := f.Validate(); err != nil {
		return err
	}
	if err := checkPlacement(f, row, col, s.rows, s.cols); err != nil {
		return err
	}
	s.inputs = append(s.inputs, input{img: img, frame: f, row: row, col: col})
	return nil
}

// NumInputs returns the number of registered inputs.
func (s *state) NumInputs() int { return len(s.inputs) }

// ClearInputs drops every registered input.
func (s *state) ClearInputs() { s.inputs = nil }

func (s *state) SetShouldOutputZBuffer(enable bool) { s.zbuffer = enable }
func (s *state) GetShouldOutputZBuffer() bool       { return s.zbuffer }

// SetBackground sets the color of pixels no input covers.
func (s *state) SetBackground(c volume.RGBA) { s.background = c }

// Background returns the background color.
func (s *state) Background() volume.RGBA { return s.background }

// SetRoot sets the rank that receives the result and returns the previous
// root.
func (s *state) SetRoot(rank int) (int, error) {
	if err := comm.CheckRank(s.comm, rank); err != nil {
		return s.root, fmt.Errorf("%w: root: %w", ErrImproperUse, err)
	}
	prev := s.root
	s.root = rank
	return prev, nil
}

func (s *state) GetRoot() int { return s.root }

func (s *state) SetAllProcessorsNeedResult(enable bool) { s.allNeed = enable }
func (s *state) GetAllProcessorsNeedResult() bool       { return s.allNeed }

// SetChunkSize bounds the pixels per rank message. It never changes the
// result.
func (s *state) SetChunkSize(pixels int) error {
	if pixels < 1 {
		return fmt.Errorf("%w: chunk size %d", ErrImproperUse, pixels)
	}
	s.chunkSize = pixels
	return nil
}

// ChunkSize returns the pixels per rank message.
func (s *state) ChunkSize() int { return s.chunkSize }

// SetCompressMessages enables zlib compression of rank messages.
func (s *state) SetCompressMessages(enable bool) { s.compress = enable }

// SetCommunicator replaces the communicator. The current root must be a
// rank of c.
func (s *state) SetCommunicator(c comm.Communicator) error {
	if c == nil {
		return fmt.Errorf("%w: nil communicator", ErrImproperUse)
	}
	if err := comm.CheckRank(c, s.root); err != nil {
		return fmt.Errorf("%w: root: %w", ErrImproperUse, err)
	}
	s.comm = c
	return nil
}

// Communicator returns the communicator.
func (s *state) Communicator() comm.Communicator { return s.comm }
