package volcast_test

import (
	"context"
	"fmt"

	"github.com/mrjoshuak/go-volcast/comm"
	"github.com/mrjoshuak/go-volcast/composite"
	"github.com/mrjoshuak/go-volcast/volume"
)

// Example_renderPipeline samples one cell into a 4x4 image, composites the
// rays and places the result in a larger output frame.
func Example_renderPipeline() {
	vol, err := volume.NewVolume(4, 4, 4, []string{"v"}, false)
	if err != nil {
		fmt.Println("Error creating volume:", err)
		return
	}

	// One cell covering the bottom-left pixel of the image.
	g := volume.NewUniformGrid([3]int{2, 2, 2}, [3]float32{-1, -1, -1}, [3]float32{-0.5, -0.5, 1})
	g.AddVariable("v", volume.CellCentered, []float32{5})
	volume.NewGridSampler(vol).Extract(g)

	tf, err := volume.NewTransferFunction([]volume.RGBA{{R: 1, A: 1}}, 0, 10)
	if err != nil {
		fmt.Println("Error creating transfer function:", err)
		return
	}
	fd := vol.Composite(volume.NewCompositingRayFunction(tf), [3]float32{0, 0, 1}, nil, volume.DefaultParallelConfig())

	c := composite.NewWholeImageCompositor()
	if err := c.SetOutputImageSize(8, 8); err != nil {
		fmt.Println("Error sizing output:", err)
		return
	}
	c.SetBackground(volume.RGBA{A: 1})
	if err := c.AddImageInput(composite.NewImage(composite.NewFrameFromData(fd)), 2, 2); err != nil {
		fmt.Println("Error adding input:", err)
		return
	}
	img, err := c.Execute(context.Background())
	if err != nil {
		fmt.Println("Error compositing:", err)
		return
	}

	f := img.Frame()
	fmt.Printf("%dx%d\n", f.Width, f.Height)
	fmt.Println("cell:", f.Pixel(2, 2))
	fmt.Println("outside:", f.Pixel(0, 0))
	// Output:
	// 8x8
	// cell: {1 0 0 1}
	// outside: {0 0 0 1}
}

// Example_ranks composites one pixel from each of two in-process ranks with
// a z-buffer; the nearer pixel wins and every rank receives the result.
func Example_ranks() {
	comms, err := comm.NewLocalGroup(2)
	if err != nil {
		fmt.Println("Error creating group:", err)
		return
	}

	results := make([]*composite.Image, len(comms))
	err = comm.Run(context.Background(), comms, func(ctx context.Context, cm comm.Communicator) error {
		f := composite.NewFrame(1, 1, true)
		f.SetPixel(0, 0, volume.RGBA{R: float32(cm.Rank()), B: float32(1 - cm.Rank()), A: 1})
		f.Z[0] = 0.5 - 0.25*float32(cm.Rank())

		c := composite.NewWholeImageCompositor(composite.WithCommunicator(cm))
		if err := c.SetOutputImageSize(1, 1); err != nil {
			return err
		}
		c.SetShouldOutputZBuffer(true)
		c.SetAllProcessorsNeedResult(true)
		if err := c.AddImageInput(composite.NewImage(f), 0, 0); err != nil {
			return err
		}
		img, err := c.Execute(ctx)
		results[cm.Rank()] = img
		return err
	})
	if err != nil {
		fmt.Println("Error compositing:", err)
		return
	}

	for rank, img := range results {
		fmt.Println(rank, img.Frame().Pixel(0, 0), img.Frame().Depth(0, 0))
	}
	// Output:
	// 0 {1 0 0 1} 0.25
	// 1 {1 0 0 1} 0.25
}

// Example_serialize encodes a frame for transport and reads its header.
func Example_serialize() {
	f := composite.NewFrame(4, 2, true)
	f.Fill(volume.RGBA{G: 1, A: 1})

	img := composite.NewImage(f)
	img.Row, img.Col = 10, 20
	data, err := img.Serialize(composite.SerializeOptions{Codec: composite.CodecZIP, HalfColor: true})
	if err != nil {
		fmt.Println("Error serializing:", err)
		return
	}
	h, err := composite.ReadHeader(data)
	if err != nil {
		fmt.Println("Error reading header:", err)
		return
	}
	fmt.Printf("%dx%d at %d,%d codec=%s half=%v z=%v\n", h.Width, h.Height, h.Row, h.Col, h.Codec, h.HalfColor, h.HasZ)

	back, err := img.Materialize()
	if err != nil {
		fmt.Println("Error decoding:", err)
		return
	}
	fmt.Println(back.Pixel(1, 3))
	// Output:
	// 4x2 at 10,20 codec=zip half=true z=true
	// {0 1 0 1}
}
