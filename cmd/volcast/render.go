package main

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"

	"github.com/mrjoshuak/go-volcast/comm"
	"github.com/mrjoshuak/go-volcast/composite"
	"github.com/mrjoshuak/go-volcast/config"
	"github.com/mrjoshuak/go-volcast/volume"
)

func renderCommand() cli.Command {
	return cli.Command{
		Name:  "render",
		Usage: "render the configured volume to a PNG",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "config, c", Usage: "YAML render configuration"},
			cli.StringFlag{Name: "output, o", Value: "volcast.png", Usage: "output PNG path"},
			cli.IntFlag{Name: "ranks, n", Usage: "number of compositing ranks (overrides the config)"},
			cli.IntFlag{Name: "width", Usage: "image width (overrides the config)"},
			cli.IntFlag{Name: "height", Usage: "image height (overrides the config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return runRender(context.Background(), cfg, c.String("output"), log.Logger)
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if c.IsSet("ranks") {
		cfg.Compositor.Ranks = c.Int("ranks")
		cfg.Compositor.Root = min(cfg.Compositor.Root, max(cfg.Compositor.Ranks-1, 0))
	}
	if c.IsSet("width") {
		cfg.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Height = c.Int("height")
	}
	return cfg, cfg.Validate()
}

func runRender(ctx context.Context, cfg *config.Config, output string, logger zerolog.Logger) error {
	logger = logger.With().Str("pass", uuid.NewString()).Logger()
	start := time.Now()

	frame, err := render(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if err := writePNG(output, frame); err != nil {
		return err
	}
	if cfg.Output.Codec != "" {
		codec, _ := composite.ParseCodec(cfg.Output.Codec)
		path := strings.TrimSuffix(output, filepath.Ext(output)) + ".vci"
		data, err := composite.EncodeImage(frame, 0, 0, composite.SerializeOptions{Codec: codec})
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		logger.Info().Str("path", path).Int("bytes", len(data)).Msg("wrote serialized frame")
	}
	logger.Info().
		Str("path", output).
		Int("width", frame.Width).
		Int("height", frame.Height).
		Dur("elapsed", time.Since(start)).
		Msg("rendered")
	return nil
}

// render extracts and composites the synthetic field on every rank of a
// local group and returns the frame held by the root.
func render(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*composite.Frame, error) {
	grids := synthesize(cfg)
	tf, err := cfg.TransferFunction()
	if err != nil {
		return nil, err
	}
	comms, err := comm.NewLocalGroup(cfg.Compositor.Ranks)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("grids", len(grids)).Int("ranks", len(comms)).Msg("starting render")

	results := make([]*composite.Image, len(comms))
	err = comm.Run(ctx, comms, func(ctx context.Context, c comm.Communicator) error {
		img, err := renderRank(ctx, c, cfg, tf, grids, logger.With().Int("rank", c.Rank()).Logger())
		if err != nil {
			return fmt.Errorf("rank %d: %w", c.Rank(), err)
		}
		results[c.Rank()] = img
		return nil
	})
	if err != nil {
		return nil, err
	}
	img := results[cfg.Compositor.Root]
	if img == nil {
		return nil, fmt.Errorf("root %d holds no image", cfg.Compositor.Root)
	}
	return img.Materialize()
}

// renderRank samples the domain columns assigned to this rank and
// composites the footprint of each column with every other rank.
//
// A column is the stack of domains sharing an XY index. Keeping a column
// on one rank blends its depth-split domains along the ray, so the merge
// policy between ranks only ever sees disjoint footprints in image space.
// Perspective views can still cross columns near their edges.
func renderRank(ctx context.Context, c comm.Communicator, cfg *config.Config, tf *volume.TransferFunction, grids []*volume.RectilinearGrid, logger zerolog.Logger) (*composite.Image, error) {
	vol, err := volume.NewVolume(cfg.Width, cfg.Height, cfg.Samples, []string{fieldVariable}, cfg.Gradients)
	if err != nil {
		return nil, err
	}
	rf := volume.NewCompositingRayFunction(tf)
	rf.SetTrilinearSampling(true)
	light, mat := cfg.VolumeLighting()
	rf.SetLighting(light)
	rf.SetMaterial(mat.Ambient, mat.Diffuse, mat.Specular, mat.Shininess)

	var (
		mine    []*volume.RectilinearGrid
		columns []int
	)
	for i, g := range grids {
		col := domainColumn(cfg.Domains, i)
		if col%c.Size() != c.Rank() {
			continue
		}
		if !rf.CanContributeToPicture(vol.Ranges(g)) {
			logger.Debug().Int("domain", i).Msg("domain cannot contribute")
			continue
		}
		mine = append(mine, g)
		columns = append(columns, col)
	}

	pcfg := volume.ParallelConfig{NumWorkers: cfg.Workers, GrainSize: 1}
	var view *volume.View
	if cfg.WorldSpace {
		v := cfg.VolumeView()
		view = &v
	}
	samples, err := vol.ExtractParallel(mine, view, cfg.Aspect(), pcfg,
		volume.WithLogger(logger), volume.WithGradients(cfg.Gradients))
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("domains", len(mine)).Int("samples", samples).Msg("extracted")

	comp := composite.NewWholeImageCompositor(composite.WithCommunicator(c), composite.WithLogger(logger))
	if err := configureCompositor(comp, cfg); err != nil {
		return nil, err
	}

	footprints := columnFootprints(vol.CellList().Records(), columns)
	if len(footprints) > 0 {
		bg := cfg.Background.RGBA()
		fd := vol.Composite(rf, [3]float32{bg.R, bg.G, bg.B}, nil, pcfg)
		frame := composite.NewFrameFromData(fd)
		overBackground(frame, bg.A)
		for _, bounds := range footprints {
			img := composite.NewImage(frame.Crop(bounds))
			img.Row, img.Col = bounds.Min.Y, bounds.Min.X
			if err := serializeForTransport(img, cfg); err != nil {
				return nil, err
			}
			if err := comp.AddImageInput(img, bounds.Min.Y, bounds.Min.X); err != nil {
				return nil, err
			}
		}
	}
	return comp.Execute(ctx)
}

// domainColumn returns the XY column of grid i in synthesize order.
func domainColumn(domains [3]int, i int) int {
	return i % (domains[0] * domains[1])
}

// columnFootprints unions the touched pixels of each column, ordered by
// column. records index domains like columns.
func columnFootprints(records []volume.CellRecord, columns []int) []image.Rectangle {
	byColumn := make(map[int]image.Rectangle)
	for _, rec := range records {
		if rec.Samples == 0 || rec.Domain < 0 || rec.Domain >= len(columns) {
			continue
		}
		col := columns[rec.Domain]
		byColumn[col] = byColumn[col].Union(rec.Bounds)
	}
	keys := make([]int, 0, len(byColumn))
	for k := range byColumn {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make([]image.Rectangle, 0, len(keys))
	for _, k := range keys {
		out = append(out, byColumn[k])
	}
	return out
}

// overBackground composites the frame's opacity over a background of
// opacity bgA. Color already carries the background.
func overBackground(f *composite.Frame, bgA float32) {
	for i, a := range f.A {
		f.A[i] = a + (1-a)*bgA
	}
}

func configureCompositor(comp composite.ImageCompositor, cfg *config.Config) error {
	if err := comp.SetOutputImageSize(cfg.Height, cfg.Width); err != nil {
		return err
	}
	if err := comp.SetChunkSize(cfg.Compositor.ChunkSize); err != nil {
		return err
	}
	if _, err := comp.SetRoot(cfg.Compositor.Root); err != nil {
		return err
	}
	comp.SetBackground(cfg.Background.RGBA())
	comp.SetShouldOutputZBuffer(cfg.Compositor.ZBuffer)
	comp.SetAllProcessorsNeedResult(cfg.Compositor.AllNeedResult)
	comp.SetCompressMessages(cfg.Compositor.Compress)
	return nil
}

// serializeForTransport encodes a partial image the way it would travel
// between processes; the compositor materializes it again on registration.
func serializeForTransport(img *composite.Image, cfg *config.Config) error {
	codec, err := composite.ParseCodec(cfg.Compositor.Codec)
	if err != nil {
		return err
	}
	if codec == composite.CodecNone && !cfg.Compositor.HalfColor {
		return nil
	}
	_, err = img.Serialize(composite.SerializeOptions{Codec: codec, HalfColor: cfg.Compositor.HalfColor})
	return err
}

func writePNG(path string, f *composite.Frame) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	if err := png.Encode(out, f.ToNRGBA64(true)); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return nil
}
