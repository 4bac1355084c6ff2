// Package config loads render settings for the volcast command from YAML.
package config

import (
	"bytes"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/mrjoshuak/go-volcast/composite"
	"github.com/mrjoshuak/go-volcast/volume"
)

// Config is a complete render description.
type Config struct {
	Width   int `yaml:"width"`
	Height  int `yaml:"height"`
	Samples int `yaml:"samples"`
	// Domains splits the unit field into Domains[0]*Domains[1]*Domains[2]
	// grids, each with Points samples per axis.
	Domains    [3]int     `yaml:"domains"`
	Points     int        `yaml:"points"`
	Field      string     `yaml:"field"`
	WorldSpace bool       `yaml:"world_space"`
	Gradients  bool       `yaml:"gradients"`
	Workers    int        `yaml:"workers"`
	View       View       `yaml:"view"`
	Transfer   Transfer   `yaml:"transfer"`
	Lighting   Lighting   `yaml:"lighting"`
	Compositor Compositor `yaml:"compositor"`
	Background Color      `yaml:"background"`
	Output     Output     `yaml:"output"`
}

// View mirrors volume.View with YAML friendly fields.
type View struct {
	Camera        [3]float64 `yaml:"camera"`
	Focus         [3]float64 `yaml:"focus"`
	Up            [3]float64 `yaml:"up"`
	ViewAngle     float64    `yaml:"view_angle"`
	Near          float64    `yaml:"near"`
	Far           float64    `yaml:"far"`
	Parallel      bool       `yaml:"parallel"`
	ParallelScale float64    `yaml:"parallel_scale"`
}

// Transfer describes a transfer function by control points.
type Transfer struct {
	Bins     int            `yaml:"bins"`
	Min      float32        `yaml:"min"`
	Max      float32        `yaml:"max"`
	LogScale bool           `yaml:"log_scale"`
	Points   []ControlPoint `yaml:"points"`
}

// ControlPoint is a position in [0, 1] with an RGBA color.
type ControlPoint struct {
	Position float32 `yaml:"position"`
	Color    Color   `yaml:"color"`
}

// Lighting selects the light and material.
type Lighting struct {
	Enabled   bool       `yaml:"enabled"`
	Headlight bool       `yaml:"headlight"`
	Direction [3]float64 `yaml:"direction"`
	Ambient   float64    `yaml:"ambient"`
	Diffuse   float64    `yaml:"diffuse"`
	Specular  float64    `yaml:"specular"`
	Shininess float64    `yaml:"shininess"`
}

// Compositor configures the rank exchange.
type Compositor struct {
	Ranks         int  `yaml:"ranks"`
	ChunkSize     int  `yaml:"chunk_size"`
	ZBuffer       bool `yaml:"zbuffer"`
	AllNeedResult bool `yaml:"all_need_result"`
	Root          int  `yaml:"root"`
	Compress      bool `yaml:"compress"`
	// Codec and HalfColor serialize per-rank partial images before they
	// are registered, as they would be for transport between processes.
	Codec     string `yaml:"codec"`
	HalfColor bool   `yaml:"half_color"`
}

// Output selects an optional serialized copy of the final frame written
// next to the PNG.
type Output struct {
	Codec string `yaml:"codec"`
}

// Fields the synthetic data generator understands.
const (
	FieldSphere = "sphere"
	FieldWaves  = "waves"
)

// Default returns a small render of the sphere field on four ranks.
func Default() *Config {
	v := volume.DefaultView()
	m := volume.DefaultMaterial()
	return &Config{
		Width:   256,
		Height:  256,
		Samples: 128,
		Domains: [3]int{2, 2, 1},
		Points:  24,
		Field:   FieldSphere,
		Workers: 0,
		View: View{
			Camera:        v.Camera,
			Focus:         v.Focus,
			Up:            v.Up,
			ViewAngle:     v.ViewAngle,
			Near:          v.Near,
			Far:           v.Far,
			ParallelScale: v.ParallelScale,
		},
		Transfer: Transfer{
			Bins: 256,
			Min:  0,
			Max:  1,
			Points: []ControlPoint{
				{Position: 0, Color: Color{R: 0, G: 0, B: 0.5, A: 0}},
				{Position: 0.5, Color: Color{R: 0.2, G: 0.8, B: 0.4, A: 0.05}},
				{Position: 1, Color: Color{R: 1, G: 0.3, B: 0.1, A: 0.6}},
			},
		},
		Lighting: Lighting{
			Enabled:   true,
			Headlight: true,
			Ambient:   m.Ambient,
			Diffuse:   m.Diffuse,
			Specular:  m.Specular,
			Shininess: m.Shininess,
		},
		Compositor: Compositor{
			Ranks:     4,
			ChunkSize: composite.DefaultChunkSize,
			ZBuffer:   true,
			Codec:     composite.CodecNone.String(),
		},
		Background: Color{A: 1},
	}
}

// Load reads and validates a YAML file. Missing fields keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "decoding yaml")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks sizes and cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return errors.Errorf("image size %dx%d must be positive", c.Width, c.Height)
	case c.Width*c.Height > composite.MaxPixels:
		return errors.Errorf("image size %dx%d exceeds %d pixels", c.Width, c.Height, composite.MaxPixels)
	case c.Samples <= 0:
		return errors.Errorf("samples %d must be positive", c.Samples)
	case c.Domains[0] <= 0 || c.Domains[1] <= 0 || c.Domains[2] <= 0:
		return errors.Errorf("domains %v must be positive", c.Domains)
	case c.Points < 2:
		return errors.Errorf("points %d must be at least 2", c.Points)
	case c.Field != FieldSphere && c.Field != FieldWaves:
		return errors.Errorf("unknown field %q", c.Field)
	case c.Compositor.Ranks <= 0:
		return errors.Errorf("ranks %d must be positive", c.Compositor.Ranks)
	case c.Compositor.Root < 0 || c.Compositor.Root >= c.Compositor.Ranks:
		return errors.Errorf("root %d not in [0, %d)", c.Compositor.Root, c.Compositor.Ranks)
	case c.Compositor.ChunkSize <= 0:
		return errors.Errorf("chunk size %d must be positive", c.Compositor.ChunkSize)
	case c.Transfer.Bins <= 0 || len(c.Transfer.Points) == 0:
		return errors.Errorf("transfer function needs bins and control points")
	case !(c.Transfer.Max > c.Transfer.Min):
		return errors.Errorf("transfer range [%v, %v] is empty", c.Transfer.Min, c.Transfer.Max)
	}
	if _, err := composite.ParseCodec(c.Compositor.Codec); err != nil {
		return errors.Wrap(err, "compositor")
	}
	if c.Output.Codec != "" {
		if _, err := composite.ParseCodec(c.Output.Codec); err != nil {
			return errors.Wrap(err, "output")
		}
	}
	if err := c.VolumeView().Validate(c.Aspect()); err != nil {
		return errors.Wrap(err, "view")
	}
	return nil
}

// Aspect returns width over height.
func (c *Config) Aspect() float64 {
	return float64(c.Width) / float64(c.Height)
}

// VolumeView converts the view section.
func (c *Config) VolumeView() volume.View {
	return volume.View{
		Camera:        mgl64.Vec3(c.View.Camera),
		Focus:         mgl64.Vec3(c.View.Focus),
		Up:            mgl64.Vec3(c.View.Up),
		ViewAngle:     c.View.ViewAngle,
		Near:          c.View.Near,
		Far:           c.View.Far,
		Parallel:      c.View.Parallel,
		ParallelScale: c.View.ParallelScale,
	}
}

// TransferFunction builds the configured transfer function.
func (c *Config) TransferFunction() (*volume.TransferFunction, error) {
	pts := make([]volume.ControlPoint, len(c.Transfer.Points))
	for i, p := range c.Transfer.Points {
		pts[i] = volume.ControlPoint{Position: p.Position, Color: p.Color.RGBA()}
	}
	tf, err := volume.FromControlPoints(c.Transfer.Bins, pts, c.Transfer.Min, c.Transfer.Max)
	if err != nil {
		return nil, err
	}
	tf.SetLogScale(c.Transfer.LogScale)
	return tf, nil
}

// VolumeLighting converts the lighting section.
func (c *Config) VolumeLighting() (volume.Lighting, volume.Material) {
	l := volume.Lighting{
		Enabled:   c.Lighting.Enabled,
		Headlight: c.Lighting.Headlight,
		Direction: r3.Vec{X: c.Lighting.Direction[0], Y: c.Lighting.Direction[1], Z: c.Lighting.Direction[2]},
	}
	m := volume.Material{
		Ambient:   c.Lighting.Ambient,
		Diffuse:   c.Lighting.Diffuse,
		Specular:  c.Lighting.Specular,
		Shininess: c.Lighting.Shininess,
	}
	return l, m
}

// Color is an RGBA color written either as a CSS color name, optionally
// followed by an alpha ("navy" or "navy 0.5"), or as a list of three or
// four components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// RGBA converts to the volume color type.
func (c Color) RGBA() volume.RGBA {
	return volume.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		fields := strings.Fields(node.Value)
		if len(fields) == 0 || len(fields) > 2 {
			return errors.Errorf("line %d: invalid color %q", node.Line, node.Value)
		}
		named, ok := colornames.Map[strings.ToLower(fields[0])]
		if !ok {
			return errors.Errorf("line %d: unknown color name %q", node.Line, fields[0])
		}
		*c = fromColor(named)
		if len(fields) == 2 {
			a, err := strconv.ParseFloat(fields[1], 32)
			if err != nil {
				return errors.Wrapf(err, "line %d: alpha %q", node.Line, fields[1])
			}
			c.A = float32(a)
		}
		return nil
	case yaml.SequenceNode:
		var v []float32
		if err := node.Decode(&v); err != nil {
			return err
		}
		if len(v) != 3 && len(v) != 4 {
			return errors.Errorf("line %d: color needs 3 or 4 components, got %d", node.Line, len(v))
		}
		*c = Color{R: v[0], G: v[1], B: v[2], A: 1}
		if len(v) == 4 {
			c.A = v[3]
		}
		return nil
	}
	return errors.Errorf("line %d: invalid color", node.Line)
}

// MarshalYAML writes the component list form.
func (c Color) MarshalYAML() (any, error) {
	return []float32{c.R, c.G, c.B, c.A}, nil
}

func fromColor(col color.RGBA) Color {
	return Color{
		R: float32(col.R) / 255,
		G: float32(col.G) / 255,
		B: float32(col.B) / 255,
		A: float32(col.A) / 255,
	}
}
