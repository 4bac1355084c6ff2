// volcast renders synthetic rectilinear volumes by ray casting across
// in-process ranks and compositing the partial images.
//
// Usage:
//
//	volcast [-v] render [-c config.yaml] [-o out.png] [-n ranks]
//	volcast inspect <image.vci> [...]
//
// render writes a PNG and, when the config names an output codec, a
// serialized copy of the final frame next to it. inspect prints the header
// and pixel statistics of serialized frames.
package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli"
)

const version = "1.0.0"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Error().Err(err).Msg("volcast failed")
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "volcast"
	app.Usage = "ray cast and composite rectilinear volumes"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.BoolFlag{Name: "verbose, v", Usage: "enable debug logging"},
	}
	app.Before = func(c *cli.Context) error {
		setupLogging(c.GlobalBool("verbose"))
		return nil
	}
	app.Commands = []cli.Command{
		renderCommand(),
		inspectCommand(),
	}
	return app
}

func setupLogging(verbose bool) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}
