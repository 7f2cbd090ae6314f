package main

import (
	"os"

	"github.com/danmuck/rconctl/internal/config"
	"github.com/danmuck/rconctl/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "configgen",
		Usage: "write or validate rconctl.toml files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Value: "client", Usage: "template kind: client|server"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "rconctl.toml", Usage: "template output path"},
			&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
			&cli.StringFlag{Name: "validate", Usage: "validate the config at `PATH` instead of writing one"},
		},
		Before: func(*cli.Context) error {
			logging.ConfigureRuntime()
			return nil
		},
		Action: func(c *cli.Context) error {
			if path := c.String("validate"); path != "" {
				if _, err := config.Load(path); err != nil {
					return err
				}
				log.Info().Msgf("configgen.validate path=%s ok", path)
				return nil
			}
			kind, output := c.String("kind"), c.String("output")
			if err := config.WriteTemplate(output, kind, c.Bool("force")); err != nil {
				return err
			}
			log.Info().Msgf("configgen.write kind=%s path=%s", kind, output)
			return nil
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Error().Msgf("configgen: %v", err)
		os.Exit(1)
	}
}
