// Command ssehub serves Server-Sent Event streams and the HTTP API that
// publishes to them.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kbukum/ssehub/bootstrap"
	"github.com/kbukum/ssehub/config"
	"github.com/kbukum/ssehub/version"
)

const serviceName = "ssehub"

var opts struct {
	ConfigFile string
	EnvFile    string
}

var flags = []cli.Flag{
	&cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "path to config.yml (searched in ./cmd/ssehub, ./config and /etc/ssehub when unset)",
		EnvVars:     []string{"SSEHUB_CONFIG"},
		Destination: &opts.ConfigFile,
	},
	&cli.StringFlag{
		Name:        "env-file",
		Usage:       "path to a .env file loaded before environment overrides",
		EnvVars:     []string{"SSEHUB_ENV_FILE"},
		Destination: &opts.EnvFile,
	},
}

func main() {
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Fprintln(c.App.Writer, version.Get().String())
	}

	if err := newCLI().Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    serviceName,
		Usage:   "Server-Sent Events hub",
		Version: version.Get().Short(),
		Flags:   flags,
		Action:  serve,
		Commands: []*cli.Command{
			{
				Name:   "check-config",
				Usage:  "validate the configuration and print it with defaults applied",
				Flags:  flags,
				Action: checkConfig,
			},
			tailCommand,
		},
	}
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	if err := wire(app); err != nil {
		return fmt.Errorf("wiring: %w", err)
	}
	return app.Run(c.Context)
}

func checkConfig(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "# %s config OK (environment=%s)\n", cfg.Name, cfg.Environment)
	return cfg.WriteResolved(c.App.Writer)
}

func loadConfig() (*config.AppConfig, error) {
	var lopts []config.LoaderOption
	if opts.ConfigFile != "" {
		lopts = append(lopts, config.WithConfigFile(opts.ConfigFile))
	}
	if opts.EnvFile != "" {
		lopts = append(lopts, config.WithEnvFile(opts.EnvFile))
	}

	cfg := &config.AppConfig{}
	if err := config.LoadConfig(serviceName, cfg, lopts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
