package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/noteweave/internal"
	pkgconfig "github.com/starford/noteweave/pkg/config"
)

var version = "dev"

const defaultConfigPath = "config/config.yaml"

// loadConfig reads the --config file, falling back to the user config
// directory and then to the built-in defaults.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	path, err := pkgconfig.Find(cmd.String("config"), pkgconfig.UserFile("noteweave", "config.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist) && !cmd.IsSet("config"):
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	case err != nil:
		return nil, err
	}

	if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
}

func main() {
	cmd := &cli.Command{
		Name:    "noteweave",
		Usage:   "Wikilinks, note references and backlinks across Markdown vaults",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("NOTEWEAVE_CONFIG", "APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the REST API, the event stream and the vault watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve the link tools over MCP on stdio",
				Action: serveMCP,
			},
			syncCommand(),
			linksCommand(),
			backlinksCommand(),
			anchorsCommand(),
			blocksCommand(),
			resolveCommand(),
			expandCommand(),
			normalizeCommand(),
			renameCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
