package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"

	"github.com/tidewatch/aisbridge"
	"github.com/tidewatch/aisbridge/service"
)

func run(configPath, apiKeyFlag string) error {
	logger := charmlog.New(os.Stderr)

	cfg, err := aisbridge.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	apiKey, err := aisbridge.ResolveAPIKey(apiKeyFlag, cfg)
	if err != nil {
		return fmt.Errorf("resolving API key: %w", err)
	}
	cfg.APIKey = apiKey

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	controller := service.New(cfg, logger)
	logger.Info("starting aisbridge gateway", "stream_url", cfg.StreamURL)
	return controller.Run(ctx)
}

func main() {
	app := &cli.App{
		Name:  "aisbridge-gateway",
		Usage: "bridge a live vessel telemetry stream into NMEA-0183 AIS sentences",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML configuration file",
				Value:   "aisbridge.yaml",
				EnvVars: []string{"AISBRIDGE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "provider API key (overrides AISBRIDGE_API_KEY and the config file)",
			},
		},
		Action: func(cCtx *cli.Context) error {
			return run(cCtx.String("config"), cCtx.String("api-key"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		charmlog.Fatal(err)
	}
}
