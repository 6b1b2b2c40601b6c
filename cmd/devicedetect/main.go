// Command devicedetect serves device detection over HTTP.
//
// Configuration comes from the environment (and an optional .env file); see
// devicedetect.Config and httpserver.Config for the variables.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/dmitrymomot/devicedetect"
	"github.com/dmitrymomot/devicedetect/pkg/config"
	"github.com/dmitrymomot/devicedetect/pkg/httpserver"
	"github.com/dmitrymomot/devicedetect/pkg/logger"
	"github.com/dmitrymomot/devicedetect/pkg/requestid"
)

type serviceConfig struct {
	Detector devicedetect.Config
	HTTP     httpserver.Config `envPrefix:"DEVICEDETECT_"`
}

func main() {
	envFile := flag.String("env", "", "load variables from this .env file first")
	flag.Parse()

	if *envFile != "" {
		config.MustLoadEnv(*envFile)
	}
	var cfg serviceConfig
	config.MustLoad(&cfg)

	env := cfg.Detector.LogEnv
	if env == "" {
		env = logger.EnvProduction
	}
	log := logger.New(
		logger.WithEnvironment(env, "devicedetect"),
		logger.WithLevelName(cfg.Detector.LogLevel),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("devicedetect stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg serviceConfig, log *slog.Logger) error {
	d, err := devicedetect.Open(ctx, cfg.Detector, devicedetect.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	srv := httpserver.NewFromConfig(cfg.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(l *slog.Logger) {
			if err := d.Close(); err != nil {
				l.Error("failed to close detector", logger.Error(err))
			}
		}),
	)
	return srv.Run(ctx, d.Handler())
}
