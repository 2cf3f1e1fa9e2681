package main

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/input-output-hk/catalyst-forge-libs/datasets/config"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/internal/logger"
	"github.com/input-output-hk/catalyst-forge-libs/datasets/objectstore"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
)

// app holds what the commands share once the global flags are resolved.
type app struct {
	out    io.Writer
	errOut io.Writer
	v      *viper.Viper
	fsys   fs.Filesystem

	// newStore builds the object store for cfg
	newStore func(ctx context.Context, cfg config.Config) (objectstore.Store, error)

	cfg   config.Config
	log   zerolog.Logger
	store objectstore.Store
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		out:      out,
		errOut:   errOut,
		v:        config.New(),
		fsys:     billy.NewOSFS("/"),
		newStore: newStore,
	}
}

// boundFlags maps global flag names to config keys.
var boundFlags = map[string]string{
	"backend":          config.KeyBackend,
	"bucket":           config.KeyBucket,
	"region":           config.KeyRegion,
	"archive-key":      config.KeyArchiveKey,
	"prefix":           config.KeyPrefix,
	"concurrency":      config.KeyConcurrency,
	"endpoint":         config.KeyEndpoint,
	"access-key":       config.KeyAccessKey,
	"secret-key":       config.KeySecretKey,
	"use-ssl":          config.KeyUseSSL,
	"force-path-style": config.KeyForcePathStyle,
	"max-retries":      config.KeyMaxRetries,
	"timeout":          config.KeyTimeout,
	"log-level":        config.KeyLogLevel,
	"log-format":       config.KeyLogFormat,
}

func envVar(key string) []string {
	return []string{config.EnvPrefix + "_" + strings.ToUpper(key)}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "env-file",
			Usage: "Load environment variables from this file if it exists",
			Value: ".env",
		},
		&cli.StringFlag{
			Name:    "backend",
			Usage:   "Object store backend (s3 or minio)",
			EnvVars: envVar(config.KeyBackend),
		},
		&cli.StringFlag{
			Name:    "bucket",
			Usage:   "Bucket holding the archive and the dataset",
			EnvVars: envVar(config.KeyBucket),
		},
		&cli.StringFlag{
			Name:    "region",
			Usage:   "Object store region",
			EnvVars: envVar(config.KeyRegion),
		},
		&cli.StringFlag{
			Name:    "archive-key",
			Usage:   "Key of the dataset archive",
			EnvVars: envVar(config.KeyArchiveKey),
		},
		&cli.StringFlag{
			Name:    "prefix",
			Usage:   "Dataset prefix (default: archive key without .zip)",
			EnvVars: envVar(config.KeyPrefix),
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Usage:   "Maximum entries processed at once",
			EnvVars: envVar(config.KeyConcurrency),
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Usage:   "Custom S3 endpoint URL, or host:port for minio",
			EnvVars: envVar(config.KeyEndpoint),
		},
		&cli.StringFlag{
			Name:    "access-key",
			Usage:   "Static access key",
			EnvVars: envVar(config.KeyAccessKey),
		},
		&cli.StringFlag{
			Name:    "secret-key",
			Usage:   "Static secret key",
			EnvVars: envVar(config.KeySecretKey),
		},
		&cli.BoolFlag{
			Name:    "use-ssl",
			Usage:   "Use https for the minio backend",
			EnvVars: envVar(config.KeyUseSSL),
		},
		&cli.BoolFlag{
			Name:    "force-path-style",
			Usage:   "Use path-style addressing for the s3 backend",
			EnvVars: envVar(config.KeyForcePathStyle),
		},
		&cli.IntFlag{
			Name:    "max-retries",
			Usage:   "Maximum attempts per S3 request",
			EnvVars: envVar(config.KeyMaxRetries),
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "Per-request timeout for the s3 backend",
			EnvVars: envVar(config.KeyTimeout),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			EnvVars: envVar(config.KeyLogLevel),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log output format (console or json)",
			EnvVars: envVar(config.KeyLogFormat),
		},
	}
}

func (a *app) cli() *cli.App {
	return &cli.App{
		Name:      "datasetctl",
		Usage:     "Extract, validate and republish a YOLO dataset archive",
		Flags:     globalFlags(),
		Writer:    a.out,
		ErrWriter: a.errOut,
		Before:    a.setup,
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run the full pipeline: preflight, extract, verify and report",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "report-file",
						Usage: "Write the run report as JSON to this path",
					},
				},
				Before: a.connect,
				Action: a.run,
			},
			{
				Name:  "verify",
				Usage: "Check the dataset layout and data.yaml under the prefix",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "strict",
						Usage: "Fail when a subpath is missing or data.yaml has problems",
					},
				},
				Before: a.connect,
				Action: a.verify,
			},
			{
				Name:  "stats",
				Usage: "Summarize the objects under the prefix",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the stats as JSON",
					},
				},
				Before: a.connect,
				Action: a.stats,
			},
			{
				Name:  "push",
				Usage: "Upload a local archive to the configured archive key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path of the local archive",
						Required: true,
					},
				},
				Before: a.connect,
				Action: a.push,
			},
		},
	}
}

// setup loads the env file, applies flag overrides and resolves the config.
func (a *app) setup(c *cli.Context) error {
	if err := config.LoadEnvFile(c.String("env-file")); err != nil {
		return err
	}
	for name, key := range boundFlags {
		if c.IsSet(name) {
			a.v.Set(key, c.Value(name))
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if cfg.LogFormat == config.LogFormatJSON {
		a.log = logger.NewJSON(a.errOut, cfg.LogLevel)
	} else {
		a.log = logger.New(a.errOut, cfg.LogLevel)
	}
	return nil
}

func (a *app) connect(c *cli.Context) error {
	store, err := a.newStore(c.Context, a.cfg)
	if err != nil {
		return err
	}
	a.store = store
	a.log.Debug().
		Str("backend", string(a.cfg.Backend)).
		Str("bucket", a.cfg.Bucket).
		Msg("connected object store")
	return nil
}
