package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/debemdeboas/postdesk/internal/config"
	"github.com/debemdeboas/postdesk/internal/kv"
	"github.com/debemdeboas/postdesk/internal/logger"
	"github.com/debemdeboas/postdesk/internal/repository"
	"github.com/debemdeboas/postdesk/internal/util"
	"github.com/rs/zerolog"
)

var keys = []string{repository.KeyDrafts, repository.KeyTemplates, repository.KeyStats}

// main copies drafts, templates and stats from one storage backend to another.
func main() {
	from := flag.String("from", "", "config file describing the source storage")
	to := flag.String("to", "", "config file describing the destination storage")
	envFile := flag.String("env", ".env", "env file with storage secrets")
	dryRun := flag.Bool("dry-run", false, "report what would be copied without writing")
	flag.Parse()

	log := logger.New("info", logger.FormatConsole)
	kv.SetLogger(logger.Component(log, "kv"))

	if *from == "" || *to == "" {
		log.Fatal().Msg("Both --from and --to flags are required")
	}

	ctx := context.Background()
	src, closeSrc, err := open(ctx, *from, *envFile)
	if err != nil {
		log.Fatal().Err(err).Str("config", *from).Msg("Opening source")
	}
	defer closeSrc()

	dst, closeDst, err := open(ctx, *to, *envFile)
	if err != nil {
		log.Fatal().Err(err).Str("config", *to).Msg("Opening destination")
	}
	defer closeDst()

	copied, err := migrate(src, dst, *dryRun, log)
	if err != nil {
		log.Error().Err(err).Msg("Migration failed")
		os.Exit(1)
	}
	log.Info().Int("keys", copied).Bool("dry_run", *dryRun).Msg("Migration finished")
}

func open(ctx context.Context, path, envFile string) (*kv.Keyspace, func(), error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	cfg.LoadEnv(envFile)

	store, closer, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return kv.NewKeyspace(store, cfg.Storage.Namespace), func() { closer.Close() }, nil
}

// migrate copies every repository key present in src. Values are copied
// byte for byte.
func migrate(src, dst *kv.Keyspace, dryRun bool, log zerolog.Logger) (int, error) {
	copied := 0
	for _, key := range keys {
		value, ok := src.Get(key)
		if !ok {
			log.Info().Str("key", key).Msg("Not present in source, skipping")
			continue
		}

		log.Info().
			Str("key", key).
			Int("bytes", len(value)).
			Str("sha256", util.ContentHash(value)).
			Msg("Copying")

		if dryRun {
			copied++
			continue
		}
		if err := dst.Set(key, value); err != nil {
			return copied, fmt.Errorf("writing %s: %w", key, err)
		}
		copied++
	}
	return copied, nil
}
