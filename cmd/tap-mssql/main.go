package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/queuebridge/tap-mssql/pkg/catalog"
	"github.com/queuebridge/tap-mssql/pkg/config"
	"github.com/queuebridge/tap-mssql/pkg/mssql"
	"github.com/queuebridge/tap-mssql/pkg/resultlog"
	"github.com/queuebridge/tap-mssql/pkg/singer"
	"github.com/queuebridge/tap-mssql/pkg/sink"
	"github.com/queuebridge/tap-mssql/pkg/state"
	"github.com/queuebridge/tap-mssql/pkg/tap"
)

func main() {
	flags := ParseFlags()

	if *flags.Version {
		PrintVersion()
		return
	}
	if *flags.Help {
		PrintHelp()
		return
	}
	if *flags.About {
		if err := PrintAbout(); err != nil {
			fatal("Failed to print about: %v", err)
		}
		return
	}
	if *flags.CreateConfig != "" {
		if err := config.Save(*flags.CreateConfig, config.Sample()); err != nil {
			fatal("Failed to write sample config: %v", err)
		}
		fmt.Printf("Sample config written to %s\n", *flags.CreateConfig)
		return
	}

	if *flags.Config == "" {
		PrintHelp()
		fatal("--config is required")
	}

	log := newLogger()
	defer log.Sync() //nolint:errcheck // stderr sync failure is uninteresting

	cfg, err := config.Load(*flags.Config)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	conn, err := mssql.Connect(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect", zap.Error(err))
	}
	defer conn.Close()

	log.Info("connected", zap.String("server", conn.ServerVersion()), zap.String("database", cfg.Database))

	if *flags.Discover {
		if err := runDiscover(ctx, conn, cfg); err != nil {
			log.Fatal("discovery failed", zap.Error(err))
		}
		return
	}

	if err := runSync(ctx, flags, cfg, conn, log); err != nil {
		log.Fatal("sync failed", zap.Error(err))
	}
}

// newLogger builds the stderr logger. Stdout belongs to the message
// stream and must stay clean.
func newLogger() *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}

	log, err := zcfg.Build()
	if err != nil {
		fatal("Failed to initialize logger: %v", err)
	}
	return log
}

func runDiscover(ctx context.Context, conn *mssql.Connector, cfg *config.Config) error {
	cat, err := tap.Discover(ctx, conn, cfg)
	if err != nil {
		return err
	}

	data, err := cat.Encode()
	if err != nil {
		return err
	}

	_, err = fmt.Println(string(data))
	return err
}

func runSync(ctx context.Context, flags *Flags, cfg *config.Config, conn *mssql.Connector, log *zap.Logger) error {
	var cat *catalog.Catalog
	var err error

	if *flags.Catalog != "" {
		cat, err = catalog.Load(*flags.Catalog)
		if err != nil {
			return err
		}
	} else {
		// No catalog provided: discover and sync everything
		cat, err = tap.Discover(ctx, conn, cfg)
		if err != nil {
			return err
		}
		for _, s := range cat.Streams {
			s.SetStreamMetadata("selected", true)
		}
	}

	st := state.NewManager()
	if *flags.State != "" {
		st, err = state.LoadFile(*flags.State)
		if err != nil {
			return err
		}
	}

	out, closeOut, err := buildOutput(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeOut()

	writer := singer.NewWriter(out)

	runner, err := tap.NewRunner(ctx, cfg, conn, writer, st, log)
	if err != nil {
		return err
	}

	started := time.Now()
	syncErr := runner.Sync(ctx, cat)

	if cfg.ResultLog != nil {
		publisher := resultlog.NewPublisher(cfg.ResultLog)
		defer publisher.Close()

		if err := publisher.Publish(ctx, started, time.Now(),
			runner.StreamsSynced, runner.RecordsExported, syncErr); err != nil {
			log.Warn("failed to publish run result", zap.Error(err))
		}
	}

	if syncErr != nil {
		return syncErr
	}

	log.Info("sync complete",
		zap.Int("streams", runner.StreamsSynced),
		zap.Int64("records", runner.RecordsExported),
		zap.Duration("duration", time.Since(started)),
	)
	return nil
}

// buildOutput selects stdout or a broker publisher for the message
// stream.
func buildOutput(ctx context.Context, cfg *config.Config, log *zap.Logger) (singer.Output, func(), error) {
	if cfg.MessageBroker == nil {
		out := singer.NewStdoutOutput(os.Stdout)
		return out, func() { out.Close() }, nil
	}

	publisher, err := sink.New(ctx, cfg.MessageBroker)
	if err != nil {
		return nil, nil, err
	}
	if err := publisher.Connect(ctx); err != nil {
		return nil, nil, err
	}

	log.Info("publishing messages to broker", zap.String("type", cfg.MessageBroker.Type))
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close broker", zap.Error(err))
		}
	}, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
