package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/spellbook/internal/cache"
	"github.com/zulandar/spellbook/internal/config"
	"github.com/zulandar/spellbook/internal/db"
	"github.com/zulandar/spellbook/internal/events"
	"github.com/zulandar/spellbook/internal/i18n"
	"github.com/zulandar/spellbook/internal/importer"
	"github.com/zulandar/spellbook/internal/notify"
	"github.com/zulandar/spellbook/internal/notify/discord"
	"github.com/zulandar/spellbook/internal/notify/slack"
	"github.com/zulandar/spellbook/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		staticDir  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Spellbook API server",
		Long: `Serves the REST API and change stream, plus an optional static frontend.

The Redis query cache, scheduled imports and chat announcements start when
they are configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, staticDir)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Spellbook config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	cmd.Flags().StringVar(&staticDir, "static", "", "directory of frontend files to serve (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, staticDir string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := db.Init(gormDB); err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}
	if staticDir == "" {
		staticDir = cfg.Server.StaticDir
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	bus := events.NewBus(events.DefaultBuffer)
	defer bus.Close()

	var spellCache *cache.Cache
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.Dial(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return err
		}
		defer rc.Close()
		spellCache, err = cache.New(&cache.Config{Client: rc, TTL: cfg.Cache.TTL})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Caching spell queries in Redis at %s (ttl %s)\n", cfg.Cache.RedisAddr, cfg.Cache.TTL)
	}

	notifiers, err := buildNotifiers(cfg)
	if err != nil {
		return err
	}
	if len(notifiers) > 0 {
		go notify.Run(ctx, bus, notifiers...)
		for _, n := range notifiers {
			fmt.Fprintf(out, "Announcing changes to %s\n", n.Name())
		}
	}

	if cfg.Import.Schedule != "" {
		src, err := newImportSource(ctx, cfg, cfg.Import.Source)
		if err != nil {
			return err
		}
		job := &importer.Job{DB: gormDB, Source: src, Cache: spellCache, Bus: bus}
		if _, err := importer.ParseSchedule(cfg.Import.Schedule); err != nil {
			return err
		}
		go func() {
			if err := importer.Schedule(ctx, cfg.Import.Schedule, job); err != nil {
				log.Printf("serve: import schedule: %v", err)
			}
		}()
		fmt.Fprintf(out, "Importing from %s on %q\n", src.Name(), cfg.Import.Schedule)
	}

	return server.Start(ctx, server.StartOpts{
		DB:        gormDB,
		Port:      port,
		Out:       out,
		StaticDir: staticDir,
		Cache:     spellCache,
		Bus:       bus,
	})
}

// buildNotifiers returns a notifier for every configured chat target.
func buildNotifiers(cfg *config.Config) ([]notify.Notifier, error) {
	formatter := notify.NewFormatter(i18n.Printer(i18n.ParseTag(cfg.Server.Locale)))

	var notifiers []notify.Notifier
	if cfg.Notify.Slack.Enabled() {
		n, err := slack.New(slack.Opts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
			Formatter: formatter,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	if cfg.Notify.Discord.Enabled() {
		n, err := discord.New(discord.Opts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
			Formatter: formatter,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}
	return notifiers, nil
}
