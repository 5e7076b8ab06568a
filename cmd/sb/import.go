package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/spellbook/internal/config"
	"github.com/zulandar/spellbook/internal/db"
	"github.com/zulandar/spellbook/internal/importer"
)

const (
	srdTimeout  = 30 * time.Second
	srdCacheTTL = time.Hour
)

func newImportCmd() *cobra.Command {
	var (
		configPath string
		source     string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import spells into the catalog",
		Long: `Fetches spells from an upstream source and upserts them by URL.
Status marks on existing spells are kept.

Sources:
  compendium  Italian compendium at dungeonedraghi.it (default)
  srd         dnd5eapi.co reference API (no components or descriptions)
  github      5e-database JSON dump in a GitHub repository; the same SRD
              spells with components and descriptions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, configPath, source)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to Spellbook config file")
	cmd.Flags().StringVar(&source, "source", "", "source to import from (default from config)")
	return cmd
}

func runImport(cmd *cobra.Command, configPath, source string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	if err := db.Init(gormDB); err != nil {
		return err
	}
	if source == "" {
		source = cfg.Import.Source
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	src, err := newImportSource(ctx, cfg, source)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Importing from %s...\n", src.Name())

	start := time.Now()
	n, err := importer.Run(ctx, gormDB, src)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %d spells in %s\n", n, time.Since(start).Round(time.Millisecond))
	return nil
}

// newImportSource builds the named source from the import settings.
func newImportSource(ctx context.Context, cfg *config.Config, name string) (importer.Source, error) {
	switch name {
	case config.SourceCompendium:
		return importer.NewCompendium(cfg.Import.BaseURL, nil), nil
	case config.SourceSRD:
		return importer.DialSRD(cfg.Import.SRDBaseURL, srdTimeout, srdCacheTTL)
	case config.SourceGitHub:
		gh := cfg.Import.GitHub
		return importer.NewGitHub(ctx, nil, importer.GitHubOpts{
			Owner: gh.Owner,
			Repo:  gh.Repo,
			Path:  gh.Path,
			Ref:   gh.Ref,
			Token: gh.Token,
		})
	}
	return nil, fmt.Errorf("unknown import source %q (compendium, srd, github)", name)
}
