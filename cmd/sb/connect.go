package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"github.com/zulandar/spellbook/internal/client"
	"github.com/zulandar/spellbook/internal/config"
	"github.com/zulandar/spellbook/internal/db"
	"github.com/zulandar/spellbook/internal/i18n"
	"github.com/zulandar/spellbook/internal/state"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

const defaultConfigPath = "spellbook.yaml"

// connectFromConfig loads config and returns a GORM DB connection.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// clientFlags are shared by the commands that talk to a running server.
type clientFlags struct {
	server string
	lang   string
}

func (f *clientFlags) register(cmd *cobra.Command) {
	server := os.Getenv("SPELLBOOK_SERVER")
	if server == "" {
		server = "http://localhost:5178"
	}
	cmd.Flags().StringVarP(&f.server, "server", "s", server, "spellbook server URL")
	cmd.Flags().StringVar(&f.lang, "lang", "en", "output language (en, it)")
}

func (f *clientFlags) client() (*client.Client, error) {
	return client.New(client.Config{BaseURL: f.server})
}

func (f *clientFlags) printer() *message.Printer {
	return i18n.Printer(i18n.ParseTag(f.lang))
}

// controller returns a state controller over a fresh client. Debounced
// failures are written to the command's error stream.
func (f *clientFlags) controller(cmd *cobra.Command) (*state.Controller, error) {
	ctrl, _, err := f.flushController(cmd)
	return ctrl, err
}

// flushController is controller for commands that Flush debounced calls
// before exiting; the returned errors hold what those calls failed with.
func (f *clientFlags) flushController(cmd *cobra.Command) (*state.Controller, *asyncErrors, error) {
	api, err := f.client()
	if err != nil {
		return nil, nil, err
	}
	errs := &asyncErrors{}
	ctrl := state.New(api, state.Options{
		OnError: func(err error) {
			errs.record(err)
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		},
	})
	return ctrl, errs, nil
}

// asyncErrors keeps the first failure of a debounced call.
type asyncErrors struct {
	mu  sync.Mutex
	err error
}

func (e *asyncErrors) record(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err == nil {
		e.err = err
	}
}

// Err returns the first recorded failure.
func (e *asyncErrors) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}
