package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/spellbook/internal/events"
	"github.com/zulandar/spellbook/internal/state"
	"github.com/zulandar/spellbook/internal/view"
)

func newWatchCmd() *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow server changes and redraw known spells and slots",
		Long: `Prints the known spells and the slot table, then listens on the
server's change stream and redraws whatever a change touched. Stops on
Ctrl+C or when the server closes the stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, cf)
		},
	}

	cf.register(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, cf clientFlags) error {
	api, err := cf.client()
	if err != nil {
		return err
	}
	ctrl, err := cf.controller(cmd)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if err := ctrl.Load(ctx); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := renderWatch(out, cf, ctrl); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nWatching %s (Ctrl+C to stop)\n", api.BaseURL())

	ctrl.OnChange(func() {
		fmt.Fprintln(out)
		if err := renderWatch(out, cf, ctrl); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	})

	err = api.Events(ctx, func(name string, data []byte) {
		t := events.Type(name)
		switch t {
		case events.TypeStatus, events.TypeCharacter, events.TypeCatalog:
		default:
			return
		}
		fmt.Fprintf(out, "\n[%s] %s changed\n", time.Now().Format("15:04:05"), name)
		if err := ctrl.HandleEvent(ctx, t); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func renderWatch(out io.Writer, cf clientFlags, ctrl *state.Controller) error {
	p := cf.printer()
	if err := view.CharacterSheet(out, p, ctrl.Character()); err != nil {
		return err
	}
	fmt.Fprintln(out)
	if err := view.SlotPanel(out, p, ctrl.Slots()); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return view.KnownList(out, p, ctrl.Known())
}
