package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zulandar/spellbook/internal/view"
)

func newSlotsCmd() *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:   "slots [class] [level]",
		Short: "Show the spell slot table for a class and level",
		Long: `Shows the spell slots of a class at a level. With no arguments the
stored character is used.`,
		Example: `  sb slots
  sb slots paladin 9
  sb slots warlock 11 --lang it`,
		Args: cobra.MatchAll(cobra.MaximumNArgs(2), func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return fmt.Errorf("pass both class and level, or neither")
			}
			return nil
		}),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				class string
				level int
			)
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil {
					return fmt.Errorf("invalid level %q", args[1])
				}
				class, level = args[0], n
			}
			return runSlots(cmd, cf, class, level)
		},
	}

	cf.register(cmd)
	return cmd
}

func runSlots(cmd *cobra.Command, cf clientFlags, class string, level int) error {
	api, err := cf.client()
	if err != nil {
		return err
	}
	res, err := api.Slots(cmd.Context(), class, level)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %d (%s)\n\n", res.Class, res.Level, res.Caster)
	return view.SlotPanel(out, cf.printer(), res.Progression)
}
