package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zulandar/spellbook/internal/catalog"
	"github.com/zulandar/spellbook/internal/state"
	"github.com/zulandar/spellbook/internal/view"
)

func newSpellsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spells",
		Short: "Browse the spell catalog and mark spells",
	}

	cmd.AddCommand(newSpellsListCmd())
	cmd.AddCommand(newSpellsKnownCmd())
	cmd.AddCommand(newSpellsMarkCmd())
	return cmd
}

func newSpellsListCmd() *cobra.Command {
	var (
		cf      clientFlags
		filters = make(map[string]*string, len(catalog.FilterKeys))
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List spells matching filters",
		Long: `Lists catalog spells ordered by name. Filters combine with AND;
values that do not parse are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string, len(filters))
			for key, v := range filters {
				if cmd.Flags().Changed(key) {
					values[key] = *v
				}
			}
			return runSpellsList(cmd, cf, values)
		},
	}

	cf.register(cmd)
	usage := map[string]string{
		catalog.KeyQuery:         "substring of the spell name",
		catalog.KeyLevel:         "spell level, 0 for cantrips",
		catalog.KeyClass:         "class name substring",
		catalog.KeySchool:        "school name substring",
		catalog.KeyRitual:        "true or false",
		catalog.KeyConcentration: "true or false",
		catalog.KeyComponent:     "component letter: V, S or M",
	}
	for _, key := range catalog.FilterKeys {
		filters[key] = cmd.Flags().String(key, "", usage[key])
	}
	return cmd
}

func runSpellsList(cmd *cobra.Command, cf clientFlags, values map[string]string) error {
	ctrl, errs, err := cf.flushController(cmd)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx := cmd.Context()
	if len(values) == 0 {
		if err := ctrl.Refresh(ctx); err != nil {
			return err
		}
	}
	for _, key := range catalog.FilterKeys {
		v, ok := values[key]
		if !ok {
			continue
		}
		if err := ctrl.SetFilter(ctx, key, v); err != nil {
			return err
		}
	}
	ctrl.Flush()
	if err := errs.Err(); err != nil {
		return err
	}
	return view.SpellTable(cmd.OutOrStdout(), cf.printer(), ctrl.Spells())
}

func newSpellsKnownCmd() *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:   "known",
		Short: "List known spells",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := cf.controller(cmd)
			if err != nil {
				return err
			}
			defer ctrl.Close()
			if err := ctrl.Refresh(cmd.Context()); err != nil {
				return err
			}
			return view.KnownList(cmd.OutOrStdout(), cf.printer(), ctrl.Known())
		},
	}

	cf.register(cmd)
	return cmd
}

func newSpellsMarkCmd() *cobra.Command {
	var (
		cf       clientFlags
		known    bool
		prepared bool
		favorite bool
	)

	cmd := &cobra.Command{
		Use:   "mark <id>",
		Short: "Toggle the known, prepared or favorite mark of a spell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil || id == 0 {
				return fmt.Errorf("invalid spell id %q", args[0])
			}
			var flags []state.Flag
			if known {
				flags = append(flags, state.FlagKnown)
			}
			if prepared {
				flags = append(flags, state.FlagPrepared)
			}
			if favorite {
				flags = append(flags, state.FlagFavorite)
			}
			if len(flags) == 0 {
				return fmt.Errorf("nothing to mark: pass --known, --prepared or --favorite")
			}
			return runSpellsMark(cmd, cf, uint(id), flags)
		},
	}

	cf.register(cmd)
	cmd.Flags().BoolVarP(&known, "known", "k", false, "toggle the known mark")
	cmd.Flags().BoolVarP(&prepared, "prepared", "p", false, "toggle the prepared mark")
	cmd.Flags().BoolVarP(&favorite, "favorite", "f", false, "toggle the favorite mark")
	return cmd
}

func runSpellsMark(cmd *cobra.Command, cf clientFlags, id uint, flags []state.Flag) error {
	ctrl, err := cf.controller(cmd)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx := cmd.Context()
	if err := ctrl.Refresh(ctx); err != nil {
		return err
	}
	for _, flag := range flags {
		if err := ctrl.Toggle(ctx, id, flag); err != nil {
			return err
		}
	}

	for _, s := range ctrl.Spells() {
		if s.ID == id {
			fmt.Fprintf(cmd.OutOrStdout(), "%d  %s  %s\n", s.ID, s.Name, view.Marks(s))
			return nil
		}
	}
	return nil
}
