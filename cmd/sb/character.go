package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/spellbook/internal/character"
	"github.com/zulandar/spellbook/internal/slots"
	"github.com/zulandar/spellbook/internal/view"
)

func newCharacterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "character",
		Aliases: []string{"char"},
		Short:   "Show or edit the character sheet",
	}

	cmd.AddCommand(newCharacterShowCmd())
	cmd.AddCommand(newCharacterSetCmd())
	return cmd
}

func newCharacterShowCmd() *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the character sheet and its spell slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, err := cf.controller(cmd)
			if err != nil {
				return err
			}
			defer ctrl.Close()
			if err := ctrl.LoadCharacter(cmd.Context()); err != nil {
				return err
			}
			return printSheet(cmd, cf, ctrl.Character(), ctrl.Slots())
		},
	}

	cf.register(cmd)
	return cmd
}

type characterEdit struct {
	name     string
	class    string
	subclass string
	level    int
}

func newCharacterSetCmd() *cobra.Command {
	var (
		cf   clientFlags
		edit characterEdit
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update fields of the character sheet",
		Long: `Updates the given fields and saves the sheet. Fields that are not
passed keep their stored value. Levels run from 1 to 20.`,
		Example: `  sb character set --class wizard --level 5
  sb character set --name Merlino --subclass "Scuola di Invocazione"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCharacterSet(cmd, cf, edit)
		},
	}

	cf.register(cmd)
	cmd.Flags().StringVar(&edit.name, "name", "", "character name")
	cmd.Flags().StringVar(&edit.class, "class", "", "class name, e.g. wizard or mago")
	cmd.Flags().StringVar(&edit.subclass, "subclass", "", "subclass name")
	cmd.Flags().IntVar(&edit.level, "level", 0, "character level (1-20)")
	return cmd
}

func runCharacterSet(cmd *cobra.Command, cf clientFlags, edit characterEdit) error {
	ctrl, errs, err := cf.flushController(cmd)
	if err != nil {
		return err
	}
	defer ctrl.Close()

	ctx := cmd.Context()
	if err := ctrl.LoadCharacter(ctx); err != nil {
		return err
	}

	flags := cmd.Flags()
	ch := ctrl.Character()
	if flags.Changed("name") {
		ch.Name = edit.name
	}
	if flags.Changed("subclass") {
		ch.Subclass = edit.subclass
	}

	// Name and subclass alone are text edits and save through the
	// debounced path; class and level save at once.
	if !flags.Changed("class") && !flags.Changed("level") {
		ctrl.EditCharacterText(ctx, ch.Name, ch.Subclass)
		ctrl.Flush()
		if err := errs.Err(); err != nil {
			return err
		}
		return printSheet(cmd, cf, ctrl.Character(), ctrl.Slots())
	}

	if flags.Changed("class") {
		ch.ClassName = edit.class
	}
	if flags.Changed("level") {
		if edit.level < slots.MinLevel || edit.level > slots.MaxLevel {
			return fmt.Errorf("invalid level %d: must be between %d and %d", edit.level, slots.MinLevel, slots.MaxLevel)
		}
		ch.Level = edit.level
	}
	if err := ctrl.UpdateCharacter(ctx, ch); err != nil {
		return err
	}
	return printSheet(cmd, cf, ctrl.Character(), ctrl.Slots())
}

func printSheet(cmd *cobra.Command, cf clientFlags, ch character.Character, prog slots.Progression) error {
	out := cmd.OutOrStdout()
	p := cf.printer()
	if err := view.CharacterSheet(out, p, ch); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return view.SlotPanel(out, p, prog)
}
