package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newClassesCmd() *cobra.Command {
	var cf clientFlags

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List the classes with slot tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses(cmd, cf)
		},
	}

	cf.register(cmd)
	return cmd
}

func runClasses(cmd *cobra.Command, cf clientFlags) error {
	api, err := cf.client()
	if err != nil {
		return err
	}
	classes, err := api.Classes(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(classes) == 0 {
		fmt.Fprintln(out, "No classes found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCASTER\tALIASES")
	for _, c := range classes {
		aliases := strings.Join(c.Aliases, ", ")
		if aliases == "" {
			aliases = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Caster, aliases)
	}
	return w.Flush()
}
