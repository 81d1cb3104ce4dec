package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAgentsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List configured agents and their allowed binaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			ids := a.agents.IDs()
			if len(ids) == 0 {
				fmt.Fprintln(w, "No agents configured.")
				return nil
			}
			for _, id := range ids {
				def, err := a.agents.Get(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s", def.ID)
				if def.Description != "" {
					fmt.Fprintf(w, "  %s", def.Description)
				}
				fmt.Fprintln(w)
				if len(def.Binaries) == 0 {
					fmt.Fprintln(w, "  (no binaries)")
				}
				for _, b := range def.Binaries {
					fmt.Fprintf(w, "  %s\n", b.Path)
				}
			}
			return nil
		},
	}
}
