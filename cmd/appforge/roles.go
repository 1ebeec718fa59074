package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/appforge/action"
	"github.com/hupe1980/appforge/core"
)

func newRolesCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the configured roles and their actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.load()
			if err != nil {
				return err
			}
			reg, err := cfg.LoadRegistry()
			if err != nil {
				return err
			}
			tiers := cfg.TierTable()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ROLE\tNAME\tMODEL\tDELEGATES\tACTIONS")
			for _, ac := range reg.Configs() {
				delegates := "-"
				if canDelegate(ac.Actions) {
					delegates = joinRoles(ac.Delegates)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					ac.Role, ac.Name, tiers.Resolve(ac.Tier), delegates, strings.Join(ac.Actions.Names(), ","))
			}
			return tw.Flush()
		},
	}
}

func canDelegate(set *action.Set) bool {
	for _, s := range set.Schemas() {
		if s.Kind == action.KindDelegate {
			return true
		}
	}
	return false
}

// joinRoles renders a delegate list; an empty list allows every specialist.
func joinRoles(roles []core.Role) string {
	if len(roles) == 0 {
		return "*"
	}
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ",")
}
