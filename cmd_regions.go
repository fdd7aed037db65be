package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sub-renamer/internal/rules"
)

var regionsExport string

func init() {
	commandRegions.Flags().StringVarP(&regionsExport, "export", "e", "", "Write the effective rules to a YAML file")
	mainCommand.AddCommand(commandRegions)
}

var commandRegions = &cobra.Command{
	Use:   "regions",
	Short: "List region rules in match order",
	Args:  cobra.NoArgs,
	RunE:  runRegions,
}

func runRegions(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	set, err := rules.LoadFile(cfg.RulesFile)
	if err != nil {
		return err
	}

	if regionsExport != "" {
		if err := rules.Export(set, regionsExport); err != nil {
			return err
		}
		log.WithField("file", regionsExport).Info("rules exported")
		return nil
	}

	table := rules.Compile(set, log)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tCODE\tEN\tCN\tKEYWORDS")
	for i, r := range table.Regions() {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, r.Code, r.Names.EN, r.Names.CN, strings.Join(r.Keywords, ", "))
	}
	return w.Flush()
}
