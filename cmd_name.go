package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sub-renamer/internal/rules"
)

var (
	styleLang   string
	stylePrefix string
	styleSuffix string
)

func init() {
	addStyleFlags(commandName)
	mainCommand.AddCommand(commandName)
}

// addStyleFlags добавляет флаги оформления имён, общие для name и convert.
func addStyleFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&styleLang, "lang", "", "Output language: EN or CN")
	cmd.Flags().StringVar(&stylePrefix, "prefix", "", "Name prefix")
	cmd.Flags().StringVar(&styleSuffix, "suffix", "", "Name suffix")
}

var commandName = &cobra.Command{
	Use:   "name <names...>",
	Short: "Normalize node names given as arguments",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runName,
}

// Имена из одного вызова делят реестр, поэтому повторы получают
// счётчик так же, как внутри подписки.
func runName(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	applyStyleFlags(cmd, cfg)
	proc, closeDB, err := buildProcessor(cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	n := proc.Normalizer(cfg.RenameConfig())
	out := cmd.OutOrStdout()
	for _, raw := range args {
		if name, ok := n.Normalize(raw); ok {
			fmt.Fprintln(out, name)
		} else {
			fmt.Fprintf(out, "# filtered: %s\n", raw)
		}
	}
	return nil
}

// applyStyleFlags переносит явно заданные флаги оформления в cfg.
func applyStyleFlags(cmd *cobra.Command, cfg *AppConfig) {
	flags := cmd.Flags()
	if flags.Changed("lang") {
		cfg.Lang = rules.ParseLanguage(styleLang).String()
	}
	if flags.Changed("prefix") {
		cfg.Prefix = stylePrefix
	}
	if flags.Changed("suffix") {
		cfg.Suffix = styleSuffix
	}
}
