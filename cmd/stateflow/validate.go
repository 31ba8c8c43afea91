package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soochol/stateflow/internal/engine"
	"github.com/soochol/stateflow/internal/loader"
)

var errInvalidDefinitions = errors.New("one or more definitions are invalid")

func newValidateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Validate workflow definition documents and report lint warnings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			eng := newEngine(cfg)
			out := cmd.OutOrStdout()

			failed := false
			for _, path := range args {
				wf, err := loader.ParseFile(path)
				if err != nil {
					fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
					failed = true
					continue
				}
				if err := eng.ValidateDefinition(wf); err != nil {
					fmt.Fprintf(out, "FAIL %s: %v\n", path, err)
					failed = true
					continue
				}
				fmt.Fprintf(out, "ok   %s (%s)\n", path, wf.ID)
				for _, w := range engine.Lint(wf) {
					fmt.Fprintf(out, "     warning: %s\n", w)
				}
			}
			if failed {
				return errInvalidDefinitions
			}
			return nil
		},
	}
}
