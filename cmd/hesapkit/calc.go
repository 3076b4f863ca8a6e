package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"hesapkit.com/internal/calc"
	"hesapkit.com/internal/rates"
	"hesapkit.com/internal/validate"
)

func newCalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc [calculator] [name=value...]",
		Short: "Evaluate a calculator and print the result as JSON",
		Long: "Evaluates a calculator with the given inputs. Repeat a name for row inputs, " +
			"e.g. grade=A credit=3 grade=B credit=4. Without arguments, lists the calculators.",
		Example: "  hesapkit calc loan principal=10000 rate=12 months=24",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := calc.NewEngine(rates.Default())
			if len(args) == 0 {
				for _, id := range engine.IDs() {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			params, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			ev, err := engine.Evaluate(args[0], params, validate.PlainNumbers)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ev)
		},
	}
	return cmd
}

func parseAssignments(args []string) (url.Values, error) {
	params := url.Values{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", arg)
		}
		params.Add(name, value)
	}
	return params, nil
}
