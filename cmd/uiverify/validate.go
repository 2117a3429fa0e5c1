package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cgast/uiverify/pkg/suite"
)

func newValidateCommand() *cobra.Command {
	var builtin string
	var params []string
	cmd := &cobra.Command{
		Use:   "validate [suite-file]",
		Short: "Check a suite for errors without running it",
		Long: `Parse and validate a suite, checking for:
  - unknown action and expectation types
  - missing or invalid targets
  - duplicate step and screenshot names
  - unresolved {{variables}}
  - review modes that do not match the step

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateSuite(cmd.OutOrStdout(), args, builtin, params)
		},
	}
	cmd.Flags().StringVar(&builtin, "suite", "", "validate a built-in suite")
	cmd.Flags().StringArrayVar(&params, "param", nil, "suite parameter as key=value (repeatable)")
	return cmd
}

func validateSuite(out io.Writer, args []string, builtin string, params []string) error {
	s, err := loadSuite(args, builtin, params)
	if err != nil {
		return err
	}
	label := builtin
	if len(args) > 0 {
		label = filepath.Base(args[0])
	}

	vr := suite.ValidateSuite(s, nil)
	if vr.Valid() {
		fmt.Fprintf(out, "Suite %q is valid (%d steps).\n", s.Meta.Name, len(s.Steps))
		return nil
	}

	fmt.Fprintf(out, "Suite %q has %d error(s):\n", label, len(vr.Errors))
	for _, e := range vr.Errors {
		fmt.Fprintf(out, "  - %s: %s\n", e.Field, e.Message)
	}
	return &exitError{msg: "validation failed"}
}

func newPlanCommand() *cobra.Command {
	var builtin string
	var params []string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "plan [suite-file]",
		Short: "Show what a suite will do without launching a browser",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSuite(args, builtin, params)
			if err != nil {
				return err
			}
			plan, err := suite.GeneratePlan(s, nil)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}
			printPlan(cmd.OutOrStdout(), plan)
			return nil
		},
	}
	cmd.Flags().StringVar(&builtin, "suite", "", "plan a built-in suite")
	cmd.Flags().StringArrayVar(&params, "param", nil, "suite parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	return cmd
}

// printPlan prints a human-readable representation of the execution plan.
func printPlan(out io.Writer, plan suite.ExecutionPlan) {
	fmt.Fprintf(out, "Suite: %s\n", plan.Suite)
	if plan.Description != "" {
		fmt.Fprintf(out, "       %s\n", strings.TrimSpace(plan.Description))
	}
	fmt.Fprintf(out, "Target: %s (viewport %s)\n", plan.Target, plan.Viewport)
	fmt.Fprintf(out, "Risk: %s\n", plan.EstimatedRisk)
	fmt.Fprintf(out, "Steps:\n")
	for _, step := range plan.Steps {
		action := step.Action
		if action == "" {
			action = "(no action)"
		}
		fmt.Fprintf(out, "  %d. %s: %s [%s, review %s]\n", step.Index, step.Name, action, step.Risk, step.Review)
		if step.Expectations > 0 {
			fmt.Fprintf(out, "     expects %d condition(s)\n", step.Expectations)
		}
		if step.Artifact != "" {
			fmt.Fprintf(out, "     screenshot %s.png\n", step.Artifact)
		}
	}
	idem := "yes"
	if !plan.Idempotent {
		idem = "no (mutating steps present)"
	}
	fmt.Fprintf(out, "Idempotent: %s\n", idem)
	fmt.Fprintf(out, "Artifacts: %d screenshot(s), %d expectation(s)\n", len(plan.Artifacts), plan.Expectations)
}
