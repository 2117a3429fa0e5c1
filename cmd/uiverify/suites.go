package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cgast/uiverify/internal/config"
	"github.com/cgast/uiverify/internal/suites"
)

func newSuitesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "suites",
		Short: "List the built-in suites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSuites(cmd.OutOrStdout())
		},
	}
}

func listSuites(out io.Writer) error {
	fmt.Fprintln(out, "Built-in suites:")
	for _, name := range suites.Names() {
		s, err := suites.Load(name, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-16s %d steps  %s\n", name, len(s.Steps), s.Meta.Description)
	}
	return nil
}

func newInitCommand() *cobra.Command {
	var name, output string
	var withConfig bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a suite file from a built-in suite",
		Example: `  uiverify init --suite dashboard-tour --output suites/tour.yaml
  uiverify init --config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if withConfig {
				if err := scaffoldConfig(out, config.Dir); err != nil {
					return err
				}
			}
			if name == "" {
				if withConfig {
					return nil
				}
				fmt.Fprintln(out, "Usage: uiverify init --suite <name> [--output <path>]")
				fmt.Fprintln(out)
				return listSuites(out)
			}
			if output == "" {
				output = name + ".yaml"
			}
			return scaffoldSuite(out, name, output)
		},
	}
	cmd.Flags().StringVar(&name, "suite", "", "built-in suite to copy")
	cmd.Flags().StringVar(&output, "output", "", "path of the new suite file (default <suite>.yaml)")
	cmd.Flags().BoolVar(&withConfig, "config", false, "also write "+filepath.Join(config.Dir, config.ConfigFile)+" with defaults")
	return cmd
}

// scaffoldSuite copies a built-in suite to outputPath.
func scaffoldSuite(out io.Writer, name, outputPath string) error {
	data, err := suites.Get(name)
	if err != nil {
		return err
	}
	if err := writeNew(outputPath, data); err != nil {
		return err
	}

	fmt.Fprintf(out, "Created %s from built-in suite %q\n", outputPath, name)
	fmt.Fprintln(out, "Edit the file to customize the steps, then run:")
	fmt.Fprintf(out, "  uiverify run %s\n", outputPath)
	return nil
}

// scaffoldConfig writes a default config.yaml into dir.
func scaffoldConfig(out io.Writer, dir string) error {
	data, err := config.Template()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, config.ConfigFile)
	if err := writeNew(path, data); err != nil {
		return err
	}
	fmt.Fprintf(out, "Created %s\n", path)
	return nil
}

// writeNew writes data to path, refusing to overwrite an existing file.
func writeNew(path string, data []byte) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file %q already exists (use --output to specify a different path)", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
