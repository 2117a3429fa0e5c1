package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cgast/uiverify/pkg/history"
	"github.com/cgast/uiverify/pkg/report"
)

func newHistoryCommand(g *globalOptions) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(g)
			if err != nil {
				return err
			}
			defer store.Close()
			runs, err := store.List(limit)
			if err != nil {
				return err
			}
			if asJSON {
				return historyJSON(cmd.OutOrStdout(), runs)
			}
			printHistory(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the listing as JSON")

	cmd.AddCommand(newHistoryShowCommand(g))
	cmd.AddCommand(newHistoryPruneCommand(g))
	return cmd
}

func newHistoryShowCommand(g *globalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print the report of a past run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(g)
			if err != nil {
				return err
			}
			defer store.Close()
			result, err := store.Get(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				data, err := report.JSON(result)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			_, err = io.WriteString(out, report.Markdown(result))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored result as JSON")
	return cmd
}

func newHistoryPruneCommand(g *globalOptions) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(g)
			if err != nil {
				return err
			}
			defer store.Close()
			n, err := store.Prune(keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s).\n", n)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 50, "number of runs to keep")
	return cmd
}

func openHistory(g *globalOptions) (*history.BoltStore, error) {
	return history.NewBoltStore(history.DefaultPath(g.configDir))
}

func printHistory(out io.Writer, runs []history.Summary) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSUITE\tSTATUS\tSTEPS\tDURATION\tFAILURE")
	for _, r := range runs {
		status := "passed"
		if !r.Success {
			status = "FAILED"
		}
		name := r.Suite
		if name == "" {
			name = r.TargetURL
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), name, status,
			r.Passed, r.Passed+r.Failed+r.NotRun, r.Duration.Round(time.Millisecond), r.Failure)
	}
	tw.Flush()
}

func historyJSON(out io.Writer, runs []history.Summary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(runs)
}
