package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/stats"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var sortColumn string
	var desc bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the saved history",
		Long:  "Show the saved history. Sort columns: " + strings.Join(ledger.Columns(), ", "),
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			if sortColumn != "" {
				if err := e.app.SortHistoryDirection(e.ctx, sortColumn, !desc); err != nil {
					return err
				}
			}
			return stats.RenderHistory(cmd.OutOrStdout(), e.app.State().History)
		}),
	}
	cmd.Flags().StringVar(&sortColumn, "sort", "", "sort and persist the order by column")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")

	cmd.AddCommand(newHistoryRemoveCmd(flags))
	cmd.AddCommand(newHistoryClearCmd(flags))
	cmd.AddCommand(newHistoryViewCmd(flags))
	return cmd
}

func newHistoryRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the entry at index (as shown in the # column)",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return goerr.Wrap(err, "index must be an integer", goerr.V("index", args[0]))
			}
			removed, ok, err := e.app.Remove(e.ctx, idx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				_, err = fmt.Fprintf(out, "No entry at index %d, nothing removed.\n", idx)
				return err
			}
			_, err = fmt.Fprintf(out, "Removed entry for %s.\n", removed.Date)
			return err
		}),
	}
}

func newHistoryClearCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every history entry",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				if _, err := fmt.Fprint(out, "Are you sure you want to clear all history? [y/N] "); err != nil {
					return err
				}
				answer, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return goerr.Wrap(err, "failed to read confirmation")
				}
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					_, err := fmt.Fprintln(out, "Aborted.")
					return err
				}
			}
			if err := e.app.ClearHistory(e.ctx); err != nil {
				return err
			}
			_, err := fmt.Fprintln(out, "History cleared.")
			return err
		}),
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	return cmd
}

func newHistoryViewCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "view <DD/MM/YYYY>",
		Short: "Show the entry saved for a date",
		Args:  cobra.ExactArgs(1),
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, args []string) error {
			entry, err := e.app.FindEntry(args[0])
			if err != nil {
				return err
			}
			return stats.RenderEntry(cmd.OutOrStdout(), entry)
		}),
	}
}
