package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/kpicalc/internal/ledger"
	"github.com/verte-zerg/kpicalc/internal/model"
	"github.com/verte-zerg/kpicalc/internal/stats"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's counters and KPI progress",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			return stats.RenderStatus(cmd.OutOrStdout(), e.app.Tally())
		}),
	}
}

func newStepCmd(flags *globalFlags, use, short string, direction int) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <category> [n]",
		Short: short,
		Long:  short + " by one, n times. Categories: " + categoryList(),
		Args:  cobra.RangeArgs(1, 2),
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := model.ParseCategory(args[0])
			if err != nil {
				return err
			}
			times := 1
			if len(args) == 2 {
				times, err = strconv.Atoi(args[1])
				if err != nil || times <= 0 || times > model.MaxCount {
					return goerr.New("n must be a positive integer", goerr.V("n", args[1]), goerr.V("max", model.MaxCount))
				}
			}
			for i := 0; i < times; i++ {
				if err := e.app.Step(e.ctx, c, direction); err != nil {
					return err
				}
			}
			return printCount(cmd, e, c)
		}),
	}
}

func newSetCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <category> <count>",
		Short: "Set a category count directly",
		Long:  "Set a category count directly. Negative counts are stored as 0. Categories: " + categoryList(),
		Args:  cobra.ExactArgs(2),
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := model.ParseCategory(args[0])
			if err != nil {
				return err
			}
			count, err := strconv.Atoi(args[1])
			if err != nil {
				return goerr.Wrap(err, "count must be an integer", goerr.V("count", args[1]))
			}
			if count > model.MaxCount {
				return goerr.Wrap(model.ErrCountTooLarge, "count out of range", goerr.V("count", count), goerr.V("max", model.MaxCount))
			}
			if err := e.app.Set(e.ctx, c, count); err != nil {
				return err
			}
			return printCount(cmd, e, c)
		}),
	}
}

func printCount(cmd *cobra.Command, e *env, c model.Category) error {
	info, _ := model.Lookup(c)
	tally := e.app.Tally()
	status := e.app.Status()
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\nKPI value: %d\n%s\n",
		info.Label, tally.Counters[c], status.Value, status.Label())
	return err
}

func newNewDayCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "newday",
		Short: "Archive today's Salv(TM) count and reset all counters",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			rec, err := e.app.NewDay(e.ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "New day started. Archived Salv(TM) %d for %s.\n", rec.Value, rec.Date)
			return err
		}),
	}
}

func newSaveCmd(flags *globalFlags) *cobra.Command {
	var override, createNew bool
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save today's points to the history",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			policy := ledger.PolicyAsk
			switch {
			case override:
				policy = ledger.PolicyOverride
			case createNew:
				policy = ledger.PolicyCreateNew
			}
			entry, err := e.app.Save(e.ctx, policy)
			if err != nil {
				if errors.Is(err, ledger.ErrDateExists) {
					return goerr.Wrap(err, "an entry for today already exists, rerun with --override or --new", goerr.V("date", e.app.Today()))
				}
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Values saved to history for %s (total %d, %s).\n",
				entry.Date, ledger.Total(entry), ledger.FormatPercent(entry))
			return err
		}),
	}
	cmd.Flags().BoolVar(&override, "override", false, "replace every entry saved for today")
	cmd.Flags().BoolVar(&createNew, "new", false, "append another entry for today")
	cmd.MarkFlagsMutuallyExclusive("override", "new")
	return cmd
}

func newNightModeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "nightmode",
		Short: "Toggle night mode",
		Args:  cobra.NoArgs,
		RunE: withEnv(flags, func(cmd *cobra.Command, e *env, _ []string) error {
			on, err := e.app.ToggleNightMode(e.ctx)
			if err != nil {
				return err
			}
			state := "off"
			if on {
				state = "on"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Night mode: %s\n", state)
			return err
		}),
	}
}

func categoryList() string {
	keys := model.Keys()
	parts := make([]string, len(keys))
	for i, key := range keys {
		parts[i] = string(key)
	}
	return strings.Join(parts, ", ")
}
