package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"commitline/internal/config"
	"commitline/internal/domain"
	"commitline/internal/engine"
)

var trendArrows = map[domain.Trend]string{
	domain.TrendUp:     "↑",
	domain.TrendDown:   "↓",
	domain.TrendStable: "→",
}

func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Show the reliability score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.Integrity(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(m)
				}
				printMetrics(m)
				return nil
			})
		},
	}
}

func printMetrics(m domain.IntegrityMetrics) {
	fmt.Printf("Score: %.1f (%s)\n", m.Score, m.LetterGrade)
	fmt.Printf("On-time streak: %d week(s)\n", m.CurrentStreakWeeks)
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Metric", "Value", "Trend"})
	rows := []struct {
		c     domain.Component
		label string
		v     float64
	}{
		{domain.ComponentOnTime, "On-time delivery", m.OnTimeRate},
		{domain.ComponentNotification, "Early warning", m.NotificationTimeliness},
		{domain.ComponentCleanup, "Cleanup follow-through", m.CleanupCompletionRate},
		{domain.ComponentEstimation, "Estimation accuracy", m.EstimationAccuracy},
	}
	for _, r := range rows {
		tw.AppendRow(table.Row{r.label, fmt.Sprintf("%.0f%%", r.v*100), trendArrows[m.Trends[r.c]]})
	}
	tw.Render()
}

func reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Score with coaching and the commitments pulling it down",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				r, err := e.Report(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(r)
				}
				printMetrics(r.Metrics)
				fmt.Println()
				fmt.Println(r.Coaching)
				if len(r.Affecting) == 0 {
					return nil
				}
				fmt.Println()
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Deliverable", "Stakeholder", "Due", "Reason", "When"})
				for _, a := range r.Affecting {
					tw.AppendRow(table.Row{a.Deliverable, a.Stakeholder, a.DueDate, a.Reason, formatTime(&a.At)})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect scoring config",
		Long:  "Scoring weights, streak bonus and metric windows live in commitline.yml in the workspace. Without the file the defaults apply.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default commitline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate commitline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(viper.GetString("workspace"))
			if viper.GetBool("json") {
				out := map[string]any{"ok": err == nil}
				if err != nil {
					out["error"] = err.Error()
				}
				return printJSON(out)
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every commitment and cleanup plan change, newest first.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.RecentEvents(ctx, n, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Type", "Entity", "Payload"})
				for _, ev := range events {
					tw.AppendRow(table.Row{formatTime(&ev.TS), ev.Type, ev.EntityKind + ":" + ev.EntityID, ev.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}
