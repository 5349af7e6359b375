package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"commitline/internal/app"
	"commitline/internal/db"
	"commitline/internal/engine"
	clerrors "commitline/internal/errors"
)

var rootCmd = &cobra.Command{
	Use:   "cl",
	Short: "Commitline CLI",
	Long: `Commitline keeps track of what you promised, to whom, and by when.
Core concepts:
- Stakeholder: the person a commitment is made to.
- Commitment: a deliverable promised to a stakeholder by a due date. Statuses go pending -> in_progress -> completed; at_risk flags trouble early; abandoned is final.
- At risk: marking a commitment at risk opens a cleanup plan and pins a "notify the stakeholder" task at the top of its task list.
- Tasks: the steps toward a commitment, with an optional estimate and an actual-effort bucket once done.
- Score: a 0-100 reliability score and letter grade built from on-time delivery, early warning, cleanup follow-through and estimation accuracy.
- Event log: every commitment and plan change, view with 'cl log tail'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := db.EnsureWorkspace(viper.GetString("workspace"))
		return err
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", clerrors.UserMessage(err))
		if action := clerrors.Actionable(err); action != "" {
			fmt.Fprintln(os.Stderr, "hint:", action)
		}
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "detail:", err)
		}
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("COMMITLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "only log warnings and errors")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func registerCommands() {
	rootCmd.AddCommand(stakeholderCmd())
	rootCmd.AddCommand(commitmentCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(logCmd())
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	s, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Verbose:   viper.GetBool("verbose"),
		Quiet:     viper.GetBool("quiet"),
	})
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s.Engine)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	rows, err := fieldRows(v)
	if err != nil {
		return err
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRows(rows)
	tw.Render()
	return nil
}

// fieldRows flattens v's JSON object into one row per top-level key, sorted.
// Nested values are shown as compact JSON.
func fieldRows(v any) ([]table.Row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("cannot render %T as a table: %w", v, err)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]table.Row, 0, len(keys))
	for _, k := range keys {
		var s string
		if err := json.Unmarshal(fields[k], &s); err != nil {
			s = string(fields[k])
		}
		rows = append(rows, table.Row{k, s})
	}
	return rows, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

func exactArgs(names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != len(names) {
			return fmt.Errorf("%w: expected %s", clerrors.ErrValidation, strings.Join(names, " "))
		}
		return nil
	}
}
