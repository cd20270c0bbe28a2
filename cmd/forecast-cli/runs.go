package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/boutique-ia/forecast-engine/internal/storage"
)

// newRunsCmd creates the runs subcommand.
func newRunsCmd() *cobra.Command {
	var (
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent training and prediction runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			filter := storage.RunFilter{Kind: storage.RunKind(kind), Limit: limit}
			switch filter.Kind {
			case "", storage.RunKindTraining, storage.RunKindPrediction:
			default:
				return fmt.Errorf("invalid --kind %q: use training or prediction", kind)
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.Runs.List(ctx, filter)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if outputJSON {
				if runs == nil {
					runs = []*storage.Run{}
				}
				return printJSON(runs)
			}

			ui := NewUI(false, noColor)
			defer ui.Close()
			if len(runs) == 0 {
				ui.Info("No hay ejecuciones registradas")
				return nil
			}
			ui.Table(runHeaders, runRows(runs))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind: training or prediction")
	cmd.Flags().IntVarP(&limit, "limit", "n", storage.DefaultListLimit, "maximum runs to list")

	return cmd
}

var runHeaders = []string{"ID", "Tipo", "Estado", "Ventana", "Filas", "Top", "Duración", "Inicio"}

func runRows(runs []*storage.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := string(r.Status)
		if r.Error != "" {
			status += ": " + truncate(r.Error, 40)
		}
		rows = append(rows, []string{
			r.ID.String()[:8],
			string(r.Kind),
			status,
			r.WindowStart + " → " + r.WindowEnd,
			strconv.Itoa(r.Rows),
			truncate(r.TopProduct, 24),
			FormatDuration(r.Duration()),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
