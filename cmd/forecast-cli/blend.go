package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/boutique-ia/forecast-engine/internal/app"
	"github.com/boutique-ia/forecast-engine/internal/blend"
	"github.com/boutique-ia/forecast-engine/internal/prediction"
	"github.com/boutique-ia/forecast-engine/internal/sales"
)

// blendSummary is the JSON form of an inspected blend.
type blendSummary struct {
	Window         string               `json:"ventana"`
	SeasonalRanges []string             `json:"rangosEstacionales"`
	FailedRanges   []blend.FetchFailure `json:"rangosFallidos,omitempty"`
	SeasonalRows   int                  `json:"filasEstacionales"`
	RecentRows     int                  `json:"filasRecientes"`
	Rows           int                  `json:"filas"`
	Records        []sales.Record       `json:"registros,omitempty"`
}

// newBlendCmd creates the blend subcommand.
func newBlendCmd() *cobra.Command {
	var (
		params prediction.Params
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "blend",
		Short: "Inspect the blended seasonal/recent dataset for a window",
		Long: `Blend fetches the same season of every past year plus the recent months,
merges them with the configured weights and prints the resulting per-product
rows. It is the exact input the model scores during predict.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			req, err := prediction.ParseRequest(params, time.Now(), cfg.Prediction.DefaultTopN)
			if err != nil {
				return err
			}

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			var bar *progressbar.ProgressBar
			onFetch := func(ev blend.FetchEvent) {
				if outputJSON {
					return
				}
				if bar == nil {
					bar = ui.FetchBar(ev.Total)
				}
				_ = bar.Set(ev.Done)
			}

			a, err := openApp(ctx, app.WithFetchProgress(onFetch), app.WithoutRunHistory())
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Blender.Build(ctx, req.Window, req.Filters)
			if bar != nil {
				_ = bar.Finish()
			}
			if err != nil {
				ui.Error("No se pudo construir el conjunto: %v", err)
				return err
			}

			summary := summarizeBlend(res, limit)
			if outputJSON {
				return printJSON(summary)
			}

			ui.Section("Conjunto combinado")
			ui.KeyValue("Ventana", summary.Window)
			ui.KeyValue("Rangos estacionales", len(summary.SeasonalRanges))
			ui.KeyValue("Filas estacionales", summary.SeasonalRows)
			ui.KeyValue("Filas recientes", summary.RecentRows)
			ui.KeyValue("Filas combinadas", summary.Rows)
			for _, f := range summary.FailedRanges {
				ui.Warning("Rango %s sin datos: %v", f.Window, f.Err)
			}
			ui.Newline()
			ui.Table(blendHeaders, blendRows(summary.Records))
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Start, "fecha-inicio", "", "window start, YYYY-MM-DD")
	cmd.Flags().StringVar(&params.End, "fecha-fin", "", "window end, YYYY-MM-DD")
	cmd.Flags().StringVar(&params.Brand, "marca", "", "filter by brand")
	cmd.Flags().StringVar(&params.Gender, "genero", "", "filter by gender")
	cmd.Flags().StringVar(&params.GarmentType, "tipo-prenda", "", "filter by garment type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "rows to show, ordered by units")

	return cmd
}

// summarizeBlend keeps the limit best-selling rows of the blended dataset.
func summarizeBlend(res *blend.Result, limit int) blendSummary {
	s := blendSummary{
		Window:       res.Window.String(),
		FailedRanges: res.FailedRanges,
		SeasonalRows: res.Seasonal.Len(),
		RecentRows:   res.Recent.Len(),
		Rows:         res.Dataset.Len(),
	}
	for _, w := range res.SeasonalRanges {
		s.SeasonalRanges = append(s.SeasonalRanges, w.String())
	}

	records := append([]sales.Record(nil), res.Dataset.Records...)
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].UnitsSold > records[j].UnitsSold
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	s.Records = records
	return s
}

var blendHeaders = []string{"ID", "Producto", "Marca", "Precio", "Unidades", "Ingresos"}

func blendRows(records []sales.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ProductID, 10),
			r.ProductName,
			r.Brand,
			fmt.Sprintf("%.2f", r.Price),
			strconv.FormatInt(r.UnitsSold, 10),
			fmt.Sprintf("%.2f", r.TotalRevenue),
		})
	}
	return rows
}
