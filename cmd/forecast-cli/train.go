package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"

	"github.com/boutique-ia/forecast-engine/internal/model"
	"github.com/boutique-ia/forecast-engine/internal/prediction"
	"github.com/boutique-ia/forecast-engine/internal/sales"
)

// newTrainCmd creates the train subcommand.
func newTrainCmd() *cobra.Command {
	var (
		since  string
		epochs int
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the demand model from the business service history",
		Long: `Train fetches monthly sales per product since --desde, cleans the history,
fits the regression network and saves the model bundle to the configured
model directory. Each run is recorded in the run history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Minute)
			defer cancel()

			var from time.Time
			if since != "" {
				t, err := sales.ParseDate(since)
				if err != nil {
					return fmt.Errorf("invalid --desde %q: use YYYY-MM-DD", since)
				}
				from = t
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			opts := a.TrainOptions()
			if epochs > 0 {
				opts.Epochs = epochs
			}

			var (
				bar   *mpb.Bar
				stage prediction.Stage
				spin  = ui.Spinner("Verificando servicio de negocio...")
			)
			opts.OnEpoch = func(s model.EpochStats) {
				if bar != nil {
					bar.SetCurrent(int64(s.Epoch))
				}
			}
			onStage := func(s prediction.Stage) {
				stage = s
				switch s {
				case prediction.StageCheck:
					spin.Start()
				case prediction.StageFetch:
					spin.Stop()
					ui.Success("Servicio de negocio disponible")
					spin = ui.Spinner("Descargando historial de ventas...")
					spin.Start()
				case prediction.StageTrain:
					spin.Stop()
					ui.Step("Entrenando modelo (máximo %d épocas)", opts.Epochs)
					bar = ui.EpochBar(opts.Epochs)
				}
			}

			trainer, err := a.NewTrainer(from, opts, onStage)
			if err != nil {
				return err
			}

			report, err := trainer.Run(ctx)
			spin.Stop()
			if bar != nil {
				if err != nil {
					bar.Abort(false)
				} else {
					// Early stopping ends short of the epoch budget.
					bar.SetTotal(-1, true)
				}
			}
			if err != nil && stage == prediction.StageCheck {
				ui.Error("Servicio de negocio no disponible en %s", cfg.Upstream.BaseURL)
				return err
			}
			if err != nil {
				ui.Error("Entrenamiento fallido: %v", err)
				return err
			}

			if outputJSON {
				return printJSON(report)
			}

			ui.Section("Datos")
			ui.KeyValue("Periodo", fmt.Sprintf("%s a %s", sales.FormatDate(report.Since), sales.FormatDate(report.Until)))
			ui.KeyValue("Filas", report.Stats.Rows)
			ui.KeyValue("Duplicados eliminados", report.Clean.Duplicates)
			ui.KeyValue("Filas con nulos eliminadas", report.Clean.DroppedNulls)
			ui.KeyValue("Productos únicos", report.Stats.UniqueProducts)
			ui.KeyValue("Marcas únicas", report.Stats.UniqueBrands)
			ui.KeyValue("Unidades vendidas", report.Stats.TotalUnits)
			ui.KeyValue("Ingresos", fmt.Sprintf("%.2f", report.Stats.TotalRevenue))
			ui.KeyValue("Precio promedio", fmt.Sprintf("%.2f", report.Stats.MeanPrice))
			ui.KeyValue("Más vendido", report.Stats.BestSeller)

			h := report.History
			ui.Section("Modelo")
			ui.KeyValue("Épocas", len(h.Epochs))
			ui.KeyValue("Mejor época", h.BestEpoch)
			ui.KeyValue("Parada temprana", h.StoppedEarly)
			ui.KeyValue("Filas entrenamiento/validación/prueba", fmt.Sprintf("%d/%d/%d", h.TrainRows, h.ValRows, h.TestRows))
			ui.KeyValue("MAE prueba", fmt.Sprintf("%.4f", h.TestMAE))
			ui.KeyValue("MSE prueba", fmt.Sprintf("%.4f", h.TestMSE))
			ui.KeyValue("Duración", FormatDuration(h.Duration))
			ui.Newline()
			ui.Success("Modelo guardado en %s", report.ModelDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "desde", "", "first day of training history, YYYY-MM-DD (default: upstream.training_since)")
	cmd.Flags().IntVar(&epochs, "epochs", 0, "override the configured epoch budget")

	return cmd
}
