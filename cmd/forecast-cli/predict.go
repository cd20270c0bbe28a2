package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/boutique-ia/forecast-engine/internal/prediction"
)

// newPredictCmd creates the predict subcommand.
func newPredictCmd() *cobra.Command {
	var params prediction.Params

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Rank the products expected to sell best in a future window",
		Long: `Predict blends the same season of past years with recent sales, scores each
product with the trained model and prints the top ranked products.

The window defaults to next calendar month.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
			defer cancel()

			req, err := prediction.ParseRequest(params, time.Now(), cfg.Prediction.DefaultTopN)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			ui := NewUI(outputJSON, noColor)
			defer ui.Close()

			if !a.Predictions.ModelAvailable() {
				ui.Error("No hay un modelo entrenado en %s", cfg.Model.Dir)
				return errors.New("model not trained: run forecast-cli train first")
			}

			spin := ui.Spinner(fmt.Sprintf("Prediciendo %s...", req.Window))
			spin.Start()
			result, err := a.Predictions.Generate(ctx, req)
			spin.Stop()
			if err != nil {
				ui.Error("Predicción fallida: %v", err)
				return err
			}

			if outputJSON {
				return printJSON(result)
			}

			ui.Section("Predicción")
			ui.KeyValue("Periodo", fmt.Sprintf("%s a %s", result.Summary.Period.Start, result.Summary.Period.End))
			ui.KeyValue("Unidades", result.Summary.TotalUnits)
			ui.KeyValue("Ingreso estimado", result.Summary.Revenue().StringFixed(2))
			ui.Newline()

			if len(result.Items) == 0 {
				ui.Warning("Sin datos de ventas para el periodo solicitado")
				return nil
			}
			ui.Table(predictionHeaders, predictionRows(result.Items))
			return nil
		},
	}

	cmd.Flags().StringVar(&params.Start, "fecha-inicio", "", "window start, YYYY-MM-DD")
	cmd.Flags().StringVar(&params.End, "fecha-fin", "", "window end, YYYY-MM-DD")
	cmd.Flags().StringVarP(&params.TopN, "top-n", "n", "", "number of products to return")
	cmd.Flags().StringVar(&params.Brand, "marca", "", "filter by brand")
	cmd.Flags().StringVar(&params.Gender, "genero", "", "filter by gender")
	cmd.Flags().StringVar(&params.GarmentType, "tipo-prenda", "", "filter by garment type")

	return cmd
}

var predictionHeaders = []string{"#", "Producto", "Marca", "Precio", "Unidades", "Confianza", "Histórico"}

func predictionRows(items []prediction.Item) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			strconv.Itoa(it.Rank),
			it.ProductName,
			it.Brand,
			fmt.Sprintf("%.2f", it.Price),
			strconv.FormatInt(it.UnitsPredicted, 10),
			fmt.Sprintf("%.1f%%", it.Confidence),
			strconv.FormatInt(it.HistoricalUnits, 10),
		})
	}
	return rows
}
