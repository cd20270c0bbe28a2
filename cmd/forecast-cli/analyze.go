package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/boutique-ia/forecast-engine/internal/nlp"
)

// newParseCmd creates the parse subcommand.
func newParseCmd() *cobra.Command {
	var entity string

	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Parse a Spanish report request into a structured query",
		Example: `  forecast-cli parse "ventas al contado del mes pasado en pdf"
  forecast-cli parse --entidad productos "top 5 zapatillas nike talla 42"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			target := nlp.Entity(entity)
			switch target {
			case "":
				target = nlp.DetectIntent(text)
			case nlp.EntitySales, nlp.EntityProducts:
			default:
				return fmt.Errorf("invalid --entidad %q: use ventas or productos", entity)
			}

			q := nlp.NewAnalyzer().AnalyzeAs(target, text)
			logger.Debug().Str("entity", string(target)).Str("text", text).Msg("report request parsed")
			return printJSON(q)
		},
	}

	cmd.Flags().StringVar(&entity, "entidad", "", "force the domain: ventas or productos (default: detected)")
	return cmd
}

// newIntentCmd creates the intent subcommand.
func newIntentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intent [text]",
		Short: "Show which report domain a request routes to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			score := nlp.ScoreIntent(text)
			intent := nlp.DetectIntent(text)

			if outputJSON {
				return printJSON(struct {
					Intent nlp.Entity      `json:"intencion"`
					Score  nlp.IntentScore `json:"puntaje"`
				}{intent, score})
			}

			ui := NewUI(false, noColor)
			defer ui.Close()
			ui.KeyValue("Intención", intent)
			ui.KeyValue("Puntaje ventas", score.Sales)
			ui.KeyValue("Puntaje productos", score.Products)
			return nil
		},
	}
}
