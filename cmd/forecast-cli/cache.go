package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/boutique-ia/forecast-engine/internal/app"
	"github.com/boutique-ia/forecast-engine/internal/upstream"
)

// newCacheCmd creates the cache command group.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the business service response cache",
	}
	cmd.AddCommand(newCachePurgeCmd())
	return cmd
}

func newCachePurgeCmd() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop cached product sales and report rows",
		Long: `Purge removes cached responses for closed date ranges. Use it after the
business service corrects historical sales so forecasts and reports read the
fixed rows. Only a redis cache outlives the process; memory and none drivers
have nothing to purge.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scopes, err := purgeScopes(scope)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			a, err := openApp(ctx, app.WithoutRunHistory())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Upstream.PurgeCache(ctx, scopes...); err != nil {
				return err
			}

			if outputJSON {
				if scopes == nil {
					scopes = []string{upstream.ScopeProductSales, upstream.ScopeReports}
				}
				return printJSON(map[string]interface{}{
					"driver": cfg.Cache.Driver,
					"purged": scopes,
				})
			}

			ui := NewUI(false, noColor)
			defer ui.Close()
			if cfg.Cache.Driver != "redis" {
				ui.Warning("El caché %q no persiste entre ejecuciones", cfg.Cache.Driver)
			}
			ui.Success("Caché limpiado (%s)", scope)
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "all", "what to purge: all, productos or reporte")

	return cmd
}

// purgeScopes maps the --scope flag to cache scopes. nil means every scope.
func purgeScopes(scope string) ([]string, error) {
	switch scope {
	case "", "all":
		return nil, nil
	case upstream.ScopeProductSales, upstream.ScopeReports:
		return []string{scope}, nil
	default:
		return nil, fmt.Errorf("invalid --scope %q: use all, %s or %s", scope, upstream.ScopeProductSales, upstream.ScopeReports)
	}
}
