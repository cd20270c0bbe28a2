package sales

// Stats summarizes a dataset before training.
type Stats struct {
	Rows           int     `json:"total_productos"`
	UniqueProducts int     `json:"productos_unicos"`
	UniqueBrands   int     `json:"marcas_unicas"`
	TotalUnits     int64   `json:"cantidad_total_vendida"`
	TotalRevenue   float64 `json:"ventas_totales"`
	MeanPrice      float64 `json:"precio_promedio"`
	BestSeller     string  `json:"producto_mas_vendido,omitempty"`
}

// ComputeStats returns summary statistics for ds.
func ComputeStats(ds Dataset) Stats {
	st := Stats{Rows: ds.Len()}
	if ds.Empty() {
		return st
	}

	products := make(map[int64]struct{})
	brands := make(map[string]struct{})
	var priceSum float64
	best := -1
	for i, r := range ds.Records {
		products[r.ProductID] = struct{}{}
		brands[r.Brand] = struct{}{}
		st.TotalUnits += r.UnitsSold
		st.TotalRevenue += r.TotalRevenue
		priceSum += r.Price
		if best < 0 || r.UnitsSold > ds.Records[best].UnitsSold {
			best = i
		}
	}

	st.UniqueProducts = len(products)
	st.UniqueBrands = len(brands)
	st.MeanPrice = priceSum / float64(ds.Len())
	st.BestSeller = ds.Records[best].ProductName
	return st
}
