package nlp

var salesLemmas = foldedSet(
	"venta", "ventas", "cancelada", "canceladas", "pendiente",
)

var productLemmas = foldedSet(
	"producto", "prenda", "ropa", "marca", "talla", "stock", "inventario",
	"modelo", "estilo", "material", "zapatilla", "camisa", "pantalón",
	"algodón", "cuero", "nike", "adidas", "puma", "cantidad",
)

// Phrases that point at a best-seller ranking, which is a products request.
var bestSellerPhrases = []string{
	"más vendido", "mas vendido", "top", "más vendidos", "mas vendidos",
	"más vendidas", "mas vendidas",
}

const bestSellerBonus = 2

// IntentScore holds the per-domain lemma hit counts.
type IntentScore struct {
	Sales    int `json:"ventas"`
	Products int `json:"productos"`
}

// ScoreIntent counts vocabulary hits per domain. A token counts toward sales
// first; only non-sales tokens are checked against the product vocabulary.
func ScoreIntent(text string) IntentScore {
	text = Normalize(text)

	var score IntentScore
	if containsAny(text, bestSellerPhrases...) {
		score.Products += bestSellerBonus
	}

	for _, lemma := range Lemmas(text) {
		switch {
		case salesLemmas[lemma]:
			score.Sales++
		case productLemmas[lemma]:
			score.Products++
		}
	}
	return score
}

// DetectIntent routes text to the sales or products domain. Products wins
// ties.
func DetectIntent(text string) Entity {
	score := ScoreIntent(text)
	if score.Products >= score.Sales {
		return EntityProducts
	}
	return EntitySales
}

func foldedSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[Fold(w)] = true
	}
	return set
}
