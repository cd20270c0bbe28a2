package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Vocabulary tables are ordered; the first phrase found in the text wins.
var brandVocab = []vocabEntry{
	{"nike", "NIKE"},
	{"new balance", "NEW_BALANCE"},
	{"cat", "CAT"},
	{"lee", "LEE"},
	{"skechers", "SKECHERS"},
	{"converse", "CONVERSE"},
	{"adidas", "ADIDAS"},
	{"puma", "PUMA"},
	{"crep protect", "CREP_PROTECT"},
	{"dkny", "DKNY"},
	{"under armour", "UNDER_ARMOUR"},
	{"reebok", "REEBOK"},
	{"levis", "LEVIS"},
	{"levi's", "LEVIS"},
	{"everlast", "EVERLAST"},
}

var garmentVocab = []vocabEntry{
	{"camiseta", "CAMISETA"},
	{"remera", "CAMISETA"},
	{"polo", "CAMISETA"},
	{"camisa", "CAMISA"},
	{"blusa", "BLUSA"},
	{"sudadera", "SUDADERA"},
	{"sueter", "SUETER"},
	{"suéter", "SUETER"},
	{"jersey", "SUETER"},
	{"pantalon", "PANTALON"},
	{"pantalón", "PANTALON"},
	{"falda", "FALDA"},
	{"short", "SHORT"},
	{"leggin", "LEGGIN"},
	{"legging", "LEGGIN"},
	{"jeans", "JEANS"},
	{"jean", "JEANS"},
	{"vaquero", "JEANS"},
	{"vestido", "VESTIDO"},
	{"chaqueta", "CHAQUETA"},
	{"casaca", "CHAQUETA"},
	{"abrigo", "ABRIGO"},
	{"sujetador", "SUJETADOR"},
	{"sosten", "SUJETADOR"},
	{"bra", "SUJETADOR"},
	{"boxer", "BOXER"},
	{"calzoncillo", "CALZONCILLO"},
	{"tanga", "TANGA"},
	{"lenceria", "LENCERIA"},
	{"lencería", "LENCERIA"},
	{"bufanda", "BUFANDA"},
	{"sombrero", "SOMBRERO"},
	{"gorra", "SOMBRERO"},
	{"guantes", "GUANTES"},
	{"bolso", "BOLSO"},
	{"cartera", "BOLSO"},
	{"zapatos", "ZAPATOS"},
	{"zapato", "ZAPATOS"},
	{"botas", "BOTAS"},
	{"bota", "BOTAS"},
	{"sandalias", "SANDALIAS"},
	{"sandalia", "SANDALIAS"},
	{"zapatillas", "ZAPATILLAS"},
	{"zapatilla", "ZAPATILLAS"},
	{"tenis", "ZAPATILLAS"},
	{"deportivas", "ZAPATILLAS"},
	{"bikini", "BIKINI"},
	{"bañador", "BANADOR"},
	{"banador", "BANADOR"},
	{"traje de baño", "BANADOR"},
}

var styleVocab = []vocabEntry{
	{"casual", "CASUAL"},
	{"formal", "FORMAL"},
	{"deportivo", "DEPORTIVO"},
	{"elegante", "ELEGANTE"},
	{"vintage", "VINTAGE"},
	{"bohemio", "BOHEMIO"},
	{"rockero", "ROCKERO"},
	{"rock", "ROCKERO"},
	{"urbano", "URBANO"},
	{"preppy", "PREPPY"},
	{"minimalista", "MINIMALISTA"},
	{"nocturno", "NOCTURNO"},
	{"noche", "NOCTURNO"},
	{"fiesta", "NOCTURNO"},
}

var materialVocab = []vocabEntry{
	{"algodon", "ALGODON"},
	{"algodón", "ALGODON"},
	{"lino", "LINO"},
	{"lana", "LANA"},
	{"seda", "SEDA"},
	{"cuero", "CUERO"},
	{"piel", "CUERO"},
	{"denim", "DENIM"},
	{"mezclilla", "DENIM"},
	{"poliester", "POLIESTER"},
	{"poliéster", "POLIESTER"},
	{"nylon", "NYLON"},
	{"viscosa", "VISCOSA"},
	{"lycra", "LYCRA"},
	{"rayon", "RAYON"},
	{"rayón", "RAYON"},
	{"cachemira", "CACHEMIRA"},
	{"terciopelo", "TERCIOPELO"},
	{"acrilico", "ACRILICO"},
	{"acrílico", "ACRILICO"},
}

var shoeSizeRe = regexp.MustCompile(`(?:talla|numero|número)\s*(?:de\s*)?(\d+(?:\.\d+)?)`)

var shoeSizes = map[string]string{
	"6":   "NUM_6",
	"7":   "NUM_7",
	"7.5": "NUM_7_5",
	"8":   "NUM_8",
	"8.5": "NUM_8_5",
	"9":   "NUM_9",
	"9.5": "NUM_9_5",
	"10":  "NUM_10",
	"11":  "NUM_11",
}

var letterSizePatterns = concat(
	patterns("XS", `\btalla\s+xs\b`),
	patterns("S", `\btalla\s+s\b`),
	patterns("M", `\btalla\s+m\b`),
	patterns("L", `\btalla\s+l\b`),
	patterns("XL", `\btalla\s+xl\b`),
	patterns("XXL", `\btalla\s+xxl\b`),
	patterns("XXXL", `\btalla\s+xxxl\b`),
	patterns("TALLA_UNICA", `\btalla\s+única`, `\btalla\s+unica\b`),
	patterns("XS", `\bextra\s+small\b`),
	patterns("S", `\bsmall\b`),
	patterns("M", `\bmedium\b`, `\bmediano\b`),
	patterns("L", `\blarge\b`),
	patterns("XL", `\bextra\s+large\b`),
)

// DetectBrand returns the brand enum code, or "".
func DetectBrand(text string) string {
	return firstMatch(text, brandVocab)
}

// DetectGender returns the gender enum code, or "".
func DetectGender(text string) string {
	switch {
	case containsAny(text, "hombre", "masculino", "varones", "caballero"):
		return "HOMBRE"
	case containsAny(text, "mujer", "femenino", "dama"):
		return "MUJER"
	case strings.Contains(text, "niño") && !strings.Contains(text, "niña"):
		return "NINO"
	case strings.Contains(text, "niña"):
		return "NINA"
	case containsAny(text, "unisex", "ambos"):
		return "UNISEX"
	}
	return ""
}

// DetectGarmentType returns the garment type enum code, or "".
func DetectGarmentType(text string) string {
	return firstMatch(text, garmentVocab)
}

// DetectSize returns a shoe size (NUM_*) or a clothing size code, or "".
// A numeric size outside the known table falls through to letter sizes.
func DetectSize(text string) string {
	if m := shoeSizeRe.FindStringSubmatch(text); m != nil {
		if code, ok := shoeSizes[m[1]]; ok {
			return code
		}
	}
	return firstPattern(text, letterSizePatterns)
}

// DetectSeason returns the season code mentioned in text, or "".
func DetectSeason(text string) string {
	switch {
	case strings.Contains(text, "primavera"):
		return "PRIMAVERA"
	case strings.Contains(text, "verano"):
		return "VERANO"
	case containsAny(text, "otoño", "otono"):
		return "OTONO"
	case strings.Contains(text, "invierno"):
		return "INVIERNO"
	}
	return ""
}

// DetectStyle returns the style enum code, or "".
func DetectStyle(text string) string {
	return firstMatch(text, styleVocab)
}

// DetectMaterial returns the material enum code, or "".
func DetectMaterial(text string) string {
	return firstMatch(text, materialVocab)
}

// DetectUsage returns the usage enum code, or "".
func DetectUsage(text string) string {
	switch {
	case containsAny(text, "diario", "dia a dia", "día a día"):
		return "DIARIO"
	case strings.Contains(text, "ocasional"):
		return "OCASIONAL"
	case containsAny(text, "deportivo", "deporte", "gym", "gimnasio"):
		return "DEPORTIVO"
	case containsAny(text, "formal", "trabajo", "oficina"):
		return "FORMAL"
	case containsAny(text, "fiesta", "celebracion", "celebración", "evento"):
		return "FIESTA"
	}
	return ""
}

// DetectSaleConditions extracts the sale conditions of a products query.
func DetectSaleConditions(text string) SaleConditions {
	conds := SaleConditions{
		PaymentType: detectPaymentType(text),
		SaleType:    detectSaleType(text),
	}
	switch {
	case strings.Contains(text, "pendiente"):
		conds.SaleStatus = "PENDIENTE"
	case containsAny(text, "completad", "finalizad"):
		conds.SaleStatus = "COMPLETADA"
	case strings.Contains(text, "cancelad"):
		conds.SaleStatus = "CANCELADA"
	}
	return conds
}

// DetectSort returns the requested ordering; best sellers first by default.
func DetectSort(text string) Sort {
	switch {
	case containsAny(text, "más vendido", "mas vendido", "mejor", "top"):
		return Sort{Field: SortByUnits, Direction: Desc}
	case containsAny(text, "menos vendido", "peor"):
		return Sort{Field: SortByUnits, Direction: Asc}
	case containsAny(text, "más caro", "mas caro", "mayor precio"):
		return Sort{Field: SortByPrice, Direction: Desc}
	case containsAny(text, "más barato", "mas barato", "menor precio"):
		return Sort{Field: SortByPrice, Direction: Asc}
	}
	return Sort{Field: SortByUnits, Direction: Desc}
}

var limitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`top\s+(\d+)`),
	regexp.MustCompile(`(?:dame|quiero|ver)\s+(?:los|las)\s+(\d+)\s+(?:productos?|prendas?|artículos?|items?)`),
	regexp.MustCompile(`(?:los|las)\s+(\d+)\s+(?:más|mas)\s+vendid[oa]s?`),
	regexp.MustCompile(`primeros?\s+(\d+)`),
}

// DetectLimit returns the requested result count, or DefaultLimit. Counts
// below one are ignored.
func DetectLimit(text string) int {
	for _, re := range limitPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				return n
			}
		}
	}
	return DefaultLimit
}

// DetectFilters runs every categorical product detector.
func DetectFilters(text string) Filters {
	return Filters{
		Brand:       DetectBrand(text),
		Gender:      DetectGender(text),
		GarmentType: DetectGarmentType(text),
		Size:        DetectSize(text),
		Season:      DetectSeason(text),
		Style:       DetectStyle(text),
		Material:    DetectMaterial(text),
		Usage:       DetectUsage(text),
	}
}

// AnalyzeProducts builds a products query from free text.
func AnalyzeProducts(text string, today time.Time) Query {
	text = Normalize(text)
	sort := DetectSort(text)

	q := Query{
		Entity: EntityProducts,
		Format: DetectFormat(text),
		Range:  DetectTimeRange(text, today),
		Sort:   &sort,
		Limit:  DetectLimit(text),
	}

	if filters := DetectFilters(text); !filters.Empty() {
		q.Filters = &filters
	}
	if conds := DetectSaleConditions(text); !conds.Empty() {
		q.SaleConditions = &conds
	}
	return q
}
