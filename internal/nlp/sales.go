package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

func patterns(code string, exprs ...string) []patternEntry {
	out := make([]patternEntry, len(exprs))
	for i, e := range exprs {
		out[i] = patternEntry{re: regexp.MustCompile(e), code: code}
	}
	return out
}

func concat(groups ...[]patternEntry) []patternEntry {
	var out []patternEntry
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Sale status patterns, checked in this order.
var saleStatusPatterns = concat(
	patterns("PENDIENTE", `pendiente`, `en espera`, `por completar`, `sin completar`, `pendientes`),
	patterns("COMPLETADA", `completada`, `finalizada`, `terminada`, `completadas`, `finalizadas`),
	patterns("CANCELADA", `cancelada`, `anulada`, `canceladas`, `anuladas`),
	patterns("EN_PROCESO", `en proceso`, `procesándose`, `procesandose`, `procesando`, `en curso`, `en procesos`, `procesos`, `en cursos`),
	patterns("PAGANDO_CREDITO", `pagando crédito`, `pagando credito`, `se estén pagando`, `pagándose`, `pagandose`),
)

// DetectConditions extracts payment type, sale channel and sale status for a
// sales query.
func DetectConditions(text string) Conditions {
	return Conditions{
		PaymentType: detectPaymentType(text),
		SaleType:    detectSaleType(text),
		Status:      firstPattern(text, saleStatusPatterns),
	}
}

const amountKeywords = `superen|mayor(?:es)?\s+(?:a|de)|más\s+de|no\s+(?:sean?\s+)?(?:superen|mayor(?:es)?|pasen)|no\s+pasen|menor(?:es)?\s+(?:a|de)|menos\s+de`

var (
	negatedGreaterRe = regexp.MustCompile(`no\s+(?:sean?\s+)?(?:superen|mayor(?:es)?|pasen)`)
	negatedLessRe    = regexp.MustCompile(`no\s+(?:sean?\s+)?(?:menor(?:es)?|bajen)`)
	greaterRe        = regexp.MustCompile(`superen|mayor(?:es)?\s+(?:a|de)|más\s+de`)
	lessRe           = regexp.MustCompile(`no\s+pasen|menor(?:es)?\s+(?:a|de)|menos\s+de`)

	amountNearKeywordRe  = regexp.MustCompile(`(?:` + amountKeywords + `)\s+(?:de\s+)?(\d+(?:[.,]\d+)?)\s*(?:bs|bolivianos?|usd|dólares?|euros?)?`)
	amountWithCurrencyRe = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*(?:bs|bolivianos?|usd|dólares?|euros?)`)
)

// DetectOperator resolves the comparison direction. Negated forms are checked
// first, so "no sean mayores a" reads as less-than.
func DetectOperator(text string) Operator {
	switch {
	case negatedGreaterRe.MatchString(text):
		return OperatorLess
	case negatedLessRe.MatchString(text):
		return OperatorGreater
	case greaterRe.MatchString(text):
		return OperatorGreater
	case lessRe.MatchString(text):
		return OperatorLess
	}
	return ""
}

// DetectAmountCondition extracts a monetary condition. It returns nil unless
// a numeric amount is found, either right after a comparison keyword or
// directly followed by a currency marker. Numbers elsewhere, such as in
// "hace 3 meses", are ignored.
func DetectAmountCondition(text string) *AmountCondition {
	m := amountNearKeywordRe.FindStringSubmatch(text)
	if m == nil {
		m = amountWithCurrencyRe.FindStringSubmatch(text)
	}
	if m == nil {
		return nil
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return nil
	}

	return &AmountCondition{
		Operator: DetectOperator(text),
		Value:    value,
		Currency: DetectCurrency(text),
	}
}

// AnalyzeSales builds a sales query from free text.
func AnalyzeSales(text string, today time.Time) Query {
	text = Normalize(text)
	q := Query{
		Entity: EntitySales,
		Format: DetectFormat(text),
		Range:  DetectTimeRange(text, today),
		Amount: DetectAmountCondition(text),
	}
	if conds := DetectConditions(text); !conds.Empty() {
		q.Conditions = &conds
	}
	return q
}
