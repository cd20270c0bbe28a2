package nlp

import "time"

// Analyzer routes free text to the matching domain extractor.
type Analyzer struct {
	now func() time.Time
}

// NewAnalyzer creates an analyzer using the wall clock.
func NewAnalyzer() *Analyzer {
	return &Analyzer{now: time.Now}
}

// NewAnalyzerAt creates an analyzer with a fixed clock.
func NewAnalyzerAt(now func() time.Time) *Analyzer {
	return &Analyzer{now: now}
}

// Analyze detects the intent and runs the matching extractor.
func (a *Analyzer) Analyze(text string) Query {
	if DetectIntent(text) == EntitySales {
		return AnalyzeSales(text, a.now())
	}
	return AnalyzeProducts(text, a.now())
}

// AnalyzeAs runs the extractor for a known entity.
func (a *Analyzer) AnalyzeAs(entity Entity, text string) Query {
	if entity == EntitySales {
		return AnalyzeSales(text, a.now())
	}
	return AnalyzeProducts(text, a.now())
}
