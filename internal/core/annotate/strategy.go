package annotate

import (
	"github.com/markdave123-py/Memora/internal/core/textproc"
)

// Strategy picks the extraction depth for a document.
type Strategy string

const (
	StrategyComprehensive Strategy = "comprehensive"
	StrategyStandard      Strategy = "standard"
	StrategyLight         Strategy = "light"
	StrategyTechnical     Strategy = "technical"
	StrategyAcademic      Strategy = "academic"
)

// extraction fields a strategy may request.
type field int

const (
	fieldTitle field = iota
	fieldSummary
	fieldInsights
	fieldTags
	fieldActions
	fieldQuotes
)

var allFields = []field{fieldTitle, fieldSummary, fieldInsights, fieldTags, fieldActions, fieldQuotes}

// profile is a strategy's configuration: which fields to request, the insight
// cardinality asked of the model, and a flavor line mixed into prompts.
type profile struct {
	fields       []field
	insightRange string
	flavor       string
}

var profiles = map[Strategy]profile{
	StrategyComprehensive: {
		fields:       allFields,
		insightRange: "5-8",
		flavor:       "Perform a comprehensive analysis and be generous with detail.",
	},
	StrategyStandard: {
		fields:       allFields,
		insightRange: "3-5",
		flavor:       "Provide a balanced analysis.",
	},
	StrategyLight: {
		fields:       []field{fieldTitle, fieldSummary, fieldTags},
		insightRange: "2-3",
		flavor:       "Keep the analysis brief.",
	},
	StrategyTechnical: {
		fields:       allFields,
		insightRange: "4-6",
		flavor:       "Focus on technical details, implementation choices and practical usage.",
	},
	StrategyAcademic: {
		fields:       allFields,
		insightRange: "5-7",
		flavor:       "Focus on research questions, methodology and findings.",
	},
}

// ChooseStrategy applies the decision table, evaluated in order:
// excellent quality on long content is comprehensive; poor or very short
// content is light; technical/documentation and academic content get their
// specialized strategies; everything else is standard.
func ChooseStrategy(quality, contentType string, wordCount int) Strategy {
	switch {
	case quality == textproc.QualityExcellent && wordCount > 1000:
		return StrategyComprehensive
	case quality == textproc.QualityPoor || wordCount < 200:
		return StrategyLight
	case contentType == textproc.TypeTechnical || contentType == textproc.TypeDocumentation:
		return StrategyTechnical
	case contentType == textproc.TypeAcademic:
		return StrategyAcademic
	default:
		return StrategyStandard
	}
}

func (p profile) wants(f field) bool {
	for _, have := range p.fields {
		if have == f {
			return true
		}
	}
	return false
}
