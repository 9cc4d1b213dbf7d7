package pricing

import "github.com/shopspring/decimal"

type UnitType string

const (
	UnitPage     UnitType = "page"
	UnitSlide    UnitType = "slide"
	UnitDataset  UnitType = "dataset"
	UnitDocument UnitType = "document"
	UnitHour     UnitType = "hour"
)

// Entry is one purchasable service: a unit rate plus the unit it is billed
// by. Editing-category entries are exempt from the urgency surcharge.
type Entry struct {
	Name    string
	Rate    decimal.Decimal
	Unit    UnitType
	Editing bool
}

// catalog is static configuration, not user-mutable.
var catalog = map[string]Entry{
	"essay":            {Name: "Essay Writing", Rate: decimal.NewFromInt(250), Unit: UnitPage},
	"research_paper":   {Name: "Research Paper", Rate: decimal.NewFromInt(300), Unit: UnitPage},
	"dissertation":     {Name: "Dissertation", Rate: decimal.NewFromInt(350), Unit: UnitPage},
	"presentation":     {Name: "Presentation Design", Rate: decimal.NewFromInt(150), Unit: UnitSlide},
	"editing":          {Name: "Editing", Rate: decimal.NewFromInt(100), Unit: UnitPage, Editing: true},
	"proofreading":     {Name: "Proofreading", Rate: decimal.NewFromInt(80), Unit: UnitPage, Editing: true},
	"plagiarism_fix":   {Name: "Plagiarism Removal", Rate: decimal.NewFromInt(120), Unit: UnitPage, Editing: true},
	"ai_removal":       {Name: "AI Content Removal", Rate: decimal.NewFromInt(120), Unit: UnitPage, Editing: true},
	"data_analysis":    {Name: "Data Analysis", Rate: decimal.NewFromInt(1500), Unit: UnitDataset},
	"technical_report": {Name: "Technical Report", Rate: decimal.NewFromInt(400), Unit: UnitDocument},
	"tutoring":         {Name: "Online Tutoring", Rate: decimal.NewFromInt(500), Unit: UnitHour},
}

// Lookup resolves a catalog key to its entry.
func Lookup(key string) (Entry, bool) {
	entry, ok := catalog[key]
	return entry, ok
}

// Keys returns every configured catalog key, for validation and listings.
func Keys() []string {
	keys := make([]string, 0, len(catalog))
	for key := range catalog {
		keys = append(keys, key)
	}
	return keys
}
