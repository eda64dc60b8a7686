package model

import (
	"math"

	"github.com/m-mizutani/goerr/v2"
)

// Category identifies a tracked work-item type.
type Category string

// Categories in display order.
const (
	SalvTM        Category = "salvTM"
	SalvSCR       Category = "salvSCR"
	Seon          Category = "seon"
	FraudRepo     Category = "fraudRepo"
	ZendeskOpened Category = "zendeskOpened"
	ZendeskClosed Category = "zendeskClosed"
	JiraClosed    Category = "jiraClosed"
	SarRepo       Category = "sarRepo"
	RfiRepo       Category = "rfiRepo"
	AmlOnboarding Category = "amlOnboarding"
	Downtime      Category = "downtime"
)

// CategoryInfo describes one category: its key, display label and point weight.
type CategoryInfo struct {
	Key    Category
	Label  string
	Weight int
}

// Catalog is the single ordered table every other artifact (CSV header,
// table columns, default counters) is derived from.
var Catalog = []CategoryInfo{
	{Key: SalvTM, Label: "Salv(TM)", Weight: 14},
	{Key: SalvSCR, Label: "Salv(SCR)", Weight: 7},
	{Key: Seon, Label: "SEON", Weight: 7},
	{Key: FraudRepo, Label: "Fraud Repo", Weight: 21},
	{Key: ZendeskOpened, Label: "Zendesk opened", Weight: 10},
	{Key: ZendeskClosed, Label: "Zendesk closed", Weight: 10},
	{Key: JiraClosed, Label: "Jira closed", Weight: 21},
	{Key: SarRepo, Label: "SAR repo", Weight: 105},
	{Key: RfiRepo, Label: "RFI repo", Weight: 21},
	{Key: AmlOnboarding, Label: "AML Onboarding", Weight: 5},
	{Key: Downtime, Label: "Downtime", Weight: 1},
}

// MaxWeight is the largest weight in Catalog.
const MaxWeight = 105

// MaxCount bounds a single count so the weighted sum over the whole
// catalog fits in an int.
const MaxCount = math.MaxInt / (MaxWeight * 11)

var (
	// ErrUnknownCategory is returned for keys outside the catalog.
	ErrUnknownCategory = goerr.New("unknown category")
	// ErrCountTooLarge is returned for counts above MaxCount.
	ErrCountTooLarge = goerr.New("count too large")
)

var catalogIndex = func() map[Category]int {
	idx := make(map[Category]int, len(Catalog))
	for i, info := range Catalog {
		idx[info.Key] = i
	}
	return idx
}()

// Lookup returns the catalog entry for key.
func Lookup(key Category) (CategoryInfo, bool) {
	i, ok := catalogIndex[key]
	if !ok {
		return CategoryInfo{}, false
	}
	return Catalog[i], true
}

// ParseCategory validates a raw key against the catalog.
func ParseCategory(raw string) (Category, error) {
	c := Category(raw)
	if _, ok := catalogIndex[c]; !ok {
		return "", goerr.Wrap(ErrUnknownCategory, "failed to parse category", goerr.V("category", raw))
	}
	return c, nil
}

// Keys returns category keys in catalog order.
func Keys() []Category {
	keys := make([]Category, len(Catalog))
	for i, info := range Catalog {
		keys[i] = info.Key
	}
	return keys
}

// DefaultCounters returns a zero count for every category.
func DefaultCounters() Counters {
	c := make(Counters, len(Catalog))
	for _, info := range Catalog {
		c[info.Key] = 0
	}
	return c
}
