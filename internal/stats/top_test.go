package stats

import (
	"testing"

	"github.com/verte-zerg/kpicalc/internal/model"
)

func TestTopCategories(t *testing.T) {
	entries := []model.HistoryEntry{
		{Date: "a", Points: map[model.Category]int{model.Seon: 14, model.SarRepo: 105}},
		{Date: "b", Points: map[model.Category]int{model.Seon: 7, model.JiraClosed: 21}},
	}
	top := TopCategories(entries, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(top))
	}
	if top[0] != model.SarRepo || top[1] != model.Seon {
		t.Fatalf("unexpected order: %v", top)
	}
}

func TestTopCategoriesTieKeepsCatalogOrder(t *testing.T) {
	entries := []model.HistoryEntry{
		{Date: "a", Points: map[model.Category]int{model.JiraClosed: 21, model.FraudRepo: 21}},
	}
	top := TopCategories(entries, 5)
	if len(top) != 2 {
		t.Fatalf("expected 2 categories, got %v", top)
	}
	if top[0] != model.FraudRepo {
		t.Fatalf("expected fraudRepo first, got %v", top)
	}
}
