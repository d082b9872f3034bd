package extract

import (
	"testing"

	"stmigrate/internal/engine/stparse"
)

func TestTribalClassification(t *testing.T) {
	src := `(* DO NOT TOUCH this timer, the press cycles twice otherwise *)
tPress : TIME := T#750ms;
// workaround for encoder glitch on axis 3
nOffset := 17; (* empirical value, tuned by hand in 2009 *)
// ask Dieter before changing the recipe table
`
	items := ExtractTribalKnowledge("press.st", src)
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d: %+v", len(items), items)
	}

	byType := map[string]stparse.TribalKnowledgeItem{}
	for _, item := range items {
		byType[item.Type] = item
	}
	if item, ok := byType["do-not-touch"]; !ok || item.Importance != stparse.ImportanceCritical {
		t.Errorf("do-not-touch item %+v", item)
	}
	if item, ok := byType["workaround"]; !ok || item.Importance != stparse.ImportanceHigh {
		t.Errorf("workaround item %+v", item)
	}
	if item, ok := byType["magic-number"]; !ok || item.Importance != stparse.ImportanceMedium {
		t.Errorf("magic-number item %+v", item)
	}
	if item, ok := byType["contact-person"]; !ok || item.Importance != stparse.ImportanceLow {
		t.Errorf("contact-person item %+v", item)
	}
}

func TestPlainCommentsProduceNoItems(t *testing.T) {
	src := `(* door closed feedback *)
// increment counter
`
	items := ExtractTribalKnowledge("a.st", src)
	if len(items) != 0 {
		t.Errorf("plain comments misclassified: %+v", items)
	}
}

func TestTribalEmptySource(t *testing.T) {
	if got := ExtractTribalKnowledge("a.st", ""); len(got) != 0 {
		t.Errorf("empty source produced items: %+v", got)
	}
}
