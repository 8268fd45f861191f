package content

import (
	"context"
	"testing"

	"github.com/yungbote/passage-migration/internal/data/repos/testutil"
)

func TestAggregatedMatchesPerPassageOnPostgres(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	logg := testutil.Logger(t)

	testutil.SeedLesson(t, ctx, tx, 9001, "B1", "Travel")
	testutil.SeedPassage(t, ctx, tx, "it-p1", 9001, 1)
	testutil.SeedQuestion(t, ctx, tx, 90011, "it-p1", 2, testutil.PtrInt(3))
	testutil.SeedQuestion(t, ctx, tx, 90012, "it-p1", 1, nil)

	agg, err := NewAggregatedSource(tx, Options{}, logg)
	if err != nil {
		t.Fatalf("NewAggregatedSource: %v", err)
	}
	rows, err := agg.FetchPassageRows(ctx)
	if err != nil {
		t.Fatalf("aggregated fetch: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.PassageID == "it-p1" {
			found = true
			if len(r.Questions) == 0 {
				t.Fatalf("aggregated row has empty questions")
			}
		}
	}
	if !found {
		t.Fatalf("aggregated rows missing it-p1")
	}
}
