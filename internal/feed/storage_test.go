package feed

import (
	"context"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestGormStoreSnapshotsAndLoads(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:feed-store?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Snapshot{}, &LoadRecord{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	store := NewGormStore(db)
	ctx := context.Background()

	if _, found, err := store.LatestSnapshot(ctx); err != nil || found {
		t.Fatalf("expected no snapshot, got found=%v err=%v", found, err)
	}

	for index, fetchedAt := range []int64{1700000000, 1700000500, 1700000100} {
		snapshot := Snapshot{
			SnapshotID:       string(rune('a' + index)),
			FetchedAtSeconds: fetchedAt,
			Body:             sampleFeed,
			RecordCount:      index,
		}
		if err := store.SaveSnapshot(ctx, snapshot); err != nil {
			t.Fatalf("save snapshot failed: %v", err)
		}
	}
	latest, found, err := store.LatestSnapshot(ctx)
	if err != nil || !found {
		t.Fatalf("expected latest snapshot, got found=%v err=%v", found, err)
	}
	if latest.SnapshotID != "b" {
		t.Fatalf("expected newest snapshot, got %q", latest.SnapshotID)
	}
	var stored int64
	if err := db.Model(&Snapshot{}).Count(&stored).Error; err != nil {
		t.Fatalf("count snapshots failed: %v", err)
	}
	if stored != 1 {
		t.Fatalf("expected older snapshots to be pruned, found %d", stored)
	}

	if err := store.RecordLoad(ctx, LoadRecord{LoadID: "l-1", Source: LoadSourceFeed, Status: LoadStatusReady, StartedAtSeconds: 10}); err != nil {
		t.Fatalf("record load failed: %v", err)
	}
	if err := store.RecordLoad(ctx, LoadRecord{LoadID: "l-2", Source: LoadSourceFeed, Status: LoadStatusFailed, StartedAtSeconds: 20, ErrorMessage: "boom"}); err != nil {
		t.Fatalf("record load failed: %v", err)
	}
	loads, err := store.RecentLoads(ctx, 1)
	if err != nil {
		t.Fatalf("recent loads failed: %v", err)
	}
	if len(loads) != 1 || loads[0].LoadID != "l-2" {
		t.Fatalf("unexpected recent loads %+v", loads)
	}
}
