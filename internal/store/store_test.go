package store

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func testItem(n int, source Source) Item {
	return Item{
		ID:         fmt.Sprintf("%s-item-%d", source, n),
		Source:     source,
		Title:      fmt.Sprintf("Wallpaper %d", n),
		ContentURL: fmt.Sprintf("https://example.com/%s/full/%d.jpg", source, n),
		PreviewURL: fmt.Sprintf("https://example.com/%s/thumb/%d.jpg", source, n),
		AddedAt:    time.Now().Add(time.Duration(n) * time.Second),
	}
}

func mustOpen(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen(t *testing.T) {
	st := mustOpen(t)

	var name string
	err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='wallpapers'").Scan(&name)
	if err != nil {
		t.Fatalf("wallpapers table not created: %v", err)
	}
}

func TestInsertIdempotent(t *testing.T) {
	st := mustOpen(t)

	item := testItem(1, SourceBing)

	inserted, err := st.Insert(item)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if !inserted {
		t.Error("first insert should report inserted=true")
	}

	// Same content URL again, different ID: must be a silent no-op.
	dup := item
	dup.ID = "different-id"
	inserted, err = st.Insert(dup)
	if err != nil {
		t.Fatalf("duplicate insert returned error: %v", err)
	}
	if inserted {
		t.Error("duplicate insert should report inserted=false")
	}

	count, err := st.Count("")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 item after duplicate insert, got %d", count)
	}
}

func TestInsertBatchCountsNewOnly(t *testing.T) {
	st := mustOpen(t)

	items := []Item{testItem(1, SourceBing), testItem(2, SourceBing), testItem(3, SourceBing)}
	n, err := st.InsertBatch(items)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 new items, got %d", n)
	}

	// Re-insert two old plus one new.
	again := []Item{items[0], items[1], testItem(4, SourceBing)}
	n, err = st.InsertBatch(again)
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 new item on re-insert, got %d", n)
	}
}

func TestInsertAssignsAddedAt(t *testing.T) {
	st := mustOpen(t)

	item := testItem(1, SourcePeapix)
	item.AddedAt = time.Time{}
	if _, err := st.Insert(item); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := st.Item(item.ID)
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if got == nil {
		t.Fatal("inserted item not found")
	}
	if got.AddedAt.IsZero() {
		t.Error("AddedAt should be assigned at insert time")
	}
}

func TestItemsOrderedNewestFirst(t *testing.T) {
	st := mustOpen(t)

	for i := 1; i <= 5; i++ {
		if _, err := st.Insert(testItem(i, SourceBing)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	items, err := st.Items(Query{Limit: 10})
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}
	for i := 1; i < len(items); i++ {
		if items[i].AddedAt.After(items[i-1].AddedAt) {
			t.Errorf("items out of order at index %d", i)
		}
	}
}

func TestItemsFilters(t *testing.T) {
	st := mustOpen(t)

	if _, err := st.InsertBatch([]Item{
		testItem(1, SourceBing),
		testItem(2, SourceBing),
		testItem(3, SourceQihu),
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if _, err := st.TogglePin("bing-item-1"); err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}

	bing, err := st.Items(Query{Source: SourceBing, Limit: 10})
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(bing) != 2 {
		t.Errorf("expected 2 bing items, got %d", len(bing))
	}

	pinned := true
	favs, err := st.Items(Query{Pinned: &pinned, Limit: 10})
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	if len(favs) != 1 || favs[0].ID != "bing-item-1" {
		t.Errorf("expected only bing-item-1 pinned, got %v", favs)
	}
}

func TestLastAddedAt(t *testing.T) {
	st := mustOpen(t)

	last, err := st.LastAddedAt(SourceBing)
	if err != nil {
		t.Fatalf("LastAddedAt failed: %v", err)
	}
	if !last.IsZero() {
		t.Errorf("expected zero time for empty source, got %v", last)
	}

	newest := testItem(9, SourceBing)
	if _, err := st.InsertBatch([]Item{testItem(1, SourceBing), newest}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	last, err = st.LastAddedAt(SourceBing)
	if err != nil {
		t.Fatalf("LastAddedAt failed: %v", err)
	}
	if last.IsZero() {
		t.Fatal("expected non-zero last added time")
	}
	if diff := last.Sub(newest.AddedAt); diff > time.Second || diff < -time.Second {
		t.Errorf("last added %v too far from newest insert %v", last, newest.AddedAt)
	}
}

func TestTogglePin(t *testing.T) {
	st := mustOpen(t)

	item := testItem(1, SourceUnsplash)
	if _, err := st.Insert(item); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	pinned, err := st.TogglePin(item.ID)
	if err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}
	if !pinned {
		t.Error("first toggle should pin")
	}

	pinned, err = st.TogglePin(item.ID)
	if err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}
	if pinned {
		t.Error("second toggle should unpin")
	}

	if _, err := st.TogglePin("no-such-id"); err == nil {
		t.Error("toggling a missing item should error")
	}
}

func TestDeleteOldestKeepsMostRecent(t *testing.T) {
	st := mustOpen(t)

	// Scenario from the retention design: 120 unique items for one
	// source with a cap of 100 leaves exactly the 100 newest.
	for i := 1; i <= 120; i++ {
		if _, err := st.Insert(testItem(i, SourceBing)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	deleted, err := st.DeleteOldest(SourceBing, 100)
	if err != nil {
		t.Fatalf("DeleteOldest failed: %v", err)
	}
	if deleted != 20 {
		t.Errorf("expected 20 deleted, got %d", deleted)
	}

	count, err := st.Count(SourceBing)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 100 {
		t.Errorf("expected 100 remaining, got %d", count)
	}

	// The 20 oldest must be gone.
	items, err := st.Items(Query{Source: SourceBing})
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	for _, it := range items {
		var n int
		fmt.Sscanf(it.ID, "bing-item-%d", &n)
		if n <= 20 {
			t.Errorf("item %q should have been deleted as oldest", it.ID)
		}
	}
}

func TestDeleteOldestNeverTouchesPinned(t *testing.T) {
	st := mustOpen(t)

	for i := 1; i <= 10; i++ {
		if _, err := st.Insert(testItem(i, SourceQihu)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	// Pin the very oldest item: lowest eviction rank, still must survive.
	if _, err := st.TogglePin("qihu360-item-1"); err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}

	deleted, err := st.DeleteOldest(SourceQihu, 3)
	if err != nil {
		t.Fatalf("DeleteOldest failed: %v", err)
	}
	// 9 unpinned, keep 3 of them.
	if deleted != 6 {
		t.Errorf("expected 6 deleted, got %d", deleted)
	}

	got, err := st.Item("qihu360-item-1")
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if got == nil {
		t.Fatal("pinned item was deleted")
	}

	// Pinned items do not count against keep: 3 unpinned + 1 pinned remain.
	count, err := st.Count(SourceQihu)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 4 {
		t.Errorf("expected 4 remaining, got %d", count)
	}
}

func TestDeleteOldestGlobalScope(t *testing.T) {
	st := mustOpen(t)

	for i := 1; i <= 6; i++ {
		if _, err := st.Insert(testItem(i, SourceBing)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	for i := 1; i <= 6; i++ {
		if _, err := st.Insert(testItem(i, SourcePexels)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	deleted, err := st.DeleteOldest("", 8)
	if err != nil {
		t.Fatalf("DeleteOldest failed: %v", err)
	}
	if deleted != 4 {
		t.Errorf("expected 4 deleted, got %d", deleted)
	}

	count, err := st.Count("")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 8 {
		t.Errorf("expected 8 remaining across all sources, got %d", count)
	}
}

func TestCountUnpinned(t *testing.T) {
	st := mustOpen(t)

	for i := 1; i <= 4; i++ {
		if _, err := st.Insert(testItem(i, SourceRSS)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if _, err := st.TogglePin("rss-item-2"); err != nil {
		t.Fatalf("TogglePin failed: %v", err)
	}

	n, err := st.CountUnpinned("")
	if err != nil {
		t.Fatalf("CountUnpinned failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 unpinned, got %d", n)
	}
}

func TestDeleteAndDeleteSource(t *testing.T) {
	st := mustOpen(t)

	if _, err := st.InsertBatch([]Item{
		testItem(1, SourceBing),
		testItem(2, SourceBing),
		testItem(1, SourcePeapix),
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	ok, err := st.Delete("bing-item-1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !ok {
		t.Error("expected delete to remove a row")
	}
	ok, err = st.Delete("bing-item-1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok {
		t.Error("second delete should remove nothing")
	}

	n, err := st.DeleteSource(SourceBing)
	if err != nil {
		t.Fatalf("DeleteSource failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 remaining bing item deleted, got %d", n)
	}

	count, err := st.Count("")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected only the peapix item left, got %d", count)
	}
}

func TestSetLocalPaths(t *testing.T) {
	st := mustOpen(t)

	item := testItem(1, SourceBing)
	if _, err := st.Insert(item); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := st.SetLocalPaths(item.ID, "/tmp/full.jpg", ""); err != nil {
		t.Fatalf("SetLocalPaths failed: %v", err)
	}
	if err := st.SetLocalPaths(item.ID, "", "/tmp/thumb.jpg"); err != nil {
		t.Fatalf("SetLocalPaths failed: %v", err)
	}

	got, err := st.Item(item.ID)
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}
	if got.LocalPath != "/tmp/full.jpg" {
		t.Errorf("local path not preserved, got %q", got.LocalPath)
	}
	if got.LocalPreviewPath != "/tmp/thumb.jpg" {
		t.Errorf("preview path not set, got %q", got.LocalPreviewPath)
	}
}

func TestStorageErrorKind(t *testing.T) {
	st := mustOpen(t)
	st.db.Close()

	_, err := st.Count("")
	if err == nil {
		t.Fatal("expected error after close")
	}
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("expected ErrStorageUnavailable, got %v", err)
	}
}
