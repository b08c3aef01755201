package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/webcat/search-service/internal/domain"
)

const testSchema = `
	CREATE TABLE users (
		user_id INTEGER PRIMARY KEY,
		name TEXT NOT NULL
	);
	CREATE TABLE items (
		item_id INTEGER PRIMARY KEY,
		vendor_id INTEGER NOT NULL REFERENCES users(user_id),
		title TEXT NOT NULL,
		description TEXT,
		price REAL,
		location TEXT,
		status TEXT NOT NULL,
		url_slug TEXT,
		view_count INTEGER NOT NULL DEFAULT 0,
		date_added TEXT NOT NULL DEFAULT '2026-01-01'
	);
	CREATE TABLE tags (
		tag_id INTEGER PRIMARY KEY,
		tag_name TEXT NOT NULL
	);
	CREATE TABLE item_tags (
		item_id INTEGER NOT NULL REFERENCES items(item_id),
		tag_id INTEGER NOT NULL REFERENCES tags(tag_id)
	);
	CREATE TABLE item_images (
		image_id INTEGER PRIMARY KEY,
		item_id INTEGER NOT NULL REFERENCES items(item_id),
		image_url TEXT NOT NULL,
		image_order INTEGER NOT NULL DEFAULT 0
	);
`

func newTestRepo(t *testing.T) *Repo {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return New(db)
}

func seedVendor(t *testing.T, db *sql.DB, id int64, name string) {
	t.Helper()
	if _, err := db.Exec(`INSERT INTO users (user_id, name) VALUES (?, ?)`, id, name); err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
}

type seedItem struct {
	id        int64
	vendorID  int64
	title     string
	desc      string
	status    domain.ItemStatus
	tags      []string
	viewCount int64
	dateAdded string
}

func seed(t *testing.T, db *sql.DB, it seedItem) {
	t.Helper()
	if it.dateAdded == "" {
		it.dateAdded = "2026-01-01"
	}
	_, err := db.Exec(`
		INSERT INTO items (item_id, vendor_id, title, description, price, location, status, url_slug, view_count, date_added)
		VALUES (?, ?, ?, ?, 10.0, 'Oslo', ?, ?, ?, ?)`,
		it.id, it.vendorID, it.title, it.desc, it.status, "slug", it.viewCount, it.dateAdded)
	if err != nil {
		t.Fatalf("seed item %d: %v", it.id, err)
	}
	for _, tag := range it.tags {
		var tagID int64
		err := db.QueryRow(`SELECT tag_id FROM tags WHERE tag_name = ?`, tag).Scan(&tagID)
		if errors.Is(err, sql.ErrNoRows) {
			res, err := db.Exec(`INSERT INTO tags (tag_name) VALUES (?)`, tag)
			if err != nil {
				t.Fatalf("seed tag %q: %v", tag, err)
			}
			tagID, _ = res.LastInsertId()
		} else if err != nil {
			t.Fatalf("lookup tag %q: %v", tag, err)
		}
		if _, err := db.Exec(`INSERT INTO item_tags (item_id, tag_id) VALUES (?, ?)`, it.id, tagID); err != nil {
			t.Fatalf("link tag %q: %v", tag, err)
		}
	}
}

func TestGetIndexableItem(t *testing.T) {
	repo := newTestRepo(t)
	seedVendor(t, repo.db, 1, "nils")
	seed(t, repo.db, seedItem{
		id: 7, vendorID: 1, title: "Oak dresser", desc: "Solid oak",
		status: domain.StatusAvailable, tags: []string{"furniture", "vintage"},
	})

	item, err := repo.GetIndexableItem(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetIndexableItem() error = %v", err)
	}
	if item.ID != 7 || item.Title != "Oak dresser" {
		t.Errorf("item = %+v", item)
	}
	if item.Tags != "furniture, vintage" {
		t.Errorf("Tags = %q, want %q", item.Tags, "furniture, vintage")
	}
}

func TestGetIndexableItemNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetIndexableItem(context.Background(), 99)
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("error = %v, want ErrItemNotFound", err)
	}
}

func TestGetIndexableItemSkipsSold(t *testing.T) {
	repo := newTestRepo(t)
	seedVendor(t, repo.db, 1, "nils")
	seed(t, repo.db, seedItem{id: 7, vendorID: 1, title: "Oak dresser", status: domain.StatusSold})

	_, err := repo.GetIndexableItem(context.Background(), 7)
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("error = %v, want ErrItemNotFound for non-available item", err)
	}
}

func TestListIndexableItems(t *testing.T) {
	repo := newTestRepo(t)
	seedVendor(t, repo.db, 1, "nils")
	seed(t, repo.db, seedItem{id: 2, vendorID: 1, title: "Lamp", status: domain.StatusAvailable})
	seed(t, repo.db, seedItem{id: 1, vendorID: 1, title: "Chair", status: domain.StatusAvailable})
	seed(t, repo.db, seedItem{id: 3, vendorID: 1, title: "Sold table", status: domain.StatusSold})

	items, err := repo.ListIndexableItems(context.Background())
	if err != nil {
		t.Fatalf("ListIndexableItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ID != 1 || items[1].ID != 2 {
		t.Errorf("ids = [%d %d], want ordered [1 2]", items[0].ID, items[1].ID)
	}
}

func TestGetAvailableByIDs(t *testing.T) {
	repo := newTestRepo(t)
	seedVendor(t, repo.db, 1, "nils")
	seed(t, repo.db, seedItem{id: 1, vendorID: 1, title: "Chair", status: domain.StatusAvailable})
	seed(t, repo.db, seedItem{id: 2, vendorID: 1, title: "Lamp", status: domain.StatusSold})

	if _, err := repo.db.Exec(
		`INSERT INTO item_images (item_id, image_url, image_order) VALUES (1, 'b.jpg', 1), (1, 'a.jpg', 0)`,
	); err != nil {
		t.Fatalf("seed images: %v", err)
	}

	results, err := repo.GetAvailableByIDs(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("GetAvailableByIDs() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1 (sold and unknown ids filtered)", len(results))
	}
	got := results[0]
	if got.ItemID != 1 || got.VendorName != "nils" {
		t.Errorf("result = %+v", got)
	}
	if got.PrimaryImage != "a.jpg" {
		t.Errorf("PrimaryImage = %q, want lowest image_order", got.PrimaryImage)
	}
}

func TestGetAvailableByIDsEmpty(t *testing.T) {
	repo := newTestRepo(t)

	results, err := repo.GetAvailableByIDs(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetAvailableByIDs() error = %v", err)
	}
	if results != nil {
		t.Errorf("results = %v, want nil", results)
	}
}

func TestTextSearchScoring(t *testing.T) {
	repo := newTestRepo(t)
	seedVendor(t, repo.db, 1, "nils")
	// title match: 10
	seed(t, repo.db, seedItem{id: 1, vendorID: 1, title: "Oak dresser", desc: "old", status: domain.StatusAvailable})
	// description match: 5
	seed(t, repo.db, seedItem{id: 2, vendorID: 1, title: "Dresser", desc: "made of oak", status: domain.StatusAvailable})
	// title + two tag matches: 10 + 6
	seed(t, repo.db, seedItem{
		id: 3, vendorID: 1, title: "Oak table", desc: "old",
		status: domain.StatusAvailable, tags: []string{"oak", "oakwood"},
	})
	// no match
	seed(t, repo.db, seedItem{id: 4, vendorID: 1, title: "Lamp", desc: "brass", status: domain.StatusAvailable})
	// matching but sold
	seed(t, repo.db, seedItem{id: 5, vendorID: 1, title: "Oak chair", status: domain.StatusSold})

	results, err := repo.TextSearch(context.Background(), "Oak", 10)
	if err != nil {
		t.Fatalf("TextSearch() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].ItemID != 3 || results[0].Score != 16 {
		t.Errorf("results[0] = id %d score %v, want id 3 score 16", results[0].ItemID, results[0].Score)
	}
	if results[1].ItemID != 1 || results[1].Score != 10 {
		t.Errorf("results[1] = id %d score %v, want id 1 score 10", results[1].ItemID, results[1].Score)
	}
	if results[2].ItemID != 2 || results[2].Score != 5 {
		t.Errorf("results[2] = id %d score %v, want id 2 score 5", results[2].ItemID, results[2].Score)
	}
}

func TestTextSearchTieBreaksOnViews(t *testing.T) {
	repo := newTestRepo(t)
	seedVendor(t, repo.db, 1, "nils")
	seed(t, repo.db, seedItem{id: 1, vendorID: 1, title: "Oak shelf", status: domain.StatusAvailable, viewCount: 3})
	seed(t, repo.db, seedItem{id: 2, vendorID: 1, title: "Oak bench", status: domain.StatusAvailable, viewCount: 9})

	results, err := repo.TextSearch(context.Background(), "oak", 10)
	if err != nil {
		t.Fatalf("TextSearch() error = %v", err)
	}
	if len(results) != 2 || results[0].ItemID != 2 {
		t.Errorf("results = %+v, want higher view_count first", results)
	}
}

func TestTextSearchLimit(t *testing.T) {
	repo := newTestRepo(t)
	seedVendor(t, repo.db, 1, "nils")
	for i := int64(1); i <= 5; i++ {
		seed(t, repo.db, seedItem{id: i, vendorID: 1, title: "Oak item", status: domain.StatusAvailable})
	}

	results, err := repo.TextSearch(context.Background(), "oak", 2)
	if err != nil {
		t.Fatalf("TextSearch() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("len(results) = %d, want 2", len(results))
	}
}

func TestSearchPattern(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"oak", "%oak%"},
		{"Oak Dresser", "%oak%dresser%"},
		{"  spaced   out  ", "%spaced%out%"},
		{"", "%%"},
	}
	for _, tt := range tests {
		if got := searchPattern(tt.query); got != tt.want {
			t.Errorf("searchPattern(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
