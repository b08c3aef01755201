// Package catalog reads item, vendor, tag, and image rows from the WebCat
// relational store. The relational store is the system of record; this
// service never writes to it.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/webcat/search-service/internal/domain"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Open opens the catalog database with settings suitable for a read-mostly
// service sharing the file with the main application.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}

	// WAL allows concurrent readers while the main app writes
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// Repo implements the catalog contracts of the search and indexer use cases.
type Repo struct {
	db *sql.DB
}

// New creates a catalog repository over an open database handle.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Ping checks catalog availability.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping catalog: %w", err)
	}
	return nil
}

const indexableColumns = `
	i.item_id, i.title, COALESCE(i.description, ''),
	COALESCE(GROUP_CONCAT(t.tag_name, ', '), '') AS tags
`

// GetIndexableItem loads one Available item with its tags pre-joined.
// Returns domain.ErrItemNotFound when the item is absent or not Available.
func (r *Repo) GetIndexableItem(ctx context.Context, itemID int64) (domain.IndexableItem, error) {
	query := `
		SELECT ` + indexableColumns + `
		FROM items i
		LEFT JOIN item_tags it ON i.item_id = it.item_id
		LEFT JOIN tags t ON it.tag_id = t.tag_id
		WHERE i.item_id = ? AND i.status = ?
		GROUP BY i.item_id, i.title, i.description`

	var item domain.IndexableItem
	err := r.db.QueryRowContext(ctx, query, itemID, domain.StatusAvailable).
		Scan(&item.ID, &item.Title, &item.Description, &item.Tags)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.IndexableItem{}, domain.ErrItemNotFound
	}
	if err != nil {
		return domain.IndexableItem{}, backendErr("get indexable item", err)
	}
	return item, nil
}

// ListIndexableItems loads every Available item with tags, ordered by id.
func (r *Repo) ListIndexableItems(ctx context.Context) ([]domain.IndexableItem, error) {
	query := `
		SELECT ` + indexableColumns + `
		FROM items i
		LEFT JOIN item_tags it ON i.item_id = it.item_id
		LEFT JOIN tags t ON it.tag_id = t.tag_id
		WHERE i.status = ?
		GROUP BY i.item_id, i.title, i.description
		ORDER BY i.item_id`

	rows, err := r.db.QueryContext(ctx, query, domain.StatusAvailable)
	if err != nil {
		return nil, backendErr("list indexable items", err)
	}
	defer rows.Close()

	var items []domain.IndexableItem
	for rows.Next() {
		var item domain.IndexableItem
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Tags); err != nil {
			return nil, backendErr("scan indexable item", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("iterate indexable items", err)
	}
	return items, nil
}

const resultColumns = `
	i.item_id, i.title, COALESCE(i.description, ''), COALESCE(i.price, 0),
	i.vendor_id, COALESCE(i.location, ''), i.status, COALESCE(i.url_slug, ''),
	u.name AS vendor_name,
	COALESCE((
		SELECT image_url FROM item_images
		WHERE item_id = i.item_id
		ORDER BY image_order LIMIT 1
	), '') AS primary_image
`

// GetAvailableByIDs loads full display rows for the given item ids,
// restricted to Available items, newest first.
func (r *Repo) GetAvailableByIDs(ctx context.Context, itemIDs []int64) ([]domain.SearchResult, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(itemIDs))
	placeholders = placeholders[:len(placeholders)-1]

	query := `
		SELECT ` + resultColumns + `
		FROM items i
		JOIN users u ON i.vendor_id = u.user_id
		WHERE i.item_id IN (` + placeholders + `) AND i.status = ?
		ORDER BY i.date_added DESC`

	args := make([]any, 0, len(itemIDs)+1)
	for _, id := range itemIDs {
		args = append(args, id)
	}
	args = append(args, domain.StatusAvailable)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backendErr("get items by ids", err)
	}
	defer rows.Close()

	return scanResults(rows, false)
}

// TextSearch runs the scored lexical query: 10 points for a title match,
// 5 for a description match, 3 per matching tag. Only Available items with
// a positive score qualify. The multi-word query is matched as one
// concatenated LIKE pattern.
func (r *Repo) TextSearch(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	pattern := searchPattern(query)

	stmt := `
		SELECT * FROM (
			SELECT ` + resultColumns + `,
				(
					CASE WHEN LOWER(i.title) LIKE ? THEN 10 ELSE 0 END +
					CASE WHEN LOWER(COALESCE(i.description, '')) LIKE ? THEN 5 ELSE 0 END +
					(SELECT COUNT(*) * 3 FROM item_tags it
					 JOIN tags t ON it.tag_id = t.tag_id
					 WHERE it.item_id = i.item_id AND LOWER(t.tag_name) LIKE ?)
				) AS score,
				i.view_count, i.date_added
			FROM items i
			JOIN users u ON i.vendor_id = u.user_id
			WHERE i.status = ?
		)
		WHERE score > 0
		ORDER BY score DESC, view_count DESC, date_added DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, stmt,
		pattern, pattern, pattern, domain.StatusAvailable, limit)
	if err != nil {
		return nil, backendErr("text search", err)
	}
	defer rows.Close()

	return scanResults(rows, true)
}

// scanResults reads SearchResult rows. withScore also consumes the score,
// view_count, and date_added columns appended by TextSearch.
func scanResults(rows *sql.Rows, withScore bool) ([]domain.SearchResult, error) {
	var results []domain.SearchResult
	for rows.Next() {
		var res domain.SearchResult
		dest := []any{
			&res.ItemID, &res.Title, &res.Description, &res.Price,
			&res.VendorID, &res.Location, &res.Status, &res.URLSlug,
			&res.VendorName, &res.PrimaryImage,
		}
		if withScore {
			var viewCount int64
			var dateAdded string
			dest = append(dest, &res.Score, &viewCount, &dateAdded)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, backendErr("scan search result", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("iterate search results", err)
	}
	return results, nil
}

// searchPattern lowercases the query and joins its terms into a single
// LIKE pattern: "oak  dresser" -> "%oak%dresser%".
func searchPattern(query string) string {
	terms := strings.Fields(strings.ToLower(query))
	return "%" + strings.Join(terms, "%") + "%"
}

// backendErr tags store failures so callers can tell "backend unreachable"
// apart from "no matches".
func backendErr(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrSearchBackendUnavailable)
}
