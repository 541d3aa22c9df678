package db

import (
	"context"
	"fmt"
	"strings"
)

// IgnoredIDs returns the ids of a list, sorted
func (db *DB) IgnoredIDs(ctx context.Context, list string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT video_id FROM ignored_items WHERE list_name = ? ORDER BY video_id`, list)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignored items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan ignored item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddIgnored inserts ids into a list and returns how many were new.
// Blank ids are skipped.
func (db *DB) AddIgnored(ctx context.Context, list string, ids ...string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	added := 0
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO ignored_items (list_name, video_id) VALUES (?, ?)`, list, id)
		if err != nil {
			return 0, fmt.Errorf("failed to insert ignored item %q: %w", id, err)
		}
		n, _ := res.RowsAffected()
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ignored items: %w", err)
	}
	return added, nil
}

// RemoveIgnored deletes ids from a list and returns how many were present
func (db *DB) RemoveIgnored(ctx context.Context, list string, ids ...string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	removed := 0
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM ignored_items WHERE list_name = ? AND video_id = ?`, list, strings.TrimSpace(id))
		if err != nil {
			return 0, fmt.Errorf("failed to delete ignored item %q: %w", id, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit ignored items: %w", err)
	}
	return removed, nil
}

// ClearIgnored empties a list and returns the number of ids removed
func (db *DB) ClearIgnored(ctx context.Context, list string) (int, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM ignored_items WHERE list_name = ?`, list)
	if err != nil {
		return 0, fmt.Errorf("failed to clear ignore list: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ReplaceIgnored makes the list contain exactly ids
func (db *DB) ReplaceIgnored(ctx context.Context, list string, ids []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ignored_items WHERE list_name = ?`, list); err != nil {
		return fmt.Errorf("failed to clear ignore list: %w", err)
	}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO ignored_items (list_name, video_id) VALUES (?, ?)`, list, id); err != nil {
			return fmt.Errorf("failed to insert ignored item %q: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ignore list: %w", err)
	}
	return nil
}

// IgnoreList summarizes one named list
type IgnoreList struct {
	Name  string
	Count int
}

// IgnoreLists returns every non-empty list with its size
func (db *DB) IgnoreLists(ctx context.Context) ([]IgnoreList, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT list_name, COUNT(*) FROM ignored_items
		GROUP BY list_name ORDER BY list_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ignore lists: %w", err)
	}
	defer rows.Close()

	var lists []IgnoreList
	for rows.Next() {
		var l IgnoreList
		if err := rows.Scan(&l.Name, &l.Count); err != nil {
			return nil, fmt.Errorf("failed to scan ignore list: %w", err)
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}
