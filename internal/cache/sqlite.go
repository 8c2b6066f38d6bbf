package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/thiagokokada/giter-go/internal/git"
)

// SQLiteStore keeps rosters in the branch_author table.
type SQLiteStore struct {
	keyLocks

	db *sql.DB
}

// OpenSQLite opens or creates the cache database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping cache database: %w", err), db.Close())
	}
	if err := runMigrations(db); err != nil {
		return nil, errors.Join(fmt.Errorf("migrate cache database: %w", err), db.Close())
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Authors(ctx context.Context, key git.CacheKey) ([]git.Author, string, error) {
	var raw, frontier string
	err := s.db.QueryRowContext(ctx,
		`SELECT authors, last_commit_id FROM branch_author WHERE path = ? AND branch = ?`,
		key.Repo, key.Branch,
	).Scan(&raw, &frontier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrMiss
	}
	if err != nil {
		return nil, "", fmt.Errorf("query authors: %w", err)
	}
	var authors []git.Author
	if err := json.Unmarshal([]byte(raw), &authors); err != nil {
		return nil, "", fmt.Errorf("decode authors of %s@%s: %w", key.Repo, key.Branch, err)
	}
	return authors, frontier, nil
}

func (s *SQLiteStore) SetAuthors(ctx context.Context, key git.CacheKey, authors []git.Author, frontier string) error {
	if authors == nil {
		authors = []git.Author{}
	}
	raw, err := json.Marshal(authors)
	if err != nil {
		return fmt.Errorf("encode authors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO branch_author (path, branch, authors, last_commit_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (path, branch) DO UPDATE SET
			authors = excluded.authors,
			last_commit_id = excluded.last_commit_id,
			updated_at = excluded.updated_at
	`, key.Repo, key.Branch, string(raw), frontier, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store authors: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RepoAuthors(ctx context.Context, repo string) ([]git.Author, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT authors FROM branch_author WHERE path = ?`, repo)
	if err != nil {
		return nil, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()
	var rosters [][]git.Author
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan authors: %w", err)
		}
		var authors []git.Author
		if err := json.Unmarshal([]byte(raw), &authors); err != nil {
			return nil, fmt.Errorf("decode authors of %s: %w", repo, err)
		}
		rosters = append(rosters, authors)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authors: %w", err)
	}
	if len(rosters) == 0 {
		return nil, ErrMiss
	}
	return git.MergeAuthors(rosters...), nil
}

func (s *SQLiteStore) Clear(ctx context.Context, repo string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM branch_author WHERE path = ?`, repo); err != nil {
		return fmt.Errorf("clear cache of %s: %w", repo, err)
	}
	return nil
}

func (s *SQLiteStore) ClearAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM branch_author`); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
