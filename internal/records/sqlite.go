package records

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/agentstation/cardmap/pkg/cards"
	"github.com/agentstation/cardmap/pkg/constants"
	"github.com/agentstation/cardmap/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS card_records (
    source              TEXT    NOT NULL,
    position            INTEGER NOT NULL,
    card_number         TEXT    NOT NULL DEFAULT '',
    name                TEXT    NOT NULL DEFAULT '',
    rarity              TEXT    NOT NULL DEFAULT '',
    type                TEXT    NOT NULL DEFAULT '',
    color               TEXT    NOT NULL DEFAULT '',
    cost_life_type      TEXT    NOT NULL DEFAULT '',
    cost_life_value     TEXT    NOT NULL DEFAULT '',
    power               TEXT    NOT NULL DEFAULT '',
    counter             TEXT    NOT NULL DEFAULT '',
    attribute           TEXT    NOT NULL DEFAULT '',
    features            TEXT    NOT NULL DEFAULT '',
    block               TEXT    NOT NULL DEFAULT '',
    effect_text         TEXT    NOT NULL DEFAULT '',
    trigger_text        TEXT    NOT NULL DEFAULT '',
    set_info            TEXT    NOT NULL DEFAULT '',
    image_file_id       TEXT    NOT NULL DEFAULT '',
    image_file_id_small TEXT    NOT NULL DEFAULT '',
    PRIMARY KEY (source, position)
);`

const columns = `card_number, name, rarity, type, color, cost_life_type, cost_life_value,
    power, counter, attribute, features, block, effect_text, trigger_text, set_info,
    image_file_id, image_file_id_small`

// SQLite stores records in a single table keyed by source and position.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.NewValidationError("records_db", path, "path is required for the sqlite backend")
	}
	if err := os.MkdirAll(filepath.Dir(path), constants.DirPermissions); err != nil {
		return nil, errors.WrapIO("mkdir", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLite) Path() string { return s.path }

// Sources implements Store.
func (s *SQLite) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source FROM card_records ORDER BY source`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Load implements Store.
func (s *SQLite) Load(ctx context.Context, source string) ([]cards.Card, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM card_records WHERE source = ? ORDER BY position`, source)
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", source, err)
	}
	defer func() { _ = rows.Close() }()

	var recs []cards.Card
	for rows.Next() {
		c := cards.Card{Source: source}
		if err := rows.Scan(
			&c.CardNumber, &c.Name, &c.Rarity, &c.Type, &c.Color, &c.CostLifeType, &c.CostLifeValue,
			&c.Power, &c.Counter, &c.Attribute, &c.Features, &c.Block, &c.EffectText, &c.Trigger,
			&c.SetInfo, &c.ImageFileID, &c.ImageFileIDSmall,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if recs == nil {
		return nil, errors.NewNotFoundError("source", source)
	}
	return recs, nil
}

// Replace implements Store. The previous records of the source are removed
// in the same transaction.
func (s *SQLite) Replace(ctx context.Context, source string, recs []cards.Card) (err error) {
	if err := validSource(source); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM card_records WHERE source = ?`, source); err != nil {
		return fmt.Errorf("clear source %s: %w", source, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO card_records (source, position, `+columns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, c := range recs {
		if _, err = stmt.ExecContext(ctx, source, i,
			c.CardNumber, c.Name, c.Rarity, c.Type, c.Color, c.CostLifeType, c.CostLifeValue,
			c.Power, c.Counter, c.Attribute, c.Features, c.Block, c.EffectText, c.Trigger,
			c.SetInfo, c.ImageFileID, c.ImageFileIDSmall,
		); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Delete implements Store.
func (s *SQLite) Delete(ctx context.Context, source string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM card_records WHERE source = ?`, source); err != nil {
		return fmt.Errorf("delete source %s: %w", source, err)
	}
	return nil
}

// Close implements Store.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
