package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"stockcards/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  inputType TEXT NOT NULL,
  charset TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL,
  failure TEXT,
  itemCount INTEGER NOT NULL DEFAULT 0,
  pageCount INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_createdAt ON runs(createdAt);

CREATE TABLE IF NOT EXISTS items (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  position INTEGER NOT NULL,
  name TEXT NOT NULL,
  price TEXT,
  keepQuantity INTEGER NOT NULL,
  safetyStock INTEGER NOT NULL,
  maxOut INTEGER NOT NULL,
  prescriptionCount TEXT,
  patientCount TEXT,
  UNIQUE(runId, position),
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// MetaLastOKRun holds the ID of the newest successful run.
const MetaLastOKRun = "runs.last_ok"

// InsertRun records a generation attempt. Items are stored in collection
// order and only for successful runs; a successful run also becomes
// MetaLastOKRun in the same transaction.
func (d *DB) InsertRun(run internal.RunRow, items []internal.ItemRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
INSERT INTO runs (id, source, inputType, charset, hash, status, failure, itemCount, pageCount)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.ID, run.Source, run.InputType, run.Charset, run.Hash, string(run.Status), run.Failure, run.Items, run.Pages); err != nil {
		return err
	}

	if run.Status == internal.RunOK && len(items) > 0 {
		stmt, err := tx.Prepare(`
INSERT INTO items (runId, position, name, price, keepQuantity, safetyStock, maxOut, prescriptionCount, patientCount)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, it := range items {
			if _, err := stmt.Exec(run.ID, i, it.Name, it.Price, it.KeepQuantity, it.SafetyStock, it.MaxOut, it.PrescriptionCount, it.PatientCount); err != nil {
				return err
			}
		}
	}

	if run.Status == internal.RunOK {
		if _, err := tx.Exec(upsertMetadata, MetaLastOKRun, run.ID); err != nil {
			return fmt.Errorf("record last run: %w", err)
		}
	}

	return tx.Commit()
}

const runColumns = `id, source, inputType, COALESCE(charset, ''), hash, status, COALESCE(failure, ''), itemCount, pageCount, createdAt`

func scanRun(scan func(dest ...any) error) (internal.RunRow, error) {
	var r internal.RunRow
	var status string
	err := scan(&r.ID, &r.Source, &r.InputType, &r.Charset, &r.Hash, &status, &r.Failure, &r.Items, &r.Pages, &r.CreatedAt)
	r.Status = internal.RunStatus(status)
	return r, err
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`SELECT `+runColumns+` FROM runs ORDER BY createdAt DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		r, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) GetRun(id string) (*internal.RunRow, error) {
	r, err := scanRun(d.conn.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) GetRunItems(runID string) ([]internal.ItemRecord, error) {
	rows, err := d.conn.Query(`
SELECT name, COALESCE(price, ''), keepQuantity, safetyStock, maxOut, COALESCE(prescriptionCount, ''), COALESCE(patientCount, '')
FROM items WHERE runId = ? ORDER BY position ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ItemRecord
	for rows.Next() {
		var it internal.ItemRecord
		if err := rows.Scan(&it.Name, &it.Price, &it.KeepQuantity, &it.SafetyStock, &it.MaxOut, &it.PrescriptionCount, &it.PatientCount); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (d *DB) MustRun(id string) (internal.RunRow, error) {
	run, err := d.GetRun(id)
	if err != nil {
		return internal.RunRow{}, err
	}
	if run == nil {
		return internal.RunRow{}, fmt.Errorf("run not found: %s", id)
	}
	return *run, nil
}

func (d *DB) UpsertMessage(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.MessageRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO messages (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.MessageRow{}, err
	}

	row, err := d.GetMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MessageRow{}, err
	}
	if row == nil {
		return internal.MessageRow{}, errors.New("failed to upsert message")
	}
	return *row, nil
}

const messageColumns = `id, provider, messageId, COALESCE(subject, ''), COALESCE(sender, ''), COALESCE(receivedAt, ''), hash, status, rawRef`

func (d *DB) GetMessageByProviderMessageID(provider, messageID string) (*internal.MessageRow, error) {
	var row internal.MessageRow
	err := d.conn.QueryRow(`SELECT `+messageColumns+` FROM messages WHERE provider = ? AND messageId = ?`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustMessageByProviderMessageID(provider, messageID string) (internal.MessageRow, error) {
	row, err := d.GetMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MessageRow{}, err
	}
	if row == nil {
		return internal.MessageRow{}, fmt.Errorf("message not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListMessagesByStatus(status string, limit int) ([]internal.MessageRow, error) {
	rows, err := d.conn.Query(`SELECT `+messageColumns+` FROM messages WHERE status = ? ORDER BY receivedAt ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MessageRow
	for rows.Next() {
		var row internal.MessageRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateMessageStatus(id int, status string) error {
	_, err := d.conn.Exec(`UPDATE messages SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

const upsertMetadata = `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(upsertMetadata, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
