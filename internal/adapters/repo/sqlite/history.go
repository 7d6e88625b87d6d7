package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/smartwallet-cli/internal/domain"
	"github.com/bnema/smartwallet-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	_ "modernc.org/sqlite"
)

var errEmptyPath = errors.New("history path is empty")

// HistoryStore records submitted user operations in a local SQLite file.
type HistoryStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.HistoryRepository = (*HistoryStore)(nil)

func Open(path string) (*HistoryStore, error) {
	if path == "" {
		return nil, errEmptyPath
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// One writer keeps the CLI and the recurring runner from racing on SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	store := &HistoryStore{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return store, nil
}

func (s *HistoryStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS user_operations (
		user_op_hash TEXT PRIMARY KEY,
		sender TEXT NOT NULL,
		calls_json TEXT NOT NULL,
		status TEXT NOT NULL,
		transaction_hash TEXT,
		note TEXT NOT NULL DEFAULT '',
		submitted_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_user_operations_submitted ON user_operations(submitted_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// Save inserts the entry, replacing any previous row for the same hash.
func (s *HistoryStore) Save(ctx context.Context, entry domain.HistoryEntry) error {
	callsJSON, err := encodeCalls(entry.Calls)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO user_operations (user_op_hash, sender, calls_json, status, transaction_hash, note, submitted_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_op_hash) DO UPDATE SET
		sender = excluded.sender,
		calls_json = excluded.calls_json,
		status = excluded.status,
		transaction_hash = excluded.transaction_hash,
		note = excluded.note,
		updated_at = excluded.updated_at`

	_, err = s.db.ExecContext(ctx, query,
		entry.UserOpHash.Hex(), entry.Sender.Hex(), callsJSON, string(entry.Status),
		nullableHash(entry.TransactionHash), entry.Note,
		entry.SubmittedAt.UnixMilli(), entry.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save user operation: %w", err)
	}
	return nil
}

func (s *HistoryStore) UpdateStatus(ctx context.Context, hash common.Hash, status domain.OperationStatus, txHash common.Hash) error {
	query := `UPDATE user_operations SET status = ?, transaction_hash = ?, updated_at = ? WHERE user_op_hash = ?`
	result, err := s.db.ExecContext(ctx, query, string(status), nullableHash(txHash), s.now().UnixMilli(), hash.Hex())
	if err != nil {
		return fmt.Errorf("update user operation status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrHistoryNotFound, hash.Hex())
	}

	return nil
}

// List returns the newest entries first. A non-positive limit returns every entry.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	query := `
		SELECT user_op_hash, sender, calls_json, status, transaction_hash, note, submitted_at, updated_at
		FROM user_operations
		ORDER BY submitted_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user operations: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			hash, sender, callsJSON, status, note string
			txHash                                sql.NullString
			submittedAt, updatedAt                int64
		)
		if err := rows.Scan(&hash, &sender, &callsJSON, &status, &txHash, &note, &submittedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan user operation row: %w", err)
		}

		calls, err := decodeCalls(callsJSON)
		if err != nil {
			return nil, fmt.Errorf("decode calls of %s: %w", hash, err)
		}

		entry := domain.HistoryEntry{
			UserOpHash:  common.HexToHash(hash),
			Sender:      common.HexToAddress(sender),
			Calls:       calls,
			Status:      domain.OperationStatus(status),
			Note:        note,
			SubmittedAt: time.UnixMilli(submittedAt).UTC(),
			UpdatedAt:   time.UnixMilli(updatedAt).UTC(),
		}
		if txHash.Valid {
			entry.TransactionHash = common.HexToHash(txHash.String)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user operations: %w", err)
	}

	return entries, nil
}

type callJSON struct {
	To    common.Address `json:"to"`
	Value string         `json:"value"`
	Data  hexutil.Bytes  `json:"data"`
}

func encodeCalls(calls []domain.Call) (string, error) {
	out := make([]callJSON, 0, len(calls))
	for _, call := range calls {
		out = append(out, callJSON{To: call.To, Value: call.ValueOrZero().String(), Data: call.Data})
	}

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encode calls: %w", err)
	}
	return string(data), nil
}

func decodeCalls(raw string) ([]domain.Call, error) {
	var in []callJSON
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return nil, err
	}

	calls := make([]domain.Call, 0, len(in))
	for _, call := range in {
		value, ok := new(big.Int).SetString(call.Value, 10)
		if !ok {
			return nil, fmt.Errorf("invalid call value %q", call.Value)
		}
		calls = append(calls, domain.Call{To: call.To, Value: value, Data: []byte(call.Data)})
	}
	return calls, nil
}

func nullableHash(hash common.Hash) any {
	if hash == (common.Hash{}) {
		return nil
	}
	return hash.Hex()
}
