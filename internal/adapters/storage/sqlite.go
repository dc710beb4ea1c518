package storage

// sqlite.go — historial de rondas liquidadas.
//
// Estrategia:
//   - `rounds`: UNA fila por ronda liquidada, claveada por id autoincremental;
//     el uuid de sesión agrupa las filas de una misma ejecución del bot.
//   - `runs`: resumen agregado por sesión (upsert en cada inserción).
//   - Append-only: el engine solo inserta, el análisis ocurre offline.

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"oregrid/internal/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS rounds (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id     TEXT     NOT NULL,
    round_id       INTEGER  NOT NULL,
    squares        TEXT     NOT NULL,
    bet_per_block  INTEGER  NOT NULL,
    total_bet      INTEGER  NOT NULL,
    won            INTEGER  NOT NULL,
    winning_square INTEGER  NOT NULL,
    ore_earned     INTEGER  NOT NULL DEFAULT 0,
    sol_earned     INTEGER  NOT NULL DEFAULT 0,
    net_profit     INTEGER  NOT NULL DEFAULT 0,
    settled_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id, settled_at);

CREATE TABLE IF NOT EXISTS runs (
    session_id      TEXT     PRIMARY KEY,
    started_at      DATETIME NOT NULL,
    last_settled_at DATETIME NOT NULL,
    rounds          INTEGER  NOT NULL DEFAULT 0,
    wins            INTEGER  NOT NULL DEFAULT 0,
    losses          INTEGER  NOT NULL DEFAULT 0,
    net_profit      INTEGER  NOT NULL DEFAULT 0
);
`

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en dsn y aplica el schema.
// Usar ":memory:" en tests.
func NewSQLiteStorage(dsn string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", dsn, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveRound añade una ronda liquidada y actualiza el resumen de su sesión.
func (s *SQLiteStorage) SaveRound(ctx context.Context, rec domain.RoundRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rounds (
			session_id, round_id, squares, bet_per_block, total_bet,
			won, winning_square, ore_earned, sol_earned, net_profit, settled_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID,
		rec.RoundID,
		joinSquares(rec.Squares),
		rec.BetPerBlock,
		rec.TotalBet,
		rec.Won,
		rec.WinningSquare,
		rec.OreEarned,
		rec.SolEarned,
		rec.NetProfit,
		rec.SettledAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRound: %w", err)
	}

	wins, losses := 0, 1
	if rec.Won {
		wins, losses = 1, 0
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (session_id, started_at, last_settled_at, rounds, wins, losses, net_profit)
		VALUES (?, ?, ?, 1, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			last_settled_at = excluded.last_settled_at,
			rounds          = rounds + 1,
			wins            = wins + excluded.wins,
			losses          = losses + excluded.losses,
			net_profit      = net_profit + excluded.net_profit`,
		rec.SessionID,
		rec.SettledAt.UTC(),
		rec.SettledAt.UTC(),
		wins,
		losses,
		rec.NetProfit,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveRound: update run summary: %w", err)
	}
	return nil
}

// RunSummary es la fila agregada que se mantiene por sesión.
type RunSummary struct {
	SessionID     string
	StartedAt     time.Time
	LastSettledAt time.Time
	Rounds        int
	Wins          int
	Losses        int
	NetProfit     int64
}

// Run devuelve el resumen agregado de una sesión.
func (s *SQLiteStorage) Run(ctx context.Context, sessionID string) (RunSummary, error) {
	var r RunSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, started_at, last_settled_at, rounds, wins, losses, net_profit
		FROM runs WHERE session_id = ?`,
		sessionID,
	).Scan(&r.SessionID, &r.StartedAt, &r.LastSettledAt, &r.Rounds, &r.Wins, &r.Losses, &r.NetProfit)
	if err != nil {
		return RunSummary{}, fmt.Errorf("storage.Run: %w", err)
	}
	return r, nil
}

// History devuelve las rondas de una sesión en orden de liquidación.
func (s *SQLiteStorage) History(ctx context.Context, sessionID string) ([]domain.RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, round_id, squares, bet_per_block, total_bet,
		       won, winning_square, ore_earned, sol_earned, net_profit, settled_at
		FROM rounds WHERE session_id = ? ORDER BY settled_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.History: %w", err)
	}
	defer rows.Close()

	var out []domain.RoundRecord
	for rows.Next() {
		var rec domain.RoundRecord
		var squares string
		var settledAt time.Time
		if err := rows.Scan(
			&rec.SessionID, &rec.RoundID, &squares, &rec.BetPerBlock, &rec.TotalBet,
			&rec.Won, &rec.WinningSquare, &rec.OreEarned, &rec.SolEarned, &rec.NetProfit, &settledAt,
		); err != nil {
			return nil, fmt.Errorf("storage.History: scan: %w", err)
		}
		rec.Squares = splitSquares(squares)
		rec.SettledAt = settledAt
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close libera el handle de la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func joinSquares(squares []uint8) string {
	parts := make([]string, len(squares))
	for i, sq := range squares {
		parts[i] = strconv.Itoa(int(sq))
	}
	return strings.Join(parts, ",")
}

func splitSquares(s string) []uint8 {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint8, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		out = append(out, uint8(n))
	}
	return out
}
