// Package ledger keeps an append-only sqlite record of settlements and
// applied parameter changes, independent of the hot-path redis state.
package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"minevault-backend/internal/event"
)

type Service struct {
	db *sql.DB
}

func Open(path string) (*Service, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger db: %v", err)
	}
	s := &Service{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Service) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS settlements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		game_id TEXT,
		principal TEXT,
		outcome TEXT,
		payout INTEGER,
		ts INTEGER
	);`)
	if err != nil {
		return fmt.Errorf("failed to migrate settlements: %v", err)
	}

	_, err = s.db.Exec(`
	CREATE TABLE IF NOT EXISTS param_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		param TEXT,
		value INTEGER,
		ts INTEGER
	);`)
	if err != nil {
		return fmt.Errorf("failed to migrate param_changes: %v", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.db.Close()
}

func (s *Service) RecordSettlement(gameID, principal, outcome string, payout uint64) error {
	_, err := s.db.Exec(`
	INSERT INTO settlements(game_id, principal, outcome, payout, ts)
	VALUES (?, ?, ?, ?, ?)
	`, gameID, principal, outcome, payout, time.Now().Unix())
	return err
}

func (s *Service) RecordParamChange(param string, value uint64) error {
	_, err := s.db.Exec(`
	INSERT INTO param_changes(param, value, ts)
	VALUES (?, ?, ?)
	`, param, value, time.Now().Unix())
	return err
}

type Settlement struct {
	ID        int64  `json:"id"`
	GameID    string `json:"game_id"`
	Principal string `json:"principal"`
	Outcome   string `json:"outcome"`
	Payout    uint64 `json:"payout"`
	Timestamp int64  `json:"ts"`
}

func (s *Service) RecentSettlements(limit int) ([]Settlement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.Query(`
	SELECT id, game_id, principal, outcome, payout, ts
	FROM settlements ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Settlement
	for rows.Next() {
		var row Settlement
		if err := rows.Scan(&row.ID, &row.GameID, &row.Principal, &row.Outcome, &row.Payout, &row.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RegisterConsumers writes a ledger row for every finished game and every
// applied parameter change.
func RegisterConsumers(bus *event.Bus, s *Service) {
	bus.Subscribe(event.EventGameEnded, func(payload interface{}) {
		ended, ok := payload.(*event.GameEnded)
		if !ok {
			return
		}
		outcome := "loss"
		if ended.Won {
			outcome = "cashout"
		}
		if err := s.RecordSettlement(ended.GameID, ended.Principal, outcome, ended.Payout); err != nil {
			log.Printf("ledger: failed to record settlement for %s: %v", ended.GameID, err)
		}
	})

	bus.Subscribe(event.EventParamApplied, func(payload interface{}) {
		change, ok := payload.(*event.ParamChanged)
		if !ok {
			return
		}
		if err := s.RecordParamChange(change.Param, change.Value); err != nil {
			log.Printf("ledger: failed to record param change %s: %v", change.Param, err)
		}
	})
}
