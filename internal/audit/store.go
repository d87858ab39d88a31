package audit

import (
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store persists audit records to SQLite so a mission can be reviewed after
// the process exits.
type Store struct {
	conn *sqlx.DB
}

// OpenStore opens or creates the audit database at path.
func OpenStore(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		timestep INTEGER NOT NULL,
		decision_type TEXT NOT NULL,
		explanation TEXT NOT NULL,
		chosen_action TEXT NOT NULL,
		expected_outcome TEXT NOT NULL,
		actual_outcome TEXT NOT NULL,
		conf_mean REAL NOT NULL,
		conf_lower REAL NOT NULL,
		conf_upper REAL NOT NULL,
		conf_std REAL NOT NULL,
		factors_json TEXT NOT NULL,
		alternatives_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decisions_timestep ON decisions(timestep);
	CREATE INDEX IF NOT EXISTS idx_decisions_type ON decisions(decision_type);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SaveTrail writes every record of the trail in one transaction. Records
// already present are replaced, so repeated flushes are safe.
func (s *Store) SaveTrail(t *Trail) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO decisions
		(id, timestep, decision_type, explanation, chosen_action,
		 expected_outcome, actual_outcome,
		 conf_mean, conf_lower, conf_upper, conf_std,
		 factors_json, alternatives_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range t.All() {
		factorsJSON, err := json.Marshal(r.Factors)
		if err != nil {
			return fmt.Errorf("marshal factors for %s: %w", r.ID, err)
		}
		altsJSON, err := json.Marshal(r.Alternatives)
		if err != nil {
			return fmt.Errorf("marshal alternatives for %s: %w", r.ID, err)
		}
		if _, err := stmt.Exec(
			r.ID, r.Timestep, r.Type.String(), r.Explanation,
			r.ChosenAction, r.ExpectedOutcome, r.ActualOutcome,
			r.Confidence.Mean, r.Confidence.Lower, r.Confidence.Upper, r.Confidence.StdDev,
			string(factorsJSON), string(altsJSON),
		); err != nil {
			return fmt.Errorf("insert decision %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

// StoredDecision is the flat row shape used for queries.
type StoredDecision struct {
	ID           string  `db:"id"`
	Timestep     int     `db:"timestep"`
	DecisionType string  `db:"decision_type"`
	Explanation  string  `db:"explanation"`
	ChosenAction string  `db:"chosen_action"`
	ConfMean     float64 `db:"conf_mean"`
	ConfLower    float64 `db:"conf_lower"`
	ConfUpper    float64 `db:"conf_upper"`
}

// Decisions returns stored decisions in timestep order.
func (s *Store) Decisions() ([]StoredDecision, error) {
	var out []StoredDecision
	err := s.conn.Select(&out, `SELECT id, timestep, decision_type, explanation,
		chosen_action, conf_mean, conf_lower, conf_upper
		FROM decisions ORDER BY timestep, id`)
	return out, err
}

// DecisionsByType returns stored decisions of one type in timestep order.
func (s *Store) DecisionsByType(t DecisionType) ([]StoredDecision, error) {
	var out []StoredDecision
	err := s.conn.Select(&out, `SELECT id, timestep, decision_type, explanation,
		chosen_action, conf_mean, conf_lower, conf_upper
		FROM decisions WHERE decision_type = ? ORDER BY timestep, id`, t.String())
	return out, err
}

// Count reports the number of stored decisions.
func (s *Store) Count() (int, error) {
	var n int
	err := s.conn.Get(&n, "SELECT COUNT(*) FROM decisions")
	return n, err
}
