// Package persistence provides SQLite-based world state storage.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/veloria/internal/agents"
	"github.com/talgya/veloria/internal/chronicle"
	"github.com/talgya/veloria/internal/config"
	"github.com/talgya/veloria/internal/engine"
	"github.com/talgya/veloria/internal/social"
)

// ErrNoWorld is returned by LoadWorld when the database holds no save.
var ErrNoWorld = errors.New("no saved world")

// Meta keys.
const (
	metaWorldID   = "world_id"
	metaClockDay  = "clock_day"
	metaClockHour = "clock_hour"
	metaPopClock  = "population_clock"
	metaStory     = "story"
	metaSavedAt   = "saved_at"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kingdoms (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		active INTEGER NOT NULL,
		population INTEGER NOT NULL,
		food INTEGER NOT NULL,
		wood INTEGER NOT NULL,
		stone INTEGER NOT NULL,
		metal INTEGER NOT NULL,
		treasury INTEGER NOT NULL,
		morale INTEGER NOT NULL,
		unrest INTEGER NOT NULL,
		story_json TEXT NOT NULL,
		divine_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS agents (
		idx INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		health INTEGER NOT NULL,
		hunger INTEGER NOT NULL,
		speed INTEGER NOT NULL,
		damage INTEGER NOT NULL,
		defense INTEGER NOT NULL,
		intellect INTEGER NOT NULL,
		job INTEGER NOT NULL,
		kingdom INTEGER NOT NULL,
		bronze INTEGER NOT NULL,
		is_leader INTEGER NOT NULL,
		quirks INTEGER NOT NULL,
		equipment BLOB NOT NULL,
		alive INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chronicle (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at INTEGER NOT NULL,
		message TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_agents_kingdom ON agents(kingdom);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type kingdomRow struct {
	ID         int    `db:"id"`
	Name       string `db:"name"`
	Active     bool   `db:"active"`
	Population int    `db:"population"`
	Food       int    `db:"food"`
	Wood       int    `db:"wood"`
	Stone      int    `db:"stone"`
	Metal      int    `db:"metal"`
	Treasury   int    `db:"treasury"`
	Morale     int    `db:"morale"`
	Unrest     int    `db:"unrest"`
	StoryJSON  string `db:"story_json"`
	DivineJSON string `db:"divine_json"`
}

type agentRow struct {
	Idx       int    `db:"idx"`
	Name      string `db:"name"`
	Health    int    `db:"health"`
	Hunger    int    `db:"hunger"`
	Speed     int    `db:"speed"`
	Damage    int    `db:"damage"`
	Defense   int    `db:"defense"`
	Intellect int    `db:"intellect"`
	Job       int    `db:"job"`
	Kingdom   int    `db:"kingdom"`
	Bronze    int    `db:"bronze"`
	IsLeader  bool   `db:"is_leader"`
	Quirks    int    `db:"quirks"`
	Equipment []byte `db:"equipment"`
	Alive     bool   `db:"alive"`
}

type chronicleRow struct {
	At      int64  `db:"at"`
	Message string `db:"message"`
}

// SaveWorld performs a full save of all world state in one transaction.
// It must be called from the goroutine that owns the world.
func (db *DB) SaveWorld(w *engine.World) error {
	slog.Info("saving world state", "agents", w.Agents.Len(), "clock", w.Clock.String())

	tx, err := db.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveKingdoms(tx, &w.Kingdoms); err != nil {
		return fmt.Errorf("save kingdoms: %w", err)
	}
	if err := saveAgents(tx, w.Agents.All()); err != nil {
		return fmt.Errorf("save agents: %w", err)
	}
	if err := saveChronicle(tx, w.Chronicle().Entries()); err != nil {
		return fmt.Errorf("save chronicle: %w", err)
	}
	if err := saveMeta(tx, w); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.Info("world state saved", "world_id", w.WorldID)
	return nil
}

func saveKingdoms(tx *sqlx.Tx, roster *social.Roster) error {
	if _, err := tx.Exec("DELETE FROM kingdoms"); err != nil {
		return err
	}
	for i := range roster {
		k := &roster[i]
		storyJSON, err := json.Marshal(k.Story)
		if err != nil {
			return err
		}
		divineJSON, err := json.Marshal(k.Divine)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`INSERT INTO kingdoms
			(id, name, active, population, food, wood, stone, metal, treasury,
			 morale, unrest, story_json, divine_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			int(k.ID), k.Name, k.Active, k.Population,
			k.Food, k.Wood, k.Stone, k.Metal, k.Treasury,
			k.Morale, k.Unrest, string(storyJSON), string(divineJSON),
		)
		if err != nil {
			return fmt.Errorf("insert kingdom %d: %w", k.ID, err)
		}
	}
	return nil
}

func saveAgents(tx *sqlx.Tx, all []agents.Agent) error {
	if _, err := tx.Exec("DELETE FROM agents"); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO agents
		(idx, name, health, hunger, speed, damage, defense, intellect,
		 job, kingdom, bronze, is_leader, quirks, equipment, alive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range all {
		a := &all[i]
		_, err := stmt.Exec(
			i, a.Name,
			a.Stats.Health, a.Stats.Hunger, a.Stats.Speed,
			a.Stats.Damage, a.Stats.Defense, a.Stats.Intellect,
			int(a.Job), int(a.Kingdom), a.Bronze, a.IsLeader,
			a.QuirkMask(), a.Equipment[:], a.Alive,
		)
		if err != nil {
			return fmt.Errorf("insert agent %d: %w", i, err)
		}
	}
	return nil
}

func saveChronicle(tx *sqlx.Tx, entries []chronicle.Entry) error {
	if _, err := tx.Exec("DELETE FROM chronicle"); err != nil {
		return err
	}
	for _, e := range entries {
		if _, err := tx.Exec("INSERT INTO chronicle (at, message) VALUES (?, ?)",
			e.Time.UnixNano(), e.Message); err != nil {
			return err
		}
	}
	return nil
}

func saveMeta(tx *sqlx.Tx, w *engine.World) error {
	popJSON, err := json.Marshal(w.Pop)
	if err != nil {
		return err
	}
	storyJSON, err := json.Marshal(w.Story)
	if err != nil {
		return err
	}
	meta := map[string]string{
		metaWorldID:   w.WorldID,
		metaClockDay:  strconv.Itoa(w.Clock.Day),
		metaClockHour: strconv.Itoa(w.Clock.Hour),
		metaPopClock:  string(popJSON),
		metaStory:     string(storyJSON),
		metaSavedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if err := putMeta(tx, k, v); err != nil {
			return err
		}
	}
	return nil
}

func putMeta(ex sqlx.Execer, key, value string) error {
	if _, err := ex.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("meta %s: %w", key, err)
	}
	return nil
}

// HasWorld reports whether a world has been saved.
func (db *DB) HasWorld() (bool, error) {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM world_meta WHERE key = ?", metaWorldID); err != nil {
		return false, fmt.Errorf("has world: %w", err)
	}
	return n > 0, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	return putMeta(db.conn, key, value)
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	if err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key); err != nil {
		return "", fmt.Errorf("meta %s: %w", key, err)
	}
	return value, nil
}

// LoadWorld rebuilds the saved world under cfg. opts supplies the logger,
// seed and shared boundary; its WorldID is replaced by the saved one.
func (db *DB) LoadWorld(cfg config.Tuning, opts engine.Options) (*engine.World, error) {
	ok, err := db.HasWorld()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoWorld
	}

	meta := make(map[string]string)
	for _, key := range []string{metaWorldID, metaClockDay, metaClockHour, metaPopClock, metaStory, metaSavedAt} {
		v, err := db.GetMeta(key)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		meta[key] = v
	}

	opts.WorldID = meta[metaWorldID]
	w := engine.NewWorld(cfg, opts)
	if w.Clock.Day, err = strconv.Atoi(meta[metaClockDay]); err != nil {
		return nil, fmt.Errorf("load meta: clock day: %w", err)
	}
	if w.Clock.Hour, err = strconv.Atoi(meta[metaClockHour]); err != nil {
		return nil, fmt.Errorf("load meta: clock hour: %w", err)
	}
	if err := json.Unmarshal([]byte(meta[metaPopClock]), &w.Pop); err != nil {
		return nil, fmt.Errorf("load meta: population clock: %w", err)
	}
	if err := json.Unmarshal([]byte(meta[metaStory]), &w.Story); err != nil {
		return nil, fmt.Errorf("load meta: story: %w", err)
	}

	if err := db.loadKingdoms(&w.Kingdoms); err != nil {
		return nil, fmt.Errorf("load kingdoms: %w", err)
	}
	if err := db.loadAgents(w.Agents); err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}

	var rows []chronicleRow
	if err := db.conn.Select(&rows, "SELECT at, message FROM chronicle ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load chronicle: %w", err)
	}
	entries := make([]chronicle.Entry, len(rows))
	for i, r := range rows {
		entries[i] = chronicle.Entry{Time: time.Unix(0, r.At), Message: r.Message}
	}
	w.Chronicle().Restore(entries)

	w.Resume()
	slog.Info("world state loaded", "world_id", w.WorldID, "saved_at", meta[metaSavedAt])
	return w, nil
}

func (db *DB) loadKingdoms(roster *social.Roster) error {
	var rows []kingdomRow
	if err := db.conn.Select(&rows, "SELECT * FROM kingdoms ORDER BY id"); err != nil {
		return err
	}
	for _, r := range rows {
		k := roster.Get(agents.KingdomID(r.ID))
		if k == nil {
			return fmt.Errorf("kingdom id %d out of range", r.ID)
		}
		k.Name = r.Name
		k.Active = r.Active
		k.Population = r.Population
		k.Ledger = social.Ledger{Food: r.Food, Wood: r.Wood, Stone: r.Stone, Metal: r.Metal, Treasury: r.Treasury}
		k.Morale = r.Morale
		k.Unrest = r.Unrest
		if err := json.Unmarshal([]byte(r.StoryJSON), &k.Story); err != nil {
			return fmt.Errorf("kingdom %d story: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.DivineJSON), &k.Divine); err != nil {
			return fmt.Errorf("kingdom %d divine: %w", r.ID, err)
		}
	}
	return nil
}

func (db *DB) loadAgents(store *agents.Store) error {
	var rows []agentRow
	if err := db.conn.Select(&rows, "SELECT * FROM agents ORDER BY idx"); err != nil {
		return err
	}
	batch := make([]agents.Agent, len(rows))
	for i, r := range rows {
		job, kingdom := agents.Job(r.Job), agents.KingdomID(r.Kingdom)
		if !job.Valid() || !kingdom.Valid() {
			return fmt.Errorf("agent %d: job %d kingdom %d out of range", r.Idx, r.Job, r.Kingdom)
		}
		a := agents.Agent{
			Name: r.Name,
			Stats: agents.Stats{
				Health:    r.Health,
				Hunger:    r.Hunger,
				Speed:     r.Speed,
				Damage:    r.Damage,
				Defense:   r.Defense,
				Intellect: r.Intellect,
			},
			Job:      job,
			Kingdom:  kingdom,
			Bronze:   r.Bronze,
			IsLeader: r.IsLeader,
			Alive:    r.Alive,
		}
		a.SetQuirkMask(r.Quirks)
		copy(a.Equipment[:], r.Equipment)
		batch[i] = a
	}
	store.Reset()
	return store.Append(batch...)
}
