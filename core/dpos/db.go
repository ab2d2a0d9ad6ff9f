package dpos

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	_ "github.com/mattn/go-sqlite3"

	"github.com/liamzebedee/tinydpos-go/core"
)

func dbGetVersion(db *sql.DB) (int, error) {
	// Check the database version.
	row := db.QueryRow("SELECT version FROM tinydpos_version ORDER BY version DESC LIMIT 1")
	if err := row.Err(); err != nil {
		return -1, fmt.Errorf("error checking database version: %s", err)
	}

	databaseVersion := -1
	row.Scan(&databaseVersion)

	return databaseVersion, nil
}

func dbMigrate(db *sql.DB, migrationIndex int, migrateFn func(tx *sql.Tx) error) error {
	logger := core.NewLogger("db", "")

	version, err := dbGetVersion(db)
	if err != nil {
		return err
	}

	// Skip migration if the database is already at the target version.
	if migrationIndex <= version {
		return nil
	}

	// Perform the migration.
	logger.Printf("Running migration: %d\n", migrationIndex)
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	err = migrateFn(tx)
	if err != nil {
		tx.Rollback()
		return err
	}

	// Update the database version.
	_, err = tx.Exec("insert into tinydpos_version (version) values (?)", migrationIndex)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// OpenDB opens the governance database, creating and migrating the schema if
// needed. The database stores the two registries (voters, producers), the
// governance singleton, and generic data stores.
func OpenDB(dbPath string) (*sql.DB, error) {
	logger := core.NewLogger("db", "")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Check to perform migrations.
	_, err = db.Exec("create table if not exists tinydpos_version (version int)")
	if err != nil {
		return nil, fmt.Errorf("error checking database version: %s", err)
	}
	// Check the database version.
	databaseVersion, err := dbGetVersion(db)
	if err != nil {
		return nil, fmt.Errorf("error checking database version: %s", err)
	}

	logger.Printf("Database version: %d\n", databaseVersion)

	// Migration: v0.
	err = dbMigrate(db, 0, func(tx *sql.Tx) error {
		// voters
		_, err := tx.Exec(`create table voters (
			owner TEXT PRIMARY KEY,
			staked INTEGER NOT NULL DEFAULT 0,
			proxy TEXT NOT NULL DEFAULT '',
			producers TEXT NOT NULL DEFAULT '[]',
			proxied_vote_weight REAL NOT NULL DEFAULT 0,
			last_vote_weight REAL NOT NULL DEFAULT 0,
			is_proxy INTEGER NOT NULL DEFAULT 0,
			activated INTEGER NOT NULL DEFAULT 0
		)`)
		if err != nil {
			return fmt.Errorf("error creating 'voters' table: %s", err)
		}

		// producers
		_, err = tx.Exec(`create table producers (
			owner TEXT PRIMARY KEY,
			producer_key TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			location INTEGER NOT NULL DEFAULT 0,
			total_votes REAL NOT NULL DEFAULT 0,
			is_active INTEGER NOT NULL DEFAULT 1
		)`)
		if err != nil {
			return fmt.Errorf("error creating 'producers' table: %s", err)
		}

		// The secondary index over vote totals. SQLite maintains it
		// incrementally on every vote delta; the elector scans it in order
		// rather than sorting per pass.
		_, err = tx.Exec(`create index producers_total_votes on producers (total_votes desc, owner asc)`)
		if err != nil {
			return fmt.Errorf("error creating 'producers_total_votes' index: %s", err)
		}

		// governance singleton
		_, err = tx.Exec(`create table governance (
			id INTEGER PRIMARY KEY CHECK (id = 0),
			total_activated_stake INTEGER NOT NULL DEFAULT 0,
			total_producer_vote_weight REAL NOT NULL DEFAULT 0,
			thresh_activated_stake_time INTEGER NOT NULL DEFAULT 0,
			last_producer_schedule_update INTEGER NOT NULL DEFAULT 0,
			last_producer_schedule_size INTEGER NOT NULL DEFAULT 0
		)`)
		if err != nil {
			return fmt.Errorf("error creating 'governance' table: %s", err)
		}
		_, err = tx.Exec(`insert into governance (id) values (0)`)
		if err != nil {
			return fmt.Errorf("error seeding 'governance' table: %s", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Migration: v1.
	err = dbMigrate(db, 1, func(tx *sql.Tx) error {
		// datastores
		_, err := tx.Exec(`create table datastores (
			-- use k,v instead of key,value to avoid reserved word conflicts
			k TEXT PRIMARY KEY,
			v blob
		)`)
		if err != nil {
			return fmt.Errorf("error creating 'datastores' table: %s", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return db, nil
}

// DataStore is a generic interface for reading/writing persistent data to the
// database. It is used for caching (peer addresses) and other things. Stores
// live in the database under a unique key and are serialised using JSON.
type DataStore interface {
	NetworkStore
}

type NetworkStore struct {
	// A cache of peers we have connected to.
	PeerCache []Peer `json:"peerCache"`
}

// Load a data store from the database by key.
func LoadDataStore[T DataStore](db *sql.DB, key string) (*T, error) {
	logger := core.NewLogger("db", "")

	buf := []byte("{}")
	err := db.QueryRow("SELECT v FROM datastores WHERE k = ?", key).Scan(&buf)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	var store T
	err = json.Unmarshal(buf, &store)
	if err != nil {
		return nil, err
	}

	logger.Printf("store name=%s loaded\n", color.HiYellowString(key))

	return &store, nil
}

// Persist a data store to the database under the given key.
func SaveDataStore[T DataStore](db *sql.DB, key string, value T) error {
	logger := core.NewLogger("db", "")

	buf, err := json.Marshal(value)
	if err != nil {
		return err
	}

	// Perform an upsert (insert or update) operation.
	_, err = db.Exec("INSERT INTO datastores (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v", key, buf)
	if err != nil {
		return err
	}

	logger.Printf("store name=%s saved\n", color.HiYellowString(key))

	return nil
}
