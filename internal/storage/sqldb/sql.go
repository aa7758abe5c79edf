package sqldb

// Dialect carries the statements that differ between SQL engines.
type Dialect struct {
	Name             string
	Schema           []string
	InsertCollection string
	// LockSuffix is appended to the row read inside Update.
	LockSuffix string
}

var SQLite = Dialect{
	Name: "sqlite",
	Schema: []string{`
CREATE TABLE IF NOT EXISTS collections (
    name TEXT PRIMARY KEY
)`, `
CREATE TABLE IF NOT EXISTS records (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL REFERENCES collections(name),
    record_id  TEXT NOT NULL,
    body       TEXT NOT NULL,
    UNIQUE (collection, record_id)
)`,
	},
	InsertCollection: `INSERT OR IGNORE INTO collections (name) VALUES (?)`,
}

var MySQL = Dialect{
	Name: "mysql",
	Schema: []string{`
CREATE TABLE IF NOT EXISTS collections (
  name VARCHAR(64) NOT NULL PRIMARY KEY
)`, `
CREATE TABLE IF NOT EXISTS records (
  seq        BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
  collection VARCHAR(64) NOT NULL,
  record_id  VARCHAR(191) NOT NULL,
  body       JSON NOT NULL,
  UNIQUE KEY uq_records_collection_id (collection, record_id),
  CONSTRAINT fk_records_collection FOREIGN KEY (collection) REFERENCES collections(name)
)`,
	},
	InsertCollection: `INSERT IGNORE INTO collections (name) VALUES (?)`,
	LockSuffix:       ` FOR UPDATE`,
}

const listCollectionsSQL = `SELECT name FROM collections ORDER BY name`

const collectionExistsSQL = `SELECT COUNT(*) FROM collections WHERE name = ?`

// Insertion order is the autoincrement sequence.
const listRecordsSQL = `
SELECT body
FROM records
WHERE collection = ?
ORDER BY seq
`

const listIDsSQL = `SELECT record_id FROM records WHERE collection = ?`

const getRecordSQL = `SELECT body FROM records WHERE collection = ? AND record_id = ?`

const insertRecordSQL = `INSERT INTO records (collection, record_id, body) VALUES (?, ?, ?)`

const updateRecordSQL = `UPDATE records SET body = ? WHERE collection = ? AND record_id = ?`

const deleteRecordSQL = `DELETE FROM records WHERE collection = ? AND record_id = ?`
