package sqldb

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/josericardo03/sistemas-manuais-back/core"
)

type ManualDB struct {
	*sql.DB
	getManual     *sql.Stmt
	getAll        *sql.Stmt
	insertManual  *sql.Stmt
	getVersion    *sql.Stmt
	versionExists *sql.Stmt
	versions      *sql.Stmt
	insertVersion *sql.Stmt
	bumpLatest    *sql.Stmt
	publish       *sql.Stmt
}

func NewManualDB(db *sql.DB) *ManualDB {

	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS manuals (
			id varchar(36) NOT NULL,
			title varchar(256) NOT NULL,
			slug varchar(128) NOT NULL,
			owner_username varchar(128) NOT NULL,
			state varchar(32) NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			latest_version_seq int(11) NOT NULL,
			published_version_seq int(11) NOT NULL DEFAULT '0',
			PRIMARY KEY (id),
			UNIQUE (slug)
		);
		CREATE TABLE IF NOT EXISTS manual_versions (
			manual_id varchar(36) NOT NULL,
			version_seq int(11) NOT NULL,
			format varchar(16) NOT NULL,
			checksum_sha256 varchar(64) NOT NULL,
			size_bytes INTEGER NOT NULL,
			created_by varchar(128) NOT NULL,
			created_at INTEGER NOT NULL,
			changelog text NOT NULL,
			PRIMARY KEY (manual_id, version_seq)
		);`)
	if err != nil {
		panic(err)
	}

	var manualDB = &ManualDB{}
	manualDB.DB = db
	manualDB.getManual = mustPrepare(db, "SELECT id, title, slug, owner_username, state, created_at, updated_at, latest_version_seq, published_version_seq FROM manuals WHERE id = ? LIMIT 1")
	manualDB.getAll = mustPrepare(db, "SELECT id, title, slug, owner_username, state, created_at, updated_at, latest_version_seq, published_version_seq FROM manuals ORDER BY updated_at DESC")
	manualDB.insertManual = mustPrepare(db, "INSERT INTO manuals (id, title, slug, owner_username, state, created_at, updated_at, latest_version_seq, published_version_seq) VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0)")
	manualDB.getVersion = mustPrepare(db, "SELECT format, checksum_sha256, size_bytes, created_by, created_at, changelog FROM manual_versions WHERE manual_id = ? AND version_seq = ? LIMIT 1")
	manualDB.versionExists = mustPrepare(db, "SELECT COUNT(1) FROM manual_versions WHERE manual_id = ? AND version_seq = ?")
	manualDB.versions = mustPrepare(db, "SELECT version_seq, format, checksum_sha256, size_bytes, created_by, created_at, changelog FROM manual_versions WHERE manual_id = ? ORDER BY version_seq")
	manualDB.insertVersion = mustPrepare(db, "INSERT INTO manual_versions (manual_id, version_seq, format, checksum_sha256, size_bytes, created_by, created_at, changelog) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	manualDB.bumpLatest = mustPrepare(db, "UPDATE manuals SET latest_version_seq = ?, updated_at = ? WHERE id = ?")
	manualDB.publish = mustPrepare(db, "UPDATE manuals SET published_version_seq = ?, state = ?, updated_at = ? WHERE id = ?")
	return manualDB
}

func (db *ManualDB) scanManual(row *sql.Row) (*core.Manual, error) {

	var m core.Manual
	var createdAt, updatedAt int64

	err := row.Scan(&m.ManualID, &m.Title, &m.Slug, &m.Owner, &m.State, &createdAt, &updatedAt, &m.LatestVersionSeq, &m.PublishedVersionSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get manual", err)
	}

	m.CreatedAt = time.Unix(createdAt, 0)
	m.UpdatedAt = time.Unix(updatedAt, 0)
	return &m, nil
}

func (db *ManualDB) GetManual(manualID string) (*core.Manual, error) {
	return db.scanManual(db.getManual.QueryRow(manualID))
}

func (db *ManualDB) GetAllManuals() ([]core.Manual, error) {

	rows, err := db.getAll.Query()
	if err != nil {
		return nil, storageErr("list manuals", err)
	}
	defer rows.Close()

	var all = []core.Manual{}

	for rows.Next() {
		var m core.Manual
		var createdAt, updatedAt int64
		if err := rows.Scan(&m.ManualID, &m.Title, &m.Slug, &m.Owner, &m.State, &createdAt, &updatedAt, &m.LatestVersionSeq, &m.PublishedVersionSeq); err != nil {
			return nil, storageErr("list manuals", err)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		m.UpdatedAt = time.Unix(updatedAt, 0)
		all = append(all, m)
	}

	return all, storageErr("list manuals", rows.Err())
}

func (db *ManualDB) InsertManual(title, slug, owner string) (*core.Manual, error) {

	var now = time.Now()
	var m = &core.Manual{
		ManualID:  uuid.NewString(),
		Title:     title,
		Slug:      slug,
		Owner:     owner,
		State:     core.ManualDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := db.insertManual.Exec(m.ManualID, title, slug, owner, m.State, now.Unix(), now.Unix()); err != nil {
		return nil, storageErr("insert manual", err)
	}

	return m, nil
}

// AddVersion increments latest_version_seq by exactly one and inserts the
// version row in the same transaction, so version numbering stays dense.
func (db *ManualDB) AddVersion(manualID, format, checksum string, sizeBytes int64, createdBy, changelog string) (*core.Version, error) {

	tx, err := db.Begin()
	if err != nil {
		return nil, storageErr("add version", err)
	}

	m, err := db.scanManual(tx.Stmt(db.getManual).QueryRow(manualID))
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var v = &core.Version{
		ManualID:       manualID,
		VersionSeq:     m.LatestVersionSeq + 1,
		Format:         format,
		ChecksumSHA256: checksum,
		SizeBytes:      sizeBytes,
		CreatedBy:      createdBy,
		CreatedAt:      time.Now(),
		Changelog:      changelog,
	}

	if _, err := tx.Stmt(db.bumpLatest).Exec(v.VersionSeq, v.CreatedAt.Unix(), manualID); err != nil {
		tx.Rollback()
		return nil, storageErr("add version", err)
	}

	if _, err := tx.Stmt(db.insertVersion).Exec(manualID, v.VersionSeq, format, checksum, sizeBytes, createdBy, v.CreatedAt.Unix(), changelog); err != nil {
		tx.Rollback()
		return nil, storageErr("add version", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("add version", err)
	}

	return v, nil
}

func (db *ManualDB) GetVersion(manualID string, versionSeq int) (*core.Version, error) {

	var v = &core.Version{
		ManualID:   manualID,
		VersionSeq: versionSeq,
	}
	var createdAt int64

	err := db.getVersion.QueryRow(manualID, versionSeq).Scan(&v.Format, &v.ChecksumSHA256, &v.SizeBytes, &v.CreatedBy, &createdAt, &v.Changelog)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get version", err)
	}

	v.CreatedAt = time.Unix(createdAt, 0)
	return v, nil
}

func (db *ManualDB) Versions(manualID string) ([]core.Version, error) {

	rows, err := db.versions.Query(manualID)
	if err != nil {
		return nil, storageErr("list versions", err)
	}
	defer rows.Close()

	var all = []core.Version{}

	for rows.Next() {
		var v = core.Version{
			ManualID: manualID,
		}
		var createdAt int64
		if err := rows.Scan(&v.VersionSeq, &v.Format, &v.ChecksumSHA256, &v.SizeBytes, &v.CreatedBy, &createdAt, &v.Changelog); err != nil {
			return nil, storageErr("list versions", err)
		}
		v.CreatedAt = time.Unix(createdAt, 0)
		all = append(all, v)
	}

	return all, storageErr("list versions", rows.Err())
}

func (db *ManualDB) VersionExists(manualID string, versionSeq int) (bool, error) {
	var count int
	if err := db.versionExists.QueryRow(manualID, versionSeq).Scan(&count); err != nil {
		return false, storageErr("version exists", err)
	}
	return count > 0, nil
}

func (db *ManualDB) PublishVersion(manualID string, versionSeq int) error {
	result, err := db.publish.Exec(versionSeq, core.ManualPublished, time.Now().Unix(), manualID)
	if err != nil {
		return storageErr("publish version", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return core.ErrNotFound
	}
	return nil
}
