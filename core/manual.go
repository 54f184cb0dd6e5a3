package core

import "time"

// Manual lifecycle states.
const (
	ManualDraft     = "draft"
	ManualPublished = "published"
)

// A Manual is the top-level entity users create and approve. It is created on
// first version submission and mutated only by version creation and
// publication.
type Manual struct {
	ManualID            string    `json:"id"`
	Title               string    `json:"title"`
	Slug                string    `json:"slug"`
	Owner               string    `json:"owner_username"`
	State               string    `json:"state"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	LatestVersionSeq    int       `json:"latest_version_seq"`
	PublishedVersionSeq int       `json:"published_version_seq,omitempty"` // zero when never published
}

// A Version is an immutable snapshot of a manual, numbered densely per manual
// starting at 1. It exists independently of its approval state. File bodies
// are not stored here, only content metadata.
type Version struct {
	ManualID       string    `json:"manual_id"`
	VersionSeq     int       `json:"version_seq"`
	Format         string    `json:"format"`
	ChecksumSHA256 string    `json:"checksum_sha256"`
	SizeBytes      int64     `json:"size_bytes"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	Changelog      string    `json:"changelog"`
}

// ManualDB is the document/version registry. The workflow engine consults it
// for existence and metadata but does not own manual creation.
type ManualDB interface {
	GetManual(manualID string) (*Manual, error)
	GetAllManuals() ([]Manual, error)
	InsertManual(title, slug, owner string) (*Manual, error)

	// AddVersion increments the manual's LatestVersionSeq by exactly one and
	// inserts the version row in the same transaction.
	AddVersion(manualID, format, checksum string, sizeBytes int64, createdBy, changelog string) (*Version, error)

	GetVersion(manualID string, versionSeq int) (*Version, error)
	Versions(manualID string) ([]Version, error)
	VersionExists(manualID string, versionSeq int) (bool, error)

	// PublishVersion sets PublishedVersionSeq and marks the manual published.
	PublishVersion(manualID string, versionSeq int) error
}
