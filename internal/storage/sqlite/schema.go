package sqlite

// schema creates the store's tables and indices: by status, by type, by
// relation target, by label, and by issue-id foreign keys.
const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS issues (
    id          TEXT PRIMARY KEY,
    issue_type  TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL,
    assignee    TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL,
    closed_at   DATETIME,
    field_hlc   TEXT NOT NULL DEFAULT '{}',
    field_site  TEXT NOT NULL DEFAULT '{}',
    CHECK ((status IN ('done','closed')) = (closed_at IS NOT NULL))
);
CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(status);
CREATE INDEX IF NOT EXISTS idx_issues_type ON issues(issue_type);
CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues(created_at);

CREATE TABLE IF NOT EXISTS dependencies (
    from_id    TEXT NOT NULL,
    to_id      TEXT NOT NULL,
    relation   TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    hlc        INTEGER NOT NULL DEFAULT 0,
    site_id    INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (from_id, to_id, relation),
    FOREIGN KEY (from_id) REFERENCES issues(id),
    FOREIGN KEY (to_id) REFERENCES issues(id)
);
CREATE INDEX IF NOT EXISTS idx_deps_from ON dependencies(from_id);
CREATE INDEX IF NOT EXISTS idx_deps_to ON dependencies(to_id, relation);

CREATE TABLE IF NOT EXISTS labels (
    issue_id TEXT NOT NULL,
    label    TEXT NOT NULL,
    PRIMARY KEY (issue_id, label),
    FOREIGN KEY (issue_id) REFERENCES issues(id)
);
CREATE INDEX IF NOT EXISTS idx_labels_label ON labels(label);

CREATE TABLE IF NOT EXISTS notes (
    issue_id        TEXT NOT NULL,
    note_id         INTEGER NOT NULL,
    site_id         INTEGER NOT NULL,
    status_at_write TEXT NOT NULL,
    content         TEXT NOT NULL,
    created_at      DATETIME NOT NULL,
    PRIMARY KEY (issue_id, note_id, site_id),
    FOREIGN KEY (issue_id) REFERENCES issues(id)
);
CREATE INDEX IF NOT EXISTS idx_notes_issue ON notes(issue_id);

CREATE TABLE IF NOT EXISTS events (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    issue_id   TEXT NOT NULL,
    action     TEXT NOT NULL,
    old_value  TEXT NOT NULL DEFAULT '',
    new_value  TEXT NOT NULL DEFAULT '',
    reason     TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    FOREIGN KEY (issue_id) REFERENCES issues(id)
);
CREATE INDEX IF NOT EXISTS idx_events_issue ON events(issue_id, id);

CREATE TABLE IF NOT EXISTS links (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    issue_id    TEXT NOT NULL,
    type        TEXT NOT NULL DEFAULT '',
    url         TEXT NOT NULL DEFAULT '',
    external_id TEXT NOT NULL DEFAULT '',
    relation    TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL,
    FOREIGN KEY (issue_id) REFERENCES issues(id)
);
CREATE INDEX IF NOT EXISTS idx_links_issue ON links(issue_id);

CREATE TABLE IF NOT EXISTS label_tombstones (
    issue_id TEXT NOT NULL,
    label    TEXT NOT NULL,
    hlc      INTEGER NOT NULL,
    PRIMARY KEY (issue_id, label)
);

CREATE TABLE IF NOT EXISTS dep_tombstones (
    from_id  TEXT NOT NULL,
    to_id    TEXT NOT NULL,
    relation TEXT NOT NULL,
    hlc      INTEGER NOT NULL,
    PRIMARY KEY (from_id, to_id, relation)
);

CREATE TABLE IF NOT EXISTS link_tombstones (
    issue_id    TEXT NOT NULL,
    external_id TEXT NOT NULL,
    hlc         INTEGER NOT NULL,
    PRIMARY KEY (issue_id, external_id)
);
`

// SchemaVersion is bumped whenever schema changes.
const SchemaVersion = 1
