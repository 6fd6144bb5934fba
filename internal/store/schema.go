package store

// schema is the base DDL applied on every open. It already includes the
// columns added after the initial release; the additive migrations in
// internal/store/migrations (run by migrate.go) add those same columns to
// databases created before them.
const schema = `
CREATE TABLE IF NOT EXISTS cids (
    cid TEXT PRIMARY KEY,

    present INTEGER NOT NULL DEFAULT 0,
    present_source TEXT NOT NULL DEFAULT 'pin-root',
    present_reason TEXT NOT NULL DEFAULT '',
    first_seen_at INTEGER NOT NULL,
    last_seen_at INTEGER NOT NULL,
    removed_at INTEGER,

    size_bytes INTEGER,
    mime TEXT,
    ext_guess TEXT,
    kind TEXT NOT NULL DEFAULT 'unknown',
    confidence REAL NOT NULL DEFAULT 0,
    source TEXT NOT NULL DEFAULT '',

    signals_json TEXT NOT NULL DEFAULT '{}',
    tags_json TEXT NOT NULL DEFAULT '{}',
    detector_version TEXT NOT NULL DEFAULT '',
    indexed_at INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    updated_at INTEGER NOT NULL DEFAULT 0,

    is_directory INTEGER NOT NULL DEFAULT 0,
    expanded_at INTEGER,
    expand_error TEXT,
    expand_depth INTEGER NOT NULL DEFAULT 0,

    site_entry_path TEXT,
    site_entry_cid TEXT,
    site_entry_indexed_at INTEGER,

    -- invariant 1: present=1 <=> removed_at IS NULL; repaired on startup, not
    -- enforced here (see repairInvariants in internal/store/invariants.go).
    CHECK (present IN (0,1)),
    CHECK (is_directory IN (0,1)),
    CHECK (confidence >= 0 AND confidence <= 1)
);

CREATE INDEX IF NOT EXISTS idx_cids_present ON cids(present);
CREATE INDEX IF NOT EXISTS idx_cids_present_source ON cids(present_source);
CREATE INDEX IF NOT EXISTS idx_cids_detector_version ON cids(detector_version);
CREATE INDEX IF NOT EXISTS idx_cids_is_directory ON cids(is_directory);
CREATE INDEX IF NOT EXISTS idx_cids_last_seen_at ON cids(last_seen_at);
CREATE INDEX IF NOT EXISTS idx_cids_kind ON cids(kind);
CREATE INDEX IF NOT EXISTS idx_cids_mime ON cids(mime);

CREATE TABLE IF NOT EXISTS cid_edges (
    parent_cid TEXT NOT NULL,
    child_cid TEXT NOT NULL,
    first_seen_at INTEGER NOT NULL,
    last_seen_at INTEGER NOT NULL,
    PRIMARY KEY (parent_cid, child_cid)
);

CREATE INDEX IF NOT EXISTS idx_cid_edges_child ON cid_edges(child_cid);

CREATE TABLE IF NOT EXISTS cid_paths (
    root_cid TEXT NOT NULL,
    path TEXT NOT NULL,
    leaf_cid TEXT NOT NULL,
    depth INTEGER NOT NULL,
    mime_hint TEXT,
    PRIMARY KEY (root_cid, path)
);

CREATE INDEX IF NOT EXISTS idx_cid_paths_leaf ON cid_paths(leaf_cid);

CREATE TABLE IF NOT EXISTS cid_tokens (
    token TEXT NOT NULL,
    cid TEXT NOT NULL,
    count INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (token, cid)
);

CREATE INDEX IF NOT EXISTS idx_cid_tokens_cid ON cid_tokens(cid);

CREATE TABLE IF NOT EXISTS metrics (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    pins_current INTEGER NOT NULL DEFAULT 0,
    last_pin_refresh_at INTEGER NOT NULL DEFAULT 0,
    last_pin_refresh_duration_ms INTEGER NOT NULL DEFAULT 0,
    last_pin_refresh_success INTEGER NOT NULL DEFAULT 0,
    types_indexed_total INTEGER NOT NULL DEFAULT 0,
    dirs_expanded_total INTEGER NOT NULL DEFAULT 0,
    dir_expand_errors_total INTEGER NOT NULL DEFAULT 0,
    range_ignored_total INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO metrics (id) VALUES (1);
`
