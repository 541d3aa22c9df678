package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Ignore lists: ids the operator never wants collected again
CREATE TABLE IF NOT EXISTS ignored_items (
    list_name TEXT NOT NULL,
    video_id TEXT NOT NULL,
    added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (list_name, video_id)
);

CREATE INDEX IF NOT EXISTS idx_ignored_list ON ignored_items(list_name);

-- Runs: one row per collect or manifest invocation
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_uuid TEXT NOT NULL UNIQUE,
    mode TEXT NOT NULL,              -- download, manifest
    query TEXT NOT NULL,
    clean_query TEXT NOT NULL,
    needed INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'running',  -- running, complete, partial, canceled, failed
    output_path TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP,

    -- Engine counters
    accepted INTEGER DEFAULT 0,
    attempts INTEGER DEFAULT 0,
    max_attempts INTEGER DEFAULT 0,
    ignored INTEGER DEFAULT 0,
    duplicates INTEGER DEFAULT 0,
    existing INTEGER DEFAULT 0,
    filtered INTEGER DEFAULT 0,
    invalid INTEGER DEFAULT 0,
    accept_failures INTEGER DEFAULT 0,
    search_errors INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_query ON runs(clean_query);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);

-- Run items: every accept attempt of a run
CREATE TABLE IF NOT EXISTS run_items (
    item_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    video_id TEXT NOT NULL,
    title TEXT,
    media_url TEXT,
    file_path TEXT,
    duration_seconds REAL,
    size_bytes INTEGER DEFAULT 0,
    status TEXT NOT NULL,            -- accepted, failed
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_run_items_run ON run_items(run_id);
CREATE INDEX IF NOT EXISTS idx_run_items_video ON run_items(video_id);
`
