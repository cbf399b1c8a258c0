package promote

// Schema is the complete DDL for the promotion store.
const Schema = `
CREATE TABLE IF NOT EXISTS promotions (
    origin          TEXT NOT NULL,
    query_norm      TEXT NOT NULL,
    selector        TEXT NOT NULL,
    mode_key        TEXT NOT NULL DEFAULT 'semantic',
    success         INTEGER NOT NULL DEFAULT 0,
    failure         INTEGER NOT NULL DEFAULT 0,
    last_used       INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (origin, query_norm, selector, mode_key)
);
CREATE INDEX IF NOT EXISTS idx_promotions_lookup ON promotions(origin, query_norm, mode_key);
CREATE INDEX IF NOT EXISTS idx_promotions_last_used ON promotions(last_used);
`
