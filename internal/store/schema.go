package store

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    targets TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
    id TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    observed_at TIMESTAMP NOT NULL,
    page TEXT NOT NULL,
    "check" TEXT NOT NULL,
    region TEXT NOT NULL,
    severity TEXT NOT NULL,
    message TEXT NOT NULL,
    selector TEXT,
    details TEXT,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_findings_run ON findings(run_id);
CREATE INDEX IF NOT EXISTS idx_findings_page ON findings(page);
CREATE INDEX IF NOT EXISTS idx_findings_severity ON findings(severity);
`
