package postgres

// schema is applied on startup. Statements are idempotent so repeated boots
// against the same database are safe.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id            TEXT PRIMARY KEY,
    job_type      TEXT NOT NULL,
    status        TEXT NOT NULL,
    project_id    TEXT NOT NULL DEFAULT '',
    repository_id TEXT NOT NULL DEFAULT '',
    params        JSONB NOT NULL DEFAULT '{}',
    total_steps   INT NOT NULL DEFAULT 0,
    current_step  INT NOT NULL DEFAULT 0,
    progress      DOUBLE PRECISION NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_repository ON jobs (repository_id, job_type, status);

CREATE TABLE IF NOT EXISTS job_steps (
    id            TEXT PRIMARY KEY,
    job_id        TEXT NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
    step_number   INT NOT NULL,
    step_name     TEXT NOT NULL,
    status        TEXT NOT NULL,
    message       TEXT NOT NULL DEFAULT '',
    details       JSONB,
    error_message TEXT NOT NULL DEFAULT '',
    started_at    TIMESTAMPTZ,
    completed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_job_steps_job ON job_steps (job_id, step_number);

CREATE TABLE IF NOT EXISTS repositories (
    id                TEXT PRIMARY KEY,
    project_id        TEXT NOT NULL DEFAULT '',
    owner             TEXT NOT NULL,
    repo_name         TEXT NOT NULL,
    full_name         TEXT NOT NULL UNIQUE,
    description       TEXT NOT NULL DEFAULT '',
    stars             INT NOT NULL DEFAULT 0,
    forks             INT NOT NULL DEFAULT 0,
    open_issues       INT NOT NULL DEFAULT 0,
    language          TEXT NOT NULL DEFAULT '',
    topics            TEXT[] NOT NULL DEFAULT '{}',
    sourcing_interval TEXT NOT NULL DEFAULT 'weekly',
    last_sourced_at   TIMESTAMPTZ,
    next_sourcing_at  TIMESTAMPTZ,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_repositories_due ON repositories (next_sourcing_at);

CREATE TABLE IF NOT EXISTS contributors (
    id               TEXT PRIMARY KEY,
    github_id        BIGINT NOT NULL UNIQUE,
    username         TEXT NOT NULL,
    full_name        TEXT NOT NULL DEFAULT '',
    email            TEXT NOT NULL DEFAULT '',
    company          TEXT NOT NULL DEFAULT '',
    location         TEXT NOT NULL DEFAULT '',
    bio              TEXT NOT NULL DEFAULT '',
    blog             TEXT NOT NULL DEFAULT '',
    twitter_username TEXT NOT NULL DEFAULT '',
    avatar_url       TEXT NOT NULL DEFAULT '',
    profile_url      TEXT NOT NULL DEFAULT '',
    public_repos     INT NOT NULL DEFAULT 0,
    followers        INT NOT NULL DEFAULT 0,
    following        INT NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS repository_contributors (
    repository_id  TEXT NOT NULL REFERENCES repositories (id) ON DELETE CASCADE,
    contributor_id TEXT NOT NULL REFERENCES contributors (id) ON DELETE CASCADE,
    PRIMARY KEY (repository_id, contributor_id)
);

CREATE TABLE IF NOT EXISTS contributor_stats (
    repository_id         TEXT NOT NULL,
    contributor_id        TEXT NOT NULL,
    total_commits         INT NOT NULL DEFAULT 0,
    commits_last_3_months INT NOT NULL DEFAULT 0,
    commits_last_6_months INT NOT NULL DEFAULT 0,
    commits_last_year     INT NOT NULL DEFAULT 0,
    first_commit_at       TIMESTAMPTZ,
    last_commit_at        TIMESTAMPTZ,
    pull_requests         INT NOT NULL DEFAULT 0,
    issues_opened         INT NOT NULL DEFAULT 0,
    code_reviews          INT NOT NULL DEFAULT 0,
    is_maintainer         BOOLEAN NOT NULL DEFAULT FALSE,
    source                TEXT NOT NULL DEFAULT 'commit',
    calculated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (repository_id, contributor_id)
);

CREATE TABLE IF NOT EXISTS social_contexts (
    contributor_id TEXT PRIMARY KEY,
    profile        JSONB NOT NULL DEFAULT '{}',
    position_level TEXT NOT NULL DEFAULT '',
    industry       TEXT NOT NULL DEFAULT '',
    label          TEXT NOT NULL DEFAULT '',
    confidence     DOUBLE PRECISION NOT NULL DEFAULT 0,
    reasoning      TEXT NOT NULL DEFAULT '',
    signals        JSONB NOT NULL DEFAULT '{}',
    enriched_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS lead_scores (
    project_id     TEXT NOT NULL,
    contributor_id TEXT NOT NULL,
    overall        DOUBLE PRECISION NOT NULL DEFAULT 0,
    activity       DOUBLE PRECISION NOT NULL DEFAULT 0,
    influence      DOUBLE PRECISION NOT NULL DEFAULT 0,
    position       DOUBLE PRECISION NOT NULL DEFAULT 0,
    engagement     DOUBLE PRECISION NOT NULL DEFAULT 0,
    is_qualified   BOOLEAN NOT NULL DEFAULT FALSE,
    priority       TEXT NOT NULL DEFAULT 'low',
    calculated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (project_id, contributor_id)
);
`
