package types

import "github.com/google/uuid"

// Version is embedded into the binary and reported by the health endpoint
const Version = "0.1.0"

// JobID identifies one pipeline run
type JobID string

// RepositoryID identifies a tracked repository
type RepositoryID string

// ContributorID identifies a discovered person
type ContributorID string

// ProjectID identifies the owning project of repositories and lead scores
type ProjectID string

func NewJobID() JobID                 { return JobID(uuid.NewString()) }
func NewRepositoryID() RepositoryID   { return RepositoryID(uuid.NewString()) }
func NewContributorID() ContributorID { return ContributorID(uuid.NewString()) }
func NewProjectID() ProjectID         { return ProjectID(uuid.NewString()) }

func (x JobID) String() string         { return string(x) }
func (x RepositoryID) String() string  { return string(x) }
func (x ContributorID) String() string { return string(x) }
func (x ProjectID) String() string     { return string(x) }
