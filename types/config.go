/*
Copyright © 2025 Codervisor
*/
package types

// StorageType identifies a storage backend implementation.
type StorageType string

const (
	StorageFile         StorageType = "file"
	StorageSQLite       StorageType = "sqlite"
	StorageGitJSON      StorageType = "git-json"
	StorageGitWithCache StorageType = "git-with-cache"
)

// ConflictPolicy selects how diverged local/remote entries are reconciled.
type ConflictPolicy string

const (
	ConflictTimestampWins ConflictPolicy = "timestamp-wins"
	ConflictLocalWins     ConflictPolicy = "local-wins"
	ConflictRemoteWins    ConflictPolicy = "remote-wins"
	ConflictManual        ConflictPolicy = "manual"
)

// AppConfig represents the complete application configuration.
// Legacy or loosely-shaped configuration is translated into this structure
// once at the boundary; nothing downstream branches on raw option bags.
type AppConfig struct {
	Verbose   bool           `mapstructure:"verbose"`
	Config    string         `mapstructure:"config"`
	Workspace string         `mapstructure:"workspace"`
	Storage   StorageConfig  `mapstructure:"storage" validate:"required"`
	External  ExternalConfig `mapstructure:"external" validate:"omitempty"`
}

// StorageConfig holds storage backend configuration.
type StorageConfig struct {
	Type StorageType `mapstructure:"type" validate:"required,oneof=file sqlite git-json git-with-cache"`

	// RootDir is the devlog repository root for file and git backends.
	RootDir string `mapstructure:"rootDir"`

	// File and Format apply to the single-file backend.
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json yaml toml"`

	// Database applies to the sqlite and git-with-cache backends.
	Database string `mapstructure:"database"`

	Git GitConfig `mapstructure:"git"`
}

// GitConfig holds git-specific settings for the git-json backend.
type GitConfig struct {
	Repository string `mapstructure:"repository"`
	Branch     string `mapstructure:"branch"`

	// AutoSync enables background pull/push on an interval.
	AutoSync bool `mapstructure:"autoSync"`
	// AutoSyncIntervalSeconds controls the background sync cadence.
	AutoSyncIntervalSeconds int `mapstructure:"autoSyncIntervalSeconds" validate:"omitempty,min=5"`
	// CommandTimeoutSeconds bounds every git subprocess invocation.
	CommandTimeoutSeconds int `mapstructure:"commandTimeoutSeconds" validate:"omitempty,min=1,max=600"`

	ConflictResolution ConflictPolicy `mapstructure:"conflictResolution" validate:"omitempty,oneof=timestamp-wins local-wins remote-wins manual"`
}

// ExternalConfig holds external issue-tracker integrations.
type ExternalConfig struct {
	Systems []ExternalSystemConfig `mapstructure:"systems" validate:"dive"`
}

// ExternalSystemConfig configures one external system (e.g. GitHub Issues).
type ExternalSystemConfig struct {
	Name  string `mapstructure:"name" validate:"required"`
	Kind  string `mapstructure:"kind" validate:"required,oneof=github"`
	Owner string `mapstructure:"owner"`
	Repo  string `mapstructure:"repo"`
	Token string `mapstructure:"token"`
	// BaseURL overrides the API endpoint for enterprise installs.
	BaseURL string `mapstructure:"baseURL"`

	Mapping MappingConfig `mapstructure:"mapping"`
}

// LabelScheme selects how entry fields are rendered as issue labels.
type LabelScheme string

const (
	// LabelsNative reuses the external system's own conventions
	// (e.g. "bug", "enhancement").
	LabelsNative LabelScheme = "native"
	// LabelsPrefixed emits custom prefixed labels ("devlog-type:feature").
	LabelsPrefixed LabelScheme = "prefixed"
)

// MappingConfig controls field mapping between an entry and an external issue.
type MappingConfig struct {
	Labels LabelScheme `mapstructure:"labels" validate:"omitempty,oneof=native prefixed"`
	// UseNativeType maps the entry type onto the system's native issue
	// type field when the system has one, instead of a label.
	UseNativeType bool `mapstructure:"useNativeType"`
	// UseNativeState maps entry status onto the issue open/closed state.
	UseNativeState bool `mapstructure:"useNativeState"`
}

// DefaultGitBranch is used when no branch is configured.
const DefaultGitBranch = "main"

// Normalize fills defaulted fields so downstream code never re-checks them.
func (c *StorageConfig) Normalize() {
	if c.Git.Branch == "" {
		c.Git.Branch = DefaultGitBranch
	}
	if c.Git.ConflictResolution == "" {
		c.Git.ConflictResolution = ConflictTimestampWins
	}
	if c.Git.AutoSyncIntervalSeconds == 0 {
		c.Git.AutoSyncIntervalSeconds = 300
	}
	if c.Git.CommandTimeoutSeconds == 0 {
		c.Git.CommandTimeoutSeconds = 60
	}
	if c.Format == "" {
		c.Format = "json"
	}
}
