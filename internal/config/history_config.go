package config

// HistoryConfig configures the optional SQLite journal of backoff outcomes
type HistoryConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`
	SQLiteDBPath string `json:"sqlite_db_path,omitempty" yaml:"sqlite_db_path,omitempty" validate:"required_if=Enabled true"`
	ListLimit    int    `json:"list_limit,omitempty" yaml:"list_limit,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultHistoryConfig creates default history configuration
func NewDefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Enabled:      DefaultHistoryEnabled,
		SQLiteDBPath: DefaultHistorySQLitePath,
		ListLimit:    DefaultHistoryListLimit,
	}
}
