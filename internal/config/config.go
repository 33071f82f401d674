package config

import "time"

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Data     DataConfig     `mapstructure:"data"`
	BigQuery BigQueryConfig `mapstructure:"bigquery"`
	History  HistoryConfig  `mapstructure:"history"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File receives logs while the terminal UI owns the screen. Empty means
	// <data.dir>/beequen.log.
	File string `mapstructure:"file"`
}

// ServerConfig configures the local IPC server.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	EnableCORS  bool     `mapstructure:"enable_cors"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DataConfig locates the persisted stores.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// BigQueryConfig tunes the query backend.
type BigQueryConfig struct {
	// Location pins jobs to a region. Empty lets the service decide.
	Location string `mapstructure:"location"`
	// TableListBudget is the number of calls allowed per TableListWindow
	// when listing the tables of every dataset.
	TableListBudget int           `mapstructure:"table_list_budget"`
	TableListWindow time.Duration `mapstructure:"table_list_window"`
	// MaxResultRows caps rows read per job; 0 means no cap.
	MaxResultRows int `mapstructure:"max_result_rows"`
}

// HistoryConfig configures the query history database.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path defaults to <data.dir>/history.db.
	Path string `mapstructure:"path"`
}

// WatchConfig configures reloading stores on external edits.
type WatchConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
