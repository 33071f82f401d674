package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validateServer(&cfg.Server)
	v.validateData(&cfg.Data)
	v.validateBigQuery(&cfg.BigQuery)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if cfg.Host == "" {
		v.addError("server.host", cfg.Host, "host required")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 0 and 65535")
	}
}

func (v *Validator) validateData(cfg *DataConfig) {
	if strings.TrimSpace(cfg.Dir) == "" {
		v.addError("data.dir", cfg.Dir, "directory required")
	}
}

func (v *Validator) validateBigQuery(cfg *BigQueryConfig) {
	if cfg.TableListBudget < 2 {
		v.addError("bigquery.table_list_budget", cfg.TableListBudget, "must be at least 2")
	}
	if cfg.TableListWindow < 0 {
		v.addError("bigquery.table_list_window", cfg.TableListWindow, "must not be negative")
	}
	if cfg.MaxResultRows < 0 {
		v.addError("bigquery.max_result_rows", cfg.MaxResultRows, "must not be negative")
	}
}
