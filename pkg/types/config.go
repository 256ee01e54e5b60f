// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

const (
	// DefaultBatchSize is the number of archives dispatched per batch.
	DefaultBatchSize = 5

	// DefaultSleepInterval is the pause between consecutive batches.
	DefaultSleepInterval = 10 * time.Second

	// DefaultMaxWorkers caps the archives converted simultaneously within a batch.
	DefaultMaxWorkers = 4

	// HoldingDirName is the subdirectory of the working directory that
	// receives source archives once they have been attempted.
	HoldingDirName = "old"

	// ErrorLogName is the append-only failure log in the working directory.
	ErrorLogName = "error_log.txt"
)

// BatchConfig holds settings for a conversion run. It replaces the
// process-wide directory and log paths with explicit values handed to the
// scheduler at construction time.
type BatchConfig struct {
	// WorkingDir is scanned (non-recursively) for .cbz and .cbr files.
	// Output documents are written here too.
	WorkingDir string `json:"working_dir" yaml:"working_dir"`

	// HoldingDir receives attempted source archives (default <WorkingDir>/old).
	HoldingDir string `json:"holding_dir" yaml:"holding_dir"`

	// LogPath is the error log file (default <WorkingDir>/error_log.txt).
	LogPath string `json:"log_path" yaml:"log_path"`

	// BatchSize is the maximum number of files per batch (default 5).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// SleepInterval is the pause between batches (default 10s).
	SleepInterval time.Duration `json:"sleep_interval" yaml:"sleep_interval"`

	// MaxWorkers caps concurrent conversions within a batch (default 4).
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`

	// RelocateFailed moves a source archive to HoldingDir even when its
	// conversion failed. When false, failed archives stay in WorkingDir.
	RelocateFailed bool `json:"relocate_failed" yaml:"relocate_failed"`
}

// NewBatchConfig returns a BatchConfig rooted at workingDir with every other
// field set to its default.
func NewBatchConfig(workingDir string) BatchConfig {
	return BatchConfig{
		WorkingDir:    workingDir,
		HoldingDir:    filepath.Join(workingDir, HoldingDirName),
		LogPath:       filepath.Join(workingDir, ErrorLogName),
		BatchSize:     DefaultBatchSize,
		SleepInterval: DefaultSleepInterval,
		MaxWorkers:    DefaultMaxWorkers,
	}
}

// Validate reports the first setting that cannot drive a run.
func (c BatchConfig) Validate() error {
	switch {
	case c.WorkingDir == "":
		return errors.New("working directory is required")
	case c.HoldingDir == "":
		return errors.New("holding directory is required")
	case c.LogPath == "":
		return errors.New("error log path is required")
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	case c.MaxWorkers <= 0:
		return fmt.Errorf("max workers must be positive, got %d", c.MaxWorkers)
	case c.SleepInterval < 0:
		return fmt.Errorf("sleep interval must not be negative, got %v", c.SleepInterval)
	}
	return nil
}

// LogConfig holds settings for the diagnostic logger. It is separate from
// the error log, which is never rotated.
type LogConfig struct {
	// Level is a zerolog level name (default "warn").
	Level string `json:"level" yaml:"level"`

	// File enables a rotating log file in addition to stderr.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// MaxSizeMB is the size at which File is rotated (default 10).
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files kept (default 3).
	MaxBackups int `json:"max_backups" yaml:"max_backups"`
}
