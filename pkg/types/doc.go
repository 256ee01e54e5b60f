// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the cb2pdf pipeline:
// run configuration (BatchConfig, LogConfig) and per-file outcomes
// (FileStatus, FileResult).
package types
