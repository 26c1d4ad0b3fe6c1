// Package blob re-exports the report archive abstractions for stable imports.
// Callers depend on blob.Store; concrete backends live under internal/infra/blob.
package blob

import (
	"vlabprogress/internal/blob/core"
)

type (
	// Driver identifies an archive backend driver.
	Driver = core.Driver
	// PutOptions configures an archive write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes archived object metadata.
	Info = core.Info
	// Store is the interface for report archive backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported
