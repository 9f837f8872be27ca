// Package storage defines the store file-system abstraction.
package storage

import "github.com/starford/othala/internal/models"

// Provider is the interface for record file operations. Paths are
// relative to the store base directory, one partition directory per
// category, one .json document per record.
type Provider interface {
	// List returns metadata for every .json record under dir (relative
	// to the store base; empty dir means the whole store).
	List(dir string) ([]models.FileInfo, error)
	// Read returns the raw bytes of the record at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the record at path.
	Delete(path string) error
}
