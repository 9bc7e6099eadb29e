package storage

import (
	"os"
	"path/filepath"
)

// Usage reports how much disk the service's data occupies.
type Usage struct {
	DatabaseBytes  int64 `json:"database_bytes"`
	IndexBytes     int64 `json:"index_bytes"`
	DocumentsBytes int64 `json:"documents_bytes"`
}

// Total is the sum of all parts.
func (u Usage) Total() int64 {
	return u.DatabaseBytes + u.IndexBytes + u.DocumentsBytes
}

// MeasureUsage sizes the database file (with its WAL and shared-memory
// siblings), the search index directory, and the rendered documents directory.
func MeasureUsage(databasePath, indexPath, documentsDir string) (Usage, error) {
	var u Usage
	var err error
	if databasePath != "" {
		if u.DatabaseBytes, err = DiskUsageBytes(databasePath, databasePath+"-wal", databasePath+"-shm"); err != nil {
			return u, err
		}
	}
	if u.IndexBytes, err = DiskUsageBytes(indexPath); err != nil {
		return u, err
	}
	if u.DocumentsBytes, err = DiskUsageBytes(documentsDir); err != nil {
		return u, err
	}
	return u, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.Walk(p, func(_ string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() {
				total += fi.Size()
			}
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
