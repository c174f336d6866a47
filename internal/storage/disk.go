package storage

import (
	"os"
	"path/filepath"
)

// DiskUsage is the on-disk footprint of the persisted corpus.
type DiskUsage struct {
	Database     int64 `json:"database_bytes"`
	VectorIndex  int64 `json:"vector_index_bytes"`
	KeywordIndex int64 `json:"keyword_index_bytes"`
	Total        int64 `json:"total_bytes"`
}

// MeasureDiskUsage sums the database (with its -wal/-shm files), every file
// saved under the vector index prefix and the keyword index directory.
// Missing paths count as zero.
func MeasureDiskUsage(dbPath, vectorPrefix, keywordDir string) (DiskUsage, error) {
	var u DiskUsage
	var err error
	if u.Database, err = globSize(dbPath); err != nil {
		return u, err
	}
	if u.VectorIndex, err = globSize(vectorPrefix); err != nil {
		return u, err
	}
	if u.KeywordIndex, err = DiskUsageBytes(keywordDir); err != nil {
		return u, err
	}
	u.Total = u.Database + u.VectorIndex + u.KeywordIndex
	return u, nil
}

// globSize sums prefix itself and every sibling file that starts with it.
func globSize(prefix string) (int64, error) {
	if prefix == "" {
		return 0, nil
	}
	matches, err := filepath.Glob(escapeGlob(prefix) + "*")
	if err != nil {
		return 0, err
	}
	return DiskUsageBytes(matches...)
}

func escapeGlob(p string) string {
	out := make([]rune, 0, len(p))
	for _, r := range p {
		switch r {
		case '*', '?', '[', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing paths are skipped; errors during walk are returned.
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
		if info.IsDir() {
			n, err := dirSize(p)
			if err != nil {
				return 0, err
			}
			total += n
		} else {
			total += info.Size()
		}
	}
	return total, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
