package mediacache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"lexideck/internal/logging"
)

// Stats describes current cache usage.
type Stats struct {
	Dir          string      `json:"dir"`
	Entries      int         `json:"entries"`
	TotalBytes   int64       `json:"total_bytes"`
	Kinds        []KindStats `json:"kinds"`
	FreeBytes    uint64      `json:"free_bytes"`
	TotalFSBytes uint64      `json:"total_fs_bytes"`
	FreeRatio    float64     `json:"free_ratio"`
}

// PruneResult summarizes a reconciliation pass.
type PruneResult struct {
	RemovedRows  int `json:"removed_rows"`
	RemovedTemp  int `json:"removed_temp"`
	RemovedEmpty int `json:"removed_empty"`
	Adopted      int `json:"adopted"`
}

// Stats aggregates the index and reports filesystem headroom.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Dir: c.dir}
	kinds, err := c.idx.statsByKind(ctx)
	if err != nil {
		return stats, err
	}
	stats.Kinds = kinds
	for _, k := range kinds {
		stats.Entries += k.Entries
		stats.TotalBytes += k.TotalBytes
	}
	total, free, err := c.statfs(c.dir)
	if err != nil {
		c.logger.Debug("statfs failed", logging.Error(err))
		return stats, nil
	}
	stats.TotalFSBytes = total
	stats.FreeBytes = free
	if total > 0 {
		stats.FreeRatio = float64(free) / float64(total)
	}
	return stats, nil
}

// List returns indexed entries, most recently used first. An empty kind
// lists every kind; limit <= 0 means no limit.
func (c *Cache) List(ctx context.Context, kind string, limit int) ([]Entry, error) {
	return c.idx.list(ctx, kind, limit)
}

// Clear deletes every artifact, temp file, and index row. It requires the
// exclusive lock and fails with ErrLocked while a build is running.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	release, err := c.lockExclusive()
	if err != nil {
		return 0, err
	}
	defer release()

	entries, err := c.readDir()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !isArtifactName(name) && !isTempName(name) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		if isArtifactName(name) {
			removed++
		}
	}
	if err := c.idx.removeAll(ctx); err != nil {
		return removed, fmt.Errorf("clear cache index: %w", err)
	}
	c.logger.InfoContext(ctx, "media cache cleared", logging.Int("removed", removed))
	return removed, nil
}

// Prune reconciles the directory with the index: stale temp files and empty
// artifacts are deleted, rows without a file are dropped, and unindexed
// artifacts are adopted.
func (c *Cache) Prune(ctx context.Context) (PruneResult, error) {
	var result PruneResult
	release, err := c.lockExclusive()
	if err != nil {
		return result, err
	}
	defer release()

	entries, err := c.readDir()
	if err != nil {
		return result, err
	}
	onDisk := make(map[string]os.FileInfo, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(c.dir, name)
		switch {
		case isTempName(name):
			if err := os.Remove(path); err == nil {
				result.RemovedTemp++
			}
		case isArtifactName(name):
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.Size() == 0 {
				if err := os.Remove(path); err == nil {
					result.RemovedEmpty++
				}
				continue
			}
			onDisk[name] = info
		}
	}

	indexed, err := c.idx.fileNames(ctx)
	if err != nil {
		return result, err
	}
	known := make(map[string]struct{}, len(indexed))
	for _, name := range indexed {
		known[name] = struct{}{}
		if _, ok := onDisk[name]; ok {
			continue
		}
		if err := c.idx.remove(ctx, name); err != nil {
			return result, fmt.Errorf("drop index row %s: %w", name, err)
		}
		result.RemovedRows++
	}
	for name, info := range onDisk {
		if _, ok := known[name]; ok {
			continue
		}
		kind, digest, _ := parseFileName(name)
		if err := c.idx.upsert(ctx, Entry{
			FileName:   name,
			Kind:       kind,
			Digest:     digest,
			SizeBytes:  info.Size(),
			CreatedAt:  info.ModTime(),
			LastUsedAt: info.ModTime(),
		}); err != nil {
			return result, fmt.Errorf("adopt %s: %w", name, err)
		}
		result.Adopted++
	}
	c.logger.InfoContext(ctx, "media cache pruned",
		logging.Int("removed_rows", result.RemovedRows),
		logging.Int("removed_temp", result.RemovedTemp),
		logging.Int("removed_empty", result.RemovedEmpty),
		logging.Int("adopted", result.Adopted),
	)
	return result, nil
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
