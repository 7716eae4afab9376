package app

import (
	"fmt"
	"syscall"
)

// logDisk is the filesystem holding the daemon's log directory. Rotated
// logs are the only thing tlecheckd writes, so this is the one volume that
// can fill up under it.
type logDisk struct {
	Path           string  `json:"path"`
	TotalBytes     uint64  `json:"total_bytes"`
	UsedBytes      uint64  `json:"used_bytes"`
	AvailableBytes uint64  `json:"available_bytes"`
	UsedPercent    float64 `json:"used_percent"`
}

// logDiskUsage stats the filesystem under dir. Available space is what an
// unprivileged writer can use, so it can be less than total minus used.
func logDiskUsage(dir string) (*logDisk, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(dir, &st); err != nil {
		return nil, fmt.Errorf("statfs %s: %w", dir, err)
	}
	bsize := uint64(st.Bsize)
	d := &logDisk{
		Path:           dir,
		TotalBytes:     st.Blocks * bsize,
		UsedBytes:      (st.Blocks - st.Bfree) * bsize,
		AvailableBytes: st.Bavail * bsize,
	}
	if d.TotalBytes > 0 {
		d.UsedPercent = float64(d.UsedBytes) / float64(d.TotalBytes) * 100
	}
	return d, nil
}
