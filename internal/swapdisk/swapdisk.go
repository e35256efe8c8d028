// Package swapdisk defines the disk contract the swap manager treats as
// an external substrate (spec §1, §6: DiskSize/DiskRead/DiskWrite,
// assumed correct) and supplies a file-backed reference implementation
// for tests and cmd/pagersim, grounded on the kernel's own block-device
// abstractions (Disk_i, Bdev_req_t).
package swapdisk

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Geometry describes a disk's physical layout, as reported by
// DiskSize (spec §6).
type Geometry struct {
	SectorBytes     int
	SectorsPerTrack int
	Tracks          int
}

// Bytes returns the total disk capacity.
func (g Geometry) Bytes() int64 {
	return int64(g.SectorBytes) * int64(g.SectorsPerTrack) * int64(g.Tracks)
}

// Disk is the synchronous disk contract consumed by internal/swap.
// track and sector address a fixed-size sector; n is the sector count.
type Disk interface {
	Size() Geometry
	Read(track, sector, n int, buf []byte) error
	Write(track, sector, n int, buf []byte) error
}

// FileDisk is a reference Disk backed by a regular file, using
// positioned pread/pwrite so concurrent swap I/O from multiple pager
// goroutines never races on a shared file offset.
type FileDisk struct {
	geo Geometry
	mu  sync.RWMutex
	f   *os.File
}

// NewFileDisk creates (or truncates) path to hold the geometry's full
// capacity and returns a Disk backed by it.
func NewFileDisk(path string, geo Geometry) (*FileDisk, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("swapdisk: open %s: %w", path, err)
	}
	if err := f.Truncate(geo.Bytes()); err != nil {
		f.Close()
		return nil, fmt.Errorf("swapdisk: truncate %s: %w", path, err)
	}
	return &FileDisk{geo: geo, f: f}, nil
}

func (d *FileDisk) Size() Geometry { return d.geo }

func (d *FileDisk) offset(track, sector int) (int64, error) {
	if sector < 0 || sector >= d.geo.SectorsPerTrack {
		return 0, fmt.Errorf("swapdisk: sector %d out of range", sector)
	}
	if track < 0 || track >= d.geo.Tracks {
		return 0, fmt.Errorf("swapdisk: track %d out of range", track)
	}
	linear := int64(track)*int64(d.geo.SectorsPerTrack) + int64(sector)
	return linear * int64(d.geo.SectorBytes), nil
}

// Read fills buf with n sectors' worth of data starting at (track, sector).
func (d *FileDisk) Read(track, sector, n int, buf []byte) error {
	off, err := d.offset(track, sector)
	if err != nil {
		return err
	}
	want := n * d.geo.SectorBytes
	if len(buf) < want {
		return fmt.Errorf("swapdisk: buffer too small for %d sectors", n)
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, err = unix.Pread(int(d.f.Fd()), buf[:want], off)
	return err
}

// Write stores n sectors' worth of buf at (track, sector).
func (d *FileDisk) Write(track, sector, n int, buf []byte) error {
	off, err := d.offset(track, sector)
	if err != nil {
		return err
	}
	want := n * d.geo.SectorBytes
	if len(buf) < want {
		return fmt.Errorf("swapdisk: buffer too small for %d sectors", n)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err = unix.Pwrite(int(d.f.Fd()), buf[:want], off)
	return err
}

// Close releases the backing file.
func (d *FileDisk) Close() error {
	return d.f.Close()
}

// MemDisk is an in-memory Disk used by unit tests that do not want
// filesystem side effects.
type MemDisk struct {
	geo  Geometry
	mu   sync.RWMutex
	data []byte
}

// NewMemDisk creates an in-memory disk of the given geometry.
func NewMemDisk(geo Geometry) *MemDisk {
	return &MemDisk{geo: geo, data: make([]byte, geo.Bytes())}
}

func (d *MemDisk) Size() Geometry { return d.geo }

func (d *MemDisk) span(track, sector, n int) (int64, int64, error) {
	if sector < 0 || sector >= d.geo.SectorsPerTrack {
		return 0, 0, fmt.Errorf("swapdisk: sector %d out of range", sector)
	}
	if track < 0 || track >= d.geo.Tracks {
		return 0, 0, fmt.Errorf("swapdisk: track %d out of range", track)
	}
	linear := int64(track)*int64(d.geo.SectorsPerTrack) + int64(sector)
	start := linear * int64(d.geo.SectorBytes)
	end := start + int64(n*d.geo.SectorBytes)
	if end > int64(len(d.data)) {
		return 0, 0, fmt.Errorf("swapdisk: request past end of disk")
	}
	return start, end, nil
}

func (d *MemDisk) Read(track, sector, n int, buf []byte) error {
	start, end, err := d.span(track, sector, n)
	if err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	copy(buf, d.data[start:end])
	return nil
}

func (d *MemDisk) Write(track, sector, n int, buf []byte) error {
	start, end, err := d.span(track, sector, n)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copy(d.data[start:end], buf[:end-start])
	return nil
}
