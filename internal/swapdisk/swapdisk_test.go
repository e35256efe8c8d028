package swapdisk

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testGeometry() Geometry {
	return Geometry{SectorBytes: 512, SectorsPerTrack: 16, Tracks: 1}
}

func TestMemDiskReadWriteRoundTrip(t *testing.T) {
	d := NewMemDisk(testGeometry())
	want := make([]byte, 4096)
	for i := range want {
		want[i] = byte(i)
	}
	require.NoError(t, d.Write(0, 0, 8, want))

	got := make([]byte, 4096)
	require.NoError(t, d.Read(0, 0, 8, got))
	require.Equal(t, want, got)
}

func TestMemDiskOutOfRange(t *testing.T) {
	d := NewMemDisk(testGeometry())
	buf := make([]byte, 512)
	require.Error(t, d.Read(1, 0, 1, buf))
	require.Error(t, d.Write(0, 16, 1, buf))
}

func TestFileDiskReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swap.img")
	d, err := NewFileDisk(path, testGeometry())
	require.NoError(t, err)
	defer d.Close()

	want := make([]byte, 4096)
	for i := range want {
		want[i] = byte(255 - i)
	}
	require.NoError(t, d.Write(0, 8, 8, want))

	got := make([]byte, 4096)
	require.NoError(t, d.Read(0, 8, 8, got))
	require.Equal(t, want, got)
}
