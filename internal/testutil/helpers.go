// Package testutil provides shared test helpers for thrush packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempRRDPath returns a temporary directory and RRD file path suitable
// for tests. The directory is automatically cleaned up when the test
// completes; the file itself is not created.
func TempRRDPath(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "test.rrd")
	return dir, path
}

// MustNotExist asserts that the file does not exist.
func MustNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Fatalf("expected %s to not exist", path)
	}
}

// Touch creates an empty file at path.
func Touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch %s: %v", path, err)
	}
}

// FetchTranscript is a realistic rrdtool fetch output: header line with
// the field names, a blank line, then epoch-stamped rows including nan
// cells for unknown values.
const FetchTranscript = `            requests temperature

1300000000: 5.0000000000e+00 2.1500000000e+01
1300000300: 6.0000000000e+00 nan
1300000600: nan -nan
`

// LastupdateTranscript is a realistic rrdtool lastupdate output.
const LastupdateTranscript = ` requests temperature

1300000600: 7 22.5
`
