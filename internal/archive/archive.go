// Package archive locates and reads the data member of a WDI bulk zip.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"cropdata/internal/models"
	"cropdata/internal/table"
)

// DefaultDataSuffix matches the main WDI data member (currently WDICSV.csv).
const DefaultDataSuffix = "CSV.CSV"

// auxiliaryTags mark the metadata members shipped next to the data file.
var auxiliaryTags = []string{"COUNTRY", "SERIES", "FOOTNOTE"}

// SelectDataMember picks the one member whose name ends in suffix and whose
// full name, directories included, carries none of the auxiliary tags. Matching is case-insensitive.
// No candidate is ErrNotFound; several candidates is ErrAmbiguousSource.
func SelectDataMember(names []string, suffix string) (string, error) {
	if suffix == "" {
		suffix = DefaultDataSuffix
	}

	suffix = strings.ToUpper(suffix)

	var candidates []string

	for _, name := range names {
		upper := strings.ToUpper(name)
		if !strings.HasSuffix(upper, suffix) || isAuxiliary(upper) {
			continue
		}

		candidates = append(candidates, name)
	}

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%w: no member ending in %q among %d entries", models.ErrNotFound, suffix, len(names))
	case 1:
		return candidates[0], nil
	default:
		return "", fmt.Errorf("%w: %d members match %q: %s",
			models.ErrAmbiguousSource, len(candidates), suffix, strings.Join(candidates, ", "))
	}
}

func isAuxiliary(upperName string) bool {
	for _, tag := range auxiliaryTags {
		if strings.Contains(upperName, tag) {
			return true
		}
	}

	return false
}

// ListMembers returns the names of the regular files in the archive, in
// archive order.
func ListMembers(zr *zip.Reader) []string {
	names := make([]string, 0, len(zr.File))

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		names = append(names, f.Name)
	}

	return names
}

// OpenMember opens the named member for reading. The caller closes it.
func OpenMember(zr *zip.Reader, name string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open member %s: %w", name, err)
			}

			return rc, nil
		}
	}

	return nil, fmt.Errorf("%w: member %s", models.ErrNotFound, name)
}

// ReadDataTable opens the zip at zipPath, selects the data member and loads
// it. Every handle is closed before the table is returned.
func ReadDataTable(zipPath, suffix string) (*table.Table, string, error) {
	zrc, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, "", fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	defer zrc.Close()

	return readData(&zrc.Reader, suffix)
}

// ReadDataTableFrom is ReadDataTable for an archive already in memory or
// behind any io.ReaderAt.
func ReadDataTableFrom(r io.ReaderAt, size int64, suffix string) (*table.Table, string, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, "", fmt.Errorf("read archive: %w", err)
	}

	return readData(zr, suffix)
}

func readData(zr *zip.Reader, suffix string) (*table.Table, string, error) {
	name, err := SelectDataMember(ListMembers(zr), suffix)
	if err != nil {
		return nil, "", err
	}

	rc, err := OpenMember(zr, name)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	t, err := table.ReadCSV(rc, table.ReadOptions{})
	if err != nil {
		return nil, name, fmt.Errorf("member %s: %w", name, err)
	}

	return t, name, nil
}
