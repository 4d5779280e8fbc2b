package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Category is one dataset class with its synset offset (e.g. "airplane" /
// "02691156").
type Category struct {
	Name   string
	Offset string
}

// CategoryFile is the filename of the class/offset mapping for the raw
// point-file layout; CategoryFileH5 is its HDF5-layout counterpart.
const (
	CategoryFile   = "synsetoffset2category.txt"
	CategoryFileH5 = "all_object_categories.txt"
)

// LoadCategories parses a category file: one "name offset" pair per line,
// order preserved (class indices follow file order).
func LoadCategories(path string) ([]Category, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open category file: %w", err)
	}
	defer f.Close()

	var categories []Category
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("category file %s line %d: expected \"name offset\", got %q", path, line, text)
		}
		if seen[fields[0]] {
			return nil, fmt.Errorf("category file %s line %d: duplicate class %q", path, line, fields[0])
		}
		seen[fields[0]] = true
		categories = append(categories, Category{Name: fields[0], Offset: fields[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category file: %w", err)
	}
	return categories, nil
}

// Layout describes where a dataset adapter keeps its split lists.
type Layout int

const (
	// LayoutPoints is the raw .pts layout: JSON split lists under a
	// train_test_split directory.
	LayoutPoints Layout = iota
	// LayoutH5 is the HDF5 layout: plain-text lists of .h5 files at the
	// dataset root.
	LayoutH5
)

// LayoutFor maps a DATASET.TYPE adapter name to its split layout.
func LayoutFor(adapterType string) (Layout, error) {
	switch adapterType {
	case "ShapeNet", "ShapeNetFewShot":
		return LayoutPoints, nil
	case "ShapeNetH5", "ShapeNet55H5", "ModelNetH5", "ModelNetFewShot", "ShapeNet55FewShot":
		return LayoutH5, nil
	default:
		return 0, fmt.Errorf("unrecognized dataset adapter %q", adapterType)
	}
}

// SplitFile returns the path of the list file backing one named split.
func SplitFile(layout Layout, rootDir, split string) string {
	switch layout {
	case LayoutPoints:
		return filepath.Join(rootDir, "train_test_split", fmt.Sprintf("shuffled_%s_file_list.json", split))
	default:
		return filepath.Join(rootDir, fmt.Sprintf("%s_hdf5_file_list.txt", split))
	}
}

// SplitEntries reads the members of one named split: shape tokens for the
// points layout, .h5 filenames for the HDF5 layout.
func SplitEntries(layout Layout, rootDir, split string) ([]string, error) {
	path := SplitFile(layout, rootDir, split)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read split list %s: %w", path, err)
	}
	if layout == LayoutPoints {
		var entries []string
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("split list %s is not a JSON string list: %w", path, err)
		}
		return entries, nil
	}
	var entries []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			entries = append(entries, line)
		}
	}
	return entries, nil
}

// Verify checks that every split a configuration references has a backing
// list file. All missing splits are reported together.
func Verify(adapterType, rootDir string, splits []string) error {
	layout, err := LayoutFor(adapterType)
	if err != nil {
		return err
	}
	var errs []error
	for _, split := range splits {
		path := SplitFile(layout, rootDir, split)
		if _, statErr := os.Stat(path); statErr != nil {
			errs = append(errs, fmt.Errorf("split %q has no list file at %s", split, path))
		}
	}
	return errors.Join(errs...)
}
