package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCategories(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), CategoryFile)
	content := "Airplane\t02691156\nBag\t02773838\nCap\t02954340\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cats, err := LoadCategories(path)
	require.NoError(t, err)
	require.Equal(t, []Category{
		{Name: "Airplane", Offset: "02691156"},
		{Name: "Bag", Offset: "02773838"},
		{Name: "Cap", Offset: "02954340"},
	}, cats, "class order follows file order")
}

func TestLoadCategories_Malformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), CategoryFile)
	require.NoError(t, os.WriteFile(path, []byte("Airplane\n"), 0644))

	_, err := LoadCategories(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 1")
}

func TestLoadCategories_Duplicate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), CategoryFile)
	require.NoError(t, os.WriteFile(path, []byte("Cap 01\nCap 02\n"), 0644))

	_, err := LoadCategories(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate class")
}

func TestSplitFile_Layouts(t *testing.T) {
	t.Parallel()

	require.Equal(t,
		filepath.Join("data", "shapenet", "train_test_split", "shuffled_train_file_list.json"),
		SplitFile(LayoutPoints, filepath.Join("data", "shapenet"), "train"))

	require.Equal(t,
		filepath.Join("data", "shapenet_hdf5", "test_hdf5_file_list.txt"),
		SplitFile(LayoutH5, filepath.Join("data", "shapenet_hdf5"), "test"))
}

func TestSplitEntries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	// Points layout: JSON list under train_test_split.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "train_test_split"), 0755))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "train_test_split", "shuffled_val_file_list.json"),
		[]byte(`["shape_data/02691156/points1", "shape_data/02691156/points2"]`), 0644))

	entries, err := SplitEntries(LayoutPoints, root, "val")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// HDF5 layout: newline-separated file list at the root.
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "train_hdf5_file_list.txt"),
		[]byte("ply_data_train0.h5\nply_data_train1.h5\n\n"), 0644))

	entries, err = SplitEntries(LayoutH5, root, "train")
	require.NoError(t, err)
	require.Equal(t, []string{"ply_data_train0.h5", "ply_data_train1.h5"}, entries)
}

func TestVerify(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "train_hdf5_file_list.txt"), []byte("a.h5\n"), 0644))

	require.NoError(t, Verify("ShapeNetH5", root, []string{"train"}))

	err := Verify("ShapeNetH5", root, []string{"train", "cross_0", "cross_1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), `split "cross_0"`)
	require.Contains(t, err.Error(), `split "cross_1"`)

	require.Error(t, Verify("Unheard", root, []string{"train"}))
}

func TestCrossSplitNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"cross_0", "cross_1", "cross_2"}, CrossSplitNames(3))
	require.Empty(t, CrossSplitNames(0))
	require.Equal(t, "cross_7", CrossSplitName(7))
}
