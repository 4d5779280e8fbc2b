// Package dataset handles the metadata side of the point-cloud datasets: the
// category file mapping class names to synset offsets, and the split list
// files a configuration's TRAIN/VAL/TEST groups refer to. It never loads
// point data; the external trainer owns tensors, the harness only verifies
// that the splits an experiment names actually exist before launching it.
package dataset
