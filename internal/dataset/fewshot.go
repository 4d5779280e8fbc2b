package dataset

import "fmt"

// Few-shot experiments cross-validate over support-set draws. Each draw is a
// named split "cross_<i>"; a run plan with folds = N trains once per draw.

// CrossSplitName returns the split name for one cross-validation fold.
func CrossSplitName(fold int) string {
	return fmt.Sprintf("cross_%d", fold)
}

// CrossSplitNames returns the split names for all folds of a draw count.
func CrossSplitNames(crossNum int) []string {
	names := make([]string, crossNum)
	for i := range names {
		names[i] = CrossSplitName(i)
	}
	return names
}
