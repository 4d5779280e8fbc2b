package runner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pclab/shaperun/internal/cfg"
	"github.com/pclab/shaperun/internal/plan"
)

// Phase distinguishes training from evaluation invocations.
type Phase string

const (
	PhaseTrain Phase = "train"
	PhaseTest  Phase = "test"
)

// NoIndex marks an invocation that has no repetition or fold component.
const NoIndex = -1

// Invocation is one external process launch: the program, its configuration
// and overrides, and the identity bookkeeping the ledger records.
type Invocation struct {
	Experiment string
	Phase      Phase
	Rep        int // NoIndex when the experiment has no repetition loop
	Fold       int // NoIndex when the experiment has no fold loop

	Program    []string
	ConfigPath string
	Overrides  []plan.Override
	OutputDir  string
	Devices    []int

	// AutoResume mirrors the document's AUTO_RESUME switch; when false an
	// existing checkpoint tag is ignored rather than logged as a resume.
	AutoResume bool
}

// ID is the human-readable identity used in logs and the ledger, e.g.
// "pn2ssg_seg/train rep=2 fold=0".
func (inv *Invocation) ID() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s", inv.Experiment, inv.Phase)
	if inv.Rep != NoIndex {
		fmt.Fprintf(&b, " rep=%d", inv.Rep)
	}
	if inv.Fold != NoIndex {
		fmt.Fprintf(&b, " fold=%d", inv.Fold)
	}
	return b.String()
}

// Args builds the argument vector after the program itself: any extra
// program words, then --cfg=<path>, then the override pairs in order.
func (inv *Invocation) Args() []string {
	args := append([]string{}, inv.Program[1:]...)
	args = append(args, "--cfg="+inv.ConfigPath)
	for _, ov := range inv.Overrides {
		args = append(args, ov.Key, cfg.RenderValue(ov.Value))
	}
	return args
}

// CommandLine renders the full command for dry runs and error messages.
func (inv *Invocation) CommandLine() string {
	parts := append([]string{inv.Program[0]}, inv.Args()...)
	for i, part := range parts {
		if strings.ContainsAny(part, " ()'") {
			parts[i] = strconv.Quote(part)
		}
	}
	return strings.Join(parts, " ")
}

// DeviceList renders the CUDA_VISIBLE_DEVICES value, or "" when the
// invocation does not pin devices.
func (inv *Invocation) DeviceList() string {
	if len(inv.Devices) == 0 {
		return ""
	}
	ids := make([]string, len(inv.Devices))
	for i, d := range inv.Devices {
		ids[i] = strconv.Itoa(d)
	}
	return strings.Join(ids, ",")
}
