package plan

import "github.com/hashicorp/hcl/v2"

// HCL decoding targets. These mirror the on-disk block shapes; translation
// into the model happens in the loader.

// defaultsBlock is the optional `defaults { ... }` block.
type defaultsBlock struct {
	Trainer    []string `hcl:"trainer,optional"`
	Tester     []string `hcl:"tester,optional"`
	OutputRoot string   `hcl:"output_root,optional"`
	Devices    []int    `hcl:"devices,optional"`
}

// experimentBlock is one `experiment "<name>" { ... }` block.
type experimentBlock struct {
	Name        string         `hcl:"name,label"`
	Config      string         `hcl:"config"`
	Task        string         `hcl:"task,optional"`
	Repetitions []int          `hcl:"repetitions,optional"`
	Folds       int            `hcl:"folds,optional"`
	Devices     []int          `hcl:"devices,optional"`
	TestAfter   bool           `hcl:"test_after,optional"`
	OutputDir   string         `hcl:"output_dir,optional"`
	DependsOn   []string       `hcl:"depends_on,optional"`
	Overrides   hcl.Expression `hcl:"overrides,optional"`
}

// fileRoot decodes all top-level blocks of one plan file.
type fileRoot struct {
	Defaults    *defaultsBlock     `hcl:"defaults,block"`
	Experiments []*experimentBlock `hcl:"experiment,block"`
	Remain      hcl.Body           `hcl:",remain"`
}
