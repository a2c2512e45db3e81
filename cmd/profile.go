package cmd

import (
	"errors"
	"os"
	"path/filepath"

	"pythoc/depm"

	"github.com/ComedicChimera/olive"
	"github.com/llir/llvm/ir"
)

var errCompilationFailed = errors.New("compilation produced errors")

// BuildProfile carries the output configuration of one build.
type BuildProfile struct {
	// Module is the loaded project manifest.
	Module *depm.Module

	// OutputPath is where the textual LLVM IR is written.
	OutputPath string
}

// NewBuildProfile assembles a profile from the manifest and the parsed
// command line.
func NewBuildProfile(mod *depm.Module, result *olive.ArgParseResult) *BuildProfile {
	outPath := filepath.Join(mod.AbsPath, mod.Name+".ll")
	if arg, ok := result.Arguments["outpath"]; ok {
		outPath = arg.(string)
	}

	return &BuildProfile{Module: mod, OutputPath: outPath}
}

// WriteOutput serializes the module to its output path.  Object-file linking
// is an external collaborator; the driver's contract ends at textual IR.
func (bp *BuildProfile) WriteOutput(mod *ir.Module) error {
	f, err := os.Create(bp.OutputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = mod.WriteTo(f)
	return err
}
