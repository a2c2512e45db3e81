package cmd

import (
	"os"
	"path/filepath"

	"pythoc/depm"
	"pythoc/report"

	"github.com/ComedicChimera/olive"
)

// Version is the compiler version reported by the CLI.
const Version = "0.3.0"

// Execute runs the main `pythoc` application.
func Execute() {
	cli := olive.NewCLI("pythoc", "pythoc is an ahead-of-time compiler for a typed Python subset", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false, []string{"silent", "error", "warn", "verbose"})
	logLvlArg.SetDefaultValue("verbose")

	buildCmd := cli.AddSubcommand("build", "compile a module to LLVM IR", true)
	buildCmd.AddPrimaryArg("module-path", "the path to the module to build", true)
	buildCmd.AddStringArg("outpath", "o", "the path for compilation output", false)

	cli.AddSubcommand("version", "print the pythoc version", false)

	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.PrintErrorMessage("CLI Usage Error", err)
		return
	}

	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		execBuildCommand(subResult, result.Arguments["loglevel"].(string))
	case "version":
		report.PrintInfoMessage("PythoC Version", Version)
	}
}

// execBuildCommand executes the build subcommand and handles all errors.
func execBuildCommand(result *olive.ArgParseResult, loglevel string) {
	moduleRelPath, _ := result.PrimaryArg()

	modulePath, err := filepath.Abs(moduleRelPath)
	if err != nil {
		report.PrintErrorMessage("Path Error", err)
		return
	}

	mod, err := depm.LoadModule(modulePath)
	if err != nil {
		report.PrintErrorMessage("Module Load Error", err)
		return
	}

	rep := report.NewReporter(logLevelFromName(loglevel))
	profile := NewBuildProfile(mod, result)

	c := NewCompiler(rep)

	// The host parser hands the driver its decorated units; a session with
	// no registered units still validates the manifest and profile.
	if !c.Compile() {
		report.PrintErrorMessage("Build Failed", errCompilationFailed)
		return
	}

	if err := profile.WriteOutput(c.gen.Module()); err != nil {
		report.PrintErrorMessage("Output Error", err)
		return
	}

	report.PrintInfoMessage("Build Succeeded", profile.OutputPath)
}

func logLevelFromName(name string) int {
	switch name {
	case "silent":
		return report.LogLevelSilent
	case "error":
		return report.LogLevelError
	case "warn":
		return report.LogLevelWarn
	default:
		return report.LogLevelVerbose
	}
}
