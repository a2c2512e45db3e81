package depm

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

// ModuleFileName is the name of the per-project manifest file.
const ModuleFileName = "pythoc-mod.toml"

// tomlModule represents a PythoC module manifest as it is encoded in TOML.
type tomlModule struct {
	Name        string   `toml:"name"`
	ShouldCache bool     `toml:"caching"`
	LinkLibs    []string `toml:"link-libs"`
	CSources    []string `toml:"c-sources"`
}

// Module is a loaded project manifest: the set of decorated translation units
// under one root plus their link-time configuration.
type Module struct {
	Name    string
	AbsPath string

	// ShouldCache indicates object caching is enabled for this module.
	ShouldCache bool

	// LinkLibs lists libraries passed to the external linker for extern
	// symbol declarations.
	LinkLibs []string

	// CSources lists C sources pulled in by cimport.
	CSources []string
}

// LoadModule loads and validates a module manifest.  `abspath` is the
// absolute path to the module directory.
func LoadModule(abspath string) (*Module, error) {
	f, err := os.Open(filepath.Join(abspath, ModuleFileName))
	if err != nil {
		return nil, fmt.Errorf("unable to open module file at `%s`: %s", abspath, err.Error())
	}
	defer f.Close()

	buff, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("error reading module file at `%s`: %s", abspath, err.Error())
	}

	tomlMod := &tomlModule{}
	if err := toml.Unmarshal(buff, tomlMod); err != nil {
		return nil, fmt.Errorf("error parsing module file at `%s`: %s", abspath, err.Error())
	}

	if tomlMod.Name == "" {
		return nil, fmt.Errorf("module at `%s` is missing a name", abspath)
	}

	return &Module{
		Name:        tomlMod.Name,
		AbsPath:     abspath,
		ShouldCache: tomlMod.ShouldCache,
		LinkLibs:    tomlMod.LinkLibs,
		CSources:    tomlMod.CSources,
	}, nil
}
