package commands

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/pricewatch/internal/catalog"
	"git.home.luguber.info/inful/pricewatch/internal/config"
)

// DefaultSelectionFile is written by init next to the configuration.
const DefaultSelectionFile = "selection.yaml"

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing files"`
	Output string `short:"o" name:"output" help:"Output directory for generated files"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	if i.Output != "" {
		return RunInit(filepath.Join(i.Output, config.DefaultPath), i.Force)
	}
	return RunInit(root.Config, i.Force)
}

// RunInit writes the example configuration plus a catalog and selection in
// the same directory.
func RunInit(configPath string, force bool) error {
	dir := filepath.Dir(configPath)
	catalogPath := filepath.Join(dir, config.DefaultCatalogPath)
	selectionPath := filepath.Join(dir, DefaultSelectionFile)

	fmt.Println("Initializing pricewatch project")
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	fmt.Printf("Writing catalog to %s and selection to %s\n", catalogPath, selectionPath)
	if err := catalog.WriteExamples(catalogPath, selectionPath, force); err != nil {
		fmt.Println("Initialization failed")
		return err
	}
	fmt.Println("initialized successfully")
	return nil
}
