// Package cli defines the kong command tree for smpctl.
package cli

import (
	"fmt"
	"os"
	"time"

	"smpctl/internal/client"
	"smpctl/internal/commands"
	"smpctl/internal/config"
	"smpctl/internal/store"
)

// CLI is the root command structure for smpctl.
type CLI struct {
	Verbose bool `short:"v" help:"Enable verbose debug output"`

	Device            string `short:"d" help:"Serial device, e.g. /dev/ttyACM0"`
	Baudrate          int    `short:"b" default:"115200" help:"Serial baud rate"`
	InitialTimeout    int    `short:"t" name:"initial-timeout" default:"60" help:"Timeout for the first upload chunk (seconds)"`
	SubsequentTimeout int    `short:"u" name:"subsequent-timeout" default:"200" help:"Timeout for every later exchange (milliseconds)"`
	NbRetry           int    `name:"nb-retry" default:"4" help:"Retries per upload chunk"`
	Linelength        int    `short:"l" default:"128" help:"Maximum bytes per framed wire line"`
	Mtu               int    `short:"m" default:"512" help:"Maximum bytes per protocol request"`

	List   ListCmd   `cmd:"" help:"List installed firmware slots"`
	Upload UploadCmd `cmd:"" help:"Upload a firmware image to a slot"`
	Erase  EraseCmd  `cmd:"" help:"Erase a firmware slot"`
	Test   TestCmd   `cmd:"" help:"Mark an image for trial or permanent boot"`
	Reset  ResetCmd  `cmd:"" help:"Reset the device"`
	Ports  PortsCmd  `cmd:"" help:"List available serial ports"`
	Store  StoreCmd  `cmd:"" help:"Local firmware image store"`
}

// Specs builds the per-command session parameters from the global flags.
func (c *CLI) Specs() config.Specs {
	specs := config.DefaultSpecs()
	specs.Device = c.Device
	specs.Baudrate = c.Baudrate
	specs.InitialTimeout = time.Duration(c.InitialTimeout) * time.Second
	specs.SubsequentTimeout = time.Duration(c.SubsequentTimeout) * time.Millisecond
	specs.NbRetry = c.NbRetry
	specs.LineLength = c.Linelength
	specs.MTU = c.Mtu
	return specs
}

// dial opens the serial session for one command.
func dial(globals *CLI) (*client.Client, error) {
	config.Verbose = globals.Verbose
	c, err := client.Dial(globals.Specs())
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", globals.Device, err)
	}
	return c, nil
}

// --- Device Commands ---

type ListCmd struct {
	JSON bool `help:"Print slots as JSON"`
}

func (c *ListCmd) Run(globals *CLI) error {
	dev, err := dial(globals)
	if err != nil {
		return err
	}
	defer dev.Close()
	return commands.List(dev, c.JSON)
}

type UploadCmd struct {
	File  string `arg:"" type:"existingfile" help:"Firmware image to upload"`
	Slot  uint8  `default:"0" help:"Target slot"`
	Quiet bool   `short:"q" help:"Disable the progress bar"`
}

func (c *UploadCmd) Run(globals *CLI) error {
	dev, err := dial(globals)
	if err != nil {
		return err
	}
	defer dev.Close()
	return commands.Upload(dev, globals.Specs(), c.File, c.Slot, c.Quiet)
}

type EraseCmd struct {
	Slot *uint32 `help:"Slot to erase (default: device erases its inactive slot)"`
}

func (c *EraseCmd) Run(globals *CLI) error {
	dev, err := dial(globals)
	if err != nil {
		return err
	}
	defer dev.Close()
	return commands.Erase(dev, c.Slot)
}

type TestCmd struct {
	Hash    string `arg:"" help:"Image hash (hex, full or a stored prefix)"`
	Confirm bool   `help:"Mark the image permanently active instead of trial boot"`
}

func (c *TestCmd) Run(globals *CLI) error {
	dev, err := dial(globals)
	if err != nil {
		return err
	}
	defer dev.Close()
	return commands.Test(dev, c.Hash, c.Confirm)
}

type ResetCmd struct{}

func (c *ResetCmd) Run(globals *CLI) error {
	dev, err := dial(globals)
	if err != nil {
		return err
	}
	defer dev.Close()
	return commands.Reset(dev)
}

type PortsCmd struct {
	JSON bool `help:"Print ports as JSON"`
}

func (c *PortsCmd) Run(globals *CLI) error {
	config.Verbose = globals.Verbose
	return commands.Ports(c.JSON)
}

// --- Store Commands ---

type StoreCmd struct {
	List   StoreListCmd   `cmd:"" help:"List all stored firmware images"`
	Show   StoreShowCmd   `cmd:"" help:"Show details of a stored image"`
	Import StoreImportCmd `cmd:"" help:"Import a firmware file into the store"`
	Export StoreExportCmd `cmd:"" help:"Export a stored image to a file"`
}

type StoreListCmd struct{}

func (c *StoreListCmd) Run(globals *CLI) error {
	config.Verbose = globals.Verbose

	s, err := store.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	images, err := s.List()
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}

	if len(images) == 0 {
		fmt.Println("No images in store.")
		fmt.Println("Import images with: smpctl store import <firmware.bin>")
		return nil
	}

	fmt.Printf("Found %d image(s):\n\n", len(images))
	for _, meta := range images {
		fmt.Printf("  %s  %8d bytes  %s\n",
			store.ShortHash(meta.ContentHash),
			meta.Size,
			meta.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

type StoreShowCmd struct {
	Hash string `arg:"" help:"Image hash (full or short)"`
}

func (c *StoreShowCmd) Run(globals *CLI) error {
	config.Verbose = globals.Verbose

	s, err := store.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	fullHash, err := s.Resolve(c.Hash)
	if err != nil {
		return err
	}
	meta, err := s.GetMetadata(fullHash)
	if err != nil {
		return fmt.Errorf("failed to get metadata: %w", err)
	}
	return commands.MarshalAndPrint(meta)
}

type StoreImportCmd struct {
	File string `arg:"" type:"existingfile" help:"Firmware file to import"`
}

func (c *StoreImportCmd) Run(globals *CLI) error {
	config.Verbose = globals.Verbose

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	s, err := store.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	source := store.Source{
		Timestamp: time.Now(),
		Method:    "import",
		Filename:  c.File,
	}
	hash, isNew, err := s.Import(data, source)
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}

	if isNew {
		fmt.Printf("Imported new image: %s\n", store.ShortHash(hash))
	} else {
		fmt.Printf("Image already exists: %s (added source)\n", store.ShortHash(hash))
	}
	return nil
}

type StoreExportCmd struct {
	Hash   string `arg:"" help:"Image hash (full or short)"`
	Output string `arg:"" help:"Output file path"`
}

func (c *StoreExportCmd) Run(globals *CLI) error {
	config.Verbose = globals.Verbose

	s, err := store.OpenDefault()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}

	fullHash, err := s.Resolve(c.Hash)
	if err != nil {
		return err
	}
	if err := s.Export(fullHash, c.Output); err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}
	fmt.Printf("Exported to: %s\n", c.Output)
	return nil
}
