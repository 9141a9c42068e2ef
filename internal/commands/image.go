package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smpctl/internal/client"
	"smpctl/internal/config"
	"smpctl/internal/smp"
	"smpctl/internal/store"
	"smpctl/internal/tui"
)

// slotView is the display form of a slot; the hash is rendered as hex.
type slotView struct {
	Slot      int    `json:"slot"`
	Version   string `json:"version"`
	Hash      string `json:"hash"`
	Bootable  bool   `json:"bootable"`
	Pending   bool   `json:"pending"`
	Confirmed bool   `json:"confirmed"`
	Active    bool   `json:"active"`
	Permanent bool   `json:"permanent"`
}

func viewOf(s smp.ImageSlot) slotView {
	return slotView{
		Slot:      s.Slot,
		Version:   s.Version,
		Hash:      hex.EncodeToString(s.Hash),
		Bootable:  s.Bootable,
		Pending:   s.Pending,
		Confirmed: s.Confirmed,
		Active:    s.Active,
		Permanent: s.Permanent,
	}
}

// List prints the installed firmware slots, as a table or as JSON.
func List(c *client.Client, asJSON bool) error {
	slots, err := c.List()
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}

	if asJSON {
		views := make([]slotView, 0, len(slots))
		for _, s := range slots {
			views = append(views, viewOf(s))
		}
		return MarshalAndPrint(views)
	}

	if len(slots) == 0 {
		fmt.Println("No images installed.")
		return nil
	}
	for _, s := range slots {
		v := viewOf(s)
		fmt.Printf("slot %d: %s\n", v.Slot, v.Version)
		fmt.Printf("  hash:  %s\n", v.Hash)
		fmt.Printf("  flags: %s\n", flagString(s))
	}
	return nil
}

func flagString(s smp.ImageSlot) string {
	out := ""
	add := func(set bool, name string) {
		if !set {
			return
		}
		if out != "" {
			out += ","
		}
		out += name
	}
	add(s.Bootable, "bootable")
	add(s.Pending, "pending")
	add(s.Confirmed, "confirmed")
	add(s.Active, "active")
	add(s.Permanent, "permanent")
	if out == "" {
		return "-"
	}
	return out
}

// Upload reads a firmware file, records it in the local store and pushes
// it into the target slot with a progress bar (or plain output when
// quiet).
func Upload(c *client.Client, specs config.Specs, path string, slot uint8, quiet bool) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read firmware file: %w", err)
	}

	start := time.Now()
	run := func(report func(offset, total uint64)) error {
		return c.Upload(image, slot, client.ReporterFunc(report))
	}

	if quiet {
		err = run(func(offset, total uint64) {
			config.Debugf("uploaded %d/%d bytes", offset, total)
		})
	} else {
		desc := fmt.Sprintf("Uploading %s to slot %d", filepath.Base(path), slot)
		err = tui.RunUpload(desc, uint64(len(image)), run)
	}
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}

	recordUpload(image, specs, path, slot)

	elapsed := time.Since(start).Round(time.Millisecond)
	fmt.Printf("Uploaded %d bytes in %s (%s)\n", len(image), elapsed, store.ShortHash(store.ContentHash(image)))
	return nil
}

// recordUpload best-effort saves a fully acknowledged image in the local
// store with an upload source entry. Store failures never fail the
// command; the transfer already succeeded.
func recordUpload(image []byte, specs config.Specs, path string, slot uint8) {
	s, err := store.OpenDefault()
	if err != nil {
		config.Debugf("store unavailable: %v", err)
		return
	}
	slotCopy := slot
	_, _, err = s.Import(image, store.Source{
		Device:    specs.Device,
		Slot:      &slotCopy,
		Timestamp: time.Now(),
		Method:    "upload",
		Filename:  path,
	})
	if err != nil {
		config.Debugf("store import failed: %v", err)
	}
}

// Erase erases the given slot, or the device's inactive slot when slot is
// nil.
func Erase(c *client.Client, slot *uint32) error {
	if err := c.Erase(slot); err != nil {
		return fmt.Errorf("erase: %w", err)
	}
	if slot != nil {
		fmt.Printf("Erased slot %d\n", *slot)
	} else {
		fmt.Println("Erased inactive slot")
	}
	return nil
}

// Test marks an image for a trial boot, or permanently when confirm is
// true. hashArg is a hex hash, possibly a shortened prefix of a stored
// image.
func Test(c *client.Client, hashArg string, confirm bool) error {
	hash, err := resolveHash(hashArg)
	if err != nil {
		return err
	}

	confirmCopy := confirm
	if err := c.Test(hash, &confirmCopy); err != nil {
		return fmt.Errorf("test: %w", err)
	}
	if confirm {
		fmt.Printf("Image %s marked permanent\n", store.ShortHash(hex.EncodeToString(hash)))
	} else {
		fmt.Printf("Image %s marked for trial boot; reset to test it\n", store.ShortHash(hex.EncodeToString(hash)))
	}
	return nil
}

// resolveHash decodes a full 64-char hex hash, or expands a shorter
// prefix against the local store.
func resolveHash(arg string) ([]byte, error) {
	if len(arg) != 64 {
		s, err := store.OpenDefault()
		if err != nil {
			return nil, fmt.Errorf("%q is not a full hash and the store is unavailable: %w", arg, err)
		}
		full, err := s.Resolve(arg)
		if err != nil {
			return nil, err
		}
		config.Debugf("resolved %q to %s", arg, full)
		arg = full
	}
	hash, err := hex.DecodeString(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid hash %q: %w", arg, err)
	}
	return hash, nil
}
