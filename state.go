/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Per-printer persistent state
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/ini.v1"
)

// PrinterState manages a per-printer persistent state (the
// allocated printer-id, DNS-SD name override etc)
type PrinterState struct {
	Name          string // Printer name
	Comment       string // Comment in the state file
	ID            int    // Allocated printer-id value
	DNSSdName     string // DNS-SD name, as derived from configuration
	DNSSdOverride string // DNS-SD name after collision resolution

	path string // Path to the disk file
}

// loadPrinterState loads PrinterState from a disk file. A missing
// file is not an error; it gives a fresh state which is written
// out when something worth saving appears
func loadPrinterState(name, path string) *PrinterState {
	state := &PrinterState{Name: name, path: path}

	inifile, err := ini.Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			Log.Error('!', "STATE LOAD: %s", state.error("%s", err))
		}
		return state
	}

	if section, _ := inifile.GetSection("printer"); section != nil {
		state.Comment = section.Comment

		err = state.loadID(section, "printer-id")
		if err != nil {
			Log.Error('!', "STATE LOAD: %s", err)
		}

		state.DNSSdName = state.loadString(section, "dns-sd-name")
		state.DNSSdOverride = state.loadString(section, "dns-sd-override")
	}

	return state
}

// Load printer-id
func (state *PrinterState) loadID(section *ini.Section, name string) error {
	if key, _ := section.GetKey(name); key != nil {
		id, err := key.Int()

		if err != nil {
			err = state.error("%s", err)
		} else if id < 1 || id > 65535 {
			err = state.error("%s: out of range", key.Name())
		}

		if err != nil {
			return err
		}

		state.ID = id
	}

	return nil
}

// Load string, defaults to ""
func (state *PrinterState) loadString(section *ini.Section,
	name string) string {

	if key, _ := section.GetKey(name); key != nil {
		return key.String()
	}

	return ""
}

// Save updates PrinterState on disk
func (state *PrinterState) Save() {
	os.MkdirAll(filepath.Dir(state.path), 0755)

	inifile := ini.Empty()
	section, _ := inifile.NewSection("printer")
	section.Comment = state.Comment

	if state.ID > 0 {
		section.NewKey("printer-id", strconv.Itoa(state.ID))
	}

	if state.DNSSdName != "" {
		section.NewKey("dns-sd-name", state.DNSSdName)
	}

	if state.DNSSdOverride != "" {
		section.NewKey("dns-sd-override", state.DNSSdOverride)
	}

	err := inifile.SaveTo(state.path)
	if err != nil {
		Log.Error('!', "STATE SAVE: %s", state.error("%s", err))
	}
}

// error creates a state-related error
func (state *PrinterState) error(format string, args ...interface{}) error {
	return fmt.Errorf(state.Name+": "+format, args...)
}

// State manages the persistent state directory. Every printer keeps
// its state in its own file there, named after the queue
type State struct {
	lock     sync.Mutex               // Access lock
	dir      string                   // State directory
	printers map[string]*PrinterState // Per-printer states
}

// OpenState opens the state directory and loads the state of every
// printer already known there
func OpenState(dir string) *State {
	state := &State{
		dir:      dir,
		printers: make(map[string]*PrinterState),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Missing directory is created on the first save
		return state
	}

	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasSuffix(name, ".state") {
			continue
		}

		name = strings.TrimSuffix(name, ".state")
		state.printers[name] = loadPrinterState(name,
			filepath.Join(dir, ent.Name()))
	}

	return state
}

// Printer returns the state of the named printer, creating a fresh
// one if the printer was not seen before
func (state *State) Printer(name string) *PrinterState {
	state.lock.Lock()
	defer state.lock.Unlock()

	return state.printer(name)
}

// PrinterID returns the persistent printer-id of the named printer,
// allocating the next free value on first use
func (state *State) PrinterID(name string) int {
	state.lock.Lock()
	defer state.lock.Unlock()

	ps := state.printer(name)
	if ps.ID == 0 {
		next := 1
		for _, other := range state.printers {
			if other.ID >= next {
				next = other.ID + 1
			}
		}

		ps.ID = next
		ps.Save()
	}

	return ps.ID
}

// DNSSdOverride returns the saved DNS-SD name override of the named
// printer, "" if there is none
func (state *State) DNSSdOverride(name string) string {
	state.lock.Lock()
	defer state.lock.Unlock()

	return state.printer(name).DNSSdOverride
}

// SyncDNSSdName records the configured DNS-SD name of the printer.
// When the name differs from the saved one, the saved collision
// override is stale and is reset together with it
func (state *State) SyncDNSSdName(name, dnssd string) *PrinterState {
	state.lock.Lock()
	defer state.lock.Unlock()

	ps := state.printer(name)
	if ps.DNSSdName != dnssd {
		ps.DNSSdName = dnssd
		ps.DNSSdOverride = dnssd
		ps.Save()
	}

	return ps
}

// printer returns or creates a PrinterState. Called under the lock
func (state *State) printer(name string) *PrinterState {
	ps := state.printers[name]
	if ps == nil {
		ps = loadPrinterState(name, filepath.Join(state.dir, name+".state"))
		state.printers[name] = ps
	}

	return ps
}
