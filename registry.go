/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Printer registry
 */

package main

import (
	"sort"
	"sync"
)

// Resource path prefixes for the two printer classes
const (
	ResourcePrint   = "/ipp/print"
	ResourcePrint3D = "/ipp/print3d"
)

// PrinterRegistry is the collection of configured printers, sorted
// by resource path and shared between the configuration loader and
// the request serving side.
//
// A single mutex guards the whole collection. Critical sections are
// kept to bookkeeping; no I/O happens under the lock
type PrinterRegistry struct {
	lock     sync.Mutex // Access lock
	printers []*Printer // Printers, sorted by resource path
}

// Add inserts a printer, keeping the collection sorted by resource
// path. Duplicate paths are not rejected here; paths derive from
// distinct file names, so configuration keeps them unique
func (reg *PrinterRegistry) Add(p *Printer) {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	i := reg.search(p.Resource)
	reg.printers = append(reg.printers, nil)
	copy(reg.printers[i+1:], reg.printers[i:])
	reg.printers[i] = p
}

// Find returns the printer serving a resource path, nil if none.
//
// As a single-printer convenience, if the registry holds exactly one
// printer, or if the default alias path "/ipp/print" is requested,
// the first printer is returned regardless of its own path
func (reg *PrinterRegistry) Find(resource string) *Printer {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	if len(reg.printers) == 1 || resource == ResourcePrint {
		if len(reg.printers) == 0 {
			return nil
		}
		return reg.printers[0]
	}

	i := reg.search(resource)
	if i < len(reg.printers) && reg.printers[i].Resource == resource {
		return reg.printers[i]
	}

	return nil
}

// Count returns the number of registered printers
func (reg *PrinterRegistry) Count() int {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	return len(reg.printers)
}

// Printers returns a snapshot of the registered printers, in
// resource path order. The caller iterates without the lock
func (reg *PrinterRegistry) Printers() []*Printer {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	printers := make([]*Printer, len(reg.printers))
	copy(printers, reg.printers)

	return printers
}

// CleanJobs asks every printer to purge its expired job history.
// The whole sweep runs under the registry lock, so no printer can
// be added while its cleanup is in progress. Per-printer cleanup
// must not call back into the registry
func (reg *PrinterRegistry) CleanJobs() {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	for _, p := range reg.printers {
		p.CleanJobs()
	}
}

// search returns the smallest index of a printer whose resource
// path is greater or equal to the one given, len(reg.printers) if
// there is none. Called under the lock
func (reg *PrinterRegistry) search(resource string) int {
	return sort.Search(len(reg.printers), func(n int) bool {
		return reg.printers[n].Resource >= resource
	})
}
