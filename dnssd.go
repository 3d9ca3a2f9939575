/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * DNS-SD publisher: system-independent stuff
 */

package main

import (
	"fmt"
	"sync"
	"time"
)

// DnsSdTxtItem represents a single TXT record item
type DnsSdTxtItem struct {
	Key, Value string // TXT entry: Key=Value
}

// DnsSdTxtRecord represents a TXT record
type DnsSdTxtRecord []DnsSdTxtItem

// Add adds an item to DnsSdTxtRecord
func (txt *DnsSdTxtRecord) Add(key, value string) {
	*txt = append(*txt, DnsSdTxtItem{key, value})
}

// IfNotEmpty adds an item to DnsSdTxtRecord if its value is not empty
//
// It returns true if item was actually added, false otherwise
func (txt *DnsSdTxtRecord) IfNotEmpty(key, value string) bool {
	if value != "" {
		txt.Add(key, value)
		return true
	}
	return false
}

// Maximal length of the single Key=Value string within the
// TXT record, as defined by RFC 6763, 6.1
const dnsSdTxtMaxStrLen = 255

// AddPDL adds an item with a comma-separated list of document
// formats as a value
//
// Some printers support so many formats that the resulting string
// doesn't fit the TXT record constraints. In this case the list is
// truncated at the comma boundary, so formats that come first
// survive
func (txt *DnsSdTxtRecord) AddPDL(key, value string) {
	limit := dnsSdTxtMaxStrLen - len(key) - 1

	if len(value) > limit {
		end := 0
		for i := 0; i < len(value); i++ {
			if value[i] == ',' {
				if i > limit {
					break
				}
				end = i
			}
		}
		value = value[:end]
	}

	txt.IfNotEmpty(key, value)
}

// export converts DnsSdTxtRecord into the Avahi wire format
func (txt DnsSdTxtRecord) export() [][]byte {
	// Avahi publishes TXT strings in reverse order, so the
	// record is exported backwards to compensate
	var exported [][]byte
	for i := len(txt) - 1; i >= 0; i-- {
		exported = append(exported, []byte(txt[i].Key+"="+txt[i].Value))
	}

	return exported
}

// DnsSdSvcInfo represents a DNS-SD service information
type DnsSdSvcInfo struct {
	Type     string         // Service type, i.e. "_ipp._tcp"
	SubTypes []string       // Subtypes, i.e. "_print._sub._ipp._tcp"
	Port     int            // TCP port
	Txt      DnsSdTxtRecord // TXT record
}

// DnsSdServices represents a collection of DNS-SD services
type DnsSdServices []DnsSdSvcInfo

// Add DnsSdSvcInfo to DnsSdServices
func (services *DnsSdServices) Add(srv DnsSdSvcInfo) {
	*services = append(*services, srv)
}

// DnsSdStatus represents DNS-SD publisher status
type DnsSdStatus int

const (
	DnsSdNoStatus  DnsSdStatus = iota // Invalid status
	DnsSdCollision                    // Service instance name collision
	DnsSdFailure                      // Publisher failed
	DnsSdSuccess                      // Services successfully published
)

// dnsSdStatusNames gives DnsSdStatus values human-readable names
var dnsSdStatusNames = map[DnsSdStatus]string{
	DnsSdNoStatus:  "DnsSdNoStatus",
	DnsSdCollision: "DnsSdCollision",
	DnsSdFailure:   "DnsSdFailure",
	DnsSdSuccess:   "DnsSdSuccess",
}

// String returns human-readable representation of DnsSdStatus
func (status DnsSdStatus) String() string {
	if name, ok := dnsSdStatusNames[status]; ok {
		return name
	}
	return fmt.Sprintf("Unknown DnsSdStatus %d", status)
}

// DnsSdPublisher announces a collection of services under the
// common Service Instance Name and keeps the announcement alive,
// retrying after failures and resolving name collisions
type DnsSdPublisher struct {
	Log      *Logger        // Logger for publisher events
	State    *PrinterState  // Printer persistent state
	Services DnsSdServices  // Registered services
	fin      chan struct{}  // Closed to terminate publisher goroutine
	finDone  sync.WaitGroup // To wait for goroutine termination
	sysdep   *dnssdSysdep   // System-dependent stuff
}

// NewDnsSdPublisher creates new DnsSdPublisher
//
// Service instance name comes from the PrinterState, and if the
// name changes as result of the collision resolution, PrinterState
// is updated
func NewDnsSdPublisher(log *Logger, state *PrinterState,
	services DnsSdServices) *DnsSdPublisher {

	return &DnsSdPublisher{
		Log:      log,
		State:    state,
		Services: services,
		fin:      make(chan struct{}),
	}
}

// Publish all services
func (publisher *DnsSdPublisher) Publish() error {
	instance := publisher.instance(0)

	sysdep, err := newDnssdSysdep(publisher.Log, instance,
		publisher.Services)
	if err != nil {
		return err
	}

	publisher.sysdep = sysdep
	publisher.Log.Info('+', "DNS-SD: %s: publishing requested", instance)

	publisher.finDone.Add(1)
	go publisher.goroutine()

	return nil
}

// Unpublish everything
func (publisher *DnsSdPublisher) Unpublish() {
	close(publisher.fin)
	publisher.finDone.Wait()

	publisher.sysdep.Close()

	publisher.Log.Info('-', "DNS-SD: %s: removed", publisher.instance(0))
}

// Build service instance name with optional collision-resolution suffix
func (publisher *DnsSdPublisher) instance(suffix int) string {
	if suffix > 0 {
		return publisher.State.DNSSdName + fmt.Sprintf(" (%d)", suffix)
	}

	if publisher.State.DNSSdOverride != "" {
		return publisher.State.DNSSdOverride
	}

	return publisher.State.DNSSdName
}

// Remember the successfully published instance name, so the
// collision-resolved name survives daemon restarts
func (publisher *DnsSdPublisher) saveInstance(instance string) {
	if instance != publisher.State.DNSSdOverride {
		publisher.State.DNSSdOverride = instance
		publisher.State.Save()
	}
}

// Event handling goroutine
func (publisher *DnsSdPublisher) goroutine() {
	defer publisher.finDone.Done()

	retry := time.NewTimer(time.Hour)
	retry.Stop()       // Not ticking now
	defer retry.Stop() // And cleanup at return

	suffix := 0
	instance := publisher.instance(0)

	for {
		select {
		case <-publisher.fin:
			return

		case status := <-publisher.sysdep.Chan():
			if status == DnsSdSuccess {
				publisher.Log.Info(' ', "DNS-SD: %s: published",
					instance)
				publisher.saveInstance(instance)
				continue
			}

			switch status {
			case DnsSdCollision:
				publisher.Log.Error(' ', "DNS-SD: %s: name collision",
					instance)
				suffix++

			case DnsSdFailure:
				publisher.Log.Error(' ', "DNS-SD: %s: publishing failed",
					instance)

			default:
				publisher.Log.Error(' ', "DNS-SD: %s: unknown event %s",
					instance, status)
				continue
			}

			publisher.sysdep.Close()
			retry.Reset(DNSSdRetryInterval)

		case <-retry.C:
			instance = publisher.instance(suffix)

			var err error
			publisher.sysdep, err = newDnssdSysdep(publisher.Log,
				instance, publisher.Services)

			if err != nil {
				publisher.Log.Error('!', "DNS-SD: %s: %s", instance, err)
				retry.Reset(DNSSdRetryInterval)
			}
		}
	}
}
