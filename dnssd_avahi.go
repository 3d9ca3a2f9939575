/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * DNS-SD publisher: system-dependent part for Avahi
 */

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/holoplot/go-avahi"
)

// Avahi entry group states, as reported over D-Bus
const (
	avahiEntryGroupUncommited  = 0
	avahiEntryGroupRegistering = 1
	avahiEntryGroupEstablished = 2
	avahiEntryGroupCollision   = 3
	avahiEntryGroupFailure     = 4
)

var (
	avahiInitLock sync.Mutex
	avahiServer   *avahi.Server
)

// avahiGetServer returns the process-wide connection to the Avahi
// daemon, establishing it on the first use
func avahiGetServer() (*avahi.Server, error) {
	avahiInitLock.Lock()
	defer avahiInitLock.Unlock()

	if avahiServer == nil {
		conn, err := dbus.SystemBus()
		if err != nil {
			return nil, fmt.Errorf("AVAHI: %s", err)
		}

		server, err := avahi.ServerNew(conn)
		if err != nil {
			return nil, fmt.Errorf("AVAHI: %s", err)
		}

		avahiServer = server
	}

	return avahiServer, nil
}

// DNSSdInit establishes the connection to the Avahi daemon. The
// connection is shared by all publishers and lives until the
// program exits. A failure here is fatal: printers must be
// discoverable, so running without Avahi is not an option
func DNSSdInit() error {
	server, err := avahiGetServer()
	if err != nil {
		return err
	}

	if fqdn, err := server.GetHostNameFqdn(); err == nil {
		Log.Debug(' ', "AVAHI: connected, host name is %q", fqdn)
	}

	return nil
}

// dnssdSysdep represents a system-dependent DNS-SD advertiser.
// It registers an Avahi entry group with all the services of a
// single printer and watches its state
type dnssdSysdep struct {
	log       *Logger           // Printer's logger
	srv       *avahi.Server     // Avahi connection
	egroup    *avahi.EntryGroup // Avahi entry group
	chn       chan DnsSdStatus  // Status notifications
	fin       chan struct{}     // Closed to terminate watcher
	finDone   sync.WaitGroup    // Wait for watcher termination
	closeOnce sync.Once         // Close must be idempotent
}

// newDnssdSysdep creates new dnssdSysdep instance. All services
// are registered under the same instance name and committed as a
// single entry group
func newDnssdSysdep(log *Logger, instance string,
	services DnsSdServices) (*dnssdSysdep, error) {

	server, err := avahiGetServer()
	if err != nil {
		return nil, err
	}

	egroup, err := server.EntryGroupNew()
	if err != nil {
		return nil, fmt.Errorf("AVAHI: %s", err)
	}

	for _, svc := range services {
		err = egroup.AddService(
			avahi.InterfaceUnspec,
			avahi.ProtoUnspec,
			0,
			instance,
			svc.Type,
			"", // Domain, let Avahi choose
			"", // Host, let Avahi choose
			uint16(svc.Port),
			svc.Txt.export(),
		)

		if err != nil {
			server.EntryGroupFree(egroup)
			return nil, fmt.Errorf("AVAHI: %s", err)
		}

		for _, subtype := range svc.SubTypes {
			err = egroup.AddServiceSubtype(
				avahi.InterfaceUnspec,
				avahi.ProtoUnspec,
				0,
				instance,
				svc.Type,
				"", // Domain, let Avahi choose
				subtype,
			)

			if err != nil {
				server.EntryGroupFree(egroup)
				return nil, fmt.Errorf("AVAHI: %s", err)
			}
		}
	}

	err = egroup.Commit()
	if err != nil {
		server.EntryGroupFree(egroup)
		return nil, fmt.Errorf("AVAHI: %s", err)
	}

	sd := &dnssdSysdep{
		log:    log,
		srv:    server,
		egroup: egroup,
		chn:    make(chan DnsSdStatus, 10),
		fin:    make(chan struct{}),
	}

	sd.finDone.Add(1)
	go sd.watcher()

	return sd, nil
}

// Chan returns status notification channel
func (sd *dnssdSysdep) Chan() <-chan DnsSdStatus {
	return sd.chn
}

// Close dnssdSysdep
func (sd *dnssdSysdep) Close() {
	sd.closeOnce.Do(func() {
		close(sd.fin)
		sd.finDone.Wait()
		sd.srv.EntryGroupFree(sd.egroup)
	})
}

// watcher polls the entry group state and converts its transitions
// into DnsSdStatus events.
//
// The Avahi connection itself is checked at the same cadence. Avahi
// restart invalidates all registrations at once and cannot be
// recovered here, so losing the daemon terminates the program
func (sd *dnssdSysdep) watcher() {
	defer sd.finDone.Done()

	ticker := time.NewTicker(DNSSdCheckInterval)
	defer ticker.Stop()

	last := int32(avahiEntryGroupUncommited)

	for {
		select {
		case <-sd.fin:
			return

		case <-ticker.C:
			_, err := sd.srv.GetState()
			if err != nil {
				sd.log.Exit('!', "AVAHI: daemon connection lost: %s", err)
			}

			state, err := sd.egroup.GetState()
			if err != nil {
				sd.notify(DnsSdFailure)
				return
			}

			if state == last {
				continue
			}
			last = state

			switch state {
			case avahiEntryGroupEstablished:
				sd.notify(DnsSdSuccess)
			case avahiEntryGroupCollision:
				sd.notify(DnsSdCollision)
			case avahiEntryGroupFailure:
				sd.notify(DnsSdFailure)
			default:
				sd.log.Debug(' ', "AVAHI: entry group state %d", state)
			}
		}
	}
}

// notify pushes a status to the notification channel. It never
// blocks; if the publisher lags behind, older statuses are simply
// superseded by newer ones
func (sd *dnssdSysdep) notify(status DnsSdStatus) {
	select {
	case sd.chn <- status:
	default:
	}
}
