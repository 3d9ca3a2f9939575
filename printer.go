/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Printer object
 */

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/OpenPrinting/goipp"
)

// Printer represents one configured printer service
type Printer struct {
	Resource  string       // Resource path, "/ipp/print/<name>"
	Name      string       // Queue name, derived from the file name
	Is3D      bool         // It is a 3D print queue
	Info      *PrinterInfo // Configuration, never changes after load
	ID        int          // printer-id value, stable across runs
	UUID      string       // printer-uuid value, normalized form
	DNSSdName string       // Desired DNS-SD instance name

	lock       sync.Mutex // Protects the job history
	jobs       []*Job     // Completed jobs, oldest first
	lastJobID  int        // Most recently allocated job ID
	maxHistory int        // Job history limit
}

// Job keeps the record of a completed job in the printer's history
type Job struct {
	ID        int       // Job ID, unique per printer
	Name      string    // job-name value
	UserName  string    // job-originating-user-name value
	Completed time.Time // Completion time
}

// NewPrinter creates a Printer from loaded configuration and fills
// in the attributes the server generates itself
func NewPrinter(conf *Conf, resource, name string, is3d bool,
	info *PrinterInfo) *Printer {

	p := &Printer{
		Resource:   resource,
		Name:       name,
		Is3D:       is3d,
		Info:       info,
		maxHistory: conf.MaxCompletedJobs,
	}

	attrs := newIppDecoder(info.Attrs)

	p.UUID = UUIDNormalize(attrs.strSingle("printer-uuid"))
	if p.UUID == "" {
		p.UUID = UUIDGenerate(conf.ServerName, conf.Port(), name)
	}

	p.DNSSdName = attrs.strSingle("printer-info", "printer-make-and-model")
	if p.DNSSdName == "" {
		p.DNSSdName = name
	}

	p.ID = conf.State.PrinterID(name)
	conf.State.SyncDNSSdName(name, p.DNSSdName)

	p.finalizeAttrs(conf, attrs)

	return p
}

// finalizeAttrs adds the attributes whose values come from the
// server rather than from the configuration file. Attributes
// already present are left as configured
func (p *Printer) finalizeAttrs(conf *Conf, attrs ippAttrs) {
	auth := "none"
	if conf.Authentication {
		auth = "basic"
	}

	security := "none"
	if conf.Encryption != EncryptionNever {
		security = "tls"
	}

	uri := fmt.Sprintf("ipp://%s:%d%s", conf.ServerName, conf.Port(),
		p.Resource)

	add := func(attr goipp.Attribute) {
		if _, found := attrs[attr.Name]; !found {
			p.Info.Attrs.Printer.Add(attr)
		}
	}

	add(goipp.MakeAttribute("charset-configured",
		goipp.TagCharset, goipp.String("utf-8")))
	add(goipp.MakeAttribute("charset-supported",
		goipp.TagCharset, goipp.String("utf-8")))
	add(goipp.MakeAttribute("natural-language-configured",
		goipp.TagLanguage, goipp.String("en")))
	add(goipp.MakeAttribute("generated-natural-language-supported",
		goipp.TagLanguage, goipp.String("en")))

	add(goipp.MakeAttribute("printer-name",
		goipp.TagName, goipp.String(p.Name)))
	add(goipp.MakeAttribute("printer-id",
		goipp.TagInteger, goipp.Integer(p.ID)))
	add(goipp.MakeAttribute("printer-uuid",
		goipp.TagURI, goipp.String("urn:uuid:"+p.UUID)))
	add(goipp.MakeAttribute("printer-uri-supported",
		goipp.TagURI, goipp.String(uri)))
	add(goipp.MakeAttribute("uri-authentication-supported",
		goipp.TagKeyword, goipp.String(auth)))
	add(goipp.MakeAttribute("uri-security-supported",
		goipp.TagKeyword, goipp.String(security)))

	add(goipp.MakeAttribute("printer-is-accepting-jobs",
		goipp.TagBoolean, goipp.Boolean(true)))
	add(goipp.MakeAttribute("printer-state",
		goipp.TagEnum, goipp.Integer(3))) // 3 is "idle"
	add(goipp.MakeAttribute("printer-state-reasons",
		goipp.TagKeyword, goipp.String("none")))

	if p.Info.Icon != "" {
		add(goipp.MakeAttribute("printer-icons", goipp.TagURI,
			goipp.String(fmt.Sprintf("http://%s:%d%s/icon.png",
				conf.ServerName, conf.Port(), p.Resource))))
	}

	if len(p.Info.Strings) != 0 {
		attr := goipp.Attribute{Name: "printer-strings-languages-supported"}
		for _, loc := range p.Info.Strings {
			attr.Values.Add(goipp.TagLanguage, goipp.String(loc.Lang))
		}
		add(attr)
	}
}

// AddJob appends a completed job record to the printer's history
// and returns it
func (p *Printer) AddJob(name, user string) *Job {
	p.lock.Lock()
	defer p.lock.Unlock()

	p.lastJobID++
	job := &Job{
		ID:        p.lastJobID,
		Name:      name,
		UserName:  user,
		Completed: time.Now(),
	}

	p.jobs = append(p.jobs, job)
	return job
}

// Jobs returns a snapshot of the printer's job history,
// oldest job first
func (p *Printer) Jobs() []*Job {
	p.lock.Lock()
	defer p.lock.Unlock()

	jobs := make([]*Job, len(p.jobs))
	copy(jobs, p.jobs)

	return jobs
}

// CleanJobs purges expired entries from the job history: jobs that
// completed more than JobHistoryTimeout ago and the oldest entries
// beyond the history limit.
//
// The registry sweep calls this for every printer while holding the
// registry lock, so it must not call back into the registry
func (p *Printer) CleanJobs() {
	p.lock.Lock()
	defer p.lock.Unlock()

	deadline := time.Now().Add(-JobHistoryTimeout)

	drop := 0
	for drop < len(p.jobs) && p.jobs[drop].Completed.Before(deadline) {
		drop++
	}

	if keep := len(p.jobs) - drop; p.maxHistory > 0 && keep > p.maxHistory {
		drop = len(p.jobs) - p.maxHistory
	}

	if drop > 0 {
		p.jobs = append(p.jobs[:0:0], p.jobs[drop:]...)
	}
}
