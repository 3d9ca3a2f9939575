/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * ippserver status support
 */

package main

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
)

// StatusRetrieve connects to the running ippserver daemon, retrieves
// its status and returns retrieved status as a printable text
func StatusRetrieve() ([]byte, error) {
	t := &http.Transport{
		Dial: func(network, addr string) (net.Conn, error) {
			return CtrlsockDial()
		},
	}

	c := &http.Client{
		Transport: t,
	}

	rsp, err := c.Get("http://localhost/status")
	if err != nil {
		return nil, err
	}

	defer rsp.Body.Close()

	return ioutil.ReadAll(rsp.Body)
}

// StatusFormat formats ippserver status as a text
func StatusFormat(conf *Conf) string {
	buf := &bytes.Buffer{}

	// Dump ippserver daemon status. If we are here, we are
	// definitely running :-)
	fmt.Fprintf(buf, "ippserver daemon %s: running, configuration %s\n",
		Version, conf.ConfState())

	for _, l := range conf.Listeners {
		fmt.Fprintf(buf, "listening on %s\n", l.Addr())
	}

	// Format per-printer status
	printers := conf.Registry.Printers()

	buf.WriteString("ippserver printers:")
	if len(printers) == 0 {
		buf.WriteString(" not found\n")
	} else {
		buf.WriteString("\n")
		fmt.Fprintf(buf, " Num  Resource                  ID     Jobs  Name\n")
		for i, p := range printers {
			fmt.Fprintf(buf, " %3d. %-24s  %-5d  %-4d  %q\n",
				i+1, p.Resource, p.ID, len(p.Jobs()), p.DNSSdName)
		}
	}

	return buf.String()
}

// statusPrinter formats a single printer status as a text.
// This is what the printer's resource path responds with when
// probed with a plain GET request
func statusPrinter(w io.Writer, p *Printer) {
	kind := "printer"
	if p.Is3D {
		kind = "3D printer"
	}

	fmt.Fprintf(w, "%s %q at %s\n", kind, p.DNSSdName, p.Resource)
	fmt.Fprintf(w, "  printer-id:     %d\n", p.ID)
	fmt.Fprintf(w, "  printer-uuid:   urn:uuid:%s\n", p.UUID)

	if p.Info.Make != "" || p.Info.Model != "" {
		fmt.Fprintf(w, "  make-and-model: %s %s\n", p.Info.Make, p.Info.Model)
	}

	if p.Info.DeviceURI != "" {
		fmt.Fprintf(w, "  device-uri:     %s\n", p.Info.DeviceURI)
	}

	if p.Info.Command != "" {
		fmt.Fprintf(w, "  command:        %s\n", p.Info.Command)
	}

	if p.Info.OutputFormat != "" {
		fmt.Fprintf(w, "  output-format:  %s\n", p.Info.OutputFormat)
	}

	jobs := p.Jobs()
	fmt.Fprintf(w, "  completed jobs: %d\n", len(jobs))

	for _, job := range jobs {
		fmt.Fprintf(w, "  %5d  %q by %q, completed %s\n",
			job.ID, job.Name, job.UserName,
			job.Completed.Format("2006-01-02 15:04:05"))
	}
}
