/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Output device verification, used by the "-check" run mode
 */

package main

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/gousb"
)

// UsbURI represents a parsed usb:// device URI:
//
//	usb://Manufacturer/Product?serial=Serial
//
// Manufacturer and product are percent-decoded; the serial number
// is optional
type UsbURI struct {
	Manufacturer string // Manufacturer name
	Product      string // Product name
	Serial       string // Serial number, "" if not given
}

// ParseUsbURI parses an usb:// device URI.
//
// The authority part is split by hand. URIs of this scheme
// percent-encode spaces in the manufacturer name, which url.Parse
// does not accept in the host component
func ParseUsbURI(uri string) (*UsbURI, error) {
	if len(uri) < 6 || !strings.EqualFold(uri[:6], "usb://") {
		return nil, fmt.Errorf("%q: not an usb:// URI", uri)
	}

	rest := uri[6:]

	query := ""
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		rest, query = rest[:i], rest[i+1:]
	}

	var mfg, product string
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		mfg, product = rest[:i], rest[i+1:]
	} else {
		mfg = rest
	}

	if s, err := url.PathUnescape(mfg); err == nil {
		mfg = s
	}
	if s, err := url.PathUnescape(product); err == nil {
		product = s
	}

	if mfg == "" || product == "" {
		return nil, fmt.Errorf(
			"%q: usb:// URI must be usb://manufacturer/product", uri)
	}

	q, _ := url.ParseQuery(query)

	return &UsbURI{
		Manufacturer: mfg,
		Product:      product,
		Serial:       q.Get("serial"),
	}, nil
}

// Find searches the device list for a device matching the URI.
// Manufacturer and product match case-insensitively; the serial
// number, when present in the URI, must match as well
func (u *UsbURI) Find(devs []UsbPrinterDev) *UsbPrinterDev {
	for i := range devs {
		dev := &devs[i]

		if !strings.EqualFold(u.Manufacturer, dev.Manufacturer) ||
			!strings.EqualFold(u.Product, dev.Product) {
			continue
		}

		if u.Serial != "" && !strings.EqualFold(u.Serial, dev.Serial) {
			continue
		}

		return dev
	}

	return nil
}

// UsbPrinterDev describes a connected USB printer device
type UsbPrinterDev struct {
	Bus          int    // The bus on which the device was detected
	Address      int    // The address of the device on the bus
	Manufacturer string // Manufacturer string descriptor
	Product      string // Product string descriptor
	Serial       string // Serial number string descriptor
}

// String returns a human-readable representation of the device
func (dev UsbPrinterDev) String() string {
	return fmt.Sprintf("Bus %.3d Device %.3d: %q %q",
		dev.Bus, dev.Address, dev.Manufacturer, dev.Product)
}

// usbIsPrinter tells if the device has at least one printer-class
// interface
func usbIsPrinter(desc *gousb.DeviceDesc) bool {
	for _, conf := range desc.Configs {
		for _, iface := range conf.Interfaces {
			for _, alt := range iface.AltSettings {
				if alt.Class == gousb.ClassPrinter {
					return true
				}
			}
		}
	}

	return false
}

// UsbGetPrinterDevs enumerates connected USB printer devices.
// Devices are briefly opened to fetch their string descriptors;
// devices that cannot be opened are silently skipped
func UsbGetPrinterDevs() ([]UsbPrinterDev, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return usbIsPrinter(desc)
	})

	if err != nil && len(devs) == 0 {
		return nil, err
	}

	ok := func(s string, err error) string {
		if err == nil {
			return s
		}
		return ""
	}

	list := make([]UsbPrinterDev, 0, len(devs))
	for _, dev := range devs {
		list = append(list, UsbPrinterDev{
			Bus:          dev.Desc.Bus,
			Address:      dev.Desc.Address,
			Manufacturer: ok(dev.Manufacturer()),
			Product:      ok(dev.Product()),
			Serial:       ok(dev.SerialNumber()),
		})

		dev.Close()
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Bus != list[j].Bus {
			return list[i].Bus < list[j].Bus
		}
		return list[i].Address < list[j].Address
	})

	return list, nil
}

// CheckPrinters verifies the output device of every registered
// printer and reports the results to the log. For usb:// URIs the
// bus is searched for a matching device; URIs of other schemes are
// only checked syntactically.
//
// It returns the number of printers whose device is bad or missing
func CheckPrinters(conf *Conf) int {
	var devs []UsbPrinterDev
	devsLoaded := false
	missed := 0

	for _, p := range conf.Registry.Printers() {
		uri := p.Info.DeviceURI
		if uri == "" {
			continue
		}

		if len(uri) < 6 || !strings.EqualFold(uri[:6], "usb://") {
			u, err := url.Parse(uri)
			if err != nil || u.Scheme == "" {
				Log.Info('!', "%s: bad device URI %q", p.Name, uri)
				missed++
			} else {
				Log.Info(' ', "%s: %s", p.Name, uri)
			}
			continue
		}

		usburi, err := ParseUsbURI(uri)
		if err != nil {
			Log.Info('!', "%s: %s", p.Name, err)
			missed++
			continue
		}

		if !devsLoaded {
			devsLoaded = true
			devs, err = UsbGetPrinterDevs()
			if err != nil {
				Log.Info('!', "Can't read list of USB devices: %s", err)
			}
		}

		if dev := usburi.Find(devs); dev != nil {
			Log.Info(' ', "%s: found %s", p.Name, dev)
		} else {
			Log.Info('!', "%s: device not connected: %s", p.Name, uri)
			missed++
		}
	}

	return missed
}
