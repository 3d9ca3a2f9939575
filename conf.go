/* ippserver - IPP server for the local network
 *
 * Copyright (C) 2020 and up by Alexander Pevzner (pzz@apevzner.com)
 * See LICENSE for license terms and conditions
 *
 * Server configuration
 */

package main

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenPrinting/goipp"
)

// ConfFileName defines a name of the server configuration file,
// expected in the configuration directory
const ConfFileName = "system.conf"

// Encryption represents the TLS usage policy
type Encryption int

// Encryption policies, settable by the Encryption directive
const (
	EncryptionIfRequested Encryption = iota // Upgrade to TLS on request
	EncryptionAlways                        // Prefer TLS for all connections
	EncryptionNever                         // TLS disabled
	EncryptionRequired                      // Reject unencrypted requests
)

// String returns the policy name, as written in the configuration
func (enc Encryption) String() string {
	switch enc {
	case EncryptionIfRequested:
		return "ifrequested"
	case EncryptionAlways:
		return "always"
	case EncryptionNever:
		return "never"
	case EncryptionRequired:
		return "required"
	}
	return fmt.Sprintf("Encryption(%d)", int(enc))
}

// ConfState represents the bootstrap progress of the configuration.
//
// There is no rollback. A failed bootstrap step leaves the
// configuration in its last reached state and the whole load fails
type ConfState int

// Bootstrap states, in order of progression
const (
	ConfUninitialized  ConfState = iota // Nothing is loaded yet
	ConfSystemLoaded                    // system.conf is read
	ConfFinalized                       // Defaults are derived
	ConfDiscoveryReady                  // DNS-SD connection is up
	ConfPopulating                      // Printer scan in progress
	ConfReady                           // Configuration is complete
)

// String returns the state name for logging and status reports
func (state ConfState) String() string {
	switch state {
	case ConfUninitialized:
		return "uninitialized"
	case ConfSystemLoaded:
		return "system-loaded"
	case ConfFinalized:
		return "finalized"
	case ConfDiscoveryReady:
		return "discovery-ready"
	case ConfPopulating:
		return "populating"
	case ConfReady:
		return "ready"
	}
	return fmt.Sprintf("ConfState(%d)", int(state))
}

// Conf represents the server configuration.
//
// It is populated in a single pass over the system.conf file,
// finalized once by deriving the still-unset values from platform
// defaults and is read-only afterwards
type Conf struct {
	ConfDir  string // Configuration directory
	StateDir string // Persistent printer state directory

	ServerName  string // Advertised host name
	DefaultPort int    // Default port, 0 derives one from the uid

	Authentication    bool   // HTTP authentication is enabled
	AuthAdminGroup    string // Group ID of printer administrators
	AuthOperatorGroup string // Group ID of printer operators
	AuthName          string // Authentication realm
	AuthService       string // PAM service name
	AuthTestPassword  string // Fixed password, for testing only
	AuthType          string // HTTP authentication scheme

	DataDirectory  string // Server data directory
	SpoolDirectory string // Job spool directory
	DefaultPrinter string // Name of the default printer

	Encryption Encryption // TLS usage policy
	KeepFiles  bool       // Keep job documents after completion

	LogFile  string   // Log file path, "" for stderr
	LogLevel LogLevel // Log verbosity

	MaxJobs          int // Max active jobs per printer
	MaxCompletedJobs int // Completed jobs kept in history

	DocumentPrivacyAttributes     string // Document privacy selector
	DocumentPrivacyScope          string // Document privacy scope
	JobPrivacyAttributes          string // Job privacy selector
	JobPrivacyScope               string // Job privacy scope
	SubscriptionPrivacyAttributes string // Subscription privacy selector
	SubscriptionPrivacyScope      string // Subscription privacy scope

	Privacy      [3]*PrivacyPolicy // Resolved, indexed by PrivacyClass
	PrivacyAttrs *goipp.Message    // Privacy attributes shown to clients

	Listeners []*Listener      // Network listeners
	Registry  *PrinterRegistry // Registered printers
	State     *State           // Persistent printer state

	state ConfState // Bootstrap progress
}

// NewConf creates a new Conf with default settings
func NewConf(dir string) *Conf {
	return &Conf{
		ConfDir:          dir,
		StateDir:         PathProgStatePrinter,
		LogLevel:         LogInfo,
		MaxJobs:          MaxJobsDefault,
		MaxCompletedJobs: MaxCompletedJobsDefault,
		Registry:         &PrinterRegistry{},
	}
}

// ConfState returns the bootstrap progress of the configuration
func (conf *Conf) ConfState() ConfState {
	return conf.state
}

// Port returns the port of the primary listener, falling back to
// the default port before listeners exist
func (conf *Conf) Port() int {
	if len(conf.Listeners) != 0 {
		return conf.Listeners[0].Port
	}
	return conf.DefaultPort
}

// Load runs the bootstrap pipeline: read system.conf, derive the
// remaining defaults, bring up the DNS-SD connection and scan the
// printer directories. Failure of any step but the printer scans
// aborts the sequence; a bad printer file is logged and skipped
func (conf *Conf) Load() error {
	err := conf.loadSystem(filepath.Join(conf.ConfDir, ConfFileName))
	if err != nil {
		return err
	}
	conf.state = ConfSystemLoaded

	err = conf.Finalize()
	if err != nil {
		return err
	}
	conf.state = ConfFinalized

	err = DNSSdInit()
	if err != nil {
		return err
	}
	conf.state = ConfDiscoveryReady

	conf.state = ConfPopulating
	conf.scanPrinters("print", ResourcePrint, false)
	conf.scanPrinters("print3d", ResourcePrint3D, true)
	conf.state = ConfReady

	return nil
}

// loadSystem reads the system.conf file. A missing file is not an
// error; all defaults apply.
//
// Unknown directives are logged and skipped. Any other problem,
// including a missing value, is fatal for the whole load
func (conf *Conf) loadSystem(path string) error {
	file, err := ConfOpen(path)
	if err != nil {
		if os.IsNotExist(err) {
			err = nil
		}
		return err
	}

	defer file.Close()

	for {
		rec, err := file.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if rec.Value == "" {
			return &ConfError{rec.File, rec.Line, "missing value"}
		}

		switch strings.ToLower(rec.Directive) {
		case "authentication":
			err = confLoadBool(&conf.Authentication, rec)
		case "authadmingroup":
			err = confLoadGroup(&conf.AuthAdminGroup, rec)
		case "authname":
			conf.AuthName = rec.Value
		case "authoperatorgroup":
			err = confLoadGroup(&conf.AuthOperatorGroup, rec)
		case "authservice":
			conf.AuthService = rec.Value
		case "authtestpassword":
			conf.AuthTestPassword = rec.Value
		case "authtype":
			conf.AuthType = rec.Value
		case "datadirectory":
			err = confLoadDirectory(&conf.DataDirectory, rec)
		case "defaultprinter":
			err = confLoadOnce(&conf.DefaultPrinter, rec)
		case "documentprivacyattributes":
			err = confLoadOnce(&conf.DocumentPrivacyAttributes, rec)
		case "documentprivacyscope":
			err = confLoadScope(&conf.DocumentPrivacyScope, rec)
		case "encryption":
			err = confLoadEncryption(&conf.Encryption, rec)
		case "jobprivacyattributes":
			err = confLoadOnce(&conf.JobPrivacyAttributes, rec)
		case "jobprivacyscope":
			err = confLoadScope(&conf.JobPrivacyScope, rec)
		case "keepfiles":
			err = confLoadBool(&conf.KeepFiles, rec)
		case "listen":
			err = conf.listen(rec)
		case "logfile":
			if strings.EqualFold(rec.Value, "stderr") {
				conf.LogFile = ""
			} else {
				conf.LogFile = rec.Value
			}
		case "loglevel":
			err = confLoadLogLevel(&conf.LogLevel, rec)
		case "maxcompletedjobs":
			err = confLoadCount(&conf.MaxCompletedJobs, rec)
		case "maxjobs":
			err = confLoadCount(&conf.MaxJobs, rec)
		case "spooldirectory":
			err = confLoadDirectory(&conf.SpoolDirectory, rec)
		case "subscriptionprivacyattributes":
			err = confLoadOnce(&conf.SubscriptionPrivacyAttributes, rec)
		case "subscriptionprivacyscope":
			err = confLoadScope(&conf.SubscriptionPrivacyScope, rec)
		default:
			Log.Error('!', "%s:%d: Unknown directive %q",
				rec.File, rec.Line, rec.Directive)
		}

		if err != nil {
			return err
		}
	}
}

// listen handles the Listen directive. The value is address[:port];
// "*" binds all interfaces, a missing port derives one from the uid.
// The listener is registered immediately; a registration failure
// aborts the whole load
func (conf *Conf) listen(rec *ConfRecord) error {
	host := rec.Value
	port := 0

	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		p, err := strconv.Atoi(host[i+1:])
		if err != nil || p < 1 || p > 65535 {
			return confBadValue(rec, "bad port %q", host[i+1:])
		}

		host, port = host[:i], p
	} else {
		port = 8000 + os.Getuid()%1000
	}

	if host == "*" {
		host = ""
	}

	l, err := NewListener(host, port)
	if err != nil {
		return confBadValue(rec, "%s", err)
	}

	conf.Listeners = append(conf.Listeners, l)
	return nil
}

// Finalize derives the still-unset configuration values: the host
// name, data and spool directories, authentication defaults, the
// privacy policies, persistent state and the default listener.
//
// It is intended to run exactly once, after loadSystem
func (conf *Conf) Finalize() error {
	// Default host name
	if conf.ServerName == "" {
		name, err := os.Hostname()
		if err != nil || name == "" {
			name = "localhost"
		}
		conf.ServerName = name
	}

	// Default directories
	if conf.DataDirectory == "" {
		tmpdir := os.Getenv("TMPDIR")
		if tmpdir == "" {
			tmpdir = "/tmp"
		}

		dir := filepath.Join(tmpdir, fmt.Sprintf("ippserver.%d", os.Getpid()))

		err := os.Mkdir(dir, 0755)
		if err != nil && !os.IsExist(err) {
			return fmt.Errorf(
				"Unable to create default data directory %q: %s",
				dir, err)
		}

		Log.Info(' ', "Using default data directory %q", dir)
		conf.DataDirectory = dir
	}

	if conf.SpoolDirectory == "" {
		conf.SpoolDirectory = conf.DataDirectory
		Log.Info(' ', "Using default spool directory %q", conf.SpoolDirectory)
	}

	// Authentication defaults
	if conf.Authentication {
		if conf.AuthAdminGroup == "" {
			conf.AuthAdminGroup = confWheelGroup()
		}
		if conf.AuthOperatorGroup == "" {
			conf.AuthOperatorGroup = strconv.Itoa(os.Getgid())
		}
		if conf.AuthName == "" {
			conf.AuthName = "Printing"
		}
		if conf.AuthService == "" && conf.AuthTestPassword == "" {
			conf.AuthService = "cups"
		}
		if conf.AuthType == "" {
			conf.AuthType = "Basic"
		}
	}

	// Privacy policies. Without authentication everything is
	// public; with authentication the reference defaults apply
	scope, attrs := "all", "none"
	if conf.Authentication {
		scope, attrs = "default", "default"
	}

	if conf.DocumentPrivacyScope == "" {
		conf.DocumentPrivacyScope = scope
	}
	if conf.DocumentPrivacyAttributes == "" {
		conf.DocumentPrivacyAttributes = attrs
	}
	if conf.JobPrivacyScope == "" {
		conf.JobPrivacyScope = scope
	}
	if conf.JobPrivacyAttributes == "" {
		conf.JobPrivacyAttributes = attrs
	}
	if conf.SubscriptionPrivacyScope == "" {
		conf.SubscriptionPrivacyScope = scope
	}
	if conf.SubscriptionPrivacyAttributes == "" {
		conf.SubscriptionPrivacyAttributes = attrs
	}

	conf.Privacy[PrivacyDocument] = ResolvePrivacy(PrivacyDocument,
		conf.DocumentPrivacyScope, conf.DocumentPrivacyAttributes)
	conf.Privacy[PrivacyJob] = ResolvePrivacy(PrivacyJob,
		conf.JobPrivacyScope, conf.JobPrivacyAttributes)
	conf.Privacy[PrivacySubscription] = ResolvePrivacy(PrivacySubscription,
		conf.SubscriptionPrivacyScope, conf.SubscriptionPrivacyAttributes)

	msg := &goipp.Message{Version: goipp.DefaultVersion}
	for _, pol := range conf.Privacy {
		msg.Printer = append(msg.Printer, pol.Attributes()...)
	}
	conf.PrivacyAttrs = msg

	// Persistent printer state
	if conf.State == nil {
		conf.State = OpenState(conf.StateDir)
	}

	// Default listener
	if len(conf.Listeners) == 0 {
		port := conf.DefaultPort
		if port == 0 {
			port = 8000 + os.Getuid()%1000
		}

		Log.Info(' ', "Using default listeners for %s:%d",
			conf.ServerName, port)

		host := ""
		if conf.ServerName == "localhost" {
			host = "localhost"
		}

		l, err := NewListener(host, port)
		if err != nil {
			return err
		}

		conf.Listeners = append(conf.Listeners, l)
		conf.DefaultPort = port
	}

	return nil
}

// scanPrinters reads a printer configuration subdirectory and
// registers a printer for every name.conf file found there, using
// name.png, if openable, as the printer icon.
//
// A missing or unreadable directory means no printers of that
// class. A bad printer file is logged and skipped
func (conf *Conf) scanPrinters(subdir, prefix string, is3d bool) {
	dir := filepath.Join(conf.ConfDir, subdir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	if is3d {
		Log.Info(' ', "Loading 3D printers from %q", dir)
	} else {
		Log.Info(' ', "Loading printers from %q", dir)
	}

	for _, ent := range entries {
		name := ent.Name()

		if !strings.HasSuffix(name, ".conf") {
			if !strings.Contains(name, ".png") {
				Log.Info(' ', "Skipping %q", name)
			}
			continue
		}

		if is3d {
			Log.Info(' ', "Loading 3D printer from %q", name)
		} else {
			Log.Info(' ', "Loading printer from %q", name)
		}

		base := strings.TrimSuffix(name, ".conf")
		pinfo := &PrinterInfo{}

		icon := filepath.Join(dir, base+".png")
		if f, err := os.Open(icon); err == nil {
			f.Close()
			pinfo.Icon = icon
		}

		err := pinfo.Load(filepath.Join(dir, name))
		if err != nil {
			Log.Error('!', "%s", err)
			continue
		}

		p := NewPrinter(conf, prefix+"/"+base, base, is3d, pinfo)
		conf.Registry.Add(p)
	}
}

// confBadValue creates an error for a directive with a bad value
func confBadValue(rec *ConfRecord, format string, args ...interface{}) error {
	return &ConfError{
		File:    rec.File,
		Line:    rec.Line,
		Message: rec.Directive + ": " + fmt.Sprintf(format, args...),
	}
}

// confLoadBool loads a boolean directive
func confLoadBool(out *bool, rec *ConfRecord) error {
	switch strings.ToLower(rec.Value) {
	case "on", "yes":
		*out = true
	case "off", "no":
		*out = false
	default:
		return confBadValue(rec, "must be on, yes, off or no")
	}
	return nil
}

// confLoadGroup loads a group directive, resolving the group name
// into the numeric group ID via the system group database
func confLoadGroup(out *string, rec *ConfRecord) error {
	grp, err := user.LookupGroup(rec.Value)
	if err != nil {
		return confBadValue(rec, "unknown group %q", rec.Value)
	}

	*out = grp.Gid
	return nil
}

// confLoadOnce loads a string directive that may appear at most once
func confLoadOnce(out *string, rec *ConfRecord) error {
	if *out != "" {
		return confBadValue(rec, "appears more than once")
	}

	*out = rec.Value
	return nil
}

// confLoadScope loads a privacy scope directive
func confLoadScope(out *string, rec *ConfRecord) error {
	if *out != "" {
		return confBadValue(rec, "appears more than once")
	}

	switch strings.ToLower(rec.Value) {
	case "all", "default", "owner", "none":
		*out = strings.ToLower(rec.Value)
		return nil
	}

	return confBadValue(rec, "must be all, default, owner or none")
}

// confLoadDirectory loads a directory path directive, verifying
// that the directory can be opened
func confLoadDirectory(out *string, rec *ConfRecord) error {
	dir, err := os.Open(rec.Value)
	if err != nil {
		return confBadValue(rec, "%s", err)
	}
	dir.Close()

	*out = rec.Value
	return nil
}

// confLoadCount loads a non-negative integer directive
func confLoadCount(out *int, rec *ConfRecord) error {
	n, err := strconv.Atoi(rec.Value)
	if err != nil || n < 0 {
		return confBadValue(rec, "must be a non-negative number")
	}

	*out = n
	return nil
}

// confLoadEncryption loads the Encryption directive
func confLoadEncryption(out *Encryption, rec *ConfRecord) error {
	switch strings.ToLower(rec.Value) {
	case "always":
		*out = EncryptionAlways
	case "ifrequested":
		*out = EncryptionIfRequested
	case "never":
		*out = EncryptionNever
	case "required":
		*out = EncryptionRequired
	default:
		return confBadValue(rec, "must be always, ifrequested, never or required")
	}
	return nil
}

// confLoadLogLevel loads the LogLevel directive
func confLoadLogLevel(out *LogLevel, rec *ConfRecord) error {
	level, ok := LogLevelByName(rec.Value)
	if !ok {
		return confBadValue(rec, "must be error, info or debug")
	}

	*out = level
	return nil
}

// confWheelGroup returns the group ID of the system administrative
// group. The name differs between distributions; gid 0 is the
// fallback
func confWheelGroup() string {
	for _, name := range []string{"wheel", "root"} {
		if grp, err := user.LookupGroup(name); err == nil {
			return grp.Gid
		}
	}
	return "0"
}
