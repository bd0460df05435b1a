// Package config loads the config.ini describing the two managed license
// services. The file uses %(key)s references so launch_args can point at the
// license and log paths without repeating them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"licman/internal/services"
)

const (
	KeyAutodesk = "autodesk"
	KeyZoo      = "zoo"

	defaultFileName = "config.ini"
)

const defaultINI = `[Autodesk]
service_name = AutodeskLicenseServer
process_names = lmgrd.exe, adskflex.exe
working_dir = C:\Autodesk
lmgrd_path = C:\Autodesk\lmgrd.exe
license_file = C:\Autodesk\SERVER1.lic
log_file = C:\Autodesk\logs\AutodeskLicenseLog.log
launch_args = -z -c %(license_file)s -l %(log_file)s

[Zoo]
service_name = McNeelZoo8
admin_exe = C:\Program Files (x86)\Zoo 8\ZooAdmin.Wpf.exe

[UI]
refresh_ms = 5000

[CLI]
allow_non_admin_cli = 1
`

// Config is the immutable view of config.ini, constructed once at startup
// and passed by reference into the probe, controller, and tailer wiring.
type Config struct {
	Path    string
	Created bool

	Autodesk services.ServiceDefinition
	Zoo      services.ServiceDefinition

	RefreshInterval  time.Duration
	AllowNonAdminCLI bool
}

// DefaultPath is config.ini next to the binary.
func DefaultPath() string {
	exe, err := os.Executable()
	if err != nil {
		return defaultFileName
	}
	return filepath.Join(filepath.Dir(exe), defaultFileName)
}

// Load reads the file at path, or DefaultPath() when path is empty. A
// missing file is written with defaults first and flagged via Created so the
// caller can warn.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	created := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, []byte(defaultINI), 0644); err != nil {
			return nil, services.ConfigInvalidError{Path: path, Cause: fmt.Errorf("creating default config: %w", err)}
		}
		created = true
	}

	file, err := ini.Load(path)
	if err != nil {
		return nil, services.ConfigInvalidError{Path: path, Cause: err}
	}

	cfg := &Config{Path: path, Created: created}

	autodesk := file.Section("Autodesk")
	cfg.Autodesk = services.ServiceDefinition{
		Key:            KeyAutodesk,
		Name:           autodesk.Key("service_name").MustString("AutodeskLicenseServer"),
		ProcessNames:   splitList(autodesk.Key("process_names").MustString("lmgrd.exe, adskflex.exe")),
		WorkingDir:     autodesk.Key("working_dir").String(),
		ExecutablePath: autodesk.Key("lmgrd_path").String(),
		LicenseFile:    autodesk.Key("license_file").String(),
		LogFilePath:    autodesk.Key("log_file").String(),
		LaunchArgs:     splitArgs(autodesk.Key("launch_args").String()),
	}

	zoo := file.Section("Zoo")
	cfg.Zoo = services.ServiceDefinition{
		Key:          KeyZoo,
		Name:         zoo.Key("service_name").MustString("McNeelZoo8"),
		ProcessNames: splitList(zoo.Key("process_names").String()),
		AdminExePath: zoo.Key("admin_exe").String(),
		LogFilePath:  zoo.Key("log_file").String(),
	}

	if cfg.Autodesk.Name == "" || cfg.Zoo.Name == "" {
		return nil, services.ConfigInvalidError{Path: path, Cause: fmt.Errorf("service_name must not be empty")}
	}

	refreshMs := file.Section("UI").Key("refresh_ms").MustInt(5000)
	if refreshMs <= 0 {
		return nil, services.ConfigInvalidError{Path: path, Cause: fmt.Errorf("refresh_ms must be positive, got %d", refreshMs)}
	}
	cfg.RefreshInterval = time.Duration(refreshMs) * time.Millisecond

	cfg.AllowNonAdminCLI = file.Section("CLI").Key("allow_non_admin_cli").MustBool(true)

	return cfg, nil
}

// Services returns the managed definitions in presentation order.
func (c *Config) Services() []services.ServiceDefinition {
	return []services.ServiceDefinition{c.Autodesk, c.Zoo}
}

// Service looks a definition up by key.
func (c *Config) Service(key string) (services.ServiceDefinition, bool) {
	switch key {
	case KeyAutodesk:
		return c.Autodesk, true
	case KeyZoo:
		return c.Zoo, true
	}
	return services.ServiceDefinition{}, false
}

// Keys returns the known service keys.
func (c *Config) Keys() []string {
	return []string{KeyAutodesk, KeyZoo}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitArgs splits a launch_args value on whitespace, honoring double
// quotes around paths that contain spaces.
func splitArgs(s string) []string {
	var args []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			args = append(args, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case !inQuotes && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return args
}
