// Package inventory loads the devices.json fleet inventory.
//
// The inventory is read once at startup and treated as read-only for the
// life of the process. Credentials stay inside the process: anything
// surfaced to callers goes through Redacted.
package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Auth method names used in device entries.
const (
	AuthPassword = "password"
	AuthSSHKey   = "ssh_key"
)

// Auth holds device credentials. The secret field in use depends on Type.
type Auth struct {
	Type           string `json:"type"`
	Password       string `json:"password,omitempty"`
	PrivateKeyPath string `json:"private_key_path,omitempty"`
}

// Device is one inventory entry.
type Device struct {
	Name      string
	IP        string
	Port      int
	Username  string
	SSHConfig string
	Auth      Auth

	// Meta carries every field the inventory author added beyond the
	// reserved ones (model, site, role, ...).
	Meta map[string]any
}

// Addr returns the host:port dial target.
func (d Device) Addr() string {
	return fmt.Sprintf("%s:%d", d.IP, d.Port)
}

type entry struct {
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	SSHConfig string `json:"ssh_config"`
	Auth      Auth   `json:"auth"`
}

// reservedKeys have fixed meaning; every other key is caller metadata.
var reservedKeys = map[string]bool{
	"ip":         true,
	"port":       true,
	"username":   true,
	"ssh_config": true,
	"auth":       true,
}

// Directory is the loaded device inventory.
type Directory struct {
	devices map[string]Device
	names   []string
}

// Load reads a devices.json inventory file. An unreadable file is fatal,
// not a per-device failure.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device directory: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("device directory %s: %w", path, err)
	}
	return d, nil
}

// Parse builds a Directory from inventory JSON keyed by device name.
func Parse(data []byte) (*Directory, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}

	d := &Directory{devices: make(map[string]Device, len(raw))}
	for name, body := range raw {
		var e entry
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("device %q: %w", name, err)
		}
		if e.IP == "" {
			return nil, fmt.Errorf("device %q: missing ip", name)
		}
		if e.Username == "" {
			return nil, fmt.Errorf("device %q: missing username", name)
		}
		if e.Port == 0 {
			e.Port = 22
		}

		var all map[string]any
		if err := json.Unmarshal(body, &all); err != nil {
			return nil, fmt.Errorf("device %q: %w", name, err)
		}
		meta := make(map[string]any)
		for k, v := range all {
			if !reservedKeys[k] {
				meta[k] = v
			}
		}

		d.devices[name] = Device{
			Name:      name,
			IP:        e.IP,
			Port:      e.Port,
			Username:  e.Username,
			SSHConfig: e.SSHConfig,
			Auth:      e.Auth,
			Meta:      meta,
		}
		d.names = append(d.names, name)
	}
	sort.Strings(d.names)
	return d, nil
}

// Lookup returns the named device.
func (d *Directory) Lookup(name string) (Device, bool) {
	dev, ok := d.devices[name]
	return dev, ok
}

// Names returns every device name, sorted.
func (d *Directory) Names() []string {
	return append([]string(nil), d.names...)
}

// Len returns the number of devices.
func (d *Directory) Len() int {
	return len(d.devices)
}

// Redacted returns the inventory as it may be shown to callers: ip, port,
// username, auth type, and caller metadata survive; passwords, private key
// paths, and ssh_config never leave the process. The returned maps are
// fresh; the loaded inventory is not touched.
func (d *Directory) Redacted() map[string]map[string]any {
	out := make(map[string]map[string]any, len(d.devices))
	for name, dev := range d.devices {
		e := map[string]any{
			"ip":       dev.IP,
			"port":     dev.Port,
			"username": dev.Username,
			"auth":     map[string]any{"type": dev.Auth.Type},
		}
		for k, v := range dev.Meta {
			e[k] = v
		}
		out[name] = e
	}
	return out
}
