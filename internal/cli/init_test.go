package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunInit_CreatesFiles(t *testing.T) {
	tmpDir := t.TempDir()

	origHome := os.Getenv("HOME")
	t.Setenv("HOME", tmpDir)
	defer func() { _ = os.Setenv("HOME", origHome) }()

	initForce = false

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	dir := filepath.Join(tmpDir, ".fleetwatch")

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("config.yaml not created: %v", err)
	}
	if !strings.Contains(string(data), "devices_file:") {
		t.Error("config.yaml missing devices_file")
	}
	if !strings.Contains(string(data), filepath.Join(dir, "block.cfg")) {
		t.Error("config.yaml blocklist path not anchored to config dir")
	}

	data, err = os.ReadFile(filepath.Join(dir, "block.cfg"))
	if err != nil {
		t.Fatalf("block.cfg not created: %v", err)
	}
	if !strings.Contains(string(data), "set system root-authentication") {
		t.Error("block.cfg missing root-authentication rule")
	}

	data, err = os.ReadFile(filepath.Join(dir, "block.cmd"))
	if err != nil {
		t.Fatalf("block.cmd not created: %v", err)
	}
	if !strings.Contains(string(data), "request system reboot") {
		t.Error("block.cmd missing reboot rule")
	}

	data, err = os.ReadFile(filepath.Join(dir, "devices.json"))
	if err != nil {
		t.Fatalf("devices.json not created: %v", err)
	}
	if !strings.Contains(string(data), "router1") {
		t.Error("devices.json missing example router")
	}
}

func TestRunInit_NoOverwriteWithoutForce(t *testing.T) {
	tmpDir := t.TempDir()

	origHome := os.Getenv("HOME")
	t.Setenv("HOME", tmpDir)
	defer func() { _ = os.Setenv("HOME", origHome) }()

	dir := filepath.Join(tmpDir, ".fleetwatch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	// Pre-create config.yaml with sentinel content.
	sentinel := "# sentinel content\n"
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	initForce = false

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	// config.yaml should NOT be overwritten.
	data, _ := os.ReadFile(cfgPath)
	if string(data) != sentinel {
		t.Error("config.yaml was overwritten without --force")
	}
}

func TestRunInit_ForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()

	origHome := os.Getenv("HOME")
	t.Setenv("HOME", tmpDir)
	defer func() { _ = os.Setenv("HOME", origHome) }()

	dir := filepath.Join(tmpDir, ".fleetwatch")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	sentinel := "# sentinel content\n"
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(sentinel), 0o644); err != nil {
		t.Fatal(err)
	}

	initForce = true
	defer func() { initForce = false }()

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	// config.yaml SHOULD be overwritten.
	data, _ := os.ReadFile(cfgPath)
	if string(data) == sentinel {
		t.Error("config.yaml was NOT overwritten with --force")
	}
}

func TestWriteIfMissing(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.txt")

	// First write should succeed.
	initForce = false
	wrote, err := writeIfMissing(path, "hello")
	if err != nil {
		t.Fatalf("first write failed: %v", err)
	}
	if !wrote {
		t.Error("first write should return true")
	}

	// Second write without force should skip.
	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("second write failed: %v", err)
	}
	if wrote {
		t.Error("second write should return false without force")
	}

	// Content should still be original.
	data, _ := os.ReadFile(path)
	if string(data) != "hello" {
		t.Errorf("content changed without force: %q", string(data))
	}

	// With force, should overwrite.
	initForce = true
	defer func() { initForce = false }()
	wrote, err = writeIfMissing(path, "world")
	if err != nil {
		t.Fatalf("force write failed: %v", err)
	}
	if !wrote {
		t.Error("force write should return true")
	}
	data, _ = os.ReadFile(path)
	if string(data) != "world" {
		t.Errorf("force write didn't overwrite: %q", string(data))
	}
}
