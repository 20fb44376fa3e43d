package startup

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Service describes the daemon to start at boot
type Service struct {
	Name string   // Short name, used for the unit/plist/registry value
	Exec string   // Absolute path of the binary
	Args []string // Arguments passed on every start
}

// Daemon describes the running binary as a service started with args
func Daemon(name string, args ...string) (Service, error) {
	execPath, err := os.Executable()
	if err != nil {
		return Service{}, fmt.Errorf("locate executable: %w", err)
	}
	return Service{Name: name, Exec: execPath, Args: args}, nil
}

// Enable registers the service to launch at system startup
func Enable(s Service) error {
	switch runtime.GOOS {
	case "darwin":
		return enableMacOS(s)
	case "linux":
		return enableLinux(s)
	case "windows":
		return enableWindows(s)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// Disable removes the service from system startup
func Disable(s Service) error {
	switch runtime.GOOS {
	case "darwin":
		return disableMacOS(s)
	case "linux":
		return disableLinux(s)
	case "windows":
		return disableWindows(s)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// IsEnabled checks if the service is registered for startup
func IsEnabled(s Service) bool {
	switch runtime.GOOS {
	case "darwin":
		return isEnabledMacOS(s)
	case "linux":
		return isEnabledLinux(s)
	case "windows":
		return isEnabledWindows(s)
	default:
		return false
	}
}

func removeIfExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Already disabled
	}
	return os.Remove(path)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// --- macOS Implementation ---

func macOSLabel(s Service) string { return "com.pixpmusic." + s.Name }

func macOSPlistPath(s Service) string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents", macOSLabel(s)+".plist")
}

func macOSPlist(s Service) string {
	var args strings.Builder
	for _, a := range append([]string{s.Exec}, s.Args...) {
		fmt.Fprintf(&args, "        <string>%s</string>\n", a)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
%s    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
</dict>
</plist>
`, macOSLabel(s), args.String())
}

func enableMacOS(s Service) error {
	return writeFile(macOSPlistPath(s), macOSPlist(s))
}

func disableMacOS(s Service) error {
	return removeIfExists(macOSPlistPath(s))
}

func isEnabledMacOS(s Service) bool {
	_, err := os.Stat(macOSPlistPath(s))
	return err == nil
}

// --- Linux Implementation ---

// The pedal host is usually headless, so this is a systemd user unit
// rather than a desktop autostart entry.
func linuxUnitPath(s Service) string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "systemd", "user", s.Name+".service")
}

func systemdQuote(arg string) string {
	if strings.ContainsAny(arg, " \t\"'\\") {
		return strconv.Quote(arg)
	}
	return arg
}

func linuxUnit(s Service) string {
	cmd := []string{systemdQuote(s.Exec)}
	for _, a := range s.Args {
		cmd = append(cmd, systemdQuote(a))
	}
	return fmt.Sprintf(`[Unit]
Description=%s foot controller
After=sound.target

[Service]
ExecStart=%s
Restart=on-failure
RestartSec=2

[Install]
WantedBy=default.target
`, s.Name, strings.Join(cmd, " "))
}

// systemctl runs a user-level systemctl command when systemd is present
func systemctl(args ...string) error {
	path, err := exec.LookPath("systemctl")
	if err != nil {
		return nil // No systemd; the unit file is still written
	}
	out, err := exec.Command(path, append([]string{"--user"}, args...)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func enableLinux(s Service) error {
	if err := writeFile(linuxUnitPath(s), linuxUnit(s)); err != nil {
		return err
	}
	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	return systemctl("enable", s.Name+".service")
}

func disableLinux(s Service) error {
	if !isEnabledLinux(s) {
		return nil
	}
	if err := systemctl("disable", s.Name+".service"); err != nil {
		return err
	}
	return removeIfExists(linuxUnitPath(s))
}

func isEnabledLinux(s Service) bool {
	_, err := os.Stat(linuxUnitPath(s))
	return err == nil
}

// --- Windows Implementation ---

const windowsRegistryKey = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`

func windowsCommand(s Service) string {
	parts := []string{strconv.Quote(s.Exec)}
	for _, a := range s.Args {
		if strings.ContainsAny(a, " \t") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func enableWindows(s Service) error {
	// Use reg.exe to add the registry key
	cmd := exec.Command("reg", "add", windowsRegistryKey,
		"/v", s.Name,
		"/t", "REG_SZ",
		"/d", windowsCommand(s),
		"/f")
	return cmd.Run()
}

func disableWindows(s Service) error {
	cmd := exec.Command("reg", "delete", windowsRegistryKey,
		"/v", s.Name,
		"/f")
	output, err := cmd.CombinedOutput()
	// Ignore error if the key doesn't exist
	if err != nil && !strings.Contains(string(output), "The system was unable to find the specified registry key or value") {
		return err
	}
	return nil
}

func isEnabledWindows(s Service) bool {
	cmd := exec.Command("reg", "query", windowsRegistryKey,
		"/v", s.Name)
	err := cmd.Run()
	return err == nil
}
