// Package allowlist decides which shell commands an agent will run on
// behalf of the hub. Anything not mapped here is refused.
package allowlist

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// CommandSpec is a validated command ready for execution.
type CommandSpec struct {
	Executable string
	Args       []string
}

type mapper func(args []string) (*CommandSpec, error)

// commands maps an allowlisted name to its OS-specific spec builder.
var commands = map[string]mapper{
	"pwd":      mapPwd,
	"ls":       mapLs,
	"cat":      mapCat,
	"hostname": mapSimple("hostname"),
	"uptime":   mapSimple("uptime"),
}

// ValidateCommand checks the command against the allowlist and returns
// the spec to execute, or an error when the command is refused.
func ValidateCommand(command string, args []string) (*CommandSpec, error) {
	m, ok := commands[command]
	if !ok {
		return nil, fmt.Errorf("command %q is not in the allowlist", command)
	}
	return m(args)
}

// IsAllowed reports whether the command is in the allowlist.
func IsAllowed(command string) bool {
	_, ok := commands[command]
	return ok
}

// ListAllowed returns the allowlisted command names, sorted.
func ListAllowed() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// mapSimple builds a mapper for commands that take no arguments and
// have the same name on every platform.
func mapSimple(executable string) mapper {
	return func(args []string) (*CommandSpec, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("%s takes no arguments", executable)
		}
		return &CommandSpec{Executable: executable}, nil
	}
}

func mapPwd(args []string) (*CommandSpec, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("pwd takes no arguments")
	}
	if runtime.GOOS == "windows" {
		return &CommandSpec{Executable: "cmd", Args: []string{"/c", "cd"}}, nil
	}
	return &CommandSpec{Executable: "pwd"}, nil
}

func mapLs(args []string) (*CommandSpec, error) {
	if runtime.GOOS == "windows" {
		return &CommandSpec{Executable: "cmd", Args: append([]string{"/c", "dir"}, args...)}, nil
	}
	return &CommandSpec{Executable: "ls", Args: append([]string{"-la"}, args...)}, nil
}

func mapCat(args []string) (*CommandSpec, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("cat requires a file path argument")
	}
	for _, arg := range args {
		if err := validateSharedPath(arg); err != nil {
			return nil, err
		}
	}
	if runtime.GOOS == "windows" {
		return &CommandSpec{Executable: "cmd", Args: append([]string{"/c", "type"}, args...)}, nil
	}
	return &CommandSpec{Executable: "cat", Args: args}, nil
}

// validateSharedPath restricts file reads to the agent's ./shared/
// directory. Absolute paths and traversal are refused.
func validateSharedPath(path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths are not allowed: %s", path)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal is not allowed: %s", path)
	}
	cleaned := filepath.Clean(path)
	if cleaned != "shared" && !strings.HasPrefix(cleaned, "shared/") {
		return fmt.Errorf("reads are limited to files under ./shared/: %s", path)
	}
	return nil
}
