package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/edgehub/edgehub/internal/allowlist"
	"github.com/edgehub/edgehub/internal/exec"
	"github.com/edgehub/edgehub/internal/hub"
	"github.com/edgehub/edgehub/internal/sysinfo"
)

// RegisterBuiltins installs the stock capabilities: echo, sleep,
// sysinfo, and allowlisted shell execution.
func (a *Agent) RegisterBuiltins() {
	a.Register(hub.Capability{
		Name:        "echo",
		Description: "Echo the given text back",
		Params: []hub.CapabilityParam{
			{Name: "text", Type: "string", Required: true},
		},
	}, handleEcho)

	a.Register(hub.Capability{
		Name:        "sleep",
		Description: "Sleep for the given number of seconds",
		Params: []hub.CapabilityParam{
			{Name: "seconds", Type: "number", Required: true},
		},
	}, handleSleep)

	a.Register(hub.Capability{
		Name:        "sysinfo",
		Description: "Report host platform and memory status",
	}, handleSysinfo)

	runner := exec.NewRunner()
	a.Register(hub.Capability{
		Name:        "shell",
		Description: "Run an allowlisted shell command",
		Params: []hub.CapabilityParam{
			{Name: "command", Type: "string", Required: true},
			{Name: "args", Type: "list"},
		},
	}, makeShellHandler(runner))
}

func handleEcho(_ context.Context, args map[string]hub.Value) Outcome {
	text, ok := args["text"].AsString()
	if !ok {
		return Outcome{Error: "echo requires a string 'text' argument"}
	}
	return Outcome{OK: true, ReturnValue: text}
}

func handleSleep(ctx context.Context, args map[string]hub.Value) Outcome {
	seconds, ok := args["seconds"].AsNumber()
	if !ok || seconds < 0 {
		return Outcome{Error: "sleep requires a non-negative 'seconds' argument"}
	}

	t := time.NewTimer(time.Duration(seconds * float64(time.Second)))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return Outcome{Error: "sleep interrupted"}
	case <-t.C:
		return Outcome{OK: true, ReturnValue: seconds}
	}
}

func handleSysinfo(_ context.Context, _ map[string]hub.Value) Outcome {
	status := sysinfo.GetHostStatus()
	return Outcome{
		OK: true,
		ReturnValue: map[string]interface{}{
			"hostname":     status.Hostname,
			"platform":     status.Platform,
			"arch":         status.Arch,
			"num_cpu":      status.NumCPU,
			"cpu_load":     status.CPULoad,
			"mem_used_mb":  status.MemUsedMB,
			"mem_total_mb": status.MemTotalMB,
			"go_version":   status.GoVersion,
		},
	}
}

// makeShellHandler wires the allowlist and runner into a shell
// capability. Only commands the allowlist maps are ever executed.
func makeShellHandler(runner *exec.Runner) Handler {
	return func(ctx context.Context, args map[string]hub.Value) Outcome {
		command, ok := args["command"].AsString()
		if !ok {
			return Outcome{Error: "shell requires a string 'command' argument"}
		}

		var cmdArgs []string
		if list, ok := args["args"].AsList(); ok {
			for i, item := range list {
				s, ok := item.AsString()
				if !ok {
					return Outcome{Error: fmt.Sprintf("shell args[%d] is not a string", i)}
				}
				cmdArgs = append(cmdArgs, s)
			}
		}

		spec, err := allowlist.ValidateCommand(command, cmdArgs)
		if err != nil {
			return Outcome{Error: err.Error()}
		}

		result := runner.Run(ctx, spec.Executable, spec.Args...)
		out := Outcome{
			OK:          result.OK(),
			ReturnValue: result.ExitCode,
			Stdout:      result.Stdout,
			Stderr:      result.Stderr,
		}
		if result.Error != nil {
			out.Error = result.Error.Error()
		}
		return out
	}
}
