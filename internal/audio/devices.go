package audio

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// deviceLister enumerates PulseAudio/PipeWire endpoints via pactl.
type deviceLister struct {
	pactl string
}

func newDeviceLister(pactl string) *deviceLister {
	if pactl == "" {
		pactl = "pactl"
	}
	return &deviceLister{pactl: pactl}
}

func (l *deviceLister) available() bool {
	return commandAvailable(l.pactl)
}

// outputSinks returns the names of all output sinks, in server order.
func (l *deviceLister) outputSinks(ctx context.Context) ([]string, error) {
	out, err := commandOutput(ctx, l.pactl, "list", "short", "sinks")
	if err != nil {
		return nil, err
	}
	return parseShortList(out), nil
}

// defaultSink returns the server's default sink, falling back to the first
// enumerated sink on older pactl versions.
func (l *deviceLister) defaultSink(ctx context.Context) (string, error) {
	if out, err := commandOutput(ctx, l.pactl, "get-default-sink"); err == nil {
		if name := strings.TrimSpace(out); name != "" {
			return name, nil
		}
	}

	sinks, err := l.outputSinks(ctx)
	if err != nil {
		return "", err
	}
	if len(sinks) == 0 {
		return "", nil
	}
	return sinks[0], nil
}

// inputSources returns capture source names with sink monitors excluded.
func (l *deviceLister) inputSources(ctx context.Context) ([]string, error) {
	out, err := commandOutput(ctx, l.pactl, "list", "short", "sources")
	if err != nil {
		return nil, err
	}

	var inputs []string
	for _, name := range parseShortList(out) {
		if strings.HasSuffix(name, ".monitor") {
			continue
		}
		inputs = append(inputs, name)
	}
	return inputs, nil
}

// parseShortList extracts the name column from `pactl list short` output.
func parseShortList(out string) []string {
	var names []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		names = append(names, fields[1])
	}
	return names
}

// pickInputDevice selects the first source that looks like a built-in
// microphone or a wireless headset.
func pickInputDevice(sources []string) string {
	for _, name := range sources {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "bluez") {
			return name
		}
		if strings.HasPrefix(lower, "alsa_input") {
			return name
		}
	}
	return ""
}

func commandAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func commandOutput(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err != nil {
		if trimmed != "" {
			return "", fmt.Errorf("%s %s failed: %w (%s)", name, strings.Join(args, " "), err, trimmed)
		}
		return "", fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return trimmed, nil
}
