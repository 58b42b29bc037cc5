package device

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// ErrDeviceUnavailable is returned when the capture or playback command
// cannot be found or started.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// CommandConfig describes an external PCM process. "{rate}" in Args is
// replaced with the sample rate.
type CommandConfig struct {
	Command    string
	Args       []string
	SampleRate int
}

// DefaultCaptureConfig records mono PCM-16 with arecord
func DefaultCaptureConfig(sampleRate int) CommandConfig {
	return CommandConfig{
		Command:    "arecord",
		Args:       []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", "{rate}"},
		SampleRate: sampleRate,
	}
}

// DefaultPlaybackConfig plays mono PCM-16 with aplay
func DefaultPlaybackConfig(sampleRate int) CommandConfig {
	return CommandConfig{
		Command:    "aplay",
		Args:       []string{"-q", "-t", "raw", "-f", "S16_LE", "-c", "1", "-r", "{rate}"},
		SampleRate: sampleRate,
	}
}

// ExpandArgs substitutes placeholders in the argument list
func (c CommandConfig) ExpandArgs() []string {
	rate := strconv.Itoa(c.SampleRate)
	args := make([]string, len(c.Args))
	for i, arg := range c.Args {
		args[i] = strings.ReplaceAll(arg, "{rate}", rate)
	}
	return args
}

// String renders the command line
func (c CommandConfig) String() string {
	args := c.ExpandArgs()
	if len(args) == 0 {
		return c.Command
	}
	return fmt.Sprintf("%s %s", c.Command, strings.Join(args, " "))
}

func (c CommandConfig) lookPath() (string, error) {
	command := strings.TrimSpace(c.Command)
	if command == "" {
		return "", fmt.Errorf("%w: no command configured", ErrDeviceUnavailable)
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, command, err)
	}
	return path, nil
}

// logLines forwards a process's stderr to the logger at debug level
func logLines(logger *slog.Logger, command string, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		logger.Debug("Device process output",
			slog.String("command", command),
			slog.String("line", line))
	}
}
