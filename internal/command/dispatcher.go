// Package command parses slash commands and routes them to a fixed table of
// handlers built at startup.
package command

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/metrics"
)

// Prefix marks an input line as a command.
const Prefix = "/"

// Caller is the session a command runs on behalf of.
type Caller interface {
	Client() *core.Client
	SendLine(text string)
	Disconnect()
}

// Handler executes one command. args is the raw text after the command name.
type Handler func(caller Caller, args string) error

type entry struct {
	usage   string
	handler Handler
}

// Dispatcher maps lower-case command names to handlers.
type Dispatcher struct {
	handlers map[string]entry
	log      *zerolog.Logger
	metrics  *metrics.Collector
}

// NewDispatcher returns an empty dispatcher. Register handlers before serving.
func NewDispatcher(logger *zerolog.Logger, m *metrics.Collector) *Dispatcher {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		handlers: make(map[string]entry),
		log:      logger,
		metrics:  m,
	}
}

// Register adds a command. It panics on an empty or duplicate name, which are
// programming errors caught at startup.
func (d *Dispatcher) Register(name, usage string, h Handler) {
	key := strings.ToLower(name)
	if key == "" || h == nil {
		panic("command: empty name or nil handler")
	}
	if _, dup := d.handlers[key]; dup {
		panic(fmt.Sprintf("command: %q registered twice", key))
	}
	d.handlers[key] = entry{usage: usage, handler: h}
}

// Names returns every registered command as "/NAME", sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.handlers))
	for key := range d.handlers {
		names = append(names, Prefix+strings.ToUpper(key))
	}
	slices.Sort(names)
	return names
}

// Usage returns the usage line of a registered command.
func (d *Dispatcher) Usage(name string) (string, bool) {
	e, ok := d.handlers[strings.ToLower(name)]
	return e.usage, ok
}

// IsCommand reports whether line should be dispatched rather than broadcast.
func IsCommand(line string) bool {
	return strings.HasPrefix(line, Prefix)
}

// Parse strips the prefix and splits line on the first space.
// name is lower-cased; args is returned as typed.
func Parse(line string) (name, args string) {
	body := strings.TrimPrefix(line, Prefix)
	name, args, _ = strings.Cut(body, " ")
	return strings.ToLower(name), args
}

// Dispatch runs the handler for line. Handler errors and panics are logged
// and reported to the caller as a generic failure.
func (d *Dispatcher) Dispatch(caller Caller, line string) {
	name, args := Parse(line)

	e, ok := d.handlers[name]
	if !ok {
		caller.SendLine("Unknown command: " + strings.ToUpper(name))
		return
	}

	d.metrics.CommandExecuted()
	user := caller.Client().DisplayName()
	d.log.Debug().Str("user", user).Str("command", name).Msg("command")

	if err := d.run(e.handler, caller, args); err != nil {
		d.metrics.CommandFailed()
		d.log.Error().Err(err).Str("user", user).Str("command", name).Msg("command error")
		caller.SendLine("Error executing command.")
	}
}

func (d *Dispatcher) run(h Handler, caller Caller, args string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(caller, args)
}
