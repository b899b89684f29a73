package command

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/linechat-server/internal/core"
)

type builtins struct {
	hub *core.Hub
	d   *Dispatcher
}

// RegisterBuiltins adds JOIN, QUIT, ROOMS, WHO and HELP to d.
func RegisterBuiltins(d *Dispatcher, hub *core.Hub) {
	b := &builtins{hub: hub, d: d}

	d.Register("join", "/JOIN <room_name>", b.join)
	d.Register("quit", "/QUIT", b.quit)
	d.Register("rooms", "/ROOMS", b.rooms)
	d.Register("who", "/WHO", b.who)
	d.Register("help", "/HELP", b.help)
}

func (b *builtins) join(caller Caller, args string) error {
	room := strings.TrimSpace(args)
	if !core.IsAlnum(room) {
		usage, _ := b.d.Usage("join")
		caller.SendLine("Usage: " + usage)
		return nil
	}
	return b.hub.Join(caller.Client(), room)
}

func (b *builtins) quit(caller Caller, _ string) error {
	caller.SendLine("Goodbye!")
	caller.Disconnect()
	return nil
}

func (b *builtins) rooms(caller Caller, _ string) error {
	list := lo.Map(b.hub.Rooms(), func(info core.RoomInfo, _ int) string {
		return fmt.Sprintf("%s (%d)", info.Name, info.Count)
	})
	caller.SendLine("Active Rooms: " + strings.Join(list, ", "))
	return nil
}

func (b *builtins) who(caller Caller, _ string) error {
	room, names, ok := b.hub.Who(caller.Client())
	if !ok {
		return nil
	}
	caller.SendLine(fmt.Sprintf("Users in %s: %s", room, strings.Join(names, ", ")))
	return nil
}

func (b *builtins) help(caller Caller, _ string) error {
	caller.SendLine("Available commands: " + strings.Join(b.d.Names(), ", "))
	return nil
}
