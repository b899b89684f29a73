package core

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// DefaultRoom is the room every client joins after naming itself.
const DefaultRoom = "LOBBY"

// RoomInfo is a read-only view of a room for listings.
type RoomInfo struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	Members []string `json:"members,omitempty"`
}

// Hub is the process-wide registry of named clients and rooms.
// A single mutex guards both maps; every mutation and every query takes it.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	rooms   map[string]*Room
	log     *zerolog.Logger
}

// NewHub creates an empty registry.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]*Room),
		log:     logger,
	}
}

// Claim assigns name to c and registers it, failing if any registered client
// holds the same name in a case-insensitive comparison.
func (h *Hub) Claim(c *Client, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.named {
		return ErrAlreadyNamed
	}
	for other := range h.clients {
		if other.named && sameName(other.name, name) {
			return fmt.Errorf("%w: %s", ErrNameTaken, name)
		}
	}

	c.name = name
	c.named = true
	h.clients[c] = struct{}{}
	return nil
}

// Join moves c into roomName, creating the room if needed and deleting the
// previous room if it becomes empty.
func (h *Hub) Join(c *Client, roomName string) error {
	roomName = NormalizeRoomName(roomName)
	if !IsAlnum(roomName) {
		return ErrInvalidRoom
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return ErrNotRegistered
	}

	if c.room == roomName {
		c.Send("You are already in room: " + roomName)
		return nil
	}

	h.leaveLocked(c, "left the room.")

	room, ok := h.rooms[roomName]
	if !ok {
		room = NewRoom(roomName)
		h.rooms[roomName] = room
		h.log.Info().Str("room", roomName).Msg("room created")
	}
	c.room = roomName
	room.AddClient(c)

	c.Send("You joined room: " + roomName)
	h.systemLocked(roomName, c.name+" joined the room.")
	return nil
}

// Unregister removes c from the client set and its room. Remaining room
// members are told that c disconnected. Calling it again is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, c)
	h.leaveLocked(c, "has disconnected.")
}

// Broadcast sends "<name>: <text>" to every member of the sender's room
// except the sender. It returns the number of recipients.
func (h *Hub) Broadcast(sender *Client, text string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[sender.room]
	if !ok {
		return 0
	}
	return room.Broadcast(sender.DisplayName()+": "+text, sender)
}

// SystemMessage sends "* <text>" to every member of roomName, if it exists.
func (h *Hub) SystemMessage(roomName, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.systemLocked(NormalizeRoomName(roomName), text)
}

// RoomOf returns the room c currently belongs to, or "".
func (h *Hub) RoomOf(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return c.room
}

// Rooms lists every room with its member count, sorted by name.
func (h *Hub) Rooms() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.roomsLocked(false)
}

// Snapshot lists every room with member names, sorted by name.
func (h *Hub) Snapshot() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.roomsLocked(true)
}

// Who returns the room of c and the sorted names of its members.
// ok is false if c is not in a room.
func (h *Hub) Who(c *Client) (room string, names []string, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, exists := h.rooms[c.room]
	if !exists {
		return "", nil, false
	}
	return r.Name, r.MemberNames(), true
}

// ClientCount returns the number of named clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

func (h *Hub) leaveLocked(c *Client, verb string) {
	if c.room == "" {
		return
	}
	oldName := c.room
	c.room = ""

	room, ok := h.rooms[oldName]
	if !ok || !room.RemoveClient(c) {
		return
	}
	h.systemLocked(oldName, c.DisplayName()+" "+verb)
	if room.Empty() {
		delete(h.rooms, oldName)
		h.log.Info().Str("room", oldName).Msg("room deleted (empty)")
	}
}

func (h *Hub) systemLocked(roomName, text string) {
	room, ok := h.rooms[roomName]
	if !ok {
		return
	}
	room.Broadcast("* "+text, nil)
}

func (h *Hub) roomsLocked(withMembers bool) []RoomInfo {
	infos := lo.MapToSlice(h.rooms, func(name string, r *Room) RoomInfo {
		info := RoomInfo{Name: name, Count: r.Len()}
		if withMembers {
			info.Members = r.MemberNames()
		}
		return info
	})
	slices.SortFunc(infos, func(a, b RoomInfo) int {
		return strings.Compare(a.Name, b.Name)
	})
	return infos
}
