package core

import (
	"slices"
	"strings"
)

// Room groups clients subscribed to the same channel.
type Room struct {
	Name    string
	clients map[*Client]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[*Client]struct{}),
	}
}

// NormalizeRoomName returns the registry key for a room name.
func NormalizeRoomName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// AddClient inserts a client into the room. Returns true if newly added.
func (r *Room) AddClient(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a client from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Has reports whether c is a member.
func (r *Room) Has(c *Client) bool {
	_, ok := r.clients[c]
	return ok
}

// Broadcast sends a line to all clients in the room except skip, which may be nil.
func (r *Room) Broadcast(text string, skip *Client) int {
	delivered := 0
	for client := range r.clients {
		if client == skip {
			continue
		}
		client.Send(text)
		delivered++
	}
	return delivered
}

// Len returns the number of members.
func (r *Room) Len() int {
	return len(r.clients)
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

// MemberNames returns the display names of all members, sorted.
func (r *Room) MemberNames() []string {
	names := make([]string, 0, len(r.clients))
	for client := range r.clients {
		names = append(names, client.DisplayName())
	}
	slices.Sort(names)
	return names
}
