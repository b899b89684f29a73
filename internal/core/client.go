package core

// Sender accepts framed lines for one connected peer. Implementations must not
// block: the hub calls SendLine while holding its lock.
type Sender interface {
	SendLine(text string)
}

// Client is a chat participant as seen by the core layer.
type Client struct {
	ID string

	name  string
	named bool
	room  string
	out   Sender
}

// NewClient constructs an unnamed client that delivers lines to out.
func NewClient(id string, out Sender) *Client {
	return &Client{
		ID:  id,
		out: out,
	}
}

// Name returns the claimed display name and whether one has been claimed.
func (c *Client) Name() (string, bool) {
	return c.name, c.named
}

// DisplayName is the name shown to other users.
func (c *Client) DisplayName() string {
	if !c.named {
		return "(anon)"
	}
	return c.name
}

// Send delivers a line to the client.
func (c *Client) Send(text string) {
	if c.out == nil {
		return
	}
	c.out.SendLine(text)
}
