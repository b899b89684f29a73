package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/linechat-server/internal/core"
)

const (
	welcomeBanner = "Welcome to the chat server!"
	modePrompt    = "Use rich terminal output? [Y/n]"
	namePrompt    = "Enter Username:"
)

var errHandshakeAborted = errors.New("client disconnected during handshake")

// handshake negotiates the output mode and a unique name.
func (s *Session) handshake() error {
	s.SendLine(welcomeBanner)

	mode, err := s.negotiateMode()
	if err != nil {
		return err
	}
	s.conn.SetMode(mode)

	return s.negotiateName()
}

func (s *Session) negotiateMode() (Mode, error) {
	s.setState(StateNegotiatingMode)
	for {
		s.SendLine(modePrompt)
		line, err := s.conn.ReadLine()
		if err != nil {
			return ModePlain, fmt.Errorf("%w: %w", errHandshakeAborted, err)
		}
		if mode, ok := parseModeAnswer(line); ok {
			return mode, nil
		}
	}
}

// parseModeAnswer maps an empty or affirmative answer to rich output and a
// negative one to plain output.
func parseModeAnswer(answer string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		return ModeRich, true
	case "n", "no":
		return ModePlain, true
	default:
		return ModePlain, false
	}
}

func (s *Session) negotiateName() error {
	s.setState(StateNegotiatingName)
	for {
		s.SendLine(namePrompt)
		line, err := s.conn.ReadLine()
		if err != nil {
			return fmt.Errorf("%w: %w", errHandshakeAborted, err)
		}

		name := strings.TrimSpace(line)
		if err := core.ValidateName(name, s.opts.MaxNameLength); err != nil {
			if errors.Is(err, core.ErrEmptyName) {
				continue
			}
			s.metrics.NameRejected()
			s.SendLine(fmt.Sprintf("Invalid name. Use alphanumeric characters (max %d).", s.opts.MaxNameLength))
			continue
		}

		if err := s.hub.Claim(s.client, name); err != nil {
			if !errors.Is(err, core.ErrNameTaken) {
				return fmt.Errorf("claim name: %w", err)
			}
			s.metrics.NameRejected()
			s.SendLine(fmt.Sprintf("The name '%s' is already taken. Try again.", name))
			continue
		}

		s.SendLine("Welcome, " + name + "!")
		return nil
	}
}
