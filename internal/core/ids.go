package core

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// NewTabID generates a new tab ID in format TAB-{nanoid(10)}.
func NewTabID() (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TAB-%s", id), nil
}

// NewMessageID generates a new message ID in format MSG-{nanoid(10)}.
func NewMessageID() (string, error) {
	id, err := gonanoid.New(10)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("MSG-%s", id), nil
}
