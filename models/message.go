package models

import (
	"time"

	"github.com/dyike/CortexAdvisor/consts"
)

// Origin identifies who produced a message.
type Origin string

const (
	OriginUser Origin = consts.Origin_User
	OriginBot  Origin = consts.Origin_Bot
)

// Message is one entry of a conversation log. Messages are never modified
// after they are appended.
type Message struct {
	Seq       int64     `json:"seq"`
	Origin    Origin    `json:"origin"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// IsUser reports whether the message was typed by the user.
func (m Message) IsUser() bool {
	return m.Origin == OriginUser
}
