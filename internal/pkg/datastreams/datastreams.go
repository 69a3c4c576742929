// Package datastreams carries station events out of the process.
package datastreams

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/ohowland/qinst/internal/pkg/msg"
)

func redirectMsg(chIn <-chan msg.Msg, chOut chan<- msg.Msg) {
	for m := range chIn {
		chOut <- m
	}
}

// Inbox subscribes pid to every topic on system and merges the channels into
// one buffered inbox.
func Inbox(system msg.Publisher, pid uuid.UUID, topics ...msg.Topic) (<-chan msg.Msg, error) {
	inbox := make(chan msg.Msg, 50)
	for _, topic := range topics {
		ch, err := system.Subscribe(pid, topic)
		if err != nil {
			system.Unsubscribe(pid)
			return nil, err
		}
		go redirectMsg(ch, inbox)
	}
	return inbox, nil
}

// Encode renders a message payload as JSON.
func Encode(m msg.Msg) ([]byte, error) {
	return json.Marshal(m.Payload())
}
