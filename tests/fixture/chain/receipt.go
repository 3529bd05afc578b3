// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

type Status int

const (
	StatusFailed Status = iota
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Receipt is the chain-agnostic result of an included transaction.
type Receipt struct {
	TxHash  string  `json:"txHash"`
	Height  int64   `json:"height"`
	Status  Status  `json:"status"`
	Code    uint32  `json:"code"`
	RawLog  string  `json:"rawLog,omitempty"`
	GasUsed uint64  `json:"gasUsed"`
	Events  []Event `json:"events,omitempty"`
}

func (r *Receipt) Succeeded() bool {
	return r.Status == StatusSuccess
}

// FindEvents returns every event of the given type in emission order.
func (r *Receipt) FindEvents(eventType string) []Event {
	var events []Event
	for _, event := range r.Events {
		if event.Type == eventType {
			events = append(events, event)
		}
	}
	return events
}

// Attribute returns the value of the first [key] attribute found on an event
// of type [eventType].
func (r *Receipt) Attribute(eventType string, key string) (string, bool) {
	for _, event := range r.FindEvents(eventType) {
		if value, ok := event.Attribute(key); ok {
			return value, true
		}
	}
	return "", false
}

type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute returns the value of [key]. Nodes on older consensus versions
// emit base64 encoded attributes, which are decoded transparently.
func (e Event) Attribute(key string) (string, bool) {
	for _, attr := range e.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	encodedKey := base64.StdEncoding.EncodeToString([]byte(key))
	for _, attr := range e.Attributes {
		if attr.Key != encodedKey {
			continue
		}
		value, err := base64.StdEncoding.DecodeString(attr.Value)
		if err != nil {
			return "", false
		}
		return string(value), true
	}
	return "", false
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
