/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package eventsink defines the single narrow notification boundary the
// Supervisor uses to tell the application what happened.
package eventsink

import "fmt"

// Kind identifies one of the notification types the core ever emits.
type Kind int

// Notification kinds.
const (
	StateChanged Kind = iota
	Connected
	Disconnected
	IPAcquired
	IPLost
	Error
)

func (k Kind) String() string {
	switch k {
	case StateChanged:
		return "StateChanged"
	case Connected:
		return "Connected"
	case Disconnected:
		return "Disconnected"
	case IPAcquired:
		return "IpAcquired"
	case IPLost:
		return "IpLost"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Notification is a single event delivered to the application. State is
// the Supervisor's public state at the moment of delivery; Err carries
// the cause for Error notifications.
type Notification struct {
	Kind  Kind
	State fmt.Stringer
	Err   error
}

// EventSink is implemented by the application to receive notifications.
// There is exactly one callback boundary; everything the core ever
// reports arrives here.
type EventSink interface {
	Notify(n Notification)
}

// Func adapts a plain function to EventSink.
type Func func(Notification)

// Notify implements EventSink.
func (f Func) Notify(n Notification) { f(n) }
