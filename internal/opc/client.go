// Package opc defines the data-access client the shell drives and an
// in-memory address space implementing it.
package opc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned for a tag the server does not know.
	ErrNotFound = errors.New("tag not found")
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("client is closed")
	// ErrNoDriver is returned by Dial for a URL scheme with no driver.
	ErrNoDriver = errors.New("no driver for connection URL")
	// ErrNotDataPoint is returned when a value operation targets a folder.
	ErrNotDataPoint = errors.New("tag is a folder, not a data point")
	// ErrUnsupportedType is returned by ParseServerType.
	ErrUnsupportedType = errors.New("unsupported server type")
)

// Node is a position in the server's address-space tree.
type Node struct {
	Tag  string
	Name string

	parent *Node
}

// NewNode builds a node. A nil parent marks the root.
func NewNode(tag, name string, parent *Node) *Node {
	return &Node{Tag: tag, Name: name, parent: parent}
}

// Parent returns the parent node, or false at the root.
func (n *Node) Parent() (*Node, bool) {
	if n.parent == nil {
		return nil, false
	}
	return n.parent, true
}

// Label is the prompt text for the node.
func (n *Node) Label() string {
	if n.Tag == "" {
		return n.Name
	}
	return n.Tag
}

// ReadEvent is a value sample delivered by Read or Monitor.
type ReadEvent struct {
	Value     any
	Quality   string
	Timestamp time.Time
}

// MonitorFunc receives value changes. Calling stop ends the subscription.
type MonitorFunc func(ev ReadEvent, stop func())

// Client is the data-access server connection.
type Client interface {
	Root() *Node
	FindNode(ctx context.Context, tag string) (*Node, error)
	ExploreFolder(ctx context.Context, tag string) ([]*Node, error)
	DataType(ctx context.Context, tag string) (string, error)
	Read(ctx context.Context, tag string) (ReadEvent, error)
	Write(ctx context.Context, tag string, value any) error
	// Monitor registers fn for value changes on tag. Notifications are
	// delivered on a goroutine owned by the client until fn calls stop
	// or ctx is done.
	Monitor(ctx context.Context, tag string, fn MonitorFunc) error
	Close() error
}

// ServerType selects the client flavour.
type ServerType string

const (
	TypeUA ServerType = "UA"
	TypeDA ServerType = "DA"
)

// SupportedTypes lists the accepted server types.
func SupportedTypes() []ServerType {
	return []ServerType{TypeUA, TypeDA}
}

// ParseServerType matches s case-insensitively against SupportedTypes.
func ParseServerType(s string) (ServerType, error) {
	for _, t := range SupportedTypes() {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}
