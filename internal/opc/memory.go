package opc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Quality reported for every sample served from memory.
const QualityGood = "Good"

type entry struct {
	node     *Node
	folder   bool
	dataType string
	value    any
	updated  time.Time
	children []*entry
}

// Memory is a Client over an in-memory address space. Writes are stored
// as given and fan out to monitors of the tag.
type Memory struct {
	mu     sync.RWMutex
	root   *entry
	byTag  map[string]*entry
	subs   map[uuid.UUID]*subscription
	closed bool
	log    *zap.Logger
	now    func() time.Time
}

// NewMemory builds a client over space.
func NewMemory(space *Space, log *zap.Logger) (*Memory, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Memory{
		byTag: make(map[string]*entry),
		subs:  make(map[uuid.UUID]*subscription),
		log:   log,
		now:   time.Now,
	}
	m.root = &entry{node: NewNode("", space.Name, nil), folder: true}
	m.byTag[""] = m.root
	if err := m.build(m.root, space.Nodes, space.Separator); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Memory) build(parent *entry, nodes []SpaceNode, sep string) error {
	for _, sn := range nodes {
		if sn.Name == "" {
			return fmt.Errorf("node under %q has no name", parent.node.Label())
		}
		tag := sn.Tag
		if tag == "" {
			tag = sn.Name
			if parent.node.Tag != "" {
				tag = parent.node.Tag + sep + sn.Name
			}
		}
		if _, dup := m.byTag[tag]; dup {
			return fmt.Errorf("duplicate tag %q", tag)
		}

		e := &entry{
			node:     NewNode(tag, sn.Name, parent.node),
			folder:   sn.IsFolder(),
			dataType: sn.Type,
			updated:  m.now(),
		}
		if !e.folder {
			v, err := sn.initialValue()
			if err != nil {
				return err
			}
			e.value = v
		}
		m.byTag[tag] = e
		parent.children = append(parent.children, e)

		if err := m.build(e, sn.Children, sep); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) lookup(tag string) (*entry, error) {
	if m.closed {
		return nil, ErrClosed
	}
	e, ok := m.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, tag)
	}
	return e, nil
}

func (m *Memory) lookupPoint(tag string) (*entry, error) {
	e, err := m.lookup(tag)
	if err != nil {
		return nil, err
	}
	if e.folder {
		return nil, fmt.Errorf("%w: %s", ErrNotDataPoint, tag)
	}
	return e, nil
}

// Root returns the root folder.
func (m *Memory) Root() *Node {
	return m.root.node
}

// FindNode returns the node with the given absolute tag.
func (m *Memory) FindNode(_ context.Context, tag string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, err := m.lookup(tag)
	if err != nil {
		return nil, err
	}
	return e.node, nil
}

// ExploreFolder lists the children of tag in definition order.
func (m *Memory) ExploreFolder(_ context.Context, tag string) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, err := m.lookup(tag)
	if err != nil {
		return nil, err
	}
	nodes := make([]*Node, 0, len(e.children))
	for _, c := range e.children {
		nodes = append(nodes, c.node)
	}
	return nodes, nil
}

// DataType returns the declared type name of a data point, or "" when
// none was declared.
func (m *Memory) DataType(_ context.Context, tag string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, err := m.lookupPoint(tag)
	if err != nil {
		return "", err
	}
	return e.dataType, nil
}

// Read returns the current value of a data point.
func (m *Memory) Read(_ context.Context, tag string) (ReadEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, err := m.lookupPoint(tag)
	if err != nil {
		return ReadEvent{}, err
	}
	return ReadEvent{Value: e.value, Quality: QualityGood, Timestamp: e.updated}, nil
}

// Write stores value as given and notifies monitors of tag.
func (m *Memory) Write(_ context.Context, tag string, value any) error {
	m.mu.Lock()
	e, err := m.lookupPoint(tag)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	e.value = value
	e.updated = m.now()
	ev := ReadEvent{Value: value, Quality: QualityGood, Timestamp: e.updated}
	var targets []*subscription
	for _, s := range m.subs {
		if s.tag == tag {
			targets = append(targets, s)
		}
	}
	m.mu.Unlock()

	m.log.Debug("value written", zap.String("tag", tag), zap.Any("value", value))
	for _, s := range targets {
		s.deliver(ev)
	}
	return nil
}

// Monitor subscribes fn to tag. The current value is delivered first.
// The subscription ends when fn calls stop, ctx is done or the client
// is closed.
func (m *Memory) Monitor(ctx context.Context, tag string, fn MonitorFunc) error {
	m.mu.Lock()
	e, err := m.lookupPoint(tag)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	s := &subscription{
		id:     uuid.New(),
		ctx:    ctx,
		tag:    tag,
		fn:     fn,
		events: make(chan ReadEvent, 32),
		done:   make(chan struct{}),
		owner:  m,
	}
	m.subs[s.id] = s
	initial := ReadEvent{Value: e.value, Quality: QualityGood, Timestamp: e.updated}
	m.mu.Unlock()

	m.log.Debug("monitor started", zap.String("tag", tag), zap.Stringer("subscription", s.id))
	go s.run()
	s.deliver(initial)
	return nil
}

// Close stops every subscription. Further calls fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	subs := make([]*subscription, 0, len(m.subs))
	for _, s := range m.subs {
		subs = append(subs, s)
	}
	m.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
	return nil
}

// Subscriptions returns the number of live monitors.
func (m *Memory) Subscriptions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

type subscription struct {
	id     uuid.UUID
	ctx    context.Context
	tag    string
	fn     MonitorFunc
	events chan ReadEvent
	done   chan struct{}
	once   sync.Once
	owner  *Memory
}

func (s *subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ctx.Done():
			s.stop()
			return
		case ev := <-s.events:
			select {
			case <-s.done:
				return
			default:
			}
			s.fn(ev, s.stop)
		}
	}
}

func (s *subscription) deliver(ev ReadEvent) {
	select {
	case <-s.done:
	case s.events <- ev:
	default:
		s.owner.log.Debug("monitor queue full, dropping sample", zap.String("tag", s.tag))
	}
}

func (s *subscription) stop() {
	s.once.Do(func() {
		close(s.done)
		s.owner.log.Debug("monitor stopped", zap.String("tag", s.tag), zap.Stringer("subscription", s.id))
		s.owner.mu.Lock()
		delete(s.owner.subs, s.id)
		s.owner.mu.Unlock()
	})
}
