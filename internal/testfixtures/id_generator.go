package testfixtures

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces deterministic identifiers for tests. Prefixed ids look
// like "event-1"; UUID generators derive stable version 5 UUIDs from the
// counter so line-item validation accepts them.
type IDGenerator struct {
	mu        sync.Mutex
	prefix    string
	namespace uuid.UUID
	uuids     bool
	counter   uint64
}

// NewIDGenerator yields ids of the form prefix-N. An empty prefix means "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// NewUUIDGenerator yields deterministic UUIDs scoped by name.
func NewUUIDGenerator(name string) *IDGenerator {
	return &IDGenerator{
		prefix:    name,
		namespace: uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)),
		uuids:     true,
	}
}

// Next returns the next identifier in the sequence.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	if g.uuids {
		return uuid.NewSHA1(g.namespace, []byte(strconv.FormatUint(g.counter, 10))).String()
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc exposes Next for service constructors.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many identifiers were handed out.
func (g *IDGenerator) Issued() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}

// Reset restarts the sequence.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}
