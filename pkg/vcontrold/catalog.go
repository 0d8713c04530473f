package vcontrold

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// Status is the enabled state of a catalog command.
type Status string

const (
	StatusEnabled  Status = "enabled"
	StatusDisabled Status = "disabled"
)

// Command is the catalog metadata of a single vcontrold command.
type Command struct {
	Name        string
	Description string
	Unit        string
	Groups      []string
	Devices     []int
	Status      Status
}

// Enabled reports whether the command may be executed.
func (c Command) Enabled() bool {
	return c.Status == StatusEnabled
}

// SupportsDevice reports whether the command is valid for the device ID.
func (c Command) SupportsDevice(id int) bool {
	return slices.Contains(c.Devices, id)
}

// InAnyGroup reports whether the command carries one of the groups.
// An empty filter matches every command.
func (c Command) InAnyGroup(filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, g := range c.Groups {
		if slices.Contains(filter, g) {
			return true
		}
	}
	return false
}

// Catalog is the command metadata store the client reads from. The client
// only ever changes the status of existing commands.
type Catalog interface {
	// Names returns all command names in stable insertion order.
	Names() []string
	// Get returns the command metadata.
	Get(name string) (Command, bool)
	// SetStatus changes the status of an existing command.
	SetStatus(name string, status Status) error
}

// Directive tells the catalog owner what to do after an execution.
type Directive int

const (
	DirectiveNone Directive = iota
	// DirectiveDisable marks the command disabled for all future runs.
	DirectiveDisable
)

// String returns the string representation of the directive
func (d Directive) String() string {
	switch d {
	case DirectiveNone:
		return "none"
	case DirectiveDisable:
		return "disable"
	default:
		return "unknown"
	}
}

// Apply carries out the directive for the named command.
func (d Directive) Apply(cat Catalog, name string) error {
	if d == DirectiveDisable {
		return cat.SetStatus(name, StatusDisabled)
	}
	return nil
}

// MemoryCatalog is an ordered in-memory Catalog. It is safe for
// concurrent use.
type MemoryCatalog struct {
	mu       sync.RWMutex
	order    []string
	commands map[string]Command
}

// NewMemoryCatalog returns a catalog holding cmds in the given order.
func NewMemoryCatalog(cmds ...Command) *MemoryCatalog {
	m := &MemoryCatalog{commands: make(map[string]Command, len(cmds))}
	for _, cmd := range cmds {
		m.Add(cmd)
	}
	return m
}

// Add appends cmd, or replaces an existing command of the same name in place.
func (m *MemoryCatalog) Add(cmd Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.commands[cmd.Name]; !exists {
		m.order = append(m.order, cmd.Name)
	}
	m.commands[cmd.Name] = cmd
}

// Names implements Catalog.
func (m *MemoryCatalog) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}

// Get implements Catalog.
func (m *MemoryCatalog) Get(name string) (Command, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cmd, ok := m.commands[name]
	return cmd, ok
}

// SetStatus implements Catalog.
func (m *MemoryCatalog) SetStatus(name string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd, ok := m.commands[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	cmd.Status = status
	m.commands[name] = cmd
	return nil
}

// Units returns the sorted distinct unit tags used in the catalog.
func Units(cat Catalog) []string {
	seen := make(map[string]struct{})
	var units []string
	for _, name := range cat.Names() {
		cmd, _ := cat.Get(name)
		if cmd.Unit == "" {
			continue
		}
		if _, ok := seen[cmd.Unit]; !ok {
			seen[cmd.Unit] = struct{}{}
			units = append(units, cmd.Unit)
		}
	}
	sort.Strings(units)
	return units
}

// Groups returns the sorted distinct group tags used in the catalog.
func Groups(cat Catalog) []string {
	seen := make(map[string]struct{})
	var groups []string
	for _, name := range cat.Names() {
		cmd, _ := cat.Get(name)
		for _, g := range cmd.Groups {
			if _, ok := seen[g]; !ok {
				seen[g] = struct{}{}
				groups = append(groups, g)
			}
		}
	}
	sort.Strings(groups)
	return groups
}

// GroupItems lists the commands assigned to one group.
type GroupItems struct {
	NumItems int      `json:"num_items" yaml:"num_items"`
	Items    []string `json:"items" yaml:"items"`
}

// ItemsPerGroup maps every group to its commands in catalog order.
func ItemsPerGroup(cat Catalog) map[string]GroupItems {
	result := make(map[string]GroupItems)
	for _, group := range Groups(cat) {
		items := GroupItems{Items: []string{}}
		for _, name := range cat.Names() {
			cmd, _ := cat.Get(name)
			if slices.Contains(cmd.Groups, group) {
				items.Items = append(items.Items, name)
				items.NumItems++
			}
		}
		result[group] = items
	}
	return result
}
