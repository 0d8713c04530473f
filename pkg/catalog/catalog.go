// Package catalog stores the vcontrold command catalog in a YAML file.
//
// The file layout is
//
//	vcontrold_commands:
//	  get:
//	    getTempA:
//	      description: Ermittle die Aussentemperatur
//	      status: enabled
//	      unit: 'temperature'
//	      groups: ['temperature']
//	      devices: [2094]
//	  set:
//	    ...
//
// Only the get section is loaded into the catalog. Everything else in the
// document, including the set section and comments, is written back as read.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/zberg/go-vcontrold/pkg/vcontrold"
)

//go:embed default.yaml
var defaultTemplate []byte

const (
	rootKey = "vcontrold_commands"
	getKey  = "get"
)

// ErrInvalidCatalog is returned when the catalog document has the wrong shape.
var ErrInvalidCatalog = errors.New("invalid catalog")

// entry is the file form of a command.
type entry struct {
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	Unit        string   `yaml:"unit"`
	Groups      []string `yaml:"groups"`
	Devices     []int    `yaml:"devices"`
}

func (e entry) command(name string) vcontrold.Command {
	status := vcontrold.Status(e.Status)
	if status == "" {
		status = vcontrold.StatusEnabled
	}
	return vcontrold.Command{
		Name:        name,
		Description: e.Description,
		Unit:        e.Unit,
		Groups:      e.Groups,
		Devices:     e.Devices,
		Status:      status,
	}
}

func entryOf(cmd vcontrold.Command) entry {
	e := entry{
		Description: cmd.Description,
		Status:      string(cmd.Status),
		Unit:        cmd.Unit,
		Groups:      cmd.Groups,
		Devices:     cmd.Devices,
	}
	if e.Groups == nil {
		e.Groups = []string{}
	}
	if e.Devices == nil {
		e.Devices = []int{}
	}
	return e
}

// DefaultTemplate returns the built-in catalog document.
func DefaultTemplate() []byte {
	return bytes.Clone(defaultTemplate)
}

// File is a vcontrold.Catalog backed by a YAML file. Status changes made
// through the catalog are kept in memory until Save is called.
type File struct {
	*vcontrold.MemoryCatalog

	path    string
	logger  *slog.Logger
	created bool

	mu  sync.Mutex
	doc *yaml.Node
	get *yaml.Node
}

// Option configures a File.
type Option func(*File)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *File) {
		f.logger = logger
	}
}

// Open loads the catalog at path. A missing or empty file is replaced by
// the default template first.
func Open(path string, opts ...Option) (*File, error) {
	f := &File{path: path}
	for _, opt := range opts {
		opt(f)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data, err = f.create()
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	doc, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	if doc == nil {
		if f.logger != nil {
			f.logger.Warn("catalog is empty and will be re-created", "path", path)
		}
		if data, err = f.create(); err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		if doc, err = parse(data); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", path, err)
		}
	}

	if err := f.load(doc); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return f, nil
}

// Path returns the file the catalog is stored in.
func (f *File) Path() string {
	return f.path
}

// Created reports whether Open wrote the default template.
func (f *File) Created() bool {
	return f.created
}

// create writes the default template to the catalog path.
func (f *File) create() ([]byte, error) {
	if err := os.WriteFile(f.path, defaultTemplate, 0o644); err != nil {
		return nil, fmt.Errorf("create default catalog: %w", err)
	}
	f.created = true
	if f.logger != nil {
		f.logger.Info("created default catalog", "path", f.path)
	}
	return defaultTemplate, nil
}

// parse returns the document node, or nil when the document is empty.
func parse(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if len(doc.Content) == 0 || isNull(doc.Content[0]) {
		return nil, nil
	}
	return &doc, nil
}

func (f *File) load(doc *yaml.Node) error {
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: document is not a mapping", ErrInvalidCatalog)
	}
	commands := lookup(root, rootKey)
	if commands == nil || commands.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: missing %s", ErrInvalidCatalog, rootKey)
	}
	get := lookup(commands, getKey)
	if get == nil {
		return fmt.Errorf("%w: missing %s.%s", ErrInvalidCatalog, rootKey, getKey)
	}
	if isNull(get) {
		*get = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	if get.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: %s.%s is not a mapping", ErrInvalidCatalog, rootKey, getKey)
	}

	mem := vcontrold.NewMemoryCatalog()
	for i := 0; i+1 < len(get.Content); i += 2 {
		name := get.Content[i].Value
		var e entry
		if err := get.Content[i+1].Decode(&e); err != nil {
			return fmt.Errorf("%w: command %s: %v", ErrInvalidCatalog, name, err)
		}
		mem.Add(e.command(name))
	}

	f.MemoryCatalog = mem
	f.doc = doc
	f.get = get

	if f.logger != nil {
		f.logger.Debug("catalog loaded", "path", f.path, "commands", len(mem.Names()))
	}
	return nil
}

// Save writes the catalog back to its file.
func (f *File) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.sync(); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f.doc); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".catalog-*.yaml")
	if err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("save catalog: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}

	if f.logger != nil {
		f.logger.Debug("catalog saved", "path", f.path)
	}
	return nil
}

// sync copies the in-memory commands into the get section. Existing
// entries only get their status updated; new commands are appended.
func (f *File) sync() error {
	for _, name := range f.Names() {
		cmd, _ := f.Get(name)
		if node := lookup(f.get, name); node != nil && node.Kind == yaml.MappingNode {
			setScalar(node, "status", string(cmd.Status))
			continue
		}

		var value yaml.Node
		if err := value.Encode(entryOf(cmd)); err != nil {
			return fmt.Errorf("encode command %s: %w", name, err)
		}
		f.get.Content = append(f.get.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&value,
		)
	}
	return nil
}

// lookup returns the value node for key in a mapping node.
func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setScalar(m *yaml.Node, key, value string) {
	if node := lookup(m, key); node != nil {
		*node = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
		return
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
