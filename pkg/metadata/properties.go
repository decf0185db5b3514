package metadata

import (
	"slices"
	"sort"
	"sync"
)

// PropertyMetadata describes one property of a label.
type PropertyMetadata struct {
	DataType DataType
	Multi    bool
}

// update folds an observed value into the metadata. Multi-valued
// properties arrive as lists.
func (p *PropertyMetadata) update(value any) {
	values, isList := value.([]any)
	if !isList {
		p.DataType = BroadestType(p.DataType, DataTypeFor(value))
		return
	}
	if len(values) > 1 {
		p.Multi = true
	}
	for _, v := range values {
		p.DataType = BroadestType(p.DataType, DataTypeFor(v))
	}
}

// LabelMetadata holds the properties seen on one label, in the order they
// were first observed.
type LabelMetadata struct {
	Label      string
	keys       []string
	properties map[string]*PropertyMetadata
}

func newLabelMetadata(label string) *LabelMetadata {
	return &LabelMetadata{Label: label, properties: make(map[string]*PropertyMetadata)}
}

// Keys returns the property names in order.
func (l *LabelMetadata) Keys() []string { return slices.Clone(l.keys) }

// Property returns the metadata of a property.
func (l *LabelMetadata) Property(key string) (PropertyMetadata, bool) {
	p, ok := l.properties[key]
	if !ok {
		return PropertyMetadata{}, false
	}
	return *p, true
}

// Set replaces the metadata of a property, adding it if needed.
func (l *LabelMetadata) Set(key string, p PropertyMetadata) {
	if existing, ok := l.properties[key]; ok {
		*existing = p
		return
	}
	l.keys = append(l.keys, key)
	l.properties[key] = &p
}

// Len returns the number of properties.
func (l *LabelMetadata) Len() int { return len(l.keys) }

// PropertiesMetadata is the property metadata of every label of one
// element type (nodes or edges). It is safe for concurrent use.
type PropertiesMetadata struct {
	mu     sync.RWMutex
	labels []string
	byName map[string]*LabelMetadata
}

// NewPropertiesMetadata returns empty metadata.
func NewPropertiesMetadata() *PropertiesMetadata {
	return &PropertiesMetadata{byName: make(map[string]*LabelMetadata)}
}

// Update records the properties of one element. New labels and properties
// are only added when allowStructuralChanges is set; otherwise only the
// types of known properties are broadened.
func (m *PropertiesMetadata) Update(label string, properties map[string]any, allowStructuralChanges bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lm, ok := m.byName[label]
	if !ok {
		if !allowStructuralChanges {
			return
		}
		lm = newLabelMetadata(label)
		m.labels = append(m.labels, label)
		m.byName[label] = lm
	}

	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		p, ok := lm.properties[key]
		if !ok {
			if !allowStructuralChanges {
				continue
			}
			p = &PropertyMetadata{}
			lm.keys = append(lm.keys, key)
			lm.properties[key] = p
		}
		p.update(properties[key])
	}
}

// Labels returns the known labels in the order they were first seen.
func (m *PropertiesMetadata) Labels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.labels)
}

// Label returns the metadata for a label.
func (m *PropertiesMetadata) Label(label string) (*LabelMetadata, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lm, ok := m.byName[label]
	return lm, ok
}

// HasLabel reports whether the label is known.
func (m *PropertiesMetadata) HasLabel(label string) bool {
	_, ok := m.Label(label)
	return ok
}

// AddLabel adds an empty label if it is not yet known and returns it.
func (m *PropertiesMetadata) AddLabel(label string) *LabelMetadata {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lm, ok := m.byName[label]; ok {
		return lm
	}
	lm := newLabelMetadata(label)
	m.labels = append(m.labels, label)
	m.byName[label] = lm
	return lm
}

// Collection holds property metadata per element type name ("nodes",
// "edges").
type Collection struct {
	mu    sync.Mutex
	names []string
	types map[string]*PropertiesMetadata
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{types: make(map[string]*PropertiesMetadata)}
}

// PropertyMetadataFor returns the metadata for an element type, creating it
// on first use.
func (c *Collection) PropertyMetadataFor(typeName string) *PropertiesMetadata {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.types[typeName]; ok {
		return m
	}
	m := NewPropertiesMetadata()
	c.names = append(c.names, typeName)
	c.types[typeName] = m
	return m
}

// Types returns the element type names present in the collection.
func (c *Collection) Types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.names)
}
