package metadata

import (
	"bytes"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/matzehuels/neptune-utils/pkg/errors"
)

// FileName is the name metadata is saved under in an export directory.
const FileName = "config.json"

type propertyJSON struct {
	Property     string   `json:"property"`
	DataType     DataType `json:"dataType"`
	IsMultiValue bool     `json:"isMultiValue"`
}

type labelJSON struct {
	Label      string         `json:"label"`
	Properties []propertyJSON `json:"properties"`
}

// MarshalJSON writes the collection as
// {"nodes":[{"label":...,"properties":[...]}],"edges":[...]}.
func (c *Collection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.Types() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		m := c.PropertyMetadataFor(name)
		labels := make([]labelJSON, 0)
		for _, label := range m.Labels() {
			lm, _ := m.Label(label)
			lj := labelJSON{Label: label, Properties: make([]propertyJSON, 0, lm.Len())}
			for _, key := range lm.Keys() {
				p, _ := lm.Property(key)
				lj.Properties = append(lj.Properties, propertyJSON{
					Property:     key,
					DataType:     p.DataType,
					IsMultiValue: p.Multi,
				})
			}
			labels = append(labels, lj)
		}
		data, err := json.Marshal(labels)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the format written by MarshalJSON. Element types are
// restored in document order.
func (c *Collection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New(errors.ErrCodeInvalidFormat, "metadata must be a JSON object")
	}

	if c.types == nil {
		c.types = make(map[string]*PropertiesMetadata)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var labels []labelJSON
		if err := dec.Decode(&labels); err != nil {
			return err
		}
		m := c.PropertyMetadataFor(name)
		for _, lj := range labels {
			lm := m.AddLabel(lj.Label)
			for _, p := range lj.Properties {
				lm.Set(p.Property, PropertyMetadata{DataType: p.DataType, Multi: p.IsMultiValue})
			}
		}
	}
	return nil
}

// Write encodes the collection as indented JSON.
func (c *Collection) Write(w io.Writer) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode metadata")
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// Save writes the collection to path, creating parent directories.
func (c *Collection) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a collection from r.
func Read(r io.Reader) (*Collection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c := NewCollection()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode metadata")
	}
	return c, nil
}

// Load reads a collection saved with Save.
func Load(path string) (*Collection, error) {
	f, err := os.Open(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "metadata file %s", path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
