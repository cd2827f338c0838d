package format

import (
	"fmt"

	"esghandlers/pkg/handler"
	"esghandlers/pkg/types"
)

// AttributeFile is a data file whose global attributes are already in
// memory.
type AttributeFile struct {
	path  string
	attrs types.Attributes
}

// NewAttributeFile returns a file at path holding attrs. A nil map is
// treated as a file without attributes.
func NewAttributeFile(path string, attrs types.Attributes) *AttributeFile {
	if attrs == nil {
		attrs = make(types.Attributes)
	}
	return &AttributeFile{path: path, attrs: attrs}
}

// Path returns the data file path.
func (f *AttributeFile) Path() string {
	return f.path
}

// HasAttribute reports whether the global attribute is present.
func (f *AttributeFile) HasAttribute(name string) bool {
	_, ok := f.attrs[name]
	return ok
}

// GetAttribute returns the value of a global attribute.
func (f *AttributeFile) GetAttribute(name string) (string, error) {
	value, ok := f.attrs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", handler.ErrAttributeNotFound, name, f.path)
	}
	return value, nil
}

// Attributes returns a copy of the global attributes.
func (f *AttributeFile) Attributes() types.Attributes {
	out := make(types.Attributes, len(f.attrs))
	for k, v := range f.attrs {
		out[k] = v
	}
	return out
}
