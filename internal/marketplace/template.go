package marketplace

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

// Column is one column of the export sheet. Exactly one of Field or
// Attribute is set. Default fills attribute columns the product has no
// value for.
type Column struct {
	Header    string `yaml:"header"`
	Field     string `yaml:"field,omitempty"`     // canonical product field, e.g. "model"
	Attribute string `yaml:"attribute,omitempty"` // attribute code or name, e.g. "5704"
	Default   string `yaml:"default,omitempty"`
}

// Template describes the export workbook layout.
type Template struct {
	Sheet   string   `yaml:"sheet"`
	Columns []Column `yaml:"columns"`
}

// DefaultTemplate is the eMAG layout for angle grinder discs.
func DefaultTemplate() Template {
	return Template{
		Sheet: "Template",
		Columns: []Column{
			{Header: "part_number", Field: "model"},
			{Header: "name", Field: "name"},
			{Header: "main_image_url", Field: "mainImage"},
			{Header: "Tip produs: [5704]", Attribute: "5704", Default: "Disc"},
			{Header: "Suprafata lucru: [8541]", Attribute: "8541", Default: "Metal"},
			{Header: "Unealta compatibila: [8624]", Attribute: "8624", Default: "Polizor unghiular"},
			{Header: "Culoare: [5401]", Attribute: "5401", Default: "Multicolor"},
		},
	}
}

// LoadTemplate reads a Template from YAML and validates it.
func LoadTemplate(r io.Reader) (Template, error) {
	var t Template
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Template{}, fmt.Errorf("decode export template: %w", err)
	}
	if t.Sheet == "" {
		t.Sheet = "Template"
	}
	if err := t.Validate(); err != nil {
		return Template{}, err
	}
	return t, nil
}

// LoadTemplateFile is LoadTemplate for a file on disk.
func LoadTemplateFile(path string) (Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return Template{}, fmt.Errorf("open export template: %w", err)
	}
	defer f.Close()
	return LoadTemplate(f)
}

// Validate reports every malformed column at once.
func (t Template) Validate() error {
	var errs []string
	if len(t.Columns) == 0 {
		errs = append(errs, "no columns defined")
	}
	for i, c := range t.Columns {
		switch {
		case strings.TrimSpace(c.Header) == "":
			errs = append(errs, fmt.Sprintf("column %d: header is required", i+1))
		case c.Field == "" && c.Attribute == "":
			errs = append(errs, fmt.Sprintf("column %q: field or attribute is required", c.Header))
		case c.Field != "" && c.Attribute != "":
			errs = append(errs, fmt.Sprintf("column %q: field and attribute are exclusive", c.Header))
		case c.Field != "" && !core.IsCanonicalField(c.Field):
			errs = append(errs, fmt.Sprintf("column %q: unknown product field %q", c.Header, c.Field))
		}
	}
	if len(errs) > 0 {
		return errors.New("invalid export template:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}
