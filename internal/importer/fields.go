// Package importer turns spreadsheet grids into catalog products: it maps
// header cells to product fields, normalizes and validates rows and writes the
// surviving records through a single store session.
package importer

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Field names a product property a column can feed.
type Field string

// Core fields. Every other Field is stored as a product attribute.
const (
	FieldName  Field = "name"
	FieldBrand Field = "brand"
	FieldPrice Field = "price"
)

// IsCore reports whether f is stored in a dedicated product column.
func (f Field) IsCore() bool {
	return f == FieldName || f == FieldBrand || f == FieldPrice
}

var defaultSynonyms = map[string]Field{
	"name":                "name",
	"product name":        "name",
	"название":            "name",
	"название товара":     "name",
	"brand":               "brand",
	"бренд":               "brand",
	"price":               "price",
	"цена":                "price",
	"цена, руб.*":         "price",
	"цена руб":            "price",
	"цена, руб":           "price",
	"color":               "color",
	"цвет":                "color",
	"country":             "country",
	"страна-изготовитель": "country",
	"страна изготовитель": "country",
	"страна":              "country",
	"article":             "article",
	"артикул":             "article",
	"description":         "description",
	"описание":            "description",
	"category":            "category",
	"категория":           "category",
}

// NormalizeHeader trims, composes and case-folds a header cell so that
// "Name", " name " and "NAME" compare equal.
func NormalizeHeader(h string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(h)))
}

// FieldTable maps normalized header text to fields. The zero value maps
// nothing; use DefaultFieldTable.
type FieldTable struct {
	synonyms map[string]Field
}

// DefaultFieldTable returns the built-in English and Russian header synonyms.
func DefaultFieldTable() *FieldTable {
	t := &FieldTable{synonyms: make(map[string]Field, len(defaultSynonyms))}
	for header, field := range defaultSynonyms {
		t.Add(header, field)
	}
	return t
}

// Add registers header as a synonym of field.
func (t *FieldTable) Add(header string, field Field) {
	if t.synonyms == nil {
		t.synonyms = make(map[string]Field)
	}
	t.synonyms[NormalizeHeader(header)] = field
}

// Lookup resolves a raw header cell.
func (t *FieldTable) Lookup(header string) (Field, bool) {
	if t == nil {
		return "", false
	}
	f, ok := t.synonyms[NormalizeHeader(header)]
	return f, ok
}

// Fields lists the distinct fields known to the table, sorted.
func (t *FieldTable) Fields() []Field {
	seen := map[Field]struct{}{}
	for _, f := range t.synonyms {
		seen[f] = struct{}{}
	}
	out := make([]Field, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AttributeKeys lists the non-core fields, sorted.
func (t *FieldTable) AttributeKeys() []string {
	var keys []string
	for _, f := range t.Fields() {
		if !f.IsCore() {
			keys = append(keys, string(f))
		}
	}
	return keys
}

// synonymFile is the on-disk shape of a table extension:
//
//	fields:
//	  article: [sku, "код товара"]
//	  material: [материал]
type synonymFile struct {
	Fields map[string][]string `yaml:"fields"`
}

// LoadFieldTable returns the default table extended with the synonyms in the
// YAML file at path. An empty path yields the defaults.
func LoadFieldTable(path string) (*FieldTable, error) {
	table := DefaultFieldTable()
	if path == "" {
		return table, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("importer: read field synonyms: %w", err)
	}
	var file synonymFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("importer: parse field synonyms: %w", err)
	}
	for name, headers := range file.Fields {
		field := Field(strings.TrimSpace(name))
		if field == "" || reservedAttribute(field) {
			return nil, fmt.Errorf("importer: field synonyms: %q cannot be used as a field", name)
		}
		table.Add(string(field), field)
		for _, h := range headers {
			table.Add(h, field)
		}
	}
	return table, nil
}

func reservedAttribute(f Field) bool {
	switch f {
	case "id", "createdAt", "updatedAt":
		return true
	}
	return false
}

// Column binds a grid column to a field.
type Column struct {
	Index int
	Field Field
}

// ColumnMap lists the recognised columns in grid order.
type ColumnMap []Column

// Map resolves each header cell against the table. Unknown headers are left
// out; several columns may feed the same field.
func (t *FieldTable) Map(headers []string) ColumnMap {
	cols := ColumnMap{}
	for i, h := range headers {
		if f, ok := t.Lookup(h); ok {
			cols = append(cols, Column{Index: i, Field: f})
		}
	}
	return cols
}
