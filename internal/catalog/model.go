package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Product is a catalog entry. Optional descriptive fields such as color,
// country or article live in Attributes and are flattened into the JSON form.
type Product struct {
	ID         int64
	Name       string
	Brand      string
	Price      float64
	Attributes map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Attribute returns the named attribute or an empty string.
func (p Product) Attribute(key string) string {
	return p.Attributes[key]
}

var reservedKeys = map[string]struct{}{
	"id": {}, "name": {}, "brand": {}, "price": {}, "createdAt": {}, "updatedAt": {},
}

// IsReservedKey reports whether key names a core product field and therefore
// cannot be used as an attribute.
func IsReservedKey(key string) bool {
	_, ok := reservedKeys[key]
	return ok
}

func (p Product) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Attributes)+6)
	for k, v := range p.Attributes {
		out[k] = v
	}
	out["id"] = p.ID
	out["name"] = p.Name
	out["brand"] = p.Brand
	out["price"] = p.Price
	out["createdAt"] = p.CreatedAt
	out["updatedAt"] = p.UpdatedAt
	return json.Marshal(out)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var decoded Product
	for key, raw := range fields {
		var err error
		switch key {
		case "id":
			err = json.Unmarshal(raw, &decoded.ID)
		case "name":
			err = json.Unmarshal(raw, &decoded.Name)
		case "brand":
			err = json.Unmarshal(raw, &decoded.Brand)
		case "price":
			err = json.Unmarshal(raw, &decoded.Price)
		case "createdAt":
			err = json.Unmarshal(raw, &decoded.CreatedAt)
		case "updatedAt":
			err = json.Unmarshal(raw, &decoded.UpdatedAt)
		default:
			var value string
			var ok bool
			value, ok, err = attributeValue(raw)
			if ok {
				if decoded.Attributes == nil {
					decoded.Attributes = map[string]string{}
				}
				decoded.Attributes[key] = value
			}
		}
		if err != nil {
			return fmt.Errorf("catalog: decode %s: %w", key, err)
		}
	}
	*p = decoded
	return nil
}

// Draft is the input for creating a product.
type Draft struct {
	Name       string            `validate:"required,max=255"`
	Brand      string            `validate:"required,max=255"`
	Price      *float64          `validate:"required,gte=0"`
	Attributes map[string]string `validate:"max=32,dive,keys,min=1,max=64,endkeys,max=1000"`
}

// Patch is the input for updating a product. Nil core fields keep their stored
// value; Attributes always replaces the stored set.
type Patch struct {
	Name       *string           `validate:"omitempty,min=1,max=255"`
	Brand      *string           `validate:"omitempty,min=1,max=255"`
	Price      *float64          `validate:"omitempty,gte=0"`
	Attributes map[string]string `validate:"max=32,dive,keys,min=1,max=64,endkeys,max=1000"`
}

func (d *Draft) UnmarshalJSON(data []byte) error {
	var core struct {
		Name  string   `json:"name"`
		Brand string   `json:"brand"`
		Price *float64 `json:"price"`
	}
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}
	attrs, err := decodeAttributes(data)
	if err != nil {
		return err
	}
	*d = Draft{Name: core.Name, Brand: core.Brand, Price: core.Price, Attributes: attrs}
	return nil
}

func (p *Patch) UnmarshalJSON(data []byte) error {
	var core struct {
		Name  *string  `json:"name"`
		Brand *string  `json:"brand"`
		Price *float64 `json:"price"`
	}
	if err := json.Unmarshal(data, &core); err != nil {
		return err
	}
	attrs, err := decodeAttributes(data)
	if err != nil {
		return err
	}
	*p = Patch{Name: core.Name, Brand: core.Brand, Price: core.Price, Attributes: attrs}
	return nil
}

func decodeAttributes(data []byte) (map[string]string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	attrs := map[string]string{}
	for key, raw := range fields {
		if IsReservedKey(key) {
			continue
		}
		value, ok, err := attributeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("catalog: decode %s: %w", key, err)
		}
		if ok {
			attrs[key] = value
		}
	}
	return attrs, nil
}

// attributeValue accepts strings, numbers and booleans; null and blank values
// are dropped.
func attributeValue(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	case '{', '[':
		return "", false, fmt.Errorf("attribute must be a scalar")
	case 't', 'f':
		b, err := strconv.ParseBool(string(raw))
		if err != nil {
			return "", false, err
		}
		return strconv.FormatBool(b), true, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false, err
		}
		return n.String(), true, nil
	}
}

// Filter narrows a product listing. Zero values do not filter.
type Filter struct {
	Search     string
	Brand      string
	Attributes map[string]string
	MinPrice   *float64
	MaxPrice   *float64
}
