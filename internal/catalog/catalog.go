// Package catalog loads the product catalog and configuration snapshot
// files used by the CLI and the reference pricing service.
package catalog

import (
	"bytes"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// Catalog is the set of products a pricing service can price.
type Catalog struct {
	Products []pricing.Product `yaml:"products"`
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("catalog file not found").WithContext("path", path).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read catalog").
			WithContext("path", path).
			Build()
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "failed to parse catalog").Build()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks product ids are present and unique.
func (c *Catalog) Validate() error {
	seen := make(map[string]struct{}, len(c.Products))
	for i, p := range c.Products {
		if p.ID == "" {
			return ferrors.ValidationError("catalog product without id").WithContext("index", i).Build()
		}
		if _, dup := seen[p.ID]; dup {
			return ferrors.ValidationError("duplicate catalog product").WithContext("product_id", p.ID).Build()
		}
		if p.Currency == "" {
			return ferrors.ValidationError("catalog product without currency").WithContext("product_id", p.ID).Build()
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// Product returns the product with id.
func (c *Catalog) Product(id string) (pricing.Product, error) {
	i := slices.IndexFunc(c.Products, func(p pricing.Product) bool { return p.ID == id })
	if i < 0 {
		return pricing.Product{}, ferrors.NotFoundError("unknown product").WithContext("product_id", id).Build()
	}
	return c.Products[i], nil
}

// IDs lists product ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Products))
	for _, p := range c.Products {
		ids = append(ids, p.ID)
	}
	return ids
}

// LoadSelection reads a configuration snapshot file. An empty file, or one
// containing only null, means no configuration and yields nil.
func LoadSelection(path string) (*pricing.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("selection file not found").WithContext("path", path).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read selection").
			WithContext("path", path).
			Build()
	}
	return ParseSelection(data)
}

// ParseSelection decodes a configuration snapshot.
func ParseSelection(data []byte) (*pricing.Configuration, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" || string(trimmed) == "~" {
		return nil, nil
	}
	var cfg pricing.Configuration
	if err := yaml.Unmarshal(trimmed, &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "failed to parse selection").Build()
	}
	if cfg.Quantity == 0 {
		cfg.Quantity = 1
	}
	if cfg.Quantity < 0 {
		return nil, ferrors.ValidationError("selection quantity must be positive").
			WithContext("quantity", cfg.Quantity).
			Build()
	}
	return &cfg, nil
}
