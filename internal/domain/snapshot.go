package domain

import "strings"

const snapshotAttrPrefix = "attr:"

// ProductSnapshot is the product identity frozen onto an order item at
// checkout time. It is never re-synced with the catalog, which is what
// keeps historical orders displaying as-purchased product data.
type ProductSnapshot struct {
	Name              string            `json:"name"`
	SKU               string            `json:"sku,omitempty"`
	Slug              string            `json:"slug,omitempty"`
	VariantSKU        string            `json:"variant_sku,omitempty"`
	VariantAttributes map[string]string `json:"variant_attributes,omitempty"`
}

// NewProductSnapshot captures the live product and (optional) variant.
func NewProductSnapshot(p *Product, v *ProductVariant) (ProductSnapshot, error) {
	if p == nil || p.Name == "" {
		return ProductSnapshot{}, ErrSnapshotNameRequired
	}
	s := ProductSnapshot{
		Name: p.Name,
		SKU:  p.SKU,
		Slug: p.Slug,
	}
	if v != nil {
		s.VariantSKU = v.SKU
		if len(v.Attributes) > 0 {
			s.VariantAttributes = make(map[string]string, len(v.Attributes))
			for k, val := range v.Attributes {
				s.VariantAttributes[k] = val
			}
		}
	}
	return s, nil
}

// ToMap flattens the snapshot to a generic key-value form for storage.
// Variant attributes are stored under an "attr:" key prefix.
func (s ProductSnapshot) ToMap() map[string]string {
	m := map[string]string{"name": s.Name}
	if s.SKU != "" {
		m["sku"] = s.SKU
	}
	if s.Slug != "" {
		m["slug"] = s.Slug
	}
	if s.VariantSKU != "" {
		m["variant_sku"] = s.VariantSKU
	}
	for k, v := range s.VariantAttributes {
		m[snapshotAttrPrefix+k] = v
	}
	return m
}

// SnapshotFromMap rebuilds a snapshot from its stored key-value form.
func SnapshotFromMap(m map[string]string) (ProductSnapshot, error) {
	if m["name"] == "" {
		return ProductSnapshot{}, ErrSnapshotNameRequired
	}
	s := ProductSnapshot{
		Name:       m["name"],
		SKU:        m["sku"],
		Slug:       m["slug"],
		VariantSKU: m["variant_sku"],
	}
	for k, v := range m {
		if strings.HasPrefix(k, snapshotAttrPrefix) {
			if s.VariantAttributes == nil {
				s.VariantAttributes = make(map[string]string)
			}
			s.VariantAttributes[strings.TrimPrefix(k, snapshotAttrPrefix)] = v
		}
	}
	return s, nil
}
