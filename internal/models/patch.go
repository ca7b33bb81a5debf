package models

// IntactFields is the variant section of a patch switching a listing to, or
// editing, an intact bottle.
type IntactFields struct {
	BottleSizeML float64 `json:"bottle_size_ml"`
	Price        float64 `json:"price"`
}

// PartialFields mirrors IntactFields for partial bottles.
type PartialFields struct {
	PartialLeftML float64 `json:"partial_left_ml"`
	Price         float64 `json:"price"`
}

// DecantFields carries the full replacement option set for a decant.
type DecantFields struct {
	Options []DecantOption `json:"options"`
}

// ListingPatch is a closed union: nil fields are left untouched, and at most
// one variant section may be set. Setting a variant section replaces the
// variant wholesale, nulling the other variants' fields.
type ListingPatch struct {
	Brand     *string  `json:"brand,omitempty"`
	SubBrand  *string  `json:"sub_brand,omitempty"`
	Name      *string  `json:"name,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"`

	Intact  *IntactFields  `json:"intact,omitempty"`
	Partial *PartialFields `json:"partial,omitempty"`
	Decant  *DecantFields  `json:"decant,omitempty"`
}

func (p *ListingPatch) variantSections() int {
	n := 0
	if p.Intact != nil {
		n++
	}
	if p.Partial != nil {
		n++
	}
	if p.Decant != nil {
		n++
	}
	return n
}

// Validate reports violated rules keyed by field, empty when the patch is
// applicable.
func (p *ListingPatch) Validate() map[string]string {
	errs := make(map[string]string)

	if p.variantSections() > 1 {
		errs["variant"] = "A patch may set at most one variant section"
	}
	if p.Brand != nil && trimmed(*p.Brand) == "" {
		errs["brand"] = "Brand is required"
	}
	if p.Name != nil && trimmed(*p.Name) == "" {
		errs["name"] = "Perfume name is required"
	}
	if p.ImageURLs != nil && len(p.ImageURLs) == 0 {
		errs["image_urls"] = "At least one image is required"
	}
	if p.Intact != nil {
		if p.Intact.BottleSizeML <= 0 {
			errs["bottle_size_ml"] = "Bottle size must be a positive number"
		}
		if p.Intact.Price <= 0 {
			errs["price"] = "Price must be a positive number"
		}
	}
	if p.Partial != nil {
		if p.Partial.PartialLeftML <= 0 {
			errs["partial_left_ml"] = "Amount remaining must be a positive number"
		}
		if p.Partial.Price <= 0 {
			errs["price"] = "Price must be a positive number"
		}
	}
	if p.Decant != nil {
		ok := false
		for _, o := range p.Decant.Options {
			if o.SizeML > 0 && o.Price > 0 {
				ok = true
				break
			}
		}
		if !ok {
			errs["decant_options"] = "At least one decant option with positive size and price is required"
		}
	}

	return errs
}

// ApplyTo returns a patched copy of l. The receiver and l are not mutated.
// Variant sections funnel through the same setters ShapeForVariant uses, so a
// patched listing can never mix variant fields.
func (p *ListingPatch) ApplyTo(l *Listing) *Listing {
	out := l.Clone()

	if p.Brand != nil {
		out.Brand = trimmed(*p.Brand)
	}
	if p.SubBrand != nil {
		out.SubBrand = trimmed(*p.SubBrand)
	}
	if p.Name != nil {
		out.Name = trimmed(*p.Name)
	}
	if p.ImageURLs != nil {
		out.ImageURLs = append([]string(nil), p.ImageURLs...)
	}

	switch {
	case p.Intact != nil:
		out.setIntact(p.Intact.BottleSizeML, p.Intact.Price)
	case p.Partial != nil:
		out.setPartial(p.Partial.PartialLeftML, p.Partial.Price)
	case p.Decant != nil:
		out.setDecant(append([]DecantOption(nil), p.Decant.Options...))
	}

	return out
}
