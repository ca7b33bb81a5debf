package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrUnknownVariant is returned when a draft or patch names no valid variant.
var ErrUnknownVariant = errors.New("unknown listing variant")

func trimmed(s string) string { return strings.TrimSpace(s) }

// Variant discriminates the three sellable forms of a listing.
type Variant string

const (
	VariantIntact  Variant = "intact"
	VariantPartial Variant = "partial"
	VariantDecant  Variant = "decant"
)

// ContactChannels accepted by the click counter.
var ContactChannels = []string{
	"whatsapp",
	"messenger",
	"facebook",
	"phone",
}

func IsContactChannel(ch string) bool {
	for _, c := range ContactChannels {
		if c == ch {
			return true
		}
	}
	return false
}

// DecantOption is one announced (size, price) pair on a decant listing.
type DecantOption struct {
	SizeML float64 `json:"size_ml" bson:"size_ml"`
	Price  float64 `json:"price" bson:"price"`
}

// Listing is a sellable offer owned by exactly one user. Exactly one variant's
// fields are populated; the other variants' fields are nil. ShapeForVariant is
// the only place allowed to decide which.
type Listing struct {
	ID       string `json:"id" bson:"_id"`
	UserID   string `json:"user_id" bson:"user_id"`
	Brand    string `json:"brand" bson:"brand"`
	SubBrand string `json:"sub_brand,omitempty" bson:"sub_brand,omitempty"`
	Name     string `json:"name" bson:"name"`

	ImageURLs []string `json:"image_urls" bson:"image_urls"`

	Variant       Variant        `json:"variant" bson:"variant"`
	BottleSizeML  *float64       `json:"bottle_size_ml" bson:"bottle_size_ml,omitempty"`
	PartialLeftML *float64       `json:"partial_left_ml" bson:"partial_left_ml,omitempty"`
	Price         *float64       `json:"price" bson:"price,omitempty"`
	DecantOptions []DecantOption `json:"decant_options" bson:"decant_options,omitempty"`
	// MinPrice is derived from DecantOptions and stored so list sorting and
	// badges never recompute it.
	MinPrice *float64 `json:"min_price" bson:"min_price,omitempty"`

	ContactClicks map[string]int `json:"contact_clicks,omitempty" bson:"contact_clicks,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy. Cached listings are shared across goroutines, so
// every optimistic write works on a copy.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	c := *l
	if l.ImageURLs != nil {
		c.ImageURLs = append([]string(nil), l.ImageURLs...)
	}
	if l.DecantOptions != nil {
		c.DecantOptions = append([]DecantOption(nil), l.DecantOptions...)
	}
	if l.BottleSizeML != nil {
		v := *l.BottleSizeML
		c.BottleSizeML = &v
	}
	if l.PartialLeftML != nil {
		v := *l.PartialLeftML
		c.PartialLeftML = &v
	}
	if l.Price != nil {
		v := *l.Price
		c.Price = &v
	}
	if l.MinPrice != nil {
		v := *l.MinPrice
		c.MinPrice = &v
	}
	if l.ContactClicks != nil {
		c.ContactClicks = make(map[string]int, len(l.ContactClicks))
		for k, v := range l.ContactClicks {
			c.ContactClicks[k] = v
		}
	}
	return &c
}

// DecantOptionDraft carries form input before coercion.
type DecantOptionDraft struct {
	SizeML json.Number `json:"size_ml"`
	Price  json.Number `json:"price"`
}

// ListingDraft is the create/edit form payload. Numeric fields arrive as
// json.Number so both string form inputs and raw numbers decode.
type ListingDraft struct {
	Brand    string `json:"brand"`
	SubBrand string `json:"sub_brand"`
	Name     string `json:"name"`

	ImageURLs []string `json:"image_urls"`

	Variant       Variant             `json:"variant"`
	BottleSizeML  json.Number         `json:"bottle_size_ml"`
	PartialLeftML json.Number         `json:"partial_left_ml"`
	Price         json.Number         `json:"price"`
	DecantOptions []DecantOptionDraft `json:"decant_options"`
}

type draftRule struct {
	field string
	msg   string
}

// rules returns the violated rules in checking order, first violation first.
func (d *ListingDraft) rules() []draftRule {
	var out []draftRule

	if trimmed(d.Brand) == "" {
		out = append(out, draftRule{"brand", "Brand is required"})
	}
	if trimmed(d.Name) == "" {
		out = append(out, draftRule{"name", "Perfume name is required"})
	}
	if len(d.ImageURLs) == 0 {
		out = append(out, draftRule{"image_urls", "At least one image is required"})
	}

	switch d.Variant {
	case VariantIntact:
		if !positiveNumber(d.BottleSizeML) {
			out = append(out, draftRule{"bottle_size_ml", "Bottle size must be a positive number"})
		}
		if !positiveNumber(d.Price) {
			out = append(out, draftRule{"price", "Price must be a positive number"})
		}
	case VariantPartial:
		if !positiveNumber(d.PartialLeftML) {
			out = append(out, draftRule{"partial_left_ml", "Amount remaining must be a positive number"})
		}
		if !positiveNumber(d.Price) {
			out = append(out, draftRule{"price", "Price must be a positive number"})
		}
	case VariantDecant:
		if !hasPositiveDecantPair(d.DecantOptions) {
			out = append(out, draftRule{"decant_options", "At least one decant option with positive size and price is required"})
		}
	default:
		out = append(out, draftRule{"variant", "Variant must be one of: intact, partial, decant"})
	}

	return out
}

// Validate reports every violated rule keyed by field.
func (d *ListingDraft) Validate() map[string]string {
	errs := make(map[string]string)
	for _, r := range d.rules() {
		if _, seen := errs[r.field]; !seen {
			errs[r.field] = r.msg
		}
	}
	return errs
}

// FirstError returns the first violated rule's message, or "" when the draft
// is valid. Form surfaces show exactly this string.
func (d *ListingDraft) FirstError() string {
	if rs := d.rules(); len(rs) > 0 {
		return rs[0].msg
	}
	return ""
}

// ShapeForVariant coerces draft numerics and produces the listing fields for
// the chosen variant, with the other variants' fields nil. Every write path
// must go through here before persisting; nothing else decides exclusivity.
func (d *ListingDraft) ShapeForVariant() (*Listing, error) {
	l := &Listing{
		Brand:     trimmed(d.Brand),
		SubBrand:  trimmed(d.SubBrand),
		Name:      trimmed(d.Name),
		ImageURLs: append([]string(nil), d.ImageURLs...),
	}

	switch d.Variant {
	case VariantIntact:
		size, err := d.BottleSizeML.Float64()
		if err != nil {
			return nil, err
		}
		price, err := d.Price.Float64()
		if err != nil {
			return nil, err
		}
		l.setIntact(size, price)
	case VariantPartial:
		left, err := d.PartialLeftML.Float64()
		if err != nil {
			return nil, err
		}
		price, err := d.Price.Float64()
		if err != nil {
			return nil, err
		}
		l.setPartial(left, price)
	case VariantDecant:
		opts := make([]DecantOption, 0, len(d.DecantOptions))
		for _, o := range d.DecantOptions {
			size, err := o.SizeML.Float64()
			if err != nil {
				return nil, err
			}
			price, err := o.Price.Float64()
			if err != nil {
				return nil, err
			}
			opts = append(opts, DecantOption{SizeML: size, Price: price})
		}
		l.setDecant(opts)
	default:
		return nil, ErrUnknownVariant
	}

	return l, nil
}

// setIntact, setPartial and setDecant are the only mutators of variant fields.
// Each nulls the other variants' fields.

func (l *Listing) setIntact(sizeML, price float64) {
	l.Variant = VariantIntact
	l.BottleSizeML = &sizeML
	l.Price = &price
	l.PartialLeftML = nil
	l.DecantOptions = nil
	l.MinPrice = nil
}

func (l *Listing) setPartial(leftML, price float64) {
	l.Variant = VariantPartial
	l.PartialLeftML = &leftML
	l.Price = &price
	l.BottleSizeML = nil
	l.DecantOptions = nil
	l.MinPrice = nil
}

func (l *Listing) setDecant(opts []DecantOption) {
	l.Variant = VariantDecant
	l.DecantOptions = opts
	l.BottleSizeML = nil
	l.PartialLeftML = nil
	l.Price = nil
	l.MinPrice = nil
	for i, o := range opts {
		if i == 0 || o.Price < *l.MinPrice {
			p := o.Price
			l.MinPrice = &p
		}
	}
}

func positiveNumber(n json.Number) bool {
	v, err := n.Float64()
	return err == nil && v > 0
}

func hasPositiveDecantPair(opts []DecantOptionDraft) bool {
	for _, o := range opts {
		if positiveNumber(o.SizeML) && positiveNumber(o.Price) {
			return true
		}
	}
	return false
}
