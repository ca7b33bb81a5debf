package models

import (
	"encoding/json"
	"testing"
)

func validIntactDraft() ListingDraft {
	return ListingDraft{
		Brand:        "Chanel",
		Name:         "Bleu de Chanel",
		ImageURLs:    []string{"https://img.example/1.jpg"},
		Variant:      VariantIntact,
		BottleSizeML: json.Number("100"),
		Price:        json.Number("120"),
	}
}

func validDecantDraft() ListingDraft {
	return ListingDraft{
		Brand:     "Xerjoff",
		Name:      "Naxos",
		ImageURLs: []string{"https://img.example/2.jpg"},
		Variant:   VariantDecant,
		DecantOptions: []DecantOptionDraft{
			{SizeML: json.Number("5"), Price: json.Number("18")},
			{SizeML: json.Number("10"), Price: json.Number("32")},
			{SizeML: json.Number("2"), Price: json.Number("9")},
		},
	}
}

func TestListingDraft_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ListingDraft)
		wantField string
	}{
		{"missing brand", func(d *ListingDraft) { d.Brand = "   " }, "brand"},
		{"missing name", func(d *ListingDraft) { d.Name = "" }, "name"},
		{"no images", func(d *ListingDraft) { d.ImageURLs = nil }, "image_urls"},
		{"zero bottle size", func(d *ListingDraft) { d.BottleSizeML = json.Number("0") }, "bottle_size_ml"},
		{"negative price", func(d *ListingDraft) { d.Price = json.Number("-5") }, "price"},
		{"unparsable price", func(d *ListingDraft) { d.Price = json.Number("abc") }, "price"},
		{"unknown variant", func(d *ListingDraft) { d.Variant = "spray" }, "variant"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validIntactDraft()
			tt.mutate(&d)
			errs := d.Validate()
			if _, ok := errs[tt.wantField]; !ok {
				t.Errorf("Validate() = %v; want error on %q", errs, tt.wantField)
			}
		})
	}

	t.Run("valid draft", func(t *testing.T) {
		d := validIntactDraft()
		if errs := d.Validate(); len(errs) != 0 {
			t.Errorf("Validate() = %v; want empty", errs)
		}
	})

	t.Run("partial requires amount remaining", func(t *testing.T) {
		d := validIntactDraft()
		d.Variant = VariantPartial
		errs := d.Validate()
		if _, ok := errs["partial_left_ml"]; !ok {
			t.Errorf("Validate() = %v; want error on partial_left_ml", errs)
		}
	})

	t.Run("decant requires a positive pair", func(t *testing.T) {
		d := validDecantDraft()
		d.DecantOptions = []DecantOptionDraft{
			{SizeML: json.Number("0"), Price: json.Number("10")},
			{SizeML: json.Number("5"), Price: json.Number("0")},
		}
		errs := d.Validate()
		if _, ok := errs["decant_options"]; !ok {
			t.Errorf("Validate() = %v; want error on decant_options", errs)
		}
	})
}

func TestListingDraft_FirstError_Order(t *testing.T) {
	d := validIntactDraft()
	d.Brand = ""
	d.ImageURLs = nil
	d.Price = json.Number("0")

	// Brand is checked before images and price.
	if got := d.FirstError(); got != "Brand is required" {
		t.Errorf("FirstError() = %q; want %q", got, "Brand is required")
	}
}

func TestShapeForVariant_Intact(t *testing.T) {
	d := validIntactDraft()
	l, err := d.ShapeForVariant()
	if err != nil {
		t.Fatalf("ShapeForVariant() error = %v", err)
	}

	if l.Variant != VariantIntact {
		t.Errorf("Variant = %q; want intact", l.Variant)
	}
	if l.BottleSizeML == nil || *l.BottleSizeML != 100 {
		t.Errorf("BottleSizeML = %v; want 100", l.BottleSizeML)
	}
	if l.Price == nil || *l.Price != 120 {
		t.Errorf("Price = %v; want 120", l.Price)
	}
	if l.PartialLeftML != nil || l.DecantOptions != nil || l.MinPrice != nil {
		t.Errorf("intact listing carries other variant fields: %+v", l)
	}
}

func TestShapeForVariant_Partial(t *testing.T) {
	d := validIntactDraft()
	d.Variant = VariantPartial
	d.PartialLeftML = json.Number("60")

	l, err := d.ShapeForVariant()
	if err != nil {
		t.Fatalf("ShapeForVariant() error = %v", err)
	}
	if l.PartialLeftML == nil || *l.PartialLeftML != 60 {
		t.Errorf("PartialLeftML = %v; want 60", l.PartialLeftML)
	}
	if l.BottleSizeML != nil || l.DecantOptions != nil || l.MinPrice != nil {
		t.Errorf("partial listing carries other variant fields: %+v", l)
	}
}

func TestShapeForVariant_DecantMinPrice(t *testing.T) {
	d := validDecantDraft()
	l, err := d.ShapeForVariant()
	if err != nil {
		t.Fatalf("ShapeForVariant() error = %v", err)
	}

	if len(l.DecantOptions) != 3 {
		t.Fatalf("DecantOptions = %d; want 3", len(l.DecantOptions))
	}
	if l.MinPrice == nil || *l.MinPrice != 9 {
		t.Errorf("MinPrice = %v; want 9", l.MinPrice)
	}
	if l.BottleSizeML != nil || l.PartialLeftML != nil || l.Price != nil {
		t.Errorf("decant listing carries other variant fields: %+v", l)
	}
}

func TestShapeForVariant_UnknownVariant(t *testing.T) {
	d := validIntactDraft()
	d.Variant = "sample"
	if _, err := d.ShapeForVariant(); err != ErrUnknownVariant {
		t.Errorf("ShapeForVariant() error = %v; want ErrUnknownVariant", err)
	}
}

func TestListingPatch_Validate(t *testing.T) {
	t.Run("two variant sections rejected", func(t *testing.T) {
		p := ListingPatch{
			Intact:  &IntactFields{BottleSizeML: 100, Price: 50},
			Partial: &PartialFields{PartialLeftML: 30, Price: 20},
		}
		errs := p.Validate()
		if _, ok := errs["variant"]; !ok {
			t.Errorf("Validate() = %v; want error on variant", errs)
		}
	})

	t.Run("emptying images rejected", func(t *testing.T) {
		p := ListingPatch{ImageURLs: []string{}}
		errs := p.Validate()
		if _, ok := errs["image_urls"]; !ok {
			t.Errorf("Validate() = %v; want error on image_urls", errs)
		}
	})

	t.Run("touching nothing is valid", func(t *testing.T) {
		var p ListingPatch
		if errs := p.Validate(); len(errs) != 0 {
			t.Errorf("Validate() = %v; want empty", errs)
		}
	})
}

func TestListingPatch_ApplyTo_SwitchesVariant(t *testing.T) {
	d := validIntactDraft()
	orig, err := d.ShapeForVariant()
	if err != nil {
		t.Fatalf("ShapeForVariant() error = %v", err)
	}
	orig.ID = "l1"

	p := ListingPatch{
		Decant: &DecantFields{Options: []DecantOption{
			{SizeML: 5, Price: 14},
			{SizeML: 10, Price: 25},
		}},
	}
	out := p.ApplyTo(orig)

	if out.Variant != VariantDecant {
		t.Errorf("Variant = %q; want decant", out.Variant)
	}
	if out.BottleSizeML != nil || out.Price != nil {
		t.Errorf("patched decant keeps intact fields: %+v", out)
	}
	if out.MinPrice == nil || *out.MinPrice != 14 {
		t.Errorf("MinPrice = %v; want 14", out.MinPrice)
	}

	// The original is untouched.
	if orig.Variant != VariantIntact || orig.BottleSizeML == nil {
		t.Errorf("ApplyTo mutated its input: %+v", orig)
	}
}

func TestListingPatch_ApplyTo_PartialUpdate(t *testing.T) {
	d := validIntactDraft()
	orig, _ := d.ShapeForVariant()

	newName := "Bleu de Chanel EDP"
	p := ListingPatch{Name: &newName}
	out := p.ApplyTo(orig)

	if out.Name != newName {
		t.Errorf("Name = %q; want %q", out.Name, newName)
	}
	if out.Variant != VariantIntact || out.BottleSizeML == nil || *out.BottleSizeML != 100 {
		t.Errorf("field patch disturbed variant fields: %+v", out)
	}
}

func TestListing_Clone_Deep(t *testing.T) {
	d := validDecantDraft()
	l, _ := d.ShapeForVariant()
	l.ContactClicks = map[string]int{"whatsapp": 2}

	c := l.Clone()
	c.ImageURLs[0] = "changed"
	c.DecantOptions[0].Price = 999
	c.ContactClicks["whatsapp"] = 7
	*c.MinPrice = 1

	if l.ImageURLs[0] == "changed" {
		t.Error("Clone shares ImageURLs backing array")
	}
	if l.DecantOptions[0].Price == 999 {
		t.Error("Clone shares DecantOptions backing array")
	}
	if l.ContactClicks["whatsapp"] != 2 {
		t.Error("Clone shares ContactClicks map")
	}
	if *l.MinPrice == 1 {
		t.Error("Clone shares MinPrice pointer")
	}
}

func TestIsContactChannel(t *testing.T) {
	for _, ch := range ContactChannels {
		if !IsContactChannel(ch) {
			t.Errorf("IsContactChannel(%q) = false; want true", ch)
		}
	}
	if IsContactChannel("email") {
		t.Error("IsContactChannel(email) = true; want false")
	}
}
