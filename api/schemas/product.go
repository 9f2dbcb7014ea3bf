package schemas

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// ProductStatus describes product availability.
type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductInactive     ProductStatus = "inactive"
	ProductDiscontinued ProductStatus = "discontinued"
	ProductComingSoon   ProductStatus = "coming_soon"
	ProductOutOfStock   ProductStatus = "out_of_stock"
)

// Purchasable reports whether the product can be bought.
func (s ProductStatus) Purchasable() bool {
	return s == ProductActive
}

// VisibleToCustomers reports whether the product should be listed.
func (s ProductStatus) VisibleToCustomers() bool {
	return s == ProductActive || s == ProductOutOfStock
}

// SockSize is the size range carried by the shop.
type SockSize string

const (
	SizeXS  SockSize = "xs"
	SizeS   SockSize = "s"
	SizeM   SockSize = "m"
	SizeL   SockSize = "l"
	SizeXL  SockSize = "xl"
	SizeXXL SockSize = "xxl"
)

// DisplayName returns the human-readable size name.
func (s SockSize) DisplayName() string {
	switch s {
	case SizeXS:
		return "Extra Small"
	case SizeS:
		return "Small"
	case SizeM:
		return "Medium"
	case SizeL:
		return "Large"
	case SizeXL:
		return "Extra Large"
	case SizeXXL:
		return "Double Extra Large"
	default:
		return string(s)
	}
}

// Valid reports whether the size is one the shop stocks.
func (s SockSize) Valid() bool {
	switch s {
	case SizeXS, SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return true
	}
	return false
}

// SockMaterial is the fabric a variant is made of.
type SockMaterial string

const (
	MaterialCotton    SockMaterial = "cotton"
	MaterialWool      SockMaterial = "wool"
	MaterialSynthetic SockMaterial = "synthetic"
	MaterialBamboo    SockMaterial = "bamboo"
	MaterialSilk      SockMaterial = "silk"
	MaterialBlend     SockMaterial = "blend"
)

// Description returns marketing copy for the material.
func (m SockMaterial) Description() string {
	switch m {
	case MaterialCotton:
		return "Soft and breathable cotton"
	case MaterialWool:
		return "Warm and moisture-wicking wool"
	case MaterialSynthetic:
		return "Durable synthetic material"
	case MaterialBamboo:
		return "Eco-friendly bamboo fiber"
	case MaterialSilk:
		return "Luxurious silk blend"
	case MaterialBlend:
		return "Mixed material blend"
	default:
		return string(m)
	}
}

// Category organizes products into a browsable taxonomy.
type Category struct {
	Entity

	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	SortOrder   int    `json:"sort_order"`
	IsFeatured  bool   `json:"is_featured"`
}

// Validate checks the category fields.
func (c *Category) Validate() error {
	if err := c.Entity.Validate(); err != nil {
		return err
	}
	if c.Name == "" || len(c.Name) > 100 {
		return errs.NewValidationError("name", "must be 1-100 characters")
	}
	if !slugPattern.MatchString(c.Slug) {
		return errs.NewValidationError("slug", "must contain only lowercase alphanumerics and hyphens")
	}
	return nil
}

var skuPattern = regexp.MustCompile(`^[A-Z0-9_-]{1,50}$`)

// Variant is a purchasable size/color/material combination of a product. Each
// variant carries its own SKU and pricing.
type Variant struct {
	ID             string       `json:"id"`
	SKU            string       `json:"sku"`
	Size           SockSize     `json:"size"`
	Color          string       `json:"color"`
	ColorHex       string       `json:"color_hex,omitempty"`
	Material       SockMaterial `json:"material"`
	Price          Money        `json:"price"`
	CompareAtPrice *Money       `json:"compare_at_price,omitempty"`
	CostPrice      *Money       `json:"-"`
	WeightGrams    int          `json:"weight_grams,omitempty"`
	Barcode        string       `json:"barcode,omitempty"`
}

// Validate checks the variant fields and its pricing relationships.
func (v *Variant) Validate() error {
	if !skuPattern.MatchString(v.SKU) {
		return errs.NewValidationError("sku", "must be 1-50 uppercase alphanumerics, hyphens, or underscores")
	}
	if !v.Size.Valid() {
		return errs.NewValidationError("size", fmt.Sprintf("unknown size %q", v.Size))
	}
	if v.Color == "" {
		return errs.NewValidationError("color", "must not be empty")
	}
	if err := v.Price.Validate(); err != nil {
		return err
	}
	if v.CompareAtPrice != nil {
		if v.CompareAtPrice.Currency != v.Price.Currency {
			return errs.NewValidationError("compare_at_price", "must use the same currency as price")
		}
		if v.CompareAtPrice.Cents <= v.Price.Cents {
			return errs.NewValidationError("compare_at_price", "must be higher than the current price")
		}
	}
	if v.CostPrice != nil && v.CostPrice.Currency != v.Price.Currency {
		return errs.NewValidationError("cost_price", "must use the same currency as price")
	}
	return nil
}

// OnSale reports whether the variant has a struck-through compare price.
func (v *Variant) OnSale() bool {
	return v.CompareAtPrice != nil
}

// DiscountPercentage returns how deep the discount is, 0 when not on sale.
func (v *Variant) DiscountPercentage() int {
	if v.CompareAtPrice == nil || v.CompareAtPrice.Cents == 0 {
		return 0
	}
	diff := v.CompareAtPrice.Cents - v.Price.Cents
	return int((diff*100 + v.CompareAtPrice.Cents/2) / v.CompareAtPrice.Cents)
}

// Inventory tracks stock for a single variant.
type Inventory struct {
	VariantID        string     `json:"variant_id"`
	Quantity         int        `json:"quantity"`
	ReservedQuantity int        `json:"reserved_quantity"`
	IncomingQuantity int        `json:"incoming_quantity"`
	MinimumQuantity  int        `json:"minimum_quantity"`
	TrackInventory   bool       `json:"track_inventory"`
	AllowBackorder   bool       `json:"allow_backorder"`
	Location         string     `json:"location,omitempty"`
	LastRestockedAt  *time.Time `json:"last_restocked_at,omitempty"`
}

// Available returns the quantity not reserved for pending orders.
func (i *Inventory) Available() int {
	return i.Quantity - i.ReservedQuantity
}

// InStock reports whether the variant can be ordered right now.
func (i *Inventory) InStock() bool {
	if !i.TrackInventory {
		return true
	}
	return i.Available() > 0 || i.AllowBackorder
}

// NeedsRestock reports whether available stock hit the reorder point.
func (i *Inventory) NeedsRestock() bool {
	return i.Available() <= i.MinimumQuantity
}

// Reserve holds stock for an order. Returns false when not enough is free.
func (i *Inventory) Reserve(quantity int) bool {
	if quantity <= 0 || i.Available() < quantity {
		return false
	}
	i.ReservedQuantity += quantity
	return true
}

// Release returns previously reserved stock to the pool.
func (i *Inventory) Release(quantity int) bool {
	if quantity <= 0 || i.ReservedQuantity < quantity {
		return false
	}
	i.ReservedQuantity -= quantity
	return true
}

// Fulfill consumes reserved stock when an order ships.
func (i *Inventory) Fulfill(quantity int) bool {
	if quantity <= 0 || i.ReservedQuantity < quantity || i.Quantity < quantity {
		return false
	}
	i.Quantity -= quantity
	i.ReservedQuantity -= quantity
	return true
}

// Product is the aggregate root of the catalogue domain.
type Product struct {
	Entity

	Name            string        `json:"name"`
	Slug            string        `json:"slug"`
	Description     string        `json:"description"`
	CategoryID      string        `json:"category_id"`
	Tags            []string      `json:"tags,omitempty"`
	Status          ProductStatus `json:"status"`
	IsFeatured      bool          `json:"is_featured"`
	Images          []string      `json:"images,omitempty"`
	PrimaryImageURL string        `json:"primary_image_url,omitempty"`
	Variants        []Variant     `json:"variants"`
	Brand           string        `json:"brand,omitempty"`
	ViewCount       int           `json:"view_count"`
	PurchaseCount   int           `json:"purchase_count"`
}

// Validate checks the product and all its variants.
func (p *Product) Validate() error {
	if err := p.Entity.Validate(); err != nil {
		return err
	}
	if p.Name == "" || len(p.Name) > 200 {
		return errs.NewValidationError("name", "must be 1-200 characters")
	}
	if !slugPattern.MatchString(p.Slug) {
		return errs.NewValidationError("slug", "must contain only lowercase alphanumerics and hyphens")
	}
	if len(p.Description) < 10 {
		return errs.NewValidationError("description", "must be at least 10 characters")
	}
	if p.CategoryID == "" {
		return errs.NewValidationError("category_id", "must not be empty")
	}
	if len(p.Variants) == 0 {
		return errs.NewValidationError("variants", "product must have at least one variant")
	}

	seen := make(map[string]struct{}, len(p.Variants))
	for i := range p.Variants {
		v := &p.Variants[i]
		if err := v.Validate(); err != nil {
			return err
		}
		if _, dup := seen[v.SKU]; dup {
			return errs.NewValidationError("variants", fmt.Sprintf("duplicate SKU %q", v.SKU))
		}
		seen[v.SKU] = struct{}{}
	}
	return nil
}

// PriceRange returns the cheapest and most expensive variant prices.
func (p *Product) PriceRange() (min, max Money) {
	if len(p.Variants) == 0 {
		return
	}
	min, max = p.Variants[0].Price, p.Variants[0].Price
	for _, v := range p.Variants[1:] {
		if v.Price.Cents < min.Cents {
			min = v.Price
		}
		if v.Price.Cents > max.Cents {
			max = v.Price
		}
	}
	return
}

// AvailableSizes lists the distinct sizes across variants.
func (p *Product) AvailableSizes() []SockSize {
	seen := make(map[SockSize]struct{})
	var sizes []SockSize
	for _, v := range p.Variants {
		if _, ok := seen[v.Size]; !ok {
			seen[v.Size] = struct{}{}
			sizes = append(sizes, v.Size)
		}
	}
	return sizes
}

// VariantBySKU finds a variant by its SKU, case-insensitively.
func (p *Product) VariantBySKU(sku string) *Variant {
	upper := strings.ToUpper(sku)
	for i := range p.Variants {
		if p.Variants[i].SKU == upper {
			return &p.Variants[i]
		}
	}
	return nil
}

// DefaultVariant picks the variant to preselect: the cheapest medium if one
// exists, otherwise the cheapest overall.
func (p *Product) DefaultVariant() *Variant {
	if len(p.Variants) == 0 {
		return nil
	}
	var best *Variant
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.Size != SizeM {
			continue
		}
		if best == nil || v.Price.Cents < best.Price.Cents {
			best = v
		}
	}
	if best != nil {
		return best
	}
	best = &p.Variants[0]
	for i := range p.Variants[1:] {
		if p.Variants[i+1].Price.Cents < best.Price.Cents {
			best = &p.Variants[i+1]
		}
	}
	return best
}

// RecordView bumps the view counter.
func (p *Product) RecordView() {
	p.ViewCount++
	p.Touch()
}

// RecordPurchase bumps the purchase counter.
func (p *Product) RecordPurchase(quantity int) {
	p.PurchaseCount += quantity
	p.Touch()
}

// Slugify turns a product name into a URL-safe slug.
func Slugify(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '_' || r == '-':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// NewSimpleProduct builds a product with a single variant, for seeding test
// data.
func NewSimpleProduct(name, description, categoryID, sku string, price Money) *Product {
	variant := Variant{
		ID:       NewEntity().ID,
		SKU:      strings.ToUpper(sku),
		Size:     SizeM,
		Color:    "Black",
		Material: MaterialCotton,
		Price:    price,
	}
	return &Product{
		Entity:      NewEntity(),
		Name:        name,
		Slug:        Slugify(name),
		Description: description,
		CategoryID:  categoryID,
		Status:      ProductActive,
		Brand:       "Sock Shop",
		Variants:    []Variant{variant},
	}
}
