package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/api/schemas"
	"github.com/xkilldash9x/sockshop-e2e/internal/browser"
	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// Catalogue page selectors.
const (
	cataloguePath = "/catalogue"

	selProductCard   = ".product-card"
	selProductName   = ".product-card .product-name"
	selFilterPanel   = "#filters"
	selApplyFilters  = "#apply-filters"
	selEmptyMessage  = "#no-results"
	selNextPageLink  = "a[rel='next']"
	sizeFilterFormat = "#filter-size-%s"
)

// Catalogue is the product listing page.
type Catalogue struct {
	*Base
}

// NewCatalogue builds the catalogue page object.
func NewCatalogue(session *browser.Session, page playwright.Page, cfg *config.Config, logger *zap.Logger) *Catalogue {
	return &Catalogue{Base: NewBase("catalogue", session, page, cfg, logger)}
}

// sizeFilterSelector maps a sock size to its filter checkbox.
func sizeFilterSelector(size schemas.SockSize) string {
	return fmt.Sprintf(sizeFilterFormat, size)
}

// Open navigates to the product listing.
func (c *Catalogue) Open(ctx context.Context) error {
	if err := c.Base.Open(ctx, cataloguePath); err != nil {
		return err
	}
	return c.WaitVisible(ctx, selFilterPanel, 0)
}

// FilterBySize narrows the listing to a single sock size.
func (c *Catalogue) FilterBySize(ctx context.Context, size schemas.SockSize) error {
	if !size.Valid() {
		return errs.NewValidationError("size", fmt.Sprintf("unknown size %q", size))
	}
	if err := c.Click(ctx, sizeFilterSelector(size)); err != nil {
		return err
	}
	return c.Click(ctx, selApplyFilters)
}

// ProductCount returns how many product cards are rendered.
func (c *Catalogue) ProductCount() (int, error) {
	return c.Count(selProductCard)
}

// ProductNames lists the rendered product names in display order.
func (c *Catalogue) ProductNames() ([]string, error) {
	raw, err := c.page.Locator(selProductName).AllTextContents()
	if err != nil {
		return nil, errs.NewElementNotFound(selProductName, err)
	}
	names := make([]string, 0, len(raw))
	for _, n := range raw {
		if trimmed := strings.TrimSpace(n); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names, nil
}

// OpenProduct clicks through to a product's detail page by its display name.
func (c *Catalogue) OpenProduct(ctx context.Context, name string) error {
	selector := fmt.Sprintf("%s:has-text(%q) a", selProductCard, name)
	return c.Click(ctx, selector)
}

// AddToCart adds a listed product to the basket from its card.
func (c *Catalogue) AddToCart(ctx context.Context, name string) error {
	selector := fmt.Sprintf("%s:has-text(%q) button.add-to-cart", selProductCard, name)
	if err := c.Click(ctx, selector); err != nil {
		c.CaptureFailure("add_to_cart")
		return err
	}
	c.logger.Info("added product to cart", zap.String("product", name))
	return nil
}

// Empty reports whether the listing rendered its no-results message.
func (c *Catalogue) Empty() bool {
	return c.IsVisible(selEmptyMessage)
}

// NextPage follows pagination, returning false when on the last page.
func (c *Catalogue) NextPage(ctx context.Context) (bool, error) {
	if !c.IsVisible(selNextPageLink) {
		return false, nil
	}
	if err := c.Click(ctx, selNextPageLink); err != nil {
		return false, err
	}
	return true, nil
}
