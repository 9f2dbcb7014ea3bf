package pages

import (
	"context"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/internal/browser"
	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// Home page selectors.
const (
	homePath = "/"

	selNavBar        = "#navbar"
	selSearchInput   = "#search-input"
	selSearchButton  = "#search-button"
	selCatalogueLink = "a[href='/catalogue']"
	selCartLink      = "a[href='/basket.html']"
	selPromoBanner   = "#promo-banner"
)

// Home is the shop's landing page.
type Home struct {
	*Base
}

// NewHome builds the home page object.
func NewHome(session *browser.Session, page playwright.Page, cfg *config.Config, logger *zap.Logger) *Home {
	return &Home{Base: NewBase("home", session, page, cfg, logger)}
}

// Open navigates to the landing page and waits for the navigation bar.
func (h *Home) Open(ctx context.Context) error {
	if err := h.Base.Open(ctx, homePath); err != nil {
		return err
	}
	return h.WaitVisible(ctx, selNavBar, 0)
}

// Search submits a catalogue search for the given term.
func (h *Home) Search(ctx context.Context, term string) error {
	if term == "" {
		return errs.NewValidationError("term", "search term must not be empty")
	}
	if err := h.Fill(ctx, selSearchInput, term); err != nil {
		return err
	}
	return h.Click(ctx, selSearchButton)
}

// GoToCatalogue follows the main navigation into the catalogue.
func (h *Home) GoToCatalogue(ctx context.Context) error {
	return h.Click(ctx, selCatalogueLink)
}

// GoToCart opens the shopping basket.
func (h *Home) GoToCart(ctx context.Context) error {
	return h.Click(ctx, selCartLink)
}

// PromoVisible reports whether the promotional banner rendered.
func (h *Home) PromoVisible() bool {
	return h.IsVisible(selPromoBanner)
}
