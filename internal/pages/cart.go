package pages

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockshop-e2e/api/schemas"
	"github.com/xkilldash9x/sockshop-e2e/internal/browser"
	"github.com/xkilldash9x/sockshop-e2e/internal/config"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// Cart page selectors.
const (
	cartPath = "/basket.html"

	selCartRow        = "#basket tbody tr"
	selCartTotal      = "#basket-total"
	selCheckoutButton = "#checkout-button"
	selEmptyCart      = "#basket-empty"
	removeItemFormat  = "#basket tbody tr:has-text(%q) button.remove-item"
)

// Cart is the shopping basket page.
type Cart struct {
	*Base
}

// NewCart builds the cart page object.
func NewCart(session *browser.Session, page playwright.Page, cfg *config.Config, logger *zap.Logger) *Cart {
	return &Cart{Base: NewBase("cart", session, page, cfg, logger)}
}

// Open navigates to the basket.
func (c *Cart) Open(ctx context.Context) error {
	return c.Base.Open(ctx, cartPath)
}

// ItemCount returns how many line items the basket holds.
func (c *Cart) ItemCount() (int, error) {
	if c.IsVisible(selEmptyCart) {
		return 0, nil
	}
	return c.Count(selCartRow)
}

// Total reads and parses the basket total.
func (c *Cart) Total(ctx context.Context) (schemas.Money, error) {
	text, err := c.Text(ctx, selCartTotal)
	if err != nil {
		return schemas.Money{}, err
	}
	total, err := parseMoney(text)
	if err != nil {
		return schemas.Money{}, err
	}
	return total, nil
}

// RemoveItem deletes a line item by its product name.
func (c *Cart) RemoveItem(ctx context.Context, name string) error {
	selector := fmt.Sprintf(removeItemFormat, name)
	if err := c.Click(ctx, selector); err != nil {
		return err
	}
	c.logger.Info("removed product from cart", zap.String("product", name))
	return nil
}

// Checkout starts the checkout flow.
func (c *Cart) Checkout(ctx context.Context) error {
	count, err := c.ItemCount()
	if err != nil {
		return err
	}
	if count == 0 {
		return errs.NewValidationError("cart", "cannot check out an empty cart")
	}
	return c.Click(ctx, selCheckoutButton)
}

// parseMoney turns a rendered price like "$29.99" into Money. The currency is
// inferred from the leading symbol.
func parseMoney(text string) (schemas.Money, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return schemas.Money{}, errs.NewValidationError("price", "empty price text")
	}

	var currency schemas.Currency
	switch {
	case strings.HasPrefix(s, "$"):
		currency, s = schemas.USD, s[1:]
	case strings.HasPrefix(s, "€"):
		currency, s = schemas.EUR, strings.TrimPrefix(s, "€")
	case strings.HasPrefix(s, "£"):
		currency, s = schemas.GBP, strings.TrimPrefix(s, "£")
	case strings.HasPrefix(s, "¥"):
		currency, s = schemas.JPY, strings.TrimPrefix(s, "¥")
	default:
		return schemas.Money{}, errs.NewValidationError("price",
			fmt.Sprintf("unrecognized currency in %q", text))
	}

	s = strings.ReplaceAll(s, ",", "")
	whole, fraction, _ := strings.Cut(s, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return schemas.Money{}, errs.NewValidationError("price",
			fmt.Sprintf("cannot parse amount in %q", text))
	}

	cents := units * 100
	if fraction != "" {
		if len(fraction) != 2 {
			return schemas.Money{}, errs.NewValidationError("price",
				fmt.Sprintf("expected two decimal places in %q", text))
		}
		frac, err := strconv.ParseInt(fraction, 10, 64)
		if err != nil {
			return schemas.Money{}, errs.NewValidationError("price",
				fmt.Sprintf("cannot parse fraction in %q", text))
		}
		cents += frac
	}
	return schemas.NewMoney(cents, currency), nil
}
