package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/xkilldash9x/sockshop-e2e/api/schemas"
	"github.com/xkilldash9x/sockshop-e2e/internal/errs"
)

// CartItem is a line item in a customer's cart.
type CartItem struct {
	ID        string        `json:"id,omitempty"`
	SKU       string        `json:"sku"`
	Quantity  int           `json:"quantity"`
	UnitPrice schemas.Money `json:"unit_price"`
}

// registration is the payload accepted by the customer registration endpoint.
type registration struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type idResponse struct {
	ID string `json:"id"`
}

// Catalogue fetches one page of the product listing. A zero size falls back
// to the server default.
func (c *Client) Catalogue(ctx context.Context, page, size int) ([]schemas.Product, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		query.Set("size", strconv.Itoa(size))
	}

	var products []schemas.Product
	err := c.do(ctx, http.MethodGet, "/catalogue", nil, &products, &requestOptions{query: query})
	if err != nil {
		return nil, err
	}
	return products, nil
}

// CatalogueSize returns the total product count.
func (c *Client) CatalogueSize(ctx context.Context) (int, error) {
	var out struct {
		Size int `json:"size"`
	}
	if err := c.do(ctx, http.MethodGet, "/catalogue/size", nil, &out, nil); err != nil {
		return 0, err
	}
	return out.Size, nil
}

// Product fetches a single product by id.
func (c *Client) Product(ctx context.Context, id string) (*schemas.Product, error) {
	if id == "" {
		return nil, errs.NewValidationError("id", "must not be empty")
	}
	var product schemas.Product
	if err := c.do(ctx, http.MethodGet, "/catalogue/"+id, nil, &product, nil); err != nil {
		return nil, err
	}
	return &product, nil
}

// RegisterCustomer creates a customer account and returns its id.
func (c *Client) RegisterCustomer(ctx context.Context, user *schemas.User, password string) (string, error) {
	if err := user.Credentials.Validate(); err != nil {
		return "", err
	}
	payload := registration{
		Username:  user.Credentials.Username,
		Password:  password,
		Email:     user.Credentials.Email,
		FirstName: user.Profile.FirstName,
		LastName:  user.Profile.LastName,
	}
	var out idResponse
	if err := c.do(ctx, http.MethodPost, "/register", payload, &out, nil); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Customer fetches a customer account by id.
func (c *Client) Customer(ctx context.Context, id string) (*schemas.User, error) {
	if id == "" {
		return nil, errs.NewValidationError("id", "must not be empty")
	}
	var user schemas.User
	if err := c.do(ctx, http.MethodGet, "/customers/"+id, nil, &user, nil); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteCustomer removes a customer account, used by test cleanup.
func (c *Client) DeleteCustomer(ctx context.Context, id string) error {
	if id == "" {
		return errs.NewValidationError("id", "must not be empty")
	}
	return c.do(ctx, http.MethodDelete, "/customers/"+id, nil, nil, nil)
}

// Login authenticates with basic auth and returns the session cookie value.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" {
		return errs.NewValidationError("username", "must not be empty")
	}
	return c.do(ctx, http.MethodGet, "/login", nil, nil, &requestOptions{
		basicUser: username,
		basicPass: password,
	})
}

// Cart fetches the line items of a customer's cart.
func (c *Client) Cart(ctx context.Context, customerID string) ([]CartItem, error) {
	if customerID == "" {
		return nil, errs.NewValidationError("customer_id", "must not be empty")
	}
	var items []CartItem
	err := c.do(ctx, http.MethodGet, cartItemsPath(customerID), nil, &items, nil)
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AddToCart appends an item to a customer's cart.
func (c *Client) AddToCart(ctx context.Context, customerID string, item CartItem) error {
	if customerID == "" {
		return errs.NewValidationError("customer_id", "must not be empty")
	}
	if item.SKU == "" {
		return errs.NewValidationError("sku", "must not be empty")
	}
	if item.Quantity <= 0 {
		return errs.NewValidationError("quantity", "must be positive")
	}
	return c.do(ctx, http.MethodPost, cartItemsPath(customerID), item, nil, nil)
}

// ClearCart deletes a customer's cart entirely.
func (c *Client) ClearCart(ctx context.Context, customerID string) error {
	if customerID == "" {
		return errs.NewValidationError("customer_id", "must not be empty")
	}
	return c.do(ctx, http.MethodDelete, "/carts/"+customerID, nil, nil, nil)
}

func cartItemsPath(customerID string) string {
	return fmt.Sprintf("/carts/%s/items", customerID)
}
