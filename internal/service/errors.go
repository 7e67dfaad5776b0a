package service

import "errors"

// Domain error conditions. All of them are recoverable at the API
// boundary; handlers map them to HTTP statuses with errors.Is.
var (
	// ErrNotFound reports that a product, category, or user is absent
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID reports a product ID collision on add
	ErrDuplicateID = errors.New("duplicate product id")

	// ErrCategoryMismatch reports a product ID whose prefix does not
	// match the category it is being filed under
	ErrCategoryMismatch = errors.New("product id prefix does not match category")

	// ErrInsufficientStock reports a requested quantity exceeding the
	// live catalog stock, at add-to-cart or at checkout
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotInCart reports a removal of a product the cart does not hold
	ErrNotInCart = errors.New("product not in cart")

	// ErrEmptyCart reports a checkout attempt on an empty cart
	ErrEmptyCart = errors.New("cart is empty")

	// ErrUsernameTaken reports a registration with an existing username
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidCredentials is returned identically for an unknown
	// username and a wrong password, so logins cannot enumerate accounts
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden reports an operation the caller's role does not allow
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput reports malformed operation arguments
	ErrInvalidInput = errors.New("invalid input")
)
