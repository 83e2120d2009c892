package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is owned by its Cart and mutated only through Cart methods.
type CartItem struct {
	ID        uuid.UUID  `json:"id"`
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Quantity  int        `json:"quantity"`
	AddedAt   time.Time  `json:"added_at"`
}

// Cart is a mutable pre-order collection of items, owned by a user or an
// anonymous session (empty UserID).
type Cart struct {
	events
	ID        uuid.UUID         `json:"id"`
	UserID    string            `json:"user_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Items     []CartItem        `json:"items"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewCart creates an empty cart. userID may be empty for guest carts.
func NewCart(userID string, metadata map[string]string) (*Cart, error) {
	for k := range metadata {
		if k == "" {
			return nil, ErrInvalidMetadataKey
		}
	}
	now := time.Now()
	c := &Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.record(CartCreated{CartID: c.ID, UserID: userID, CreatedAt: now})
	return c, nil
}

// AddItem adds quantity of a product (optionally a specific variant). When
// an item for the same product+variant pair already exists its quantity is
// incremented instead of a duplicate line being created.
func (c *Cart) AddItem(productID uuid.UUID, quantity int, variantID *uuid.UUID) (*CartItem, error) {
	if productID == uuid.Nil {
		return nil, ErrInvalidProductID
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	for i := range c.Items {
		if c.Items[i].ProductID == productID && sameVariant(c.Items[i].VariantID, variantID) {
			c.Items[i].Quantity += quantity
			c.touch()
			c.record(CartItemUpdated{CartID: c.ID, ItemID: c.Items[i].ID, Quantity: c.Items[i].Quantity})
			return &c.Items[i], nil
		}
	}

	item := CartItem{
		ID:        uuid.New(),
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
		AddedAt:   time.Now(),
	}
	c.Items = append(c.Items, item)
	c.touch()
	c.record(CartItemAdded{
		CartID:    c.ID,
		ItemID:    item.ID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  quantity,
	})
	return &c.Items[len(c.Items)-1], nil
}

// UpdateItemQuantity sets an item's quantity. A quantity of zero or less
// removes the item.
func (c *Cart) UpdateItemQuantity(itemID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return c.RemoveItem(itemID)
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			c.touch()
			c.record(CartItemUpdated{CartID: c.ID, ItemID: itemID, Quantity: quantity})
			return nil
		}
	}
	return ErrItemNotFound
}

func (c *Cart) RemoveItem(itemID uuid.UUID) error {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.touch()
			c.record(CartItemRemoved{CartID: c.ID, ItemID: itemID})
			return nil
		}
	}
	return ErrItemNotFound
}

// Clear empties the cart. Called after a cart is converted into an order.
func (c *Cart) Clear() {
	c.Items = nil
	c.touch()
	c.record(CartCleared{CartID: c.ID})
}

// AssignToUser hands an anonymous cart to an authenticated user.
func (c *Cart) AssignToUser(userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	c.UserID = userID
	c.touch()
	c.record(CartAssignedToUser{CartID: c.ID, UserID: userID})
	return nil
}

// MarkAsExpired records the expiry event. Enforcement of the age cutoff is
// the caller's responsibility.
func (c *Cart) MarkAsExpired() {
	c.record(CartExpired{CartID: c.ID})
}

func (c *Cart) SetMetadata(key, value string) error {
	if key == "" {
		return ErrInvalidMetadataKey
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	c.Metadata[key] = value
	c.touch()
	return nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now()
}

// sameVariant treats two nil variant ids as equal: both mean "no variant".
func sameVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
