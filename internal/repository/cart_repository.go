package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{collection: db.Collection("carts")}
}

// cartDoc is the storage form of a cart. UUIDs are stored as strings so
// documents stay readable in mongosh.
type cartDoc struct {
	ID        string            `bson:"_id"`
	UserID    string            `bson:"user_id,omitempty"`
	Metadata  map[string]string `bson:"metadata,omitempty"`
	Items     []cartItemDoc     `bson:"items"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

type cartItemDoc struct {
	ID        string    `bson:"id"`
	ProductID string    `bson:"product_id"`
	VariantID string    `bson:"variant_id,omitempty"`
	Quantity  int       `bson:"quantity"`
	AddedAt   time.Time `bson:"added_at"`
}

func (m *mongoCartRepository) GetCart(ctx context.Context, cartID uuid.UUID) (*domain.Cart, error) {
	return m.findOne(ctx, bson.M{"_id": cartID.String()})
}

func (m *mongoCartRepository) GetCartByUserID(ctx context.Context, userID string) (*domain.Cart, error) {
	return m.findOne(ctx, bson.M{"user_id": userID})
}

func (m *mongoCartRepository) findOne(ctx context.Context, filter bson.M) (*domain.Cart, error) {
	var doc cartDoc
	err := m.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return docToCart(&doc)
}

func (m *mongoCartRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	doc := cartToDoc(cart)

	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *mongoCartRepository) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": cartID.String()})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrCartNotFound
	}
	return nil
}

func cartToDoc(cart *domain.Cart) *cartDoc {
	doc := &cartDoc{
		ID:        cart.ID.String(),
		UserID:    cart.UserID,
		Metadata:  cart.Metadata,
		Items:     make([]cartItemDoc, 0, len(cart.Items)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		d := cartItemDoc{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt,
		}
		if item.VariantID != nil {
			d.VariantID = item.VariantID.String()
		}
		doc.Items = append(doc.Items, d)
	}
	return doc
}

func docToCart(doc *cartDoc) (*domain.Cart, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("parse cart id %q: %w", doc.ID, err)
	}
	cart := &domain.Cart{
		ID:        id,
		UserID:    doc.UserID,
		Metadata:  doc.Metadata,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, d := range doc.Items {
		itemID, err := uuid.Parse(d.ID)
		if err != nil {
			return nil, fmt.Errorf("parse cart item id %q: %w", d.ID, err)
		}
		productID, err := uuid.Parse(d.ProductID)
		if err != nil {
			return nil, fmt.Errorf("parse product id %q: %w", d.ProductID, err)
		}
		item := domain.CartItem{
			ID:        itemID,
			ProductID: productID,
			Quantity:  d.Quantity,
			AddedAt:   d.AddedAt,
		}
		if d.VariantID != "" {
			variantID, err := uuid.Parse(d.VariantID)
			if err != nil {
				return nil, fmt.Errorf("parse variant id %q: %w", d.VariantID, err)
			}
			item.VariantID = &variantID
		}
		cart.Items = append(cart.Items, item)
	}
	return cart, nil
}
