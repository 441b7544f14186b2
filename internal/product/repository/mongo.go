package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bazaar/internal/domain"
	"bazaar/internal/errors"
	"bazaar/internal/product"
)

const productsCollection = "products"

type productDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Title     string               `bson:"title"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"quantity"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

func (d productDocument) toDomain() (domain.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return domain.Product{}, fmt.Errorf("decoding price of product %s: %w", d.ID.Hex(), err)
	}
	return domain.Product{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Price:     price,
		Quantity:  d.Quantity,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

type MongoRepository struct {
	coll *mongo.Collection
}

var _ product.Store = (*MongoRepository)(nil)

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(productsCollection)}
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
	}

	var doc productDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by id: %w", err)
	}

	p, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *MongoRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return nil, nil
	}

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []domain.Product
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding product: %w", err)
		}
		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	return products, nil
}

// DecrementStock matches only when enough stock is left, so the check and
// the $inc happen in a single server-side operation.
func (r *MongoRepository) DecrementStock(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return errors.NewValidationError("quantity must be positive")
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return errors.NewNotFoundError(fmt.Sprintf("product with id %s not found", id))
	}

	filter := bson.M{"_id": oid, "quantity": bson.M{"$gte": quantity}}
	update := bson.M{
		"$inc": bson.M{"quantity": -quantity},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("decrementing product stock: %w", err)
	}

	if result.MatchedCount == 1 {
		return nil
	}

	p, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return errors.NewInsufficientStockError(p.ID, p.Title, p.Quantity, quantity)
}

func (r *MongoRepository) Save(ctx context.Context, p domain.Product) (*domain.Product, error) {
	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return nil, fmt.Errorf("encoding price: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := productDocument{
		Title:     p.Title,
		Price:     price,
		Quantity:  p.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.ID != "" {
		if doc.ID, err = primitive.ObjectIDFromHex(p.ID); err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("invalid product id %s", p.ID))
		}
	} else {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("inserting product: %w", err)
	}

	saved, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &saved, nil
}
