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
)

const ordersCollection = "orders"

type orderDocument struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty"`
	User            string               `bson:"user"`
	Products        []lineItemDocument   `bson:"products"`
	TotalAmount     primitive.Decimal128 `bson:"totalAmount"`
	ShippingAddress string               `bson:"shippingAddress"`
	PaymentMethod   string               `bson:"paymentMethod"`
	DeliveryCharge  primitive.Decimal128 `bson:"deliveryCharge"`
	IsPaid          bool                 `bson:"isPaid"`
	Status          string               `bson:"status"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

type lineItemDocument struct {
	Product  string               `bson:"product"`
	Title    string               `bson:"title"`
	Quantity int                  `bson:"quantity"`
	Price    primitive.Decimal128 `bson:"price"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(d primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(d.String())
}

func newOrderDocument(order domain.Order) (orderDocument, error) {
	total, err := toDecimal128(order.TotalAmount)
	if err != nil {
		return orderDocument{}, fmt.Errorf("encoding total amount: %w", err)
	}
	delivery, err := toDecimal128(order.DeliveryCharge)
	if err != nil {
		return orderDocument{}, fmt.Errorf("encoding delivery charge: %w", err)
	}

	products := make([]lineItemDocument, len(order.Items))
	for i, item := range order.Items {
		price, err := toDecimal128(item.UnitPrice)
		if err != nil {
			return orderDocument{}, fmt.Errorf("encoding price of %s: %w", item.ProductID, err)
		}
		products[i] = lineItemDocument{
			Product:  item.ProductID,
			Title:    item.ProductTitle,
			Quantity: item.Quantity,
			Price:    price,
		}
	}

	return orderDocument{
		User:            order.UserID,
		Products:        products,
		TotalAmount:     total,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   string(order.PaymentMethod),
		DeliveryCharge:  delivery,
		IsPaid:          order.IsPaid,
		Status:          order.Status,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}, nil
}

func (d orderDocument) toDomain() (domain.Order, error) {
	total, err := fromDecimal128(d.TotalAmount)
	if err != nil {
		return domain.Order{}, fmt.Errorf("decoding total amount: %w", err)
	}
	delivery, err := fromDecimal128(d.DeliveryCharge)
	if err != nil {
		return domain.Order{}, fmt.Errorf("decoding delivery charge: %w", err)
	}

	items := make([]domain.LineItem, len(d.Products))
	for i, p := range d.Products {
		price, err := fromDecimal128(p.Price)
		if err != nil {
			return domain.Order{}, fmt.Errorf("decoding price of %s: %w", p.Product, err)
		}
		items[i] = domain.LineItem{
			ProductID:    p.Product,
			ProductTitle: p.Title,
			Quantity:     p.Quantity,
			UnitPrice:    price,
		}
	}

	return domain.Order{
		ID:              d.ID.Hex(),
		UserID:          d.User,
		Items:           items,
		TotalAmount:     total,
		ShippingAddress: d.ShippingAddress,
		PaymentMethod:   domain.PaymentMethod(d.PaymentMethod),
		DeliveryCharge:  delivery,
		IsPaid:          d.IsPaid,
		Status:          d.Status,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

type MongoOrderRepository struct {
	coll *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{coll: db.Collection(ordersCollection)}
}

// EnsureIndexes creates the index backing the my-orders listing.
func (r *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating orders index: %w", err)
	}
	return nil
}

func (r *MongoOrderRepository) Create(ctx context.Context, order domain.Order) (*domain.Order, error) {
	order = withStoredPrecision(order)
	doc, err := newOrderDocument(order)
	if err != nil {
		return nil, err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("inserting order: %w", err)
	}

	order.ID = doc.ID.Hex()
	return &order, nil
}

func (r *MongoOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}

	var doc orderDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %s not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	order, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *MongoOrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying orders by user: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []domain.Order{}
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding order: %w", err)
		}
		order, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}

	return orders, nil
}
