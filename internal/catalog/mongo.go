package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cart-store/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type productDocument struct {
	ID        string               `bson:"_id"`
	Name      string               `bson:"name"`
	Price     primitive.Decimal128 `bson:"price"`
	CreatedAt time.Time            `bson:"created_at"`
}

func (d productDocument) toDomain() (domain.Product, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price for product %s: %w", d.ID, err)
	}
	return domain.Product{ID: d.ID, Name: d.Name, Price: price}, nil
}

// MongoCatalog reads products from the "products" collection.
type MongoCatalog struct {
	collection *mongo.Collection
}

func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{collection: db.Collection("products")}
}

func (m *MongoCatalog) Lookup(ctx context.Context, productID string) (domain.Product, error) {
	var doc productDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Product{}, domain.NewNotFoundError(resourceProduct, productID)
		}
		return domain.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	return doc.toDomain()
}

func (m *MongoCatalog) List(ctx context.Context) ([]domain.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []domain.Product{}
	for cursor.Next(ctx) {
		var doc productDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		p, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return products, nil
}

func (m *MongoCatalog) Add(ctx context.Context, p domain.Product) (domain.Product, error) {
	p, err := prepare(p)
	if err != nil {
		return domain.Product{}, err
	}

	price, err := primitive.ParseDecimal128(p.Price.String())
	if err != nil {
		return domain.Product{}, domain.NewValidationError("price", err.Error())
	}

	filter := bson.M{"_id": p.ID}
	update := bson.M{
		"$set":         bson.M{"name": p.Name, "price": price},
		"$setOnInsert": bson.M{"created_at": time.Now()},
	}
	if _, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return domain.Product{}, fmt.Errorf("failed to upsert product: %w", err)
	}
	return p, nil
}

// Seed inserts products that are not present yet.
func (m *MongoCatalog) Seed(ctx context.Context, products []domain.Product) error {
	for _, p := range products {
		price, err := primitive.ParseDecimal128(p.Price.String())
		if err != nil {
			return fmt.Errorf("invalid seed price for product %s: %w", p.ID, err)
		}
		update := bson.M{"$setOnInsert": bson.M{"name": p.Name, "price": price, "created_at": time.Now()}}
		if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": p.ID}, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	return nil
}

func (m *MongoCatalog) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: 1}}},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
