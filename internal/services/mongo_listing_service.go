package services

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sillage/backend/internal/models"
)

type MongoListingService struct {
	client       *mongo.Client
	db           *mongo.Database
	listingsColl *mongo.Collection
}

func NewMongoListingService(ctx context.Context, mongoURI, dbName string) (*MongoListingService, error) {
	// Atlas occasionally fails TLS negotiation in some environments unless we
	// force TLS 1.2. Evidence (Cloud Run): "remote error: tls: internal error"
	// during server selection.
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	listings := db.Collection("listings")

	svc := &MongoListingService{
		client:       client,
		db:           db,
		listingsColl: listings,
	}

	// Best-effort indexes.
	_, _ = listings.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "min_price", Value: 1}}},
		{Keys: bson.D{{Key: "brand", Value: "text"}, {Key: "name", Value: "text"}}},
	})

	log.Printf("MongoDB connected: db=%s", dbName)
	return svc, nil
}

func (s *MongoListingService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoListingService) ListByOwner(ctx context.Context, ownerID string) ([]*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cur, err := s.listingsColl.Find(
		ctx,
		bson.M{"user_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*models.Listing, 0)
	for cur.Next(ctx) {
		var l models.Listing
		if err := cur.Decode(&l); err != nil {
			return nil, err
		}
		out = append(out, &l)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoListingService) GetByID(ctx context.Context, listingID string) (*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var l models.Listing
	if err := s.listingsColl.FindOne(ctx, bson.M{"_id": listingID}).Decode(&l); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrListingNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *MongoListingService) Create(ctx context.Context, ownerID string, draft *models.ListingDraft) (*models.Listing, error) {
	shaped, err := draft.ShapeForVariant()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	shaped.ID = uuid.New().String()
	shaped.UserID = ownerID
	shaped.CreatedAt = now
	shaped.UpdatedAt = now

	if _, err := s.listingsColl.InsertOne(ctx, shaped); err != nil {
		return nil, err
	}
	return shaped, nil
}

func (s *MongoListingService) Update(ctx context.Context, ownerID, listingID string, patch *models.ListingPatch) (*models.Listing, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	update := patchToUpdate(patch)

	res := s.listingsColl.FindOneAndUpdate(
		ctx,
		bson.M{"_id": listingID, "user_id": ownerID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var updated models.Listing
	if err := res.Decode(&updated); err != nil {
		if err == mongo.ErrNoDocuments {
			// Distinguish not found vs unauthorized.
			var exists models.Listing
			if err2 := s.listingsColl.FindOne(ctx, bson.M{"_id": listingID}).Decode(&exists); err2 == mongo.ErrNoDocuments {
				return nil, ErrListingNotFound
			}
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return &updated, nil
}

func (s *MongoListingService) Delete(ctx context.Context, ownerID, listingID string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Ensure ownership.
	var l models.Listing
	if err := s.listingsColl.FindOne(ctx, bson.M{"_id": listingID}).Decode(&l); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrListingNotFound
		}
		return err
	}
	if l.UserID != ownerID {
		return ErrUnauthorized
	}

	_, err := s.listingsColl.DeleteOne(ctx, bson.M{"_id": listingID})
	return err
}

// IncrementContactClick bumps the per-channel counter. Public: any visitor
// tapping a contact button counts.
func (s *MongoListingService) IncrementContactClick(ctx context.Context, listingID, channel string) error {
	if !models.IsContactChannel(channel) {
		return ErrUnknownChannel
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := s.listingsColl.UpdateOne(
		ctx,
		bson.M{"_id": listingID},
		bson.M{"$inc": bson.M{"contact_clicks." + channel: 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrListingNotFound
	}
	return nil
}

// patchToUpdate translates a validated ListingPatch into $set/$unset docs.
// The variant branches mirror ShapeForVariant: a variant section replaces the
// variant wholesale and unsets the other variants' fields.
func patchToUpdate(patch *models.ListingPatch) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if patch.Brand != nil {
		set["brand"] = *patch.Brand
	}
	if patch.SubBrand != nil {
		set["sub_brand"] = *patch.SubBrand
	}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.ImageURLs != nil {
		set["image_urls"] = patch.ImageURLs
	}

	switch {
	case patch.Intact != nil:
		set["variant"] = models.VariantIntact
		set["bottle_size_ml"] = patch.Intact.BottleSizeML
		set["price"] = patch.Intact.Price
		unset["partial_left_ml"] = ""
		unset["decant_options"] = ""
		unset["min_price"] = ""
	case patch.Partial != nil:
		set["variant"] = models.VariantPartial
		set["partial_left_ml"] = patch.Partial.PartialLeftML
		set["price"] = patch.Partial.Price
		unset["bottle_size_ml"] = ""
		unset["decant_options"] = ""
		unset["min_price"] = ""
	case patch.Decant != nil && len(patch.Decant.Options) > 0:
		set["variant"] = models.VariantDecant
		set["decant_options"] = patch.Decant.Options
		minPrice := patch.Decant.Options[0].Price
		for _, o := range patch.Decant.Options[1:] {
			if o.Price < minPrice {
				minPrice = o.Price
			}
		}
		set["min_price"] = minPrice
		unset["bottle_size_ml"] = ""
		unset["partial_left_ml"] = ""
		unset["price"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}
