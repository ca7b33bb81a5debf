package services

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoAccountService struct {
	client      *mongo.Client
	db          *mongo.Database
	listingsCol *mongo.Collection
	profilesCol *mongo.Collection
	codesCol    *mongo.Collection
	authClient  *fbauth.Client
}

// NewMongoAccountService wires account deletion. authClient may be nil; then
// the auth-provider user record is left for the client to remove.
func NewMongoAccountService(ctx context.Context, mongoURI, dbName string, authClient *fbauth.Client) (*MongoAccountService, error) {
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
	return &MongoAccountService{
		client:      client,
		db:          db,
		listingsCol: db.Collection("listings"),
		profilesCol: db.Collection("profiles"),
		codesCol:    db.Collection("contact_codes"),
		authClient:  authClient,
	}, nil
}

func (s *MongoAccountService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type DeleteAccountResult struct {
	ImageURLs  []string `json:"image_urls"`
	ListingIDs []string `json:"listing_ids"`
}

// DeleteAccount removes everything keyed to the user: listings, pending
// contact codes, profile, and (best effort) the auth-provider user. It
// returns the stored image URLs so the client can clean up storage objects.
func (s *MongoAccountService) DeleteAccount(ctx context.Context, userID string) (*DeleteAccountResult, error) {
	urls := make(map[string]struct{})

	// profile.photo_url
	{
		var prof struct {
			PhotoURL string `bson:"photo_url"`
		}
		if err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof); err == nil {
			if prof.PhotoURL != "" {
				urls[prof.PhotoURL] = struct{}{}
			}
		}
	}

	// listing image urls
	type listingDoc struct {
		ID        string   `bson:"_id"`
		ImageURLs []string `bson:"image_urls"`
	}
	listingIDs := make([]string, 0)
	{
		cur, err := s.listingsCol.Find(ctx, bson.M{"user_id": userID}, options.Find().SetProjection(bson.M{
			"_id":        1,
			"image_urls": 1,
		}))
		if err != nil {
			return nil, err
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var d listingDoc
			if err := cur.Decode(&d); err != nil {
				return nil, err
			}
			listingIDs = append(listingIDs, d.ID)
			for _, u := range d.ImageURLs {
				if u != "" {
					urls[u] = struct{}{}
				}
			}
		}
		if err := cur.Err(); err != nil {
			return nil, err
		}
	}

	// Deletes: rows first, profile last, so a partial failure never leaves a
	// profile pointing at deleted listings.
	_, _ = s.listingsCol.DeleteMany(ctx, bson.M{"user_id": userID})
	_, _ = s.codesCol.DeleteOne(ctx, bson.M{"user_id": userID})
	_, _ = s.profilesCol.DeleteOne(ctx, bson.M{"user_id": userID})

	if s.authClient != nil {
		if err := s.authClient.DeleteUser(ctx, userID); err != nil {
			log.Printf("[DeleteAccount] auth user delete failed user=%s err=%v", userID, err)
		}
	}

	out := make([]string, 0, len(urls))
	for u := range urls {
		out = append(out, u)
	}

	return &DeleteAccountResult{
		ImageURLs:  out,
		ListingIDs: listingIDs,
	}, nil
}

// DefaultAccountTimeout bounds the whole deletion pass.
func DefaultAccountTimeout() time.Duration { return 20 * time.Second }
