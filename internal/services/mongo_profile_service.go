package services

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sillage/backend/internal/models"
)

type MongoProfileService struct {
	client      *mongo.Client
	db          *mongo.Database
	profilesCol *mongo.Collection
}

func NewMongoProfileService(ctx context.Context, mongoURI, dbName string) (*MongoProfileService, error) {
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
	col := db.Collection("profiles")

	// Best-effort indexes. The unique username index is what makes usernames
	// collision-safe across concurrent signups.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(
				bson.M{"username": bson.M{"$type": "string"}},
			),
		},
	})

	return &MongoProfileService{
		client:      client,
		db:          db,
		profilesCol: col,
	}, nil
}

func (s *MongoProfileService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoProfileService) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	var prof models.Profile
	if err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &prof, nil
}

func (s *MongoProfileService) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var prof models.Profile
	if err := s.profilesCol.FindOne(ctx, bson.M{"username": strings.ToLower(strings.TrimSpace(username))}).Decode(&prof); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &prof, nil
}

// GetOrCreate returns the user's profile, creating the first-login fallback
// row when the signup trigger has not run. The generated username can be
// replaced once via Upsert while it is still unset in spirit; generated names
// are kept unique by a random suffix.
func (s *MongoProfileService) GetOrCreate(ctx context.Context, userID, email string) (*models.Profile, error) {
	now := time.Now().UTC()

	var prof models.Profile
	err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof)
	if err == nil {
		if email != "" && prof.Email == "" {
			_, _ = s.profilesCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
				"$set": bson.M{"email": email, "updated_at": now},
			})
			prof.Email = email
			prof.UpdatedAt = now
		}
		return &prof, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	prof = models.Profile{
		UserID:    userID,
		Username:  generateUsername(email),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.profilesCol.InsertOne(ctx, prof); err != nil {
		// If a race created it, fetch again.
		var retry models.Profile
		if err2 := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&retry); err2 == nil {
			return &retry, nil
		}
		return nil, err
	}
	return &prof, nil
}

// Upsert applies the owner's edits. Username is immutable once set; phone
// edits reset the verified flag.
func (s *MongoProfileService) Upsert(ctx context.Context, userID, email string, req *models.UpsertProfileRequest) (*models.Profile, error) {
	current, err := s.GetOrCreate(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	set := bson.M{"updated_at": now}

	if req.Username != nil {
		want := strings.ToLower(strings.TrimSpace(*req.Username))
		if current.Username != "" && current.Username != want {
			return nil, ErrUsernameTaken
		}
		set["username"] = want
	}
	if req.DisplayName != nil {
		set["display_name"] = *req.DisplayName
	}
	if req.PhotoURL != nil {
		set["photo_url"] = *req.PhotoURL
	}
	if req.Bio != nil {
		set["bio"] = *req.Bio
	}
	if req.Location != nil {
		set["location"] = *req.Location
	}
	if req.Website != nil {
		set["website"] = *req.Website
	}
	if req.Phone != nil && *req.Phone != current.Phone {
		set["phone"] = *req.Phone
		set["phone_verified"] = false
	}
	if req.WhatsApp != nil {
		set["whatsapp"] = *req.WhatsApp
	}
	if req.Messenger != nil {
		set["messenger"] = *req.Messenger
	}
	if req.Facebook != nil {
		set["facebook"] = *req.Facebook
	}

	_, err = s.profilesCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	var prof models.Profile
	if err := s.profilesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&prof); err != nil {
		return nil, err
	}
	return &prof, nil
}

// MarkPhoneVerified flips the verified flag for the stored phone number.
func (s *MongoProfileService) MarkPhoneVerified(ctx context.Context, userID, phone string) error {
	res, err := s.profilesCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{
		"$set": bson.M{"phone": phone, "phone_verified": true, "updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func generateUsername(email string) string {
	base := "seller"
	if at := strings.IndexByte(email, '@'); at > 0 {
		base = strings.ToLower(email[:at])
	}
	var clean strings.Builder
	for _, c := range base {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			clean.WriteRune(c)
		}
	}
	base = clean.String()
	if base == "" {
		base = "seller"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return base + "_" + suffix
}
