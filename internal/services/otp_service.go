package services

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrOTPNotFound        = errors.New("no verification code pending")
	ErrOTPExpired         = errors.New("verification code expired")
	ErrOTPMismatch        = errors.New("verification code does not match")
	ErrOTPTooManyAttempts = errors.New("too many verification attempts")
)

const (
	otpTTL         = 10 * time.Minute
	otpMaxAttempts = 5
	otpDigits      = 6
)

// contactCodeDoc holds one pending phone verification per user. The code is
// bcrypt-hashed at rest; a resend overwrites the previous code.
type contactCodeDoc struct {
	UserID    string    `bson:"user_id"`
	Phone     string    `bson:"phone"`
	CodeHash  string    `bson:"code_hash"`
	Attempts  int       `bson:"attempts"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// OTPService handles phone verification: send a code, confirm it.
type OTPService interface {
	Send(ctx context.Context, userID, phone string) error
	Confirm(ctx context.Context, userID, code string) error
}

type MongoOTPService struct {
	client   *mongo.Client
	db       *mongo.Database
	codesCol *mongo.Collection
	sms      SMSSender
	profiles ProfileService
}

func NewMongoOTPService(ctx context.Context, mongoURI, dbName string, sms SMSSender, profiles ProfileService) (*MongoOTPService, error) {
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
	col := db.Collection("contact_codes")

	// Best-effort indexes; the TTL index reaps abandoned codes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})

	return &MongoOTPService{
		client:   client,
		db:       db,
		codesCol: col,
		sms:      sms,
		profiles: profiles,
	}, nil
}

func (s *MongoOTPService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Send issues a fresh code for the phone number and texts it out. Any
// previously pending code for the user is replaced.
func (s *MongoOTPService) Send(ctx context.Context, userID, phone string) error {
	code, err := GenerateOTPCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.codesCol.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{
				"phone":      phone,
				"code_hash":  string(hash),
				"attempts":   0,
				"expires_at": now.Add(otpTTL),
			},
			"$setOnInsert": bson.M{
				"user_id":    userID,
				"created_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return err
	}

	return s.sms.SendSMS(ctx, phone, fmt.Sprintf("Your Sillage verification code is %s. It expires in 10 minutes.", code))
}

// Confirm checks the submitted code and, on a match, marks the profile's
// phone verified and consumes the pending code.
func (s *MongoOTPService) Confirm(ctx context.Context, userID, code string) error {
	var doc contactCodeDoc
	if err := s.codesCol.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrOTPNotFound
		}
		return err
	}

	if time.Now().UTC().After(doc.ExpiresAt) {
		_, _ = s.codesCol.DeleteOne(ctx, bson.M{"user_id": userID})
		return ErrOTPExpired
	}
	if doc.Attempts >= otpMaxAttempts {
		return ErrOTPTooManyAttempts
	}

	if err := bcrypt.CompareHashAndPassword([]byte(doc.CodeHash), []byte(code)); err != nil {
		_, _ = s.codesCol.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$inc": bson.M{"attempts": 1}})
		return ErrOTPMismatch
	}

	if err := s.profiles.MarkPhoneVerified(ctx, userID, doc.Phone); err != nil {
		return err
	}
	_, _ = s.codesCol.DeleteOne(ctx, bson.M{"user_id": userID})
	return nil
}

// GenerateOTPCode returns a zero-padded 6-digit code from crypto/rand.
func GenerateOTPCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
