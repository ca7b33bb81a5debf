package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress string

	// Mongo; when MongoURI is empty the server runs on the local JSON-backed
	// services.
	MongoURI string
	MongoDB  string

	// Local-dev fallbacks.
	DataDir         string
	UploadDir       string
	MaxUploadSizeMB int64
	JWTSecret       string

	FirebaseProjectID       string
	FirebaseCredentialsJSON string
	StorageBucket           string

	SendGridAPIKey   string
	SupportFromEmail string
	SupportToEmail   string
	RecaptchaSecret  string

	SMSGatewayURL    string
	SMSGatewayAPIKey string
	SMSSenderID      string
}

func Load() *Config {
	// Best-effort; production supplies real env vars.
	_ = godotenv.Load()

	return &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),

		MongoURI: os.Getenv("MONGO_URI"),
		MongoDB:  getEnv("MONGO_DB", "sillage"),

		DataDir:         getEnv("DATA_DIR", "./data"),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSizeMB: 10,
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		FirebaseProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsJSON: os.Getenv("FIREBASE_CREDENTIALS_JSON"),
		StorageBucket:           os.Getenv("FIREBASE_STORAGE_BUCKET"),

		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		SupportFromEmail: os.Getenv("SUPPORT_FROM_EMAIL"),
		SupportToEmail:   getEnv("SUPPORT_TO_EMAIL", "support@sillage.app"),
		RecaptchaSecret:  os.Getenv("RECAPTCHA_SECRET"),

		SMSGatewayURL:    os.Getenv("SMS_GATEWAY_URL"),
		SMSGatewayAPIKey: os.Getenv("SMS_GATEWAY_API_KEY"),
		SMSSenderID:      getEnv("SMS_SENDER_ID", "Sillage"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
