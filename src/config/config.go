package config

import (
	"fmt"
	"os"
	"time"
)

func GetDSN() string {
	DATABASE_HOST := os.Getenv("DATABASE_HOST")
	DATABASE_PORT := os.Getenv("DATABASE_PORT")
	DATABASE_SSLMODE := os.Getenv("DATABASE_SSLMODE")
	DATABASE_TIMEZONE := os.Getenv("DATABASE_TIMEZONE")
	DATABASE_USER := os.Getenv("DATABASE_USER")
	DATABASE_PASSWORD := os.Getenv("DATABASE_PASSWORD")
	DATABASE_NAME := os.Getenv("DATABASE_NAME")
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s", DATABASE_HOST, DATABASE_USER, DATABASE_PASSWORD, DATABASE_NAME, DATABASE_PORT, DATABASE_SSLMODE, DATABASE_TIMEZONE)
	return dsn
}

const TIME_PARSE_FORMAT = "2006-01-02 15:04:05 -07:00"

// CredentialTTL is how long a collection credential stays valid after issue.
const CredentialTTL = 24 * time.Hour

// ExpirySweepInterval is how often the sweeper marks past-expiry listings.
const ExpirySweepInterval = 5 * time.Minute

var (
	API_ENV    = os.Getenv("API_ENV")
	API_SECRET = os.Getenv("API_SECRET")
)

func IsProd() bool {
	return API_ENV == "production"
}

// WithSuffix appends the environment to a queue or topic name so stacks
// sharing an account do not cross wires.
func WithSuffix(name string) string {
	if API_ENV == "" {
		return name
	}
	return fmt.Sprintf("%s-%s", name, API_ENV)
}

// RestockOnCancel is the platform default for returning committed quantity
// to the pool when a booking is cancelled or rejected. Off by default,
// pending a product decision.
func RestockOnCancel() bool {
	return os.Getenv("RESTOCK_ON_CANCEL") == "true"
}
