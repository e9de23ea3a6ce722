package lib

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// CacheCredentialAssetURL stores the signed URL of a booking's rendered QR
// image. The TTL tracks the signed URL's own validity, not the credential's.
func CacheCredentialAssetURL(ctx context.Context, bookingID uint, url string, ttl time.Duration) error {
	rdb := GetRedisClient()
	key := fmt.Sprintf("booking:%d:qr", bookingID)
	if err := rdb.Set(ctx, key, url, ttl).Err(); err != nil {
		log.Printf("Failed to set value for key %s: %s\n", key, err)
		return err
	}
	return nil
}

// GetCredentialAssetURL returns the cached signed URL, or "" on a miss.
func GetCredentialAssetURL(ctx context.Context, bookingID uint) string {
	rdb := GetRedisClient()
	key := fmt.Sprintf("booking:%d:qr", bookingID)
	val, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return ""
	} else if err != nil {
		log.Printf("Error retrieving value for %s: %s\n", key, err.Error())
		return ""
	}
	return val
}

// CacheReport stores a rendered weekly report body keyed by its period.
func CacheReport(ctx context.Context, periodKey string, body string, ttl time.Duration) error {
	rdb := GetRedisClient()
	return rdb.Set(ctx, fmt.Sprintf("report:%s", periodKey), body, ttl).Err()
}

func GetCachedReport(ctx context.Context, periodKey string) string {
	rdb := GetRedisClient()
	val, err := rdb.Get(ctx, fmt.Sprintf("report:%s", periodKey)).Result()
	if err != nil {
		return ""
	}
	return val
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}
