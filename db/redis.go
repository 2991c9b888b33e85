// db/redis.go
package db

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/permcheck/config"
	logger "github.com/dev-mohitbeniwal/permcheck/logging"
	"github.com/dev-mohitbeniwal/permcheck/model"
)

var (
	RedisClient   *redis.Client
	encryptionKey []byte
)

func InitRedis() error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:         config.GetString("redis.addr"),
		Password:     config.GetString("redis.password"),
		DB:           config.GetInt("redis.db"),
		DialTimeout:  config.GetDuration("redis.dialTimeout"),
		ReadTimeout:  config.GetDuration("redis.readTimeout"),
		WriteTimeout: config.GetDuration("redis.writeTimeout"),
		PoolSize:     config.GetInt("redis.poolSize"),
		PoolTimeout:  config.GetDuration("redis.poolTimeout"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if err := SetEncryptionKey(config.GetString("redis.encryptionKey")); err != nil {
		return err
	}

	logger.Info("Successfully connected to Redis")
	return nil
}

// SetEncryptionKey enables AES-GCM encryption of cached reports with a 16, 24
// or 32 byte key (AES-128, AES-192, AES-256). An empty key stores reports as
// plain JSON.
func SetEncryptionKey(key string) error {
	if key == "" {
		encryptionKey = nil
		return nil
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("invalid encryption key length %d: must be 16, 24 or 32 bytes", len(key))
	}
	encryptionKey = []byte(key)
	return nil
}

func CloseRedis() {
	if RedisClient != nil {
		if err := RedisClient.Close(); err != nil {
			logger.Error("Error closing Redis connection", zap.Error(err))
		}
	}
}

func encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func encode(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if encryptionKey == nil {
		return string(raw), nil
	}
	sealed, err := encrypt(raw)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func decode(s string, v interface{}) error {
	raw := []byte(s)
	if encryptionKey != nil {
		sealed, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return fmt.Errorf("failed to decode: %w", err)
		}
		if raw, err = decrypt(sealed); err != nil {
			return fmt.Errorf("failed to decrypt: %w", err)
		}
	}
	return json.Unmarshal(raw, v)
}

func CacheReport(ctx context.Context, report *model.CheckReport) error {
	payload, err := encode(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	key := fmt.Sprintf("report:%s", report.CheckID)
	defaultTTL := config.GetDuration("redis.defaultCacheTTL")
	err = RedisClient.Set(ctx, key, payload, defaultTTL).Err()
	if err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}

	logger.Debug("Report cached successfully", zap.String("checkID", report.CheckID))
	return nil
}

func GetCachedReport(ctx context.Context, checkID string) (*model.CheckReport, error) {
	key := fmt.Sprintf("report:%s", checkID)
	payload, err := RedisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		logger.Debug("Report not found in cache", zap.String("checkID", checkID))
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get report from cache: %w", err)
	}

	var report model.CheckReport
	if err := decode(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	logger.Debug("Report retrieved from cache", zap.String("checkID", checkID))
	return &report, nil
}

// IndexCheck remembers which check answered a given input key.
func IndexCheck(ctx context.Context, inputKey, checkID string) error {
	key := fmt.Sprintf("check:%s", inputKey)
	defaultTTL := config.GetDuration("redis.defaultCacheTTL")
	if err := RedisClient.Set(ctx, key, checkID, defaultTTL).Err(); err != nil {
		return fmt.Errorf("failed to index check: %w", err)
	}
	return nil
}

// GetIndexedCheck returns the check ID stored for inputKey, or "" when unknown.
func GetIndexedCheck(ctx context.Context, inputKey string) (string, error) {
	key := fmt.Sprintf("check:%s", inputKey)
	checkID, err := RedisClient.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to read check index: %w", err)
	}
	return checkID, nil
}

func RateLimit(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	pipe := RedisClient.Pipeline()
	now := time.Now().UnixNano()
	key = fmt.Sprintf("ratelimit:%s", key)

	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", now-(per.Nanoseconds())))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: now})
	pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, per)

	cmds, err := pipe.Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to execute rate limit commands: %w", err)
	}

	count := cmds[2].(*redis.IntCmd).Val()
	allowed := count <= int64(limit)
	logger.Debug("Rate limit check",
		zap.String("key", key),
		zap.Int64("count", count),
		zap.Int("limit", limit),
		zap.Bool("allowed", allowed))
	return allowed, nil
}

func LockResource(ctx context.Context, resourceName string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resourceName)
	locked, err := RedisClient.SetNX(ctx, key, "locked", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	logger.Debug("Lock acquisition attempt",
		zap.String("resource", resourceName),
		zap.Bool("locked", locked))
	return locked, nil
}

func UnlockResource(ctx context.Context, resourceName string) error {
	key := fmt.Sprintf("lock:%s", resourceName)
	err := RedisClient.Del(ctx, key).Err()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	logger.Debug("Lock released", zap.String("resource", resourceName))
	return nil
}
