// config/config.go
package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Log           LogConfiguration
	Checker       CheckerConfiguration
	Oracle        OracleConfiguration
	Neo4j         DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Auth          AuthConfiguration
	RateLimit     RateLimitConfiguration
	Upload        UploadConfiguration
	Reports       ReportsConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

type LogConfiguration struct {
	Dir string
}

// CheckerConfiguration controls the analysis pipeline
type CheckerConfiguration struct {
	WorkDir          string
	Completeness     string
	ResourceStrategy string
	ExcludeDirs      []string
	KeepWorkDir      bool
}

// OracleConfiguration selects and tunes the entity/constraint resolver
type OracleConfiguration struct {
	Provider    string
	URL         string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
	Timeout     time.Duration
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	Enabled  bool
	URI      string
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection
type RedisConfiguration struct {
	Enabled         bool
	Addr            string
	Password        string
	DB              int
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	PoolTimeout     time.Duration
	DefaultCacheTTL time.Duration
	LockTTL         time.Duration
	EncryptionKey   string
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	Enabled bool
	URL     string
	Index   string
}

type AuthConfiguration struct {
	Enabled        bool
	JWTSecret      string
	RequiredGroups []string
}

type RateLimitConfiguration struct {
	Requests int
	Window   time.Duration
}

type UploadConfiguration struct {
	MaxBytes int64
}

type ReportsConfiguration struct {
	MemoryCapacity int
}

var (
	config     *Configuration
	configFile string
)

// UseConfigFile makes InitConfig read path instead of searching config/config.yaml.
func UseConfigFile(path string) {
	configFile = path
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("log.dir", "")

	viper.SetDefault("checker.workDir", "uploads")
	viper.SetDefault("checker.completeness", "all")
	viper.SetDefault("checker.resourceStrategy", "oracle")
	viper.SetDefault("checker.excludeDirs", []string{"auth", "user"})
	viper.SetDefault("checker.keepWorkDir", false)

	viper.SetDefault("oracle.provider", "openai")
	viper.SetDefault("oracle.url", "https://api.openai.com/v1")
	viper.SetDefault("oracle.apiKey", "")
	viper.SetDefault("oracle.model", "gpt-4.1-mini")
	viper.SetDefault("oracle.maxTokens", 500)
	viper.SetDefault("oracle.temperature", 0.1)
	viper.SetDefault("oracle.topP", 0.95)
	viper.SetDefault("oracle.timeout", "60s")

	viper.SetDefault("neo4j.enabled", false)
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("neo4j.username", "neo4j")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dialTimeout", "5s")
	viper.SetDefault("redis.readTimeout", "3s")
	viper.SetDefault("redis.writeTimeout", "3s")
	viper.SetDefault("redis.poolSize", 10)
	viper.SetDefault("redis.poolTimeout", "4s")
	viper.SetDefault("redis.defaultCacheTTL", "10m")
	viper.SetDefault("redis.lockTTL", "5m")
	viper.SetDefault("redis.encryptionKey", "")
	viper.SetDefault("elasticsearch.enabled", false)
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("elasticsearch.index", "permcheck-audit")
	viper.SetDefault("reports.memoryCapacity", 100)

	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwtSecret", "")
	viper.SetDefault("auth.requiredGroups", []string{"permcheck-admin"})

	viper.SetDefault("ratelimit.requests", 30)
	viper.SetDefault("ratelimit.window", "1m")
	viper.SetDefault("upload.maxBytes", 32<<20)
}

func InitConfig() error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath("config") // path to look for the config file in
		viper.SetConfigName("config") // name of the config file (without extension)
		viper.SetConfigType("yaml")   // REQUIRED if the config file does not have the extension in the name
	}

	viper.SetEnvPrefix("PERMCHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	setDefaults()

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// Set overrides a single key, used by CLI flags.
func Set(key string, value interface{}) {
	viper.Set(key, value)
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetStringSlice retrieves a string slice value from the configuration.
// Entries are also split on commas, so PERMCHECK_CHECKER_EXCLUDEDIRS=auth,user
// yields two entries.
func GetStringSlice(key string) []string {
	values := make([]string, 0)
	for _, v := range viper.GetStringSlice(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
	}
	return values
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetInt64 retrieves an int64 value from the configuration
func GetInt64(key string) int64 {
	return viper.GetInt64(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat64 retrieves a float64 value from the configuration
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
