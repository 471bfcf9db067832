package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envPublicBaseURL         = "PUBLIC_BASE_URL"
	envTrustedProxies        = "TRUSTED_PROXIES"
	envDBHost                = "DB_HOST"
	envDBPort                = "DB_PORT"
	envDBName                = "DB_NAME"
	envDBUser                = "DB_USER"
	envDBPassword            = "DB_PASSWORD"
	envDBSSLMode             = "DB_SSL_MODE"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envJWTSecret             = "JWT_SECRET"
	envUploadMaxFileSize     = "UPLOAD_MAX_FILE_SIZE"
	envUploadMaxFiles        = "UPLOAD_MAX_FILES"
	envUploadMinDimension    = "UPLOAD_MIN_DIMENSION"
	envUploadMaxDimension    = "UPLOAD_MAX_DIMENSION"
	envUploadJPEGQuality     = "UPLOAD_JPEG_QUALITY"
	envUploadBatchTimeout    = "UPLOAD_BATCH_TIMEOUT"
	envUploadWorkers         = "UPLOAD_WORKERS"
	envWatermarkText         = "WATERMARK_TEXT"
	envWatermarkPosition     = "WATERMARK_POSITION"
	envShareBcryptCost       = "SHARE_BCRYPT_COST"
	envInvitationTTL         = "INVITATION_TTL"
	envInvitationMaxUses     = "INVITATION_DEFAULT_MAX_USES"
	envStorageURLExpiry      = "STORAGE_URL_EXPIRY"
	envCloudinaryCloudName   = "CLOUDINARY_CLOUD_NAME"
	envCloudinaryAPIKey      = "CLOUDINARY_API_KEY"
	envCloudinaryAPISecret   = "CLOUDINARY_API_SECRET"
	envCloudinaryFolder      = "CLOUDINARY_FOLDER"
	envMongoURI              = "MONGO_URI"
	envMongoDatabase         = "MONGO_DATABASE"
	envMongoBucket           = "MONGO_GRIDFS_BUCKET"
	envMongoConnectTimeout   = "MONGO_CONNECT_TIMEOUT"
	envS3Region              = "S3_REGION"
	envS3Bucket              = "S3_BUCKET"
	envS3Endpoint            = "S3_ENDPOINT"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envGCSBucket             = "GCS_BUCKET"
	envGCSCredentialsFile    = "GCS_CREDENTIALS_FILE"
	envLocalRoot             = "LOCAL_STORAGE_ROOT"
	envLocalURLPrefix        = "LOCAL_STORAGE_URL_PREFIX"
	envRateLimitEnabled      = "RATE_LIMIT_ENABLED"
	envRateLimitGlobalRPS    = "RATE_LIMIT_GLOBAL_RPS"
	envRateLimitGlobalBurst  = "RATE_LIMIT_GLOBAL_BURST"
	envRateLimitStrictRPS    = "RATE_LIMIT_STRICT_RPS"
	envRateLimitStrictBurst  = "RATE_LIMIT_STRICT_BURST"
)

const (
	defaultServerPort         = "8080"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 3 * time.Minute
	defaultServerShutdown     = 10 * time.Second
	defaultDBHost             = "localhost"
	defaultDBPort             = 5432
	defaultDBName             = "gallery"
	defaultDBUser             = "gallery_app"
	defaultDBSSLMode          = "disable"
	defaultDBMaxConns         = 25
	defaultDBMinConns         = 5
	defaultMaxFileSize        = int64(50 * 1024 * 1024)
	defaultMaxFiles           = 50
	defaultMinDimension       = 100
	defaultMaxDimension       = 10000
	defaultJPEGQuality        = 85
	defaultBatchTimeout       = 2 * time.Minute
	defaultUploadWorkers      = 4
	defaultWatermarkPosition  = "bottom-right"
	defaultBcryptCost         = 12
	defaultInvitationTTL      = 30 * 24 * time.Hour
	defaultInvitationMaxUses  = 1
	defaultStorageURLExpiry   = 15 * time.Minute
	defaultCloudinaryFolder   = "galleries"
	defaultMongoDatabase      = "gallery"
	defaultMongoBucket        = "photos"
	defaultMongoTimeout       = 10 * time.Second
	defaultLocalRoot          = "./uploads"
	defaultLocalURLPrefix     = "/uploads"
	defaultGlobalRPS          = 100
	defaultGlobalBurst        = 200
	defaultStrictRPS          = 5
	defaultStrictBurst        = 10
	minJWTSecretLength        = 32
	minUniqueCharsInSecret    = 16
	minRepeatedCharThreshold  = 4
	maxRepeatedChars          = 2
	minJPEGQuality            = 1
	maxJPEGQuality            = 100

	errPortRequiredFmt         = "PORT must be set"
	errTrustedProxyFmt         = "TRUSTED_PROXIES entry %q is not an IP or CIDR"
	errDBPasswordRequiredFmt   = "DB_PASSWORD must be set"
	errJWTSecretRequiredFmt    = "JWT_SECRET must be set"
	errJWTSecretMinLengthFmt   = "JWT_SECRET must be at least %d characters"
	errJWTSecretLowEntropyFmt  = "JWT_SECRET has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errMaxFileSizeFmt          = "UPLOAD_MAX_FILE_SIZE must be positive"
	errDimensionRangeFmt       = "UPLOAD_MIN_DIMENSION (%d) must be positive and not exceed UPLOAD_MAX_DIMENSION (%d)"
	errJPEGQualityFmt          = "UPLOAD_JPEG_QUALITY must be between %d and %d"
	errUploadWorkersFmt        = "UPLOAD_WORKERS must be positive"
	errBatchTimeoutFmt         = "UPLOAD_BATCH_TIMEOUT must be positive"
	errWatermarkPositionFmt    = "WATERMARK_POSITION %q is not one of %s"
	errLocalRootRequiredFmt    = "LOCAL_STORAGE_ROOT must not be empty"
	errInvalidConfigurationFmt = "invalid configuration: %w"
)

// WatermarkPositions lists the accepted anchors for WATERMARK_POSITION.
var WatermarkPositions = []string{"bottom-right", "bottom-left", "top-right", "top-left", "center"}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Upload    UploadConfig
	Share     ShareConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	PublicBaseURL   string
	TrustedProxies  []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	MaxConns int
	MinConns int
}

type JWTConfig struct {
	Secret string
}

type UploadConfig struct {
	MaxFileSize       int64
	MaxFiles          int
	MinDimension      int
	MaxDimension      int
	JPEGQuality       int
	BatchTimeout      time.Duration
	Workers           int
	WatermarkText     string
	WatermarkPosition string
}

type ShareConfig struct {
	BcryptCost        int
	InvitationTTL     time.Duration
	InvitationMaxUses int
}

type StorageConfig struct {
	URLExpiry time.Duration
	CDN       CDNConfig
	Mongo     MongoConfig
	S3        S3Config
	GCS       GCSConfig
	Local     LocalConfig
}

type CDNConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Configured reports credential presence only; reachability is checked at
// selection time.
func (c CDNConfig) Configured() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

type MongoConfig struct {
	URI            string
	Database       string
	Bucket         string
	ConnectTimeout time.Duration
}

func (c MongoConfig) Configured() bool {
	return c.URI != ""
}

type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) Configured() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
}

func (c GCSConfig) Configured() bool {
	return c.Bucket != "" && c.CredentialsFile != ""
}

type LocalConfig struct {
	Root      string
	URLPrefix string
}

type RateLimitConfig struct {
	Enabled     bool
	GlobalRPS   int
	GlobalBurst int
	StrictRPS   int
	StrictBurst int
}

func Load() (*Config, error) {
	var env envCollector
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
			PublicBaseURL:   strings.TrimRight(getEnv(envPublicBaseURL, ""), "/"),
			TrustedProxies:  getListEnv(envTrustedProxies),
		},
		Database: DatabaseConfig{
			Host:     getEnv(envDBHost, defaultDBHost),
			Port:     getIntEnv(envDBPort, defaultDBPort),
			Database: getEnv(envDBName, defaultDBName),
			User:     getEnv(envDBUser, defaultDBUser),
			Password: env.require(envDBPassword),
			SSLMode:  getEnv(envDBSSLMode, defaultDBSSLMode),
			MaxConns: getIntEnv(envDBMaxConns, defaultDBMaxConns),
			MinConns: getIntEnv(envDBMinConns, defaultDBMinConns),
		},
		JWT: JWTConfig{
			Secret: env.require(envJWTSecret),
		},
		Upload: UploadConfig{
			MaxFileSize:       getInt64Env(envUploadMaxFileSize, defaultMaxFileSize),
			MaxFiles:          getIntEnv(envUploadMaxFiles, defaultMaxFiles),
			MinDimension:      getIntEnv(envUploadMinDimension, defaultMinDimension),
			MaxDimension:      getIntEnv(envUploadMaxDimension, defaultMaxDimension),
			JPEGQuality:       getIntEnv(envUploadJPEGQuality, defaultJPEGQuality),
			BatchTimeout:      getDurationEnv(envUploadBatchTimeout, defaultBatchTimeout),
			Workers:           getIntEnv(envUploadWorkers, defaultUploadWorkers),
			WatermarkText:     getEnv(envWatermarkText, ""),
			WatermarkPosition: getEnv(envWatermarkPosition, defaultWatermarkPosition),
		},
		Share: ShareConfig{
			BcryptCost:        getIntEnv(envShareBcryptCost, defaultBcryptCost),
			InvitationTTL:     getDurationEnv(envInvitationTTL, defaultInvitationTTL),
			InvitationMaxUses: getIntEnv(envInvitationMaxUses, defaultInvitationMaxUses),
		},
		Storage: StorageConfig{
			URLExpiry: getDurationEnv(envStorageURLExpiry, defaultStorageURLExpiry),
			CDN: CDNConfig{
				CloudName: getEnv(envCloudinaryCloudName, ""),
				APIKey:    getEnv(envCloudinaryAPIKey, ""),
				APISecret: getEnv(envCloudinaryAPISecret, ""),
				Folder:    getEnv(envCloudinaryFolder, defaultCloudinaryFolder),
			},
			Mongo: MongoConfig{
				URI:            getEnv(envMongoURI, ""),
				Database:       getEnv(envMongoDatabase, defaultMongoDatabase),
				Bucket:         getEnv(envMongoBucket, defaultMongoBucket),
				ConnectTimeout: getDurationEnv(envMongoConnectTimeout, defaultMongoTimeout),
			},
			S3: S3Config{
				Region:          getEnv(envS3Region, ""),
				Bucket:          getEnv(envS3Bucket, ""),
				Endpoint:        getEnv(envS3Endpoint, ""),
				AccessKeyID:     getEnv(envAWSAccessKeyID, ""),
				SecretAccessKey: getEnv(envAWSSecretAccessKey, ""),
			},
			GCS: GCSConfig{
				Bucket:          getEnv(envGCSBucket, ""),
				CredentialsFile: getEnv(envGCSCredentialsFile, ""),
			},
			Local: LocalConfig{
				Root:      getEnv(envLocalRoot, defaultLocalRoot),
				URLPrefix: getEnv(envLocalURLPrefix, defaultLocalURLPrefix),
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv(envRateLimitEnabled, true),
			GlobalRPS:   getIntEnv(envRateLimitGlobalRPS, defaultGlobalRPS),
			GlobalBurst: getIntEnv(envRateLimitGlobalBurst, defaultGlobalBurst),
			StrictRPS:   getIntEnv(envRateLimitStrictRPS, defaultStrictRPS),
			StrictBurst: getIntEnv(envRateLimitStrictBurst, defaultStrictBurst),
		},
	}

	if err := env.err(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequiredFmt)
	}

	if _, err := c.Server.TrustedProxyNets(); err != nil {
		return err
	}

	if c.Database.Password == "" {
		return fmt.Errorf(errDBPasswordRequiredFmt)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf(errJWTSecretRequiredFmt)
	}

	if len(c.JWT.Secret) < minJWTSecretLength {
		return fmt.Errorf(errJWTSecretMinLengthFmt, minJWTSecretLength)
	}

	if !hasMinimumEntropy(c.JWT.Secret) {
		return fmt.Errorf(errJWTSecretLowEntropyFmt)
	}

	if err := c.Upload.validate(); err != nil {
		return err
	}

	return c.Storage.validate()
}

func (u *UploadConfig) validate() error {
	if u.MaxFileSize <= 0 {
		return fmt.Errorf(errMaxFileSizeFmt)
	}

	if u.MinDimension <= 0 || u.MinDimension > u.MaxDimension {
		return fmt.Errorf(errDimensionRangeFmt, u.MinDimension, u.MaxDimension)
	}

	if u.JPEGQuality < minJPEGQuality || u.JPEGQuality > maxJPEGQuality {
		return fmt.Errorf(errJPEGQualityFmt, minJPEGQuality, maxJPEGQuality)
	}

	if u.Workers <= 0 {
		return fmt.Errorf(errUploadWorkersFmt)
	}

	if u.BatchTimeout <= 0 {
		return fmt.Errorf(errBatchTimeoutFmt)
	}

	for _, p := range WatermarkPositions {
		if p == u.WatermarkPosition {
			return nil
		}
	}
	return fmt.Errorf(errWatermarkPositionFmt, u.WatermarkPosition, strings.Join(WatermarkPositions, ", "))
}

func (s *StorageConfig) validate() error {
	// A backend counts as partial when some of its keys are set but not all.
	sections := []struct {
		name  string
		pairs []string
	}{
		{"cdn", []string{
			envCloudinaryCloudName, s.CDN.CloudName,
			envCloudinaryAPIKey, s.CDN.APIKey,
			envCloudinaryAPISecret, s.CDN.APISecret,
		}},
		{"s3", []string{
			envAWSAccessKeyID, s.S3.AccessKeyID,
			envAWSSecretAccessKey, s.S3.SecretAccessKey,
			envS3Bucket, s.S3.Bucket,
			envS3Region, s.S3.Region,
		}},
		{"gcs", []string{
			envGCSBucket, s.GCS.Bucket,
			envGCSCredentialsFile, s.GCS.CredentialsFile,
		}},
	}
	for _, sec := range sections {
		missing := missingKeys(sec.pairs...)
		if len(missing) > 0 && len(missing) < len(sec.pairs)/2 {
			return fmt.Errorf("%s", messages.backendPartial(sec.name, missing))
		}
	}

	if s.Local.Root == "" {
		return fmt.Errorf(errLocalRootRequiredFmt)
	}

	return nil
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minJWTSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	uniqueChars := len(charCounts)
	if uniqueChars < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

// TrustedProxyNets parses TrustedProxies, the peers whose X-Forwarded-For
// is believed. A bare address becomes a single-host network.
func (c ServerConfig) TrustedProxyNets() ([]*net.IPNet, error) {
	nets := make([]*net.IPNet, 0, len(c.TrustedProxies))
	for _, entry := range c.TrustedProxies {
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf(errTrustedProxyFmt, entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf(errTrustedProxyFmt, entry)
		}
		nets = append(nets, n)
	}
	return nets, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
