package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultListenAddr         = ":3000"
	DefaultAccessTokenExpiry  = 60 * time.Minute
	DefaultRefreshTokenExpiry = 30 * 24 * time.Hour
	DefaultLockoutThreshold   = 5
	DefaultLockoutDuration    = 15 * time.Minute
	DefaultPasswordHistory    = 5
	DefaultMinPasswordLength  = 8
	DefaultMaxPasswordLength  = 128

	minSigningKeyLength = 32
	encryptionKeyLength = 32
)

type MySQLConfig struct {
	Dsn             string   `mapstructure:"dsn"`
	ReplicaDsns     []string `mapstructure:"replicaDsns"`
	TablePrefix     string   `mapstructure:"tablePrefix"`
	MaxIdleConns    int      `mapstructure:"maxIdleConns"`
	MaxOpenConns    int      `mapstructure:"maxOpenConns"`
	ConnMaxIdleTime int      `mapstructure:"connMaxIdleTime"`
	ConnMaxLifetime int      `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	URL         string `mapstructure:"url"`
	PoolSize    int    `mapstructure:"poolSize"`
	ClusterMode bool   `mapstructure:"clusterMode"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	TLS      bool   `mapstructure:"tls"`
	CertFile string `mapstructure:"certFile"`
	KeyFile  string `mapstructure:"keyFile"`
	CAFile   string `mapstructure:"caFile"`
}

type MailConfig struct {
	Backend string     `mapstructure:"backend"`
	From    string     `mapstructure:"from"`
	SMTP    SMTPConfig `mapstructure:"smtp"`
}

// PasswordPolicy drives change-password validation and the lockout state
// machine in the authentication orchestrator.
type PasswordPolicy struct {
	MinLength        int           `mapstructure:"minLength"`
	MaxLength        int           `mapstructure:"maxLength"`
	RequireUpper     bool          `mapstructure:"requireUpper"`
	RequireLower     bool          `mapstructure:"requireLower"`
	RequireDigit     bool          `mapstructure:"requireDigit"`
	RequireSpecial   bool          `mapstructure:"requireSpecial"`
	HistoryCount     int           `mapstructure:"historyCount"`
	LockoutThreshold int           `mapstructure:"lockoutThreshold"`
	LockoutDuration  time.Duration `mapstructure:"lockoutDuration"`
}

type TokenConfig struct {
	SigningKey         string        `mapstructure:"signingKey"`
	Issuer             string        `mapstructure:"issuer"`
	Audience           string        `mapstructure:"audience"`
	AccessTokenExpiry  time.Duration `mapstructure:"accessTokenExpiry"`
	RefreshTokenExpiry time.Duration `mapstructure:"refreshTokenExpiry"`
}

type Config struct {
	Debug         bool           `mapstructure:"debug"`
	ListenAddr    string         `mapstructure:"listenAddr"`
	AllowOrigins  []string       `mapstructure:"allowOrigins"`
	EncryptionKey string         `mapstructure:"encryptionKey"` // base64, 32 bytes
	Password      PasswordPolicy `mapstructure:"password"`
	Token         TokenConfig    `mapstructure:"token"`
	MySQL         MySQLConfig    `mapstructure:"mysql"`
	Redis         RedisConfig    `mapstructure:"redis"`
	Mail          MailConfig     `mapstructure:"mail"`
}

// EncryptionKeyBytes decodes the at-rest encryption key. Key material is
// provisioned out-of-band and validated once at startup.
func (c *Config) EncryptionKeyBytes() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid base64: %w", err)
	}
	if len(key) != encryptionKeyLength {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", encryptionKeyLength, len(key))
	}
	return key, nil
}

func (c *Config) Sanitize() error {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Token.AccessTokenExpiry == 0 {
		c.Token.AccessTokenExpiry = DefaultAccessTokenExpiry
	}
	if c.Token.RefreshTokenExpiry == 0 {
		c.Token.RefreshTokenExpiry = DefaultRefreshTokenExpiry
	}
	if c.Password.MinLength == 0 {
		c.Password.MinLength = DefaultMinPasswordLength
	}
	if c.Password.MaxLength == 0 {
		c.Password.MaxLength = DefaultMaxPasswordLength
	}
	if c.Password.HistoryCount == 0 {
		c.Password.HistoryCount = DefaultPasswordHistory
	}
	if c.Password.LockoutThreshold == 0 {
		c.Password.LockoutThreshold = DefaultLockoutThreshold
	}
	if c.Password.LockoutDuration == 0 {
		c.Password.LockoutDuration = DefaultLockoutDuration
	}
	return c.validate()
}

// validate rejects missing or malformed key material. These are startup
// failures, never per-request ones.
func (c *Config) validate() error {
	if len(c.Token.SigningKey) < minSigningKeyLength {
		return fmt.Errorf("token signing key must be at least %d bytes", minSigningKeyLength)
	}
	if c.Token.Issuer == "" || c.Token.Audience == "" {
		return errors.New("token issuer and audience must be configured")
	}
	if _, err := c.EncryptionKeyBytes(); err != nil {
		return err
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	viper.SetConfigFile(filename)
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Sanitize(); err != nil {
		return nil, err
	}
	return &config, nil
}
