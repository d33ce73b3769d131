package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "DEPTH2LAYER"

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Depth   DepthConfig   `mapstructure:"depth"`
	Layer   LayerConfig   `mapstructure:"layer"`
	Texture TextureConfig `mapstructure:"texture"`
}

type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	Mode          string        `mapstructure:"mode"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"`
	AllowedTypes  []string      `mapstructure:"allowed_types"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	QueueTimeout  time.Duration `mapstructure:"queue_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type DepthConfig struct {
	// Providers 按顺序尝试：remote | luminance | mock
	Providers   []string      `mapstructure:"providers"`
	ModelURL    string        `mapstructure:"model_url"`
	Model       string        `mapstructure:"model"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxSize     int           `mapstructure:"max_size"`
	DetailLevel float64       `mapstructure:"detail_level"`
	Invert      bool          `mapstructure:"invert"`
	MockNoise   float64       `mapstructure:"mock_noise"`
}

type LayerConfig struct {
	Names  []string  `mapstructure:"names"`
	Cuts   []float64 `mapstructure:"cuts"`
	Policy string    `mapstructure:"policy"`
}

type TextureConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Dir        string        `mapstructure:"dir"`
	Format     string        `mapstructure:"format"`
	Background string        `mapstructure:"background"`
	MaxAge     time.Duration `mapstructure:"max_age"`
	SweepSpec  string        `mapstructure:"sweep_spec"`
}

// Load 从 YAML 文件加载配置，环境变量 DEPTH2LAYER_* 覆盖文件
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, cfg.Validate()
}

// New 加载配置文件，文件不存在时使用默认配置
func New(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err == nil {
		return cfg, nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return nil, err
}

func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server.mode %q", c.Server.Mode)
	}
	if len(c.Layer.Names) != len(c.Layer.Cuts)+1 {
		return fmt.Errorf("layer.names has %d entries, layer.cuts must have %d", len(c.Layer.Names), len(c.Layer.Names)-1)
	}
	if len(c.Depth.Providers) == 0 {
		return errors.New("depth.providers is empty")
	}
	for _, p := range c.Depth.Providers {
		switch p {
		case "remote", "luminance", "mock":
		default:
			return fmt.Errorf("unknown depth provider %q", p)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.max_upload_size", d.Server.MaxUploadSize)
	v.SetDefault("server.allowed_types", d.Server.AllowedTypes)
	v.SetDefault("server.max_concurrent", d.Server.MaxConcurrent)
	v.SetDefault("server.queue_timeout", d.Server.QueueTimeout)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("depth.providers", d.Depth.Providers)
	v.SetDefault("depth.model_url", d.Depth.ModelURL)
	v.SetDefault("depth.model", d.Depth.Model)
	v.SetDefault("depth.timeout", d.Depth.Timeout)
	v.SetDefault("depth.max_size", d.Depth.MaxSize)
	v.SetDefault("depth.detail_level", d.Depth.DetailLevel)
	v.SetDefault("depth.invert", d.Depth.Invert)
	v.SetDefault("depth.mock_noise", d.Depth.MockNoise)

	v.SetDefault("layer.names", d.Layer.Names)
	v.SetDefault("layer.cuts", d.Layer.Cuts)
	v.SetDefault("layer.policy", d.Layer.Policy)

	v.SetDefault("texture.enabled", d.Texture.Enabled)
	v.SetDefault("texture.dir", d.Texture.Dir)
	v.SetDefault("texture.format", d.Texture.Format)
	v.SetDefault("texture.background", d.Texture.Background)
	v.SetDefault("texture.max_age", d.Texture.MaxAge)
	v.SetDefault("texture.sweep_spec", d.Texture.SweepSpec)
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          ":8000",
			Mode:          "debug",
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  60 * time.Second,
			MaxUploadSize: 10 * 1024 * 1024,
			AllowedTypes:  []string{"image/jpeg", "image/png", "image/jpg", "image/webp"},
			MaxConcurrent: 4,
			QueueTimeout:  30 * time.Second,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
			TTL:     24 * time.Hour,
		},
		Depth: DepthConfig{
			Providers:   []string{"remote", "luminance"},
			ModelURL:    "http://localhost:8188",
			Model:       "Intel/dpt-large",
			Timeout:     60 * time.Second,
			MaxSize:     1024,
			DetailLevel: 1,
			MockNoise:   0.1,
		},
		Layer: LayerConfig{
			Names:  []string{"foreground", "midground", "background"},
			Cuts:   []float64{0.3, 0.7},
			Policy: "fixed",
		},
		Texture: TextureConfig{
			Enabled:    true,
			Dir:        "./textures",
			Format:     "png",
			Background: "#000000",
			MaxAge:     24 * time.Hour,
			SweepSpec:  "@every 30m",
		},
	}
}
