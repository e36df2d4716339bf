package config

import (
	"strings"

	"github.com/spf13/viper"
)

// DefaultMaxRoomSize bounds room occupancy. Full-mesh negotiation costs
// n*(n-1)/2 links per room.
const DefaultMaxRoomSize = 12

var defaultStunURLs = []string{"stun:stun.l.google.com:19302"}

// ICEServer is connection-bootstrap configuration handed through to
// clients on join. The coordinator never uses it itself.
type ICEServer struct {
	URLs       []string `json:"urls" mapstructure:"urls"`
	Username   string   `json:"username,omitempty" mapstructure:"username"`
	Credential string   `json:"credential,omitempty" mapstructure:"credential"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type VoiceConfig struct {
	MaxRoomSize int         `mapstructure:"max_room_size"`
	ICEServers  []ICEServer `mapstructure:"ice_servers"`
}

type Config struct {
	Address  string         `mapstructure:"address"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Database DatabaseConfig `mapstructure:"database"`
	Voice    VoiceConfig    `mapstructure:"voice"`
}

// Load reads the YAML config at path, with VOICEMESH_* env overrides.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("address", ":8080")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("database.url", "")
	v.SetDefault("voice.max_room_size", DefaultMaxRoomSize)

	v.SetEnvPrefix("voicemesh")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	if len(cfg.Voice.ICEServers) == 0 {
		cfg.Voice.ICEServers = []ICEServer{{URLs: defaultStunURLs}}
	}
	if cfg.Voice.MaxRoomSize <= 0 {
		cfg.Voice.MaxRoomSize = DefaultMaxRoomSize
	}

	return cfg, nil
}
