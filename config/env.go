package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// envOverrides are read after the TOML files and win over them.
type envOverrides struct {
	DataDir       string `env:"CORTEXCHAT_DATA_DIR"`
	AccountURL    string `env:"SNOWFLAKE_ACCOUNT_URL"`
	Token         string `env:"SNOWFLAKE_PAT"`
	Role          string `env:"SNOWFLAKE_ROLE"`
	Warehouse     string `env:"SNOWFLAKE_WAREHOUSE"`
	Model         string `env:"CORTEXCHAT_MODEL"`
	Mode          string `env:"CORTEXCHAT_MODE"`
	UseThreads    string `env:"CORTEXCHAT_USE_THREADS"`
	Splitter      string `env:"CORTEXCHAT_SPLITTER"`
	DocStore      string `env:"CORTEXCHAT_DOCSTORE"`
	Debug         bool   `env:"CORTEXCHAT_DEBUG"`
	LogLevel      string `env:"CORTEXCHAT_LOG_LEVEL" envDefault:"debug"`
	SSHPassphrase string `env:"CORTEXCHAT_SSH_PASSPHRASE"`
}

func parseEnv() (*envOverrides, error) {
	o := &envOverrides{}
	if err := env.Parse(o); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return o, nil
}

func (o *envOverrides) apply(c *Config) {
	if o.AccountURL != "" {
		c.Snowflake.AccountURL = o.AccountURL
	}
	if o.Role != "" {
		c.Snowflake.Role = o.Role
	}
	if o.Warehouse != "" {
		c.Snowflake.Warehouse = o.Warehouse
	}
	if o.Model != "" {
		c.Chat.DefaultModel = o.Model
	}
	if o.Mode != "" {
		c.Agent.Mode = o.Mode
	}
	if b, err := strconv.ParseBool(o.UseThreads); err == nil {
		c.Chat.UseThreads = b
	}
	if o.Splitter != "" {
		c.Splitter.Provider = o.Splitter
	}
	if o.DocStore != "" {
		c.DocStore.Type = o.DocStore
	}
	if o.Debug {
		c.Chat.Debug = true
	}
	c.LogLevel = o.LogLevel
	c.envToken = o.Token
}

// LoadDotEnv reads .env files into the process environment. Missing files
// are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
