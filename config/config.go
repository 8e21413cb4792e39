package config

import (
	"fmt"
	"os"
	"strings"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

// SnowflakeConfig is the [snowflake] section: account and session defaults.
type SnowflakeConfig struct {
	AccountURL string `toml:"account_url"`
	// Role is sent as X-Snowflake-Role when set.
	Role      string `toml:"role,omitempty"`
	Warehouse string `toml:"warehouse,omitempty"`
	TimeoutMS int    `toml:"timeout_ms"`
}

// Orchestration modes for a turn.
const (
	ModeHeuristic = "heuristic"
	ModeAgent     = "agent"
)

// AgentConfig is the [agent] section. Name, when set, refers to a
// preconfigured agent that agent mode runs against.
type AgentConfig struct {
	Mode     string `toml:"mode"`
	Database string `toml:"database"`
	Schema   string `toml:"schema"`
	Name     string `toml:"name"`
	SpecFile string `toml:"spec_file"`
}

type ChatConfig struct {
	DefaultModel      string   `toml:"default_model"`
	Models            []string `toml:"models"`
	UseThreads        bool     `toml:"use_threads"`
	Debug             bool     `toml:"debug"`
	OriginApplication string   `toml:"origin_application"`
}

// ToolsConfig names the search service, the semantic model and the tables
// citations are read from.
type ToolsConfig struct {
	SearchName        string `toml:"search_name"`
	SearchService     string `toml:"search_service"`
	MaxResults        int    `toml:"max_results"`
	TitleColumn       string `toml:"title_column"`
	IDColumn          string `toml:"id_column"`
	AnalystName       string `toml:"analyst_name"`
	SemanticModelFile string `toml:"semantic_model_file"`
	DocsStage         string `toml:"docs_stage"`
	ChunksTable       string `toml:"chunks_table"`
}

// SplitterConfig picks the backend that splits compound questions.
type SplitterConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
}

// Document store backends for citation lookups.
const (
	DocStoreSnowflake = "snowflake"
	DocStoreSQLite    = "sqlite"
)

type DocStoreConfig struct {
	Type string `toml:"type"`
	Path string `toml:"path,omitempty"`
}

type SecurityConfig struct {
	CredentialStorage SecurityMethod `toml:"credential_storage"`
	SSHKeyPath        string         `toml:"ssh_key_path,omitempty"`
}

// UserConfig is the on-disk shape of config.toml.
type UserConfig struct {
	Snowflake SnowflakeConfig `toml:"snowflake"`
	Agent     AgentConfig     `toml:"agent"`
	Chat      ChatConfig      `toml:"chat"`
	Tools     ToolsConfig     `toml:"tools"`
	Splitter  SplitterConfig  `toml:"splitter"`
	DocStore  DocStoreConfig  `toml:"docstore"`
	Security  SecurityConfig  `toml:"security"`
}

// Config is the merged runtime configuration: system config, user config,
// environment and stored credentials.
type Config struct {
	DataDirectory string
	Snowflake     SnowflakeConfig
	Agent         AgentConfig
	Chat          ChatConfig
	Tools         ToolsConfig
	Splitter      SplitterConfig
	DocStore      DocStoreConfig
	Security      SecurityConfig

	LogLevel        string
	CredentialStore *CredentialStore
	Keybindings     *KeyBindingsConfig

	// token from the environment, wins over the credential store
	envToken string
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Token returns the Snowflake programmatic access token.
func (c *Config) Token() string {
	if c.envToken != "" {
		return c.envToken
	}
	if c.CredentialStore != nil {
		return c.CredentialStore.Get(CredentialSnowflake)
	}
	return ""
}

// APIKey returns the stored key for a splitter provider.
func (c *Config) APIKey(providerID string) string {
	if c.CredentialStore == nil {
		return ""
	}
	return c.CredentialStore.Get(providerID)
}

// HasAgent reports whether a preconfigured agent is named. Whether a turn
// goes to it is decided per turn by the session mode.
func (c *Config) HasAgent() bool {
	return c.Agent.Name != ""
}

// Validate checks the settings every command needs before talking to
// Snowflake.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Snowflake.AccountURL) == "" {
		return fmt.Errorf("snowflake account_url is not set (config.toml or SNOWFLAKE_ACCOUNT_URL)")
	}
	switch c.Agent.Mode {
	case ModeHeuristic, ModeAgent:
	default:
		return fmt.Errorf("unknown orchestration mode: %q", c.Agent.Mode)
	}
	if c.HasAgent() && (c.Agent.Database == "" || c.Agent.Schema == "") {
		return fmt.Errorf("agent %q needs database and schema", c.Agent.Name)
	}
	switch c.DocStore.Type {
	case DocStoreSnowflake, DocStoreSQLite:
	default:
		return fmt.Errorf("unknown docstore type: %q", c.DocStore.Type)
	}
	return nil
}

func (c *Config) applyUserConfig(u *UserConfig) {
	c.Snowflake = u.Snowflake
	c.Agent = u.Agent
	c.Chat = u.Chat
	c.Tools = u.Tools
	c.Splitter = u.Splitter
	c.DocStore = u.DocStore
	c.Security = u.Security
	fillDefaults(c)
}

// UserConfig converts the runtime config back into its file form.
func (c *Config) UserConfig() *UserConfig {
	return &UserConfig{
		Snowflake: c.Snowflake,
		Agent:     c.Agent,
		Chat:      c.Chat,
		Tools:     c.Tools,
		Splitter:  c.Splitter,
		DocStore:  c.DocStore,
		Security:  c.Security,
	}
}

// Load reads the full configuration from disk and the environment.
func Load() (*Config, error) {
	return LoadWithPassphrase("")
}

// LoadWithPassphrase is Load with an SSH key passphrase entered by the user.
// It wins over CORTEXCHAT_SSH_PASSPHRASE.
func LoadWithPassphrase(passphrase string) (*Config, error) {
	env, err := parseEnv()
	if err != nil {
		return nil, err
	}

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}

	cfg := &Config{DataDirectory: systemCfg.DataDirectory}
	if env.DataDir != "" {
		cfg.DataDirectory = env.DataDir
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	env.apply(cfg)

	store := NewCredentialStore(cfg.Security.CredentialStorage, ExpandPath(cfg.Security.SSHKeyPath))
	if passphrase == "" {
		passphrase = env.SSHPassphrase
	}
	if passphrase != "" {
		store.SetPassphrase(passphrase)
	}
	if err := store.Load(dataDir); err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	cfg.CredentialStore = store

	kb, err := LoadKeybindings(dataDir)
	if err != nil {
		// a broken keybindings file should not keep the chat from starting
		Log.Warn().Err(err).Msg("using default keybindings")
		kb = DefaultKeybindings()
	}
	cfg.Keybindings = kb

	return cfg, nil
}
