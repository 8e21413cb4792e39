package config

// DefaultModels is the selectable model list when config.toml has none.
var DefaultModels = []string{
	"claude-sonnet-4-5",
	"claude-3-7-sonnet",
	"claude-3-5-sonnet",
	"openai-gpt-4.1",
}

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/cortexchat",
	}
}

func DefaultUserConfig() *UserConfig {
	u := &UserConfig{
		Chat: ChatConfig{
			UseThreads: true,
		},
	}
	c := &Config{}
	c.applyUserConfig(u)
	return c.UserConfig()
}

// fillDefaults sets every zero field that has a sensible default.
func fillDefaults(c *Config) {
	if c.Snowflake.TimeoutMS <= 0 {
		c.Snowflake.TimeoutMS = 50000
	}
	if c.Agent.Mode == "" {
		c.Agent.Mode = ModeHeuristic
	}
	if c.Chat.DefaultModel == "" {
		c.Chat.DefaultModel = DefaultModels[0]
	}
	if len(c.Chat.Models) == 0 {
		c.Chat.Models = append([]string(nil), DefaultModels...)
	}
	if c.Chat.OriginApplication == "" {
		c.Chat.OriginApplication = "streamlit_sales_assistant"
	}

	t := &c.Tools
	if t.SearchName == "" {
		t.SearchName = "Faq Search"
	}
	if t.SearchService == "" {
		t.SearchService = "CORTEX_AGENTS.CORTEX_AGENTS_SALES.DOCS"
	}
	if t.MaxResults <= 0 {
		t.MaxResults = 3
	}
	if t.TitleColumn == "" {
		t.TitleColumn = "RELATIVE_PATH"
	}
	if t.IDColumn == "" {
		t.IDColumn = "CHUNK_INDEX"
	}
	if t.AnalystName == "" {
		t.AnalystName = "Sales Analyst"
	}
	if t.SemanticModelFile == "" {
		t.SemanticModelFile = "@CORTEX_AGENTS.CORTEX_AGENTS_SALES.Cortex_Analyst_Stage/CORTEX_AGENT_SALES.yaml"
	}
	if t.DocsStage == "" {
		t.DocsStage = "@DOCS"
	}
	if t.ChunksTable == "" {
		t.ChunksTable = "DOCS_CHUNKS_TABLE"
	}

	if c.Splitter.Provider == "" {
		c.Splitter.Provider = "cortex"
	}
	if c.DocStore.Type == "" {
		c.DocStore.Type = DocStoreSnowflake
	}
	if c.DocStore.Path == "" {
		c.DocStore.Path = "docs.db"
	}
	if c.Security.CredentialStorage == "" {
		c.Security.CredentialStorage = SecurityPlainText
	}
}

func GenerateSystemConfigTemplate() string {
	return `# cortexchat system configuration
# Location: ~/.config/cortexchat/settings.toml

# Directory where sessions, credentials and user config are stored
data_directory = "~/.local/share/cortexchat"
`
}

func GenerateUserConfigTemplate() string {
	return `# cortexchat user configuration
# Location: <data_directory>/config.toml

[snowflake]
# Account URL, e.g. https://myorg-myaccount.snowflakecomputing.com
account_url = ""
timeout_ms = 50000

[agent]
# "heuristic": route questions to tools locally
# "agent": let the remote agent decide
mode = "heuristic"

# Preconfigured agent (agent mode only). Leave name empty to use inline tools.
database = "SNOWFLAKE_INTELLIGENCE"
schema = "AGENTS"
name = ""
spec_file = "CORTEX_AGENT_SALES.json"

[chat]
default_model = "claude-sonnet-4-5"
models = ["claude-sonnet-4-5", "claude-3-7-sonnet", "claude-3-5-sonnet", "openai-gpt-4.1"]
use_threads = true
debug = false

[tools]
search_name = "Faq Search"
search_service = "CORTEX_AGENTS.CORTEX_AGENTS_SALES.DOCS"
max_results = 3
title_column = "RELATIVE_PATH"
id_column = "CHUNK_INDEX"
analyst_name = "Sales Analyst"
semantic_model_file = "@CORTEX_AGENTS.CORTEX_AGENTS_SALES.Cortex_Analyst_Stage/CORTEX_AGENT_SALES.yaml"
docs_stage = "@DOCS"
chunks_table = "DOCS_CHUNKS_TABLE"

[splitter]
# cortex, anthropic, openai, openrouter or ollama
provider = "cortex"

[docstore]
# snowflake or sqlite (local mirror, see "cortexchat mirror import")
type = "snowflake"
path = "docs.db"

[security]
# plaintext or ssh_key
credential_storage = "plaintext"
`
}
