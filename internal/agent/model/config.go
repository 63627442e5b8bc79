package model

import "time"

// ================ Config ================

type ProviderConfig struct {
	Provider        string `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiBaseURL   string `envconfig:"GEMINI_BASE_URL"`
	DeepSeekAPIKey  string `envconfig:"DEEPSEEK_API_KEY"`
	DeepSeekBaseURL string `envconfig:"DEEPSEEK_BASE_URL" default:"https://api.deepseek.com/v1"`
}

type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"16"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.1"`
}

type ResponseModelConfig struct {
	Model               string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens           int     `envconfig:"RESPONSE_MAX_TOKENS" default:"1024"`
	Temperature         float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.7"`
	RevisionTemperature float32 `envconfig:"REVISION_TEMPERATURE" default:"0.5"`
}

type EmbeddingConfig struct {
	Provider   string `envconfig:"EMBEDDING_PROVIDER" default:"hash"`
	Model      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	Dimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
}

type ResponsePromptConfig struct {
	BusinessType    string `envconfig:"PROMPT_BUSINESS_TYPE" default:"premium websites, business automation and AI solutions"`
	BusinessName    string `envconfig:"PROMPT_BUSINESS_NAME" default:"WB Digital Solutions"`
	WhatsApp        string `envconfig:"CONTACT_WHATSAPP" default:"(11) 98286-4581"`
	Email           string `envconfig:"CONTACT_EMAIL" default:"bruno@wbdigitalsolutions.com"`
	RegistryEnabled bool   `envconfig:"PROMPT_REGISTRY_ENABLED" default:"false"`
}

// Contact projects the business identity used by templated replies.
func (c ResponsePromptConfig) Contact() ContactInfo {
	return ContactInfo{
		BusinessName: c.BusinessName,
		BusinessType: c.BusinessType,
		WhatsApp:     c.WhatsApp,
		Email:        c.Email,
	}
}

type TimeoutConfig struct {
	Classification time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"5s"`
	Generation     time.Duration `envconfig:"GENERATION_TIMEOUT" default:"30s"`
	Revision       time.Duration `envconfig:"REVISION_TIMEOUT" default:"15s"`
	Retrieval      time.Duration `envconfig:"RETRIEVAL_TIMEOUT" default:"3s"`
	Cache          time.Duration `envconfig:"CACHE_TIMEOUT" default:"500ms"`
	Persist        time.Duration `envconfig:"PERSIST_TIMEOUT" default:"5s"`
	Notify         time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"3s"`
}

type CacheConfig struct {
	TTL              time.Duration `envconfig:"CACHE_TTL" default:"168h"`
	PatternRulesPath string        `envconfig:"PATTERN_RULES_PATH"`
}

type CostConfig struct {
	DiscountStart string `envconfig:"COST_DISCOUNT_START" default:"16:30"`
	DiscountEnd   string `envconfig:"COST_DISCOUNT_END" default:"00:30"`
	LocalTimezone string `envconfig:"COST_LOCAL_TIMEZONE" default:"America/Sao_Paulo"`
}

type RevisionConfig struct {
	SkipMaxChars int `envconfig:"REVISION_SKIP_MAX_CHARS" default:"280"`
}

type AugmentConfig struct {
	UserContextLimit  int    `envconfig:"USER_CONTEXT_LIMIT" default:"3"`
	CompanyCollection string `envconfig:"COMPANY_COLLECTION" default:"company_info"`
	LogCollection     string `envconfig:"LOG_COLLECTION" default:"chat_logs"`
	CompanyInfoPath   string `envconfig:"COMPANY_INFO_PATH" default:"company_info.md"`
}

type PersistConfig struct {
	MaxInFlight int64 `envconfig:"PERSIST_MAX_INFLIGHT" default:"64"`
}

type NotifyConfig struct {
	Channel        string `envconfig:"NOTIFY_CHANNEL" default:"log"`
	TelegramToken  string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `envconfig:"TELEGRAM_CHAT_ID"`
	SNSTopicARN    string `envconfig:"SNS_TOPIC_ARN"`
	AWSRegion      string `envconfig:"AWS_REGION" default:"us-east-1"`
}
