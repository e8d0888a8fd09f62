// Package appconfig holds the fixed configuration data of the portal:
// model identifiers, category keys, supported upload formats and the
// prompts shown to the model. These are literal enumerations, not computed.
package appconfig

import "time"

// Region is the AWS region all service clients are created in.
const Region = "us-west-2"

// StorageHost is the S3 endpoint host Kendra document URIs are expected
// to point at. Results on any other host are skipped by link resolution.
const StorageHost = "s3.us-west-2.amazonaws.com"

// Bedrock model IDs selectable on the RAG tab. The default is Claude 3.5 Sonnet.
const (
	ModelClaude35Sonnet = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	ModelClaude3Sonnet  = "anthropic.claude-3-sonnet-20240229-v1:0"
	ModelClaude3Haiku   = "anthropic.claude-3-haiku-20240307-v1:0"
)

// ModelIDs maps the model keys offered on the RAG tab to Bedrock model IDs.
var ModelIDs = map[string]string{
	"claude_3_5_sonnet": ModelClaude35Sonnet,
	"claude_3_sonnet":   ModelClaude3Sonnet,
	"claude_3_haiku":    ModelClaude3Haiku,
}

// DefaultModelKey is preselected on the RAG tab.
const DefaultModelKey = "claude_3_5_sonnet"

// TemperatureOptions maps the answer-style labels offered on the RAG tab
// to temperature values.
var TemperatureOptions = map[string]float32{
	"厳密に":    0.2,
	"バランスよく": 0.5,
	"創造的に":   0.8,
}

// DefaultTemperatureKey is preselected on the RAG tab.
const DefaultTemperatureKey = "厳密に"

// Fixed inference parameters for the multimodal tab. The RAG tab passes
// the user-chosen temperature instead and leaves maxTokens unset.
const (
	ChatMaxTokens   int32   = 4096
	ChatTemperature float32 = 0.5
)

// LanguageCode pins every Kendra query to Japanese documents.
const LanguageCode = "ja"

// CategoryAll is the sentinel category key meaning "no category restriction".
const CategoryAll = "all"

// CategoryLabels maps category keys (used in the Kendra attribute filter)
// to the labels shown in the UI.
var CategoryLabels = map[string]string{
	CategoryAll: "全て",
	"ministry-of-health-labour-and-welfare":                 "厚生労働省",
	"ministry-of-land-infrastructure-transport-and-tourism": "国土交通省",
}

// Kendra query paging. A single first page of 30 results is requested.
const (
	SearchPageSize   int32 = 30
	SearchPageNumber int32 = 1
)

// SignedURLTTL is the lifetime of generated download links.
const SignedURLTTL = time.Hour

// Transcript objects are swapped for their original PDF when one exists
// under the document prefix with the same base name.
const (
	TranscriptPrefix     = "transcription/"
	TranscriptExt        = ".txt"
	DocumentPrefix       = "document/"
	DocumentExt          = ".pdf"
	FallbackDocumentName = "Unknown Document"
)

// SupportedFormats maps upload media types to Converse format names.
// The full set is accepted by the uploader even though only png, jpeg and
// pdf can currently be sent to the model.
var SupportedFormats = map[string]string{
	"application/pdf":    "pdf",
	"text/csv":           "csv",
	"application/msword": "doc",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"application/vnd.ms-excel": "xls",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": "xlsx",
	"text/html":     "html",
	"text/plain":    "txt",
	"text/markdown": "md",
	"image/png":     "png",
	"image/jpeg":    "jpeg",
}

// MaxUploadBytes is the upload size cap (Claude document limit).
const MaxUploadBytes = int64(4.5 * 1024 * 1024)

// PlaceholderAssistantText is appended when a history about to be sent
// would otherwise end on a user turn.
const PlaceholderAssistantText = "準備中..."

// FixedDocumentPartName is used instead of the real filename in document
// parts. Passing the actual filename made the Converse call fail, so a
// constant name is used.
const FixedDocumentPartName = "pdf"

// RetryMaxAttempts bounds the SDK's adaptive retry (Converse throttling).
const RetryMaxAttempts = 10

// SystemPrompt is the instruction set for the RAG flow.
const SystemPrompt = `【指示】:
- 以下の「質問」と「検索結果」、過去の会話履歴に基づいて、ユーザーの質問に正確に回答してください。
- 検索結果に回答が含まれていない場合は、「該当する情報は見つかりませんでした」と明示してください。
- ユーザーから表形式での出力が要求された場合、Markdown形式で表を作成してください。
- 表の列名を明確に指定し、回答に関連する情報を整然と整理してください。`
