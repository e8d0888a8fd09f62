package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rag-portal/internal/appconfig"
	"rag-portal/internal/domain"
)

type mockSearch struct {
	results     []domain.SearchResult
	err         error
	gotQuery    string
	gotCategory string
}

func (m *mockSearch) Search(_ context.Context, query, categoryKey string) ([]domain.SearchResult, error) {
	m.gotQuery = query
	m.gotCategory = categoryKey
	return m.results, m.err
}

type mockLLM struct {
	answer   string
	err      error
	calls    int
	captured domain.ConverseRequest
}

func (m *mockLLM) Converse(_ context.Context, in domain.ConverseRequest) (string, error) {
	m.calls++
	m.captured = in
	return m.answer, m.err
}

func newTestService(t *testing.T, search *mockSearch, store *mockStore, llm *mockLLM) *ChatService {
	t.Helper()
	svc, err := NewChatService(search, store, llm, nil)
	require.NoError(t, err)
	return svc
}

func oneResult() []domain.SearchResult {
	return []domain.SearchResult{
		{DocumentURI: storageURI("reports/guide.pdf"), DocumentTitle: "guide"},
	}
}

func TestNewChatService_ValidatesDependencies(t *testing.T) {
	_, err := NewChatService(nil, &mockStore{}, &mockLLM{}, nil)
	require.Error(t, err)

	_, err = NewChatService(&mockSearch{}, nil, &mockLLM{}, nil)
	require.Error(t, err)

	_, err = NewChatService(&mockSearch{}, &mockStore{}, nil, nil)
	require.Error(t, err)
}

func TestRagSearch_HappyPath(t *testing.T) {
	search := &mockSearch{results: oneResult()}
	llm := &mockLLM{answer: "X is Y."}
	svc := newTestService(t, search, &mockStore{}, llm)

	tab := tabWith(t, userMsg("What is X?"))
	answer, links, err := svc.RagSearch(context.Background(), tab, "What is X?", appconfig.ModelClaude35Sonnet, 0.2, "all")
	require.NoError(t, err)
	require.Equal(t, "X is Y.", answer)
	require.Len(t, links, 1)
	require.Equal(t, "guide", links[0].DocumentName)
	require.Equal(t, "What is X?", search.gotQuery)
	require.Equal(t, "all", search.gotCategory)

	// The flow folded the references and the question into the history;
	// the answer turn belongs to the caller.
	msgs := tab.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, domain.RoleAssistant, msgs[1].Role)
	require.Contains(t, msgs[1].FirstText(), "Kendra検索結果:")
	require.Contains(t, msgs[1].FirstText(), "- [guide](https://signed.example/reports/guide.pdf)")
	require.Equal(t, domain.RoleUser, msgs[2].Role)
	require.Equal(t, "What is X?", msgs[2].FirstText())

	require.Equal(t, appconfig.ModelClaude35Sonnet, llm.captured.ModelID)
	require.Equal(t, appconfig.SystemPrompt, llm.captured.System)
	require.NotNil(t, llm.captured.Temperature)
	require.InDelta(t, 0.2, float64(*llm.captured.Temperature), 1e-6)
	require.Nil(t, llm.captured.MaxTokens)
	require.Len(t, llm.captured.Messages, 3)
}

func TestRagSearch_NonAlternatingHistory(t *testing.T) {
	llm := &mockLLM{answer: "unused"}
	svc := newTestService(t, &mockSearch{}, &mockStore{}, llm)

	tab := tabWith(t, userMsg("q1"), userMsg("q2"))
	_, _, err := svc.RagSearch(context.Background(), tab, "q2", appconfig.ModelClaude35Sonnet, 0.5, "all")
	expectUseCaseError(t, err, ErrorNonAlternatingRoles)
	require.Zero(t, llm.calls)
	require.Equal(t, 2, tab.Len())
}

func TestRagSearch_EmptyModelResponse(t *testing.T) {
	svc := newTestService(t, &mockSearch{results: oneResult()}, &mockStore{}, &mockLLM{answer: ""})
	tab := tabWith(t, userMsg("What is X?"))
	_, _, err := svc.RagSearch(context.Background(), tab, "What is X?", appconfig.ModelClaude35Sonnet, 0.5, "all")
	expectUseCaseError(t, err, ErrorEmptyModelResponse)
}

func TestRagSearch_SearchError(t *testing.T) {
	llm := &mockLLM{}
	svc := newTestService(t, &mockSearch{err: errors.New("kendra down")}, &mockStore{}, llm)
	tab := tabWith(t, userMsg("q"))
	_, _, err := svc.RagSearch(context.Background(), tab, "q", appconfig.ModelClaude35Sonnet, 0.5, "all")
	expectUseCaseError(t, err, ErrorUpstream)
	require.Zero(t, llm.calls)
	require.Equal(t, 1, tab.Len())
}

func TestRagSearch_StorageHeadErrorIsFatal(t *testing.T) {
	search := &mockSearch{results: []domain.SearchResult{
		{DocumentURI: storageURI("transcription/foo.txt")},
	}}
	store := &mockStore{headErr: errors.New("access denied")}
	svc := newTestService(t, search, store, &mockLLM{})

	_, _, err := svc.RagSearch(context.Background(), tabWith(t, userMsg("q")), "q", appconfig.ModelClaude35Sonnet, 0.5, "all")
	expectUseCaseError(t, err, ErrorUpstream)
}

func TestKendraSearch_ReturnsLinksWithoutInference(t *testing.T) {
	search := &mockSearch{results: oneResult()}
	llm := &mockLLM{}
	svc := newTestService(t, search, &mockStore{}, llm)

	links, err := svc.KendraSearch(context.Background(), "guide", "ministry-of-health-labour-and-welfare")
	require.NoError(t, err)
	require.Len(t, links, 1)
	require.Equal(t, "ministry-of-health-labour-and-welfare", search.gotCategory)
	require.Zero(t, llm.calls)
}

func TestInvokeWithFile_UnsupportedMediaType(t *testing.T) {
	llm := &mockLLM{}
	svc := newTestService(t, &mockSearch{}, &mockStore{}, llm)

	tab := tabWith(t, userMsg("これは何?"))
	_, err := svc.InvokeWithFile(context.Background(), tab, "これは何?", domain.UploadedFile{
		Name: "archive.zip", MediaType: "application/zip",
	})
	expectUseCaseError(t, err, ErrorUnsupportedFormat)
	require.Zero(t, llm.calls)
}

func TestInvokeWithFile_WhitelistedButNotInvokable(t *testing.T) {
	llm := &mockLLM{}
	svc := newTestService(t, &mockSearch{}, &mockStore{}, llm)

	tab := tabWith(t, userMsg("集計して"))
	_, err := svc.InvokeWithFile(context.Background(), tab, "集計して", domain.UploadedFile{
		Name: "data.csv", MediaType: "text/csv",
	})
	expectUseCaseError(t, err, ErrorUnsupportedFormat)
	require.Zero(t, llm.calls)
}

func TestInvokeWithFile_Image(t *testing.T) {
	llm := &mockLLM{answer: "画像の説明です。"}
	svc := newTestService(t, &mockSearch{}, &mockStore{}, llm)

	tab := tabWith(t, userMsg("この画像を説明して"))
	answer, err := svc.InvokeWithFile(context.Background(), tab, "この画像を説明して", domain.UploadedFile{
		Name: "photo.png", MediaType: "image/png", Data: []byte{0x89, 0x50},
	})
	require.NoError(t, err)
	require.Equal(t, "画像の説明です。", answer)

	// Trailing user turn got a placeholder assistant turn before the
	// constructed multimodal turn.
	msgs := tab.Messages()
	require.Len(t, msgs, 3)
	require.Equal(t, appconfig.PlaceholderAssistantText, msgs[1].FirstText())

	turn := msgs[2]
	require.Equal(t, domain.RoleUser, turn.Role)
	require.Len(t, turn.Content, 3)
	require.Equal(t, "Uploaded png content:", turn.Content[0].Text)
	require.NotNil(t, turn.Content[1].Image)
	require.Equal(t, "png", turn.Content[1].Image.Format)
	require.Equal(t, "この画像を説明して", turn.Content[2].Text)

	require.Equal(t, appconfig.ModelClaude3Haiku, llm.captured.ModelID)
	require.NotNil(t, llm.captured.MaxTokens)
	require.Equal(t, appconfig.ChatMaxTokens, *llm.captured.MaxTokens)
	require.Empty(t, llm.captured.System)
}

func TestInvokeWithFile_PDFUsesFixedPartNameAndDefaultQuestion(t *testing.T) {
	llm := &mockLLM{answer: "要約です。"}
	svc := newTestService(t, &mockSearch{}, &mockStore{}, llm)

	tab := tabWith(t, userMsg("前の質問"), assistantMsg("前の回答"))
	_, err := svc.InvokeWithFile(context.Background(), tab, "   ", domain.UploadedFile{
		Name: "manual.pdf", MediaType: "application/pdf", Data: []byte("%PDF"),
	})
	require.NoError(t, err)

	msgs := tab.Messages()
	require.Len(t, msgs, 3)
	turn := msgs[2]
	require.NotNil(t, turn.Content[1].Document)
	require.Equal(t, appconfig.FixedDocumentPartName, turn.Content[1].Document.Name)
	require.Equal(t, "アップロードされたPDF（manual.pdf）の内容を要約してください。", turn.Content[2].Text)
}

func TestInvokeWithFile_InferenceFailureIsEmbedded(t *testing.T) {
	llm := &mockLLM{err: errors.New("throttled")}
	svc := newTestService(t, &mockSearch{}, &mockStore{}, llm)

	tab := tabWith(t, userMsg("説明して"))
	answer, err := svc.InvokeWithFile(context.Background(), tab, "説明して", domain.UploadedFile{
		Name: "photo.jpeg", MediaType: "image/jpeg",
	})
	require.NoError(t, err)
	require.Contains(t, answer, "エラーが発生しました")
	require.Contains(t, answer, "throttled")
}

func TestInvokeWithFile_EmptyModelResponseIsEmbedded(t *testing.T) {
	llm := &mockLLM{answer: ""}
	svc := newTestService(t, &mockSearch{}, &mockStore{}, llm)

	tab := tabWith(t, userMsg("説明して"))
	answer, err := svc.InvokeWithFile(context.Background(), tab, "説明して", domain.UploadedFile{
		Name: "photo.png", MediaType: "image/png",
	})
	require.NoError(t, err)
	require.Contains(t, answer, "エラーが発生しました")
	require.Equal(t, 1, llm.calls)
}

func TestInvokeWithoutFile_HappyPath(t *testing.T) {
	llm := &mockLLM{answer: "こんにちは!"}
	svc := newTestService(t, &mockSearch{}, &mockStore{}, llm)

	tab := tabWith(t, userMsg("こんにちは"))
	answer, err := svc.InvokeWithoutFile(context.Background(), tab)
	require.NoError(t, err)
	require.Equal(t, "こんにちは!", answer)
	require.Equal(t, appconfig.ModelClaude35Sonnet, llm.captured.ModelID)
	require.NotNil(t, llm.captured.Temperature)
	require.InDelta(t, float64(appconfig.ChatTemperature), float64(*llm.captured.Temperature), 1e-6)
}

func TestInvokeWithoutFile_EmptyModelResponse(t *testing.T) {
	svc := newTestService(t, &mockSearch{}, &mockStore{}, &mockLLM{answer: ""})
	_, err := svc.InvokeWithoutFile(context.Background(), tabWith(t, userMsg("q")))
	expectUseCaseError(t, err, ErrorEmptyModelResponse)
}

func TestInvokeWithoutFile_UpstreamError(t *testing.T) {
	svc := newTestService(t, &mockSearch{}, &mockStore{}, &mockLLM{err: errors.New("bedrock down")})
	_, err := svc.InvokeWithoutFile(context.Background(), tabWith(t, userMsg("q")))
	expectUseCaseError(t, err, ErrorUpstream)
}
