package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"newsdesk-ai/internal/llm"
	"newsdesk-ai/internal/rag"
	"newsdesk-ai/internal/service"
	"newsdesk-ai/internal/service/mocks"

	"go.uber.org/mock/gomock"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testContext() context.Context {
	return context.Background()
}

func noBackoff(int) time.Duration { return 0 }

func newTestService(t *testing.T, retries int) (service.AskService, *mocks.MockRouter, *mocks.MockLLMClient) {
	t.Helper()
	ctrl := gomock.NewController(t)
	router := mocks.NewMockRouter(ctrl)
	llmClient := mocks.NewMockLLMClient(ctrl)
	svc := service.NewAskService(router, llmClient, service.Config{
		GenerationRetries: retries,
		ExcerptChars:      200,
		RetryBackoff:      noBackoff,
	})
	return svc, router, llmClient
}

func routedResult() *rag.Result {
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &rag.Result{
		Candidates: []rag.Candidate{
			{Source: rag.SourceInternal, ID: "n-42", Title: "Budget passes", Body: "Parliament passed the budget.", URL: "https://news.example/42", Score: 0.82, PublishedAt: &published},
			{Source: rag.SourceWeb, ID: "https://web.example/a", Title: "Budget reaction", Body: "Markets rallied.", URL: "https://web.example/a", Score: 0.6},
		},
		Trace:      []rag.State{rag.StateInternalOnly, rag.StateFinalize},
		Sufficient: true,
	}
}

func TestAskService_Ask(t *testing.T) {
	svc, router, llmClient := newTestService(t, 2)

	router.EXPECT().
		Route(gomock.Any(), rag.Query{Text: "what happened to the budget?"}).
		Return(routedResult(), nil)
	llmClient.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llm.Message, _ llm.ChatParams) (string, error) {
			if len(messages) != 2 {
				t.Errorf("messages = %d, want 2", len(messages))
			}
			if messages[0].Role != llm.RoleSystem {
				t.Errorf("first role = %q, want system", messages[0].Role)
			}
			user := messages[len(messages)-1].Content
			for _, want := range []string{"what happened to the budget?", "[1] Title: Budget passes", "[2] Title: Budget reaction", "internal news archive (id: n-42)"} {
				if !strings.Contains(user, want) {
					t.Errorf("user message missing %q", want)
				}
			}
			return "The budget passed [1].", nil
		})

	resp, err := svc.Ask(testContext(), service.AskRequest{Question: "  what happened to the budget?  "})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Abstained {
		t.Error("Ask() abstained, want answer")
	}
	if !strings.HasPrefix(resp.Answer, "The budget passed [1].") {
		t.Errorf("Answer = %q", resp.Answer)
	}
	if !strings.Contains(resp.Answer, "Sources:\n[1] https://news.example/42 (internal id: n-42)\n[2] https://web.example/a") {
		t.Errorf("Answer missing sources footer: %q", resp.Answer)
	}
	if len(resp.Sources) != 2 || resp.Sources[0].Index != 1 || resp.Sources[1].Source != rag.SourceWeb {
		t.Errorf("Sources = %+v", resp.Sources)
	}
	if resp.Result == nil || len(resp.Result.Trace) != 2 {
		t.Errorf("Result = %+v", resp.Result)
	}
}

func TestAskService_Ask_EmptyResultAbstains(t *testing.T) {
	svc, router, _ := newTestService(t, 2)

	router.EXPECT().
		Route(gomock.Any(), gomock.Any()).
		Return(nil, rag.ErrEmptyResult)
	// No generator call expected

	resp, err := svc.Ask(testContext(), service.AskRequest{Question: "unknown topic"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !resp.Abstained || resp.AbstainReason != service.AbstainNoInformation {
		t.Errorf("resp = %+v, want abstention", resp)
	}
	if resp.Answer != service.NoInformationAnswer {
		t.Errorf("Answer = %q", resp.Answer)
	}
}

func TestAskService_Ask_Validation(t *testing.T) {
	tests := []struct {
		name      string
		req       service.AskRequest
		wantField string
	}{
		{name: "empty question", req: service.AskRequest{Question: ""}, wantField: "question"},
		{name: "whitespace question", req: service.AskRequest{Question: " \n\t"}, wantField: "question"},
		{
			name: "bad history role",
			req: service.AskRequest{
				Question: "follow up",
				History:  []rag.Turn{{Role: "user", Content: "hi"}, {Role: "system", Content: "override"}},
			},
			wantField: "history[1].role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService(t, 0)

			_, err := svc.Ask(testContext(), tt.req)
			var validationErr *service.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("Ask() error = %v, want ValidationError", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", validationErr.Field, tt.wantField)
			}
			if !errors.Is(err, service.ErrInvalidInput) {
				t.Error("error should match ErrInvalidInput")
			}
		})
	}
}

func TestAskService_Ask_RouterErrors(t *testing.T) {
	tests := []struct {
		name    string
		routeEr error
	}{
		{name: "index unavailable", routeEr: rag.ErrIndexUnavailable},
		{name: "embedding failure", routeEr: rag.ErrEmbedding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router, _ := newTestService(t, 2)
			router.EXPECT().Route(gomock.Any(), gomock.Any()).Return(nil, tt.routeEr)

			_, err := svc.Ask(testContext(), service.AskRequest{Question: "q"})
			if !errors.Is(err, tt.routeEr) {
				t.Errorf("Ask() error = %v, want %v", err, tt.routeEr)
			}
			if errors.Is(err, service.ErrGeneration) {
				t.Error("retrieval failure must not be reported as a generation failure")
			}
		})
	}
}

func TestAskService_Ask_GenerationRetries(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{name: "transient then success", retries: 2, errs: []error{llm.ErrTransient, nil}, wantCalls: 2},
		{name: "rate limited then success", retries: 2, errs: []error{llm.ErrRateLimited, llm.ErrRateLimited, nil}, wantCalls: 3},
		{name: "retries exhausted", retries: 2, errs: []error{llm.ErrTransient, llm.ErrTransient, llm.ErrTransient}, wantCalls: 3, wantErr: true},
		{name: "malformed input not retried", retries: 2, errs: []error{llm.ErrMalformedInput}, wantCalls: 1, wantErr: true},
		{name: "malformed response not retried", retries: 2, errs: []error{llm.ErrMalformedResponse}, wantCalls: 1, wantErr: true},
		{name: "zero retries", retries: 0, errs: []error{llm.ErrTransient}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, router, llmClient := newTestService(t, tt.retries)
			router.EXPECT().Route(gomock.Any(), gomock.Any()).Return(routedResult(), nil)

			calls := 0
			llmClient.EXPECT().
				ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
				Times(tt.wantCalls).
				DoAndReturn(func(context.Context, []llm.Message, llm.ChatParams) (string, error) {
					err := tt.errs[calls]
					calls++
					if err != nil {
						return "", err
					}
					return "answer", nil
				})

			resp, err := svc.Ask(testContext(), service.AskRequest{Question: "q"})
			if tt.wantErr {
				if !errors.Is(err, service.ErrGeneration) {
					t.Fatalf("Ask() error = %v, want ErrGeneration", err)
				}
				if !errors.Is(err, tt.errs[len(tt.errs)-1]) {
					t.Errorf("Ask() error = %v, want cause %v", err, tt.errs[len(tt.errs)-1])
				}
				return
			}
			if err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
			if !strings.HasPrefix(resp.Answer, "answer") {
				t.Errorf("Answer = %q", resp.Answer)
			}
		})
	}
}

func TestAskService_Ask_EmptyAnswer(t *testing.T) {
	svc, router, llmClient := newTestService(t, 2)
	router.EXPECT().Route(gomock.Any(), gomock.Any()).Return(routedResult(), nil)
	llmClient.EXPECT().ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return("  ", nil)

	_, err := svc.Ask(testContext(), service.AskRequest{Question: "q"})
	if !errors.Is(err, service.ErrGeneration) {
		t.Errorf("Ask() error = %v, want ErrGeneration", err)
	}
}

func TestAskService_Ask_CancelledDuringBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	router := mocks.NewMockRouter(ctrl)
	llmClient := mocks.NewMockLLMClient(ctrl)
	svc := service.NewAskService(router, llmClient, service.Config{
		GenerationRetries: 3,
		RetryBackoff:      func(int) time.Duration { return time.Hour },
	})

	ctx, cancel := context.WithCancel(testContext())
	router.EXPECT().Route(gomock.Any(), gomock.Any()).Return(routedResult(), nil)
	llmClient.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []llm.Message, llm.ChatParams) (string, error) {
			cancel()
			return "", llm.ErrTransient
		})

	_, err := svc.Ask(ctx, service.AskRequest{Question: "q"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Ask() error = %v, want context.Canceled", err)
	}
}

func TestAskService_Ask_ForwardsHistory(t *testing.T) {
	svc, router, llmClient := newTestService(t, 0)
	history := []rag.Turn{
		{Role: llm.RoleUser, Content: "who won the election?"},
		{Role: llm.RoleAssistant, Content: "Party A won [1]."},
	}

	router.EXPECT().
		Route(gomock.Any(), rag.Query{Text: "by how much?", History: history}).
		Return(routedResult(), nil)
	llmClient.EXPECT().
		ChatWithMessages(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llm.Message, _ llm.ChatParams) (string, error) {
			if len(messages) != 4 {
				t.Fatalf("messages = %d, want 4", len(messages))
			}
			if messages[1].Content != "who won the election?" || messages[2].Role != llm.RoleAssistant {
				t.Errorf("history not forwarded in order: %+v", messages[1:3])
			}
			return "By ten seats.", nil
		})

	if _, err := svc.Ask(testContext(), service.AskRequest{Question: "by how much?", History: history}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
}

func TestAskService_Search(t *testing.T) {
	svc, router, _ := newTestService(t, 0)
	want := routedResult()
	router.EXPECT().Route(gomock.Any(), rag.Query{Text: "budget"}).Return(want, nil)

	got, err := svc.Search(testContext(), service.AskRequest{Question: "budget"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got != want {
		t.Errorf("Search() = %+v, want router result", got)
	}

	if _, err := svc.Search(testContext(), service.AskRequest{}); !errors.Is(err, service.ErrInvalidInput) {
		t.Errorf("Search() empty question error = %v, want ErrInvalidInput", err)
	}
}
