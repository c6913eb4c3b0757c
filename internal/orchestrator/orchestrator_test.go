package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"sevensons/internal/config"
	"sevensons/internal/conversation"
	"sevensons/internal/models"
	"sevensons/internal/provider"
	"sevensons/internal/registry"
	"sevensons/internal/storage"
)

const testAPIKey = "sk-abcdefghijklmnopqrstuvwxyz"

type completerFunc func(ctx context.Context, messages []*schema.Message) (string, error)

func (f completerFunc) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	return f(ctx, messages)
}

func swapCompleter(t *testing.T, fn func(ctx context.Context, src *registry.CompletionSource) (provider.Completer, error)) {
	t.Helper()
	orig := newCompleter
	newCompleter = fn
	t.Cleanup(func() { newCompleter = orig })
}

func newTestEnv(t *testing.T, demo bool) (*registry.Registry, *conversation.Store, *sql.DB) {
	t.Helper()
	appCfg := &config.Config{
		BasicConfig: config.BasicConfig{DemoMode: demo},
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", appCfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return registry.New(db, appCfg), conversation.NewStore(db, nil), db
}

func createLiveRoles(t *testing.T, reg *registry.Registry, names ...string) []models.Role {
	t.Helper()
	roles := make([]models.Role, 0, len(names))
	for _, name := range names {
		role, err := reg.Create(context.Background(), models.Role{
			Name:     name,
			IsActive: true,
			Completion: &models.CompletionConfig{
				Provider:     "openai",
				APIKey:       testAPIKey,
				SystemPrompt: "sp-" + name,
			},
		})
		if err != nil {
			t.Fatalf("create role %s: %v", name, err)
		}
		roles = append(roles, *role)
	}
	return roles
}

func lastUserMessage(messages []*schema.Message) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1].Content
}

func TestRoundBatchingAndAugmentation(t *testing.T) {
	reg, store, _ := newTestEnv(t, false)
	roles := createLiveRoles(t, reg, "r1", "r2", "r3", "r4", "r5", "r6", "r7")
	orch := New(reg, store, config.OrchestratorConfig{BatchSize: 3})

	var (
		mu      sync.Mutex
		prompts = map[string]string{}
		cur     int32
		peak    int32
	)
	swapCompleter(t, func(ctx context.Context, src *registry.CompletionSource) (provider.Completer, error) {
		name := src.SystemPrompt
		return completerFunc(func(ctx context.Context, messages []*schema.Message) (string, error) {
			n := atomic.AddInt32(&cur, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			prompts[name] = lastUserMessage(messages)
			mu.Unlock()
			atomic.AddInt32(&cur, -1)
			return "reply-" + name, nil
		}), nil
	})

	outcomes := orch.Round(context.Background(), RoundRequest{
		Message:   "大家好",
		SessionID: "s1",
		Roles:     roles,
	})

	if len(outcomes) != len(roles) {
		t.Fatalf("expected %d outcomes, got %d", len(roles), len(outcomes))
	}
	for i, out := range outcomes {
		if out.RoleName != roles[i].Name {
			t.Fatalf("outcome %d out of participant order: got %s want %s", i, out.RoleName, roles[i].Name)
		}
		if !out.Succeeded {
			t.Fatalf("role %s did not succeed: %s", out.RoleName, out.ErrorDetail)
		}
		if out.Content != "reply-sp-"+roles[i].Name {
			t.Fatalf("unexpected content for %s: %q", out.RoleName, out.Content)
		}
	}

	if got := atomic.LoadInt32(&peak); got > 3 {
		t.Fatalf("batch barrier violated: %d roles ran concurrently", got)
	}

	// First batch sees the bare message.
	for _, name := range []string{"sp-r1", "sp-r2", "sp-r3"} {
		if prompts[name] != "大家好" {
			t.Fatalf("first batch prompt for %s was augmented: %q", name, prompts[name])
		}
	}
	// Second batch sees previews of the whole first batch and nothing later.
	for _, name := range []string{"sp-r4", "sp-r5", "sp-r6"} {
		p := prompts[name]
		if !strings.Contains(p, "[本轮已有角色回复参考]") {
			t.Fatalf("second batch prompt for %s missing reference block: %q", name, p)
		}
		for _, prior := range []string{"- r1: reply-sp-r1", "- r2: reply-sp-r2", "- r3: reply-sp-r3"} {
			if !strings.Contains(p, prior) {
				t.Fatalf("second batch prompt for %s missing %q: %q", name, prior, p)
			}
		}
		if strings.Contains(p, "- r4:") || strings.Contains(p, "- r7:") {
			t.Fatalf("second batch prompt for %s leaked same-batch replies: %q", name, p)
		}
	}
	// Final batch sees all six earlier replies.
	if !strings.Contains(prompts["sp-r7"], "- r6: reply-sp-r6") {
		t.Fatalf("final batch prompt missing second-batch preview: %q", prompts["sp-r7"])
	}
}

func TestRoundPersistsOriginalMessage(t *testing.T) {
	reg, store, _ := newTestEnv(t, false)
	roles := createLiveRoles(t, reg, "r1", "r2")
	orch := New(reg, store, config.OrchestratorConfig{BatchSize: 1})

	swapCompleter(t, func(ctx context.Context, src *registry.CompletionSource) (provider.Completer, error) {
		return completerFunc(func(ctx context.Context, messages []*schema.Message) (string, error) {
			return "ok", nil
		}), nil
	})

	ctx := context.Background()
	orch.Round(ctx, RoundRequest{Message: "你好", SessionID: "s1", Roles: roles})

	// The second role received an augmented prompt, but its stored history
	// keeps the user's original words.
	history := store.History(ctx, roles[1].ID, "s1")
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	if history[0].Content != "你好" || !history[0].IsUser {
		t.Fatalf("unexpected user message in history: %+v", history[0])
	}
	if history[1].Content != "ok" || history[1].IsUser {
		t.Fatalf("unexpected reply in history: %+v", history[1])
	}
}

func TestRoundFailureDegradesOneSlot(t *testing.T) {
	reg, store, _ := newTestEnv(t, false)
	roles := createLiveRoles(t, reg, "good", "bad")
	orch := New(reg, store, config.OrchestratorConfig{})

	swapCompleter(t, func(ctx context.Context, src *registry.CompletionSource) (provider.Completer, error) {
		if src.SystemPrompt == "sp-bad" {
			return completerFunc(func(ctx context.Context, messages []*schema.Message) (string, error) {
				return "", errors.New("upstream rejected the request")
			}), nil
		}
		return completerFunc(func(ctx context.Context, messages []*schema.Message) (string, error) {
			return "fine", nil
		}), nil
	})

	outcomes := orch.Round(context.Background(), RoundRequest{Message: "hi", SessionID: "s1", Roles: roles})

	if !outcomes[0].Succeeded || outcomes[0].Content != "fine" {
		t.Fatalf("healthy role affected by peer failure: %+v", outcomes[0])
	}
	if outcomes[1].Succeeded {
		t.Fatalf("failed role reported success")
	}
	if outcomes[1].Content != fallbackReply {
		t.Fatalf("expected fallback reply, got %q", outcomes[1].Content)
	}
	if !strings.Contains(outcomes[1].ErrorDetail, "upstream rejected") {
		t.Fatalf("error detail not captured: %q", outcomes[1].ErrorDetail)
	}
}

func TestRoundTimeoutDiscardsLateCompletion(t *testing.T) {
	reg, store, _ := newTestEnv(t, false)
	roles := createLiveRoles(t, reg, "slow")
	orch := New(reg, store, config.OrchestratorConfig{RequestTimeoutMS: 50})

	swapCompleter(t, func(ctx context.Context, src *registry.CompletionSource) (provider.Completer, error) {
		return completerFunc(func(ctx context.Context, messages []*schema.Message) (string, error) {
			<-ctx.Done()
			return "too late", ctx.Err()
		}), nil
	})

	started := time.Now()
	outcomes := orch.Round(context.Background(), RoundRequest{Message: "hi", SessionID: "s1", Roles: roles})
	if elapsed := time.Since(started); elapsed > 2*time.Second {
		t.Fatalf("round hung past the deadline: %s", elapsed)
	}

	out := outcomes[0]
	if out.Succeeded {
		t.Fatalf("timed-out role reported success")
	}
	if out.Content != fallbackReply {
		t.Fatalf("expected fallback reply, got %q", out.Content)
	}
	if out.ErrorDetail == "" {
		t.Fatalf("expected error detail for timeout")
	}
}

func TestRoundDemoTemplates(t *testing.T) {
	reg, store, _ := newTestEnv(t, true)
	ctx := context.Background()
	if err := reg.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	libai, err := reg.GetByName(ctx, "李白")
	if err != nil {
		t.Fatalf("get 李白: %v", err)
	}
	wukong, err := reg.GetByName(ctx, "孙悟空")
	if err != nil {
		t.Fatalf("get 孙悟空: %v", err)
	}
	orch := New(reg, store, config.OrchestratorConfig{})

	swapCompleter(t, func(ctx context.Context, src *registry.CompletionSource) (provider.Completer, error) {
		return nil, errors.New("demo mode must not build a completer")
	})

	outcomes := orch.Round(ctx, RoundRequest{
		Message:   "你好",
		SessionID: "s1",
		Roles:     []models.Role{*libai, *wukong},
	})

	for _, out := range outcomes {
		if out.Succeeded {
			t.Fatalf("demo reply for %s must not report success", out.RoleName)
		}
		if out.Content == "" || out.Content == fallbackReply {
			t.Fatalf("demo reply for %s missing: %q", out.RoleName, out.Content)
		}
		if out.ErrorDetail != "" {
			t.Fatalf("demo reply is not an error, got detail %q", out.ErrorDetail)
		}
	}

	found := false
	for _, tpl := range demoReplies["李白"] {
		if outcomes[0].Content == tpl {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("李白 reply not drawn from persona pool: %q", outcomes[0].Content)
	}

	// Demo turns still land in the conversation history.
	history := store.History(ctx, libai.ID, "s1")
	if len(history) != 2 {
		t.Fatalf("expected persisted demo turn, got %d messages", len(history))
	}
	if history[0].Content != "你好" || history[1].Content != outcomes[0].Content {
		t.Fatalf("persisted turn mismatch: %+v", history)
	}
}

func TestRoundDelayAnnotation(t *testing.T) {
	reg, store, _ := newTestEnv(t, true)
	ctx := context.Background()
	var roles []models.Role
	for _, name := range []string{"a", "b", "c"} {
		role, err := reg.Create(ctx, models.Role{Name: name, IsActive: true})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		roles = append(roles, *role)
	}
	orch := New(reg, store, config.OrchestratorConfig{
		FirstMessageDelayMS: 100,
		PerRoleDelayMS:      50,
	})

	outcomes := orch.Round(ctx, RoundRequest{Message: "hi", SessionID: "s1", Roles: roles})
	for i, want := range []int64{100, 150, 200} {
		if outcomes[i].DelayMS != want {
			t.Fatalf("outcome %d delay = %d, want %d", i, outcomes[i].DelayMS, want)
		}
	}
}

func TestAugmentPreviewTruncation(t *testing.T) {
	if got := augment("你好", nil); got != "你好" {
		t.Fatalf("empty prior must pass the message through, got %q", got)
	}

	long := strings.Repeat("诗", replyPreviewLimit+50)
	got := augment("你好", []priorReply{{roleName: "李白", content: long}})
	if !strings.Contains(got, "[本轮已有角色回复参考]") {
		t.Fatalf("missing reference block: %q", got)
	}
	idx := strings.Index(got, "- 李白: ")
	if idx < 0 {
		t.Fatalf("missing preview line: %q", got)
	}
	previewText := got[idx+len("- 李白: "):]
	if n := len([]rune(previewText)); n != replyPreviewLimit {
		t.Fatalf("preview length = %d runes, want %d", n, replyPreviewLimit)
	}
}

func TestDemoReplyCoversSeededRoster(t *testing.T) {
	for _, role := range registry.DefaultRoles {
		if got := demoReply(role.Name); got == "" {
			t.Fatalf("no demo reply for seeded persona %s", role.Name)
		}
	}
}

func TestDemoReplyGenericPool(t *testing.T) {
	for i := 0; i < 20; i++ {
		got := demoReply("无名氏")
		if got == "" {
			t.Fatalf("empty generic demo reply")
		}
		if strings.Contains(got, "%s") {
			t.Fatalf("unformatted template leaked: %q", got)
		}
		if strings.Contains(got, "作为") && !strings.Contains(got, "无名氏") {
			t.Fatalf("persona name not substituted: %q", got)
		}
	}
}
