package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"sevensons/internal/config"
	"sevensons/internal/conversation"
	"sevensons/internal/models"
	"sevensons/internal/provider"
	"sevensons/internal/registry"
)

// fallbackReply is what the user sees when a role's completion attempt
// fails. The underlying error goes to the operator log only.
const fallbackReply = "我现在有点忙，稍后再聊吧~"

// replyPreviewLimit caps how much of a prior reply later batches see.
const replyPreviewLimit = 300

// RoundRequest is one user message addressed to a set of participants.
type RoundRequest struct {
	Message   string
	SessionID string
	UserID    string
	Roles     []models.Role
}

// Orchestrator produces one reply per participating role for each incoming
// user message. Roles are processed in fixed-size batches: members of a
// batch run concurrently, batches run strictly one after another, and roles
// in later batches see previews of all earlier replies.
type Orchestrator struct {
	registry *registry.Registry
	store    *conversation.Store
	cfg      config.OrchestratorConfig
}

// newCompleter builds the completion client for a resolved source. Tests
// swap this to avoid network calls.
var newCompleter = func(ctx context.Context, src *registry.CompletionSource) (provider.Completer, error) {
	return provider.New(ctx, src)
}

func New(reg *registry.Registry, store *conversation.Store, cfg config.OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		store:    store,
		cfg:      cfg.Normalize(),
	}
}

type priorReply struct {
	roleName string
	content  string
}

// Round runs one full round. The returned slice matches the participant
// order of req.Roles regardless of completion order, and every entry carries
// user-visible content: a role-level failure degrades that role's slot to
// the canned fallback, never the round.
func (o *Orchestrator) Round(ctx context.Context, req RoundRequest) []models.ReplyOutcome {
	outcomes := make([]models.ReplyOutcome, len(req.Roles))
	var prior []priorReply

	for start := 0; start < len(req.Roles); start += o.cfg.BatchSize {
		end := min(start+o.cfg.BatchSize, len(req.Roles))
		augmented := augment(req.Message, prior)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				outcomes[idx] = o.respond(ctx, req.Roles[idx], augmented, req.SessionID)
			}(i)
		}
		wg.Wait()

		// Collected in participant order so the accumulator and the
		// persisted turns stay deterministic.
		for i := start; i < end; i++ {
			prior = append(prior, priorReply{roleName: outcomes[i].RoleName, content: outcomes[i].Content})
			o.persistTurn(ctx, req.Roles[i].ID, req.SessionID, req.Message, outcomes[i].Content)
		}

		if end < len(req.Roles) && o.cfg.BatchDelayMS > 0 {
			time.Sleep(time.Duration(o.cfg.BatchDelayMS) * time.Millisecond)
		}
	}

	for i := range outcomes {
		outcomes[i].DelayMS = int64(o.cfg.FirstMessageDelayMS + i*o.cfg.PerRoleDelayMS)
	}
	return outcomes
}

// respond resolves the role's completion source and produces its outcome.
// Roles without a usable credential never touch the network.
func (o *Orchestrator) respond(ctx context.Context, role models.Role, message, sessionID string) models.ReplyOutcome {
	out := models.ReplyOutcome{
		RoleID:    role.ID,
		RoleName:  role.Name,
		AvatarURL: role.AvatarURL,
		Timestamp: time.Now().UTC(),
	}

	src, live := o.registry.ResolveCompletionSource(role)
	if !live {
		out.Content = demoReply(role.Name)
		return out
	}

	content, err := o.complete(ctx, role, src, message, sessionID)
	if err != nil {
		log.Printf("role %s completion via %s failed: %v", role.Name, src.Provider, err)
		out.Content = fallbackReply
		out.ErrorDetail = err.Error()
		return out
	}
	out.Content = content
	out.Succeeded = true
	return out
}

// complete issues one live completion raced against the per-request timeout.
// A late result after the deadline is discarded, not awaited.
func (o *Orchestrator) complete(ctx context.Context, role models.Role, src *registry.CompletionSource, message, sessionID string) (string, error) {
	completer, err := newCompleter(ctx, src)
	if err != nil {
		return "", err
	}

	systemPrompt := o.store.BuildSystemPromptWithMemory(ctx, role.ID, sessionID, src.SystemPrompt)
	history := o.store.History(ctx, role.ID, sessionID)

	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	for _, m := range history {
		if m.IsUser {
			messages = append(messages, schema.UserMessage(m.Content))
		} else {
			messages = append(messages, schema.AssistantMessage(m.Content, nil))
		}
	}
	messages = append(messages, schema.UserMessage(message))

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout())
	defer cancel()

	type result struct {
		content string
		err     error
	}
	done := make(chan result, 1)
	go func() {
		content, err := completer.Complete(callCtx, messages)
		done <- result{content: content, err: err}
	}()

	select {
	case res := <-done:
		return res.content, res.err
	case <-callCtx.Done():
		return "", fmt.Errorf("completion timed out after %s: %w", o.cfg.RequestTimeout(), callCtx.Err())
	}
}

// persistTurn records both halves of the turn for the role, whatever the
// call outcome was: a fallback reply is indistinguishable from a real one in
// the role's history.
func (o *Orchestrator) persistTurn(ctx context.Context, roleID int64, sessionID, userMessage, reply string) {
	now := time.Now().UTC()
	o.store.AppendMessage(ctx, roleID, sessionID, models.ConversationMessage{
		Content:   userMessage,
		IsUser:    true,
		Timestamp: now,
	})
	o.store.AppendMessage(ctx, roleID, sessionID, models.ConversationMessage{
		Content:   reply,
		Timestamp: now,
	})
	o.store.RememberTurn(ctx, roleID, sessionID, userMessage, reply)
}

// augment renders the round context block. With no prior replies the
// message passes through unchanged.
func augment(message string, prior []priorReply) string {
	if len(prior) == 0 {
		return message
	}
	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\n[本轮已有角色回复参考]")
	for _, pr := range prior {
		b.WriteString("\n- ")
		b.WriteString(pr.roleName)
		b.WriteString(": ")
		b.WriteString(preview(pr.content))
	}
	return b.String()
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= replyPreviewLimit {
		return s
	}
	return string(runes[:replyPreviewLimit])
}
