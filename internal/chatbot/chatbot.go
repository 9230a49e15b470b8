package chatbot

import (
	"context"
	"log"
)

// Bot routes chat turns to the LLM when configured and silently falls back
// to the scripted flow otherwise (or when a model call fails mid-turn).
type Bot struct {
	LLM   *LLMEngine
	Rules *RuleEngine
}

func New(apiKey string, catalog *Catalog) *Bot {
	b := &Bot{Rules: NewRuleEngine(catalog)}
	if apiKey != "" {
		b.LLM = NewLLMEngine(apiKey, catalog)
	}
	return b
}

// Handle answers a single chat turn.
func (b *Bot) Handle(ctx context.Context, req *Request) (*Response, error) {
	if b.LLM != nil {
		resp, err := b.LLM.Handle(ctx, req.Message, req.ConversationHistory)
		if err == nil {
			return resp, nil
		}
		log.Printf("chat: model call failed, using scripted flow: %v", err)
	}
	return b.Rules.Handle(req.Message, req.ConversationState)
}
