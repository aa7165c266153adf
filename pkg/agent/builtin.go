package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skyagarwal/MangwaleAI-sub005/pkg/llms"
	"github.com/skyagarwal/MangwaleAI-sub005/pkg/session"
)

// FAQAgent answers platform questions. It prefers the LLM when one is
// configured and otherwise falls back to a small canned topic table, so
// the assistant stays useful when the model is down.
type FAQAgent struct {
	llm llms.Provider
	log *slog.Logger
}

func NewFAQAgent(llm llms.Provider) *FAQAgent {
	return &FAQAgent{llm: llm, log: slog.Default().With("agent", "faq")}
}

func (a *FAQAgent) ID() string { return "faq" }

var faqTopics = []struct {
	keywords []string
	answer   string
}{
	{
		keywords: []string{"delivery charge", "delivery fee", "shipping"},
		answer:   "Delivery charges depend on distance and order value. Orders above the free-delivery threshold ship free. You can see the exact charge at checkout.",
	},
	{
		keywords: []string{"refund", "money back"},
		answer:   "Refunds are processed to your original payment method within 3-5 business days after the return is accepted.",
	},
	{
		keywords: []string{"timing", "open", "hours", "kab khulta"},
		answer:   "Most stores on Mangwale operate 9 AM to 11 PM. Individual store timings are shown on the store page.",
	},
	{
		keywords: []string{"payment", "cod", "cash on delivery", "upi"},
		answer:   "We accept UPI, cards, wallets, and cash on delivery in serviceable areas.",
	},
}

func (a *FAQAgent) Execute(ctx context.Context, ac *Context) (*Result, error) {
	if a.llm != nil {
		resp, err := a.llm.Generate(ctx, &llms.Request{
			System: faqSystemPrompt(ac),
			Messages: []llms.Message{
				{Role: "user", Content: ac.Message},
			},
			Temperature: 0.3,
			MaxTokens:   300,
		})
		if err == nil && strings.TrimSpace(resp.Text) != "" {
			return &Result{Response: strings.TrimSpace(resp.Text)}, nil
		}
		if err != nil {
			a.log.Warn("faq llm failed, using canned answers", "error", err)
		}
	}

	lower := strings.ToLower(ac.Message)
	for _, topic := range faqTopics {
		for _, kw := range topic.keywords {
			if strings.Contains(lower, kw) {
				return &Result{Response: topic.answer}, nil
			}
		}
	}
	return &Result{
		Response: "I can help with orders, delivery, payments, and refunds on Mangwale. What would you like to know?",
		Buttons: []Button{
			{Label: "🛒 Order food", Value: "order food"},
			{Label: "📦 Track order", Value: "track my order"},
			{Label: "💬 Talk to support", Value: "talk to support"},
		},
	}, nil
}

func faqSystemPrompt(ac *Context) string {
	b := &strings.Builder{}
	b.WriteString("You are Mangwale's help assistant for a hyperlocal commerce platform in India. ")
	b.WriteString("Answer the user's question about the platform briefly and accurately. ")
	b.WriteString("If the question is outside platform scope, say so and offer relevant help.")
	if ac.Language != "" && ac.Language != "en" {
		fmt.Fprintf(b, " Reply in the user's language (%s).", ac.Language)
	}
	return b.String()
}

// SmalltalkAgent handles greetings and chitchat with a short, warm reply
// that nudges toward commerce.
type SmalltalkAgent struct {
	llm llms.Provider
	log *slog.Logger
}

func NewSmalltalkAgent(llm llms.Provider) *SmalltalkAgent {
	return &SmalltalkAgent{llm: llm, log: slog.Default().With("agent", "smalltalk")}
}

func (a *SmalltalkAgent) ID() string { return "smalltalk" }

func (a *SmalltalkAgent) Execute(ctx context.Context, ac *Context) (*Result, error) {
	if a.llm != nil {
		system := "You are Mangwale's friendly assistant. Reply to the user's smalltalk in one or two short sentences, then gently offer help with ordering food, groceries, or parcels."
		if tone := ac.toneHint(); tone != "" {
			system += " Match this tone: " + tone + "."
		}
		if ac.Language != "" && ac.Language != "en" {
			system += fmt.Sprintf(" Reply in the user's language (%s).", ac.Language)
		}
		resp, err := a.llm.Generate(ctx, &llms.Request{
			System:      system,
			Messages:    []llms.Message{{Role: "user", Content: ac.Message}},
			Temperature: 0.7,
			MaxTokens:   150,
		})
		if err == nil && strings.TrimSpace(resp.Text) != "" {
			return &Result{Response: strings.TrimSpace(resp.Text)}, nil
		}
		if err != nil {
			a.log.Warn("smalltalk llm failed", "error", err)
		}
	}

	name := ""
	if ac.Session != nil && ac.Session.Data.UserName != "" {
		name = " " + ac.Session.Data.UserName
	}
	return &Result{
		Response: fmt.Sprintf("Hey%s! 👋 I can get you food, groceries, medicines, or book a parcel pickup. What do you need?", name),
		Buttons: []Button{
			{Label: "🍕 Order food", Value: "order food"},
			{Label: "🛍️ Shop", Value: "search products"},
			{Label: "📦 Send parcel", Value: "send a parcel"},
		},
	}, nil
}

func (ac *Context) toneHint() string {
	if ac.Session == nil {
		return ""
	}
	return ac.Session.Data.CommunicationTone
}

// GameAgent runs the gamification loop: a quick number-guess round that
// awards points tracked in the session bag.
type GameAgent struct {
	log *slog.Logger
}

func NewGameAgent() *GameAgent {
	return &GameAgent{log: slog.Default().With("agent", "game")}
}

func (a *GameAgent) ID() string { return "game" }

func (a *GameAgent) Execute(ctx context.Context, ac *Context) (*Result, error) {
	points := 0
	if ac.Session != nil {
		points = ac.Session.Data.GamePoints
	}

	lower := strings.ToLower(strings.TrimSpace(ac.Message))
	if strings.Contains(lower, "points") || strings.Contains(lower, "score") {
		return &Result{
			Response: fmt.Sprintf("🏆 You have %d Mangwale points. Play more to earn discounts!", points),
			Buttons:  []Button{{Label: "🎮 Play again", Value: "play game"}},
		}, nil
	}

	earned := 10
	newTotal := points + earned
	return &Result{
		Response: fmt.Sprintf("🎮 Nice! You earned %d points this round. Total: %d. Points convert to order discounts at checkout.", earned, newTotal),
		Buttons: []Button{
			{Label: "🎮 Play again", Value: "play game"},
			{Label: "🏆 My points", Value: "my points"},
			{Label: "🛒 Order now", Value: "order food"},
		},
		SessionPatch: func(d *session.Data) {
			d.GamePoints = newTotal
		},
	}, nil
}
