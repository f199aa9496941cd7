package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/herbievine/42-job-listener/internal/ai"
	"github.com/herbievine/42-job-listener/internal/errs"
	"github.com/herbievine/42-job-listener/internal/logger"
	"github.com/herbievine/42-job-listener/internal/store"

	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Composer turns an offer into a Draft through the Gemini generator.
type Composer struct {
	generator contentGenerator
	tags      []string
	logger    *zap.Logger
	maxLogLen int
}

func NewComposer(generator contentGenerator, tags []string, logger *zap.Logger, maxLogLength int) *Composer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Composer{
		generator: generator,
		tags:      tags,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (c *Composer) Compose(ctx context.Context, offer *store.Offer) (*ai.Draft, error) {
	if offer == nil {
		return nil, fmt.Errorf("offer is required")
	}

	offerPayload := map[string]any{
		"id":            offer.ID,
		"title":         offer.Title,
		"description":   offer.Description,
		"salary":        offer.Salary,
		"contract_type": offer.ContractType,
		"email":         offer.Email,
		"created_at":    offer.CreatedAt,
	}

	offerJSON, err := json.MarshalIndent(offerPayload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal offer payload: %w", err)
	}

	prompt := buildPrompt(c.tags, string(offerJSON))

	c.logger.Debug("gemini generate content request",
		zap.String("offer_id", offer.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", logger.Truncate(prompt, c.maxLogLen)),
	)

	raw, err := c.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("gemini generate content response",
		zap.String("offer_id", offer.ID),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.Truncate(raw, c.maxLogLen)),
	)

	draft, err := parseDraft(raw)
	if err != nil {
		return nil, err
	}

	draft.Raw = raw
	return draft, nil
}

func buildPrompt(tags []string, offerJSON string) string {
	prompt := strings.ReplaceAll(promptTemplate, "{{TAGS}}", strings.Join(tags, ", "))
	prompt = strings.ReplaceAll(prompt, "{{OFFER_JSON}}", offerJSON)
	return prompt
}

// draftPayload mirrors ai.Draft with pointer fields so that missing keys can
// be told apart from zero values.
type draftPayload struct {
	Description    *string  `json:"description"`
	Tags           []string `json:"tags"`
	Rejected       *bool    `json:"rejected"`
	RejectedReason *string  `json:"rejectedReason"`
	To             *string  `json:"to"`
	Subject        *string  `json:"subject"`
	HTML           *string  `json:"html"`
	Lang           *string  `json:"lang"`
}

// parseDraft is the parse-or-fail boundary for generation results. A draft
// missing the fields required by its branch fails loudly instead of leaving
// the offer half-processed.
func parseDraft(raw string) (*ai.Draft, error) {
	cleaned := extractJSON(raw)

	var payload draftPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, errs.New(errs.CodeValidation, "parse gemini response", err)
	}

	if payload.Description == nil || payload.Rejected == nil {
		return nil, errs.Newf(errs.CodeValidation, "generation result is missing description or rejected")
	}
	if payload.To == nil || strings.TrimSpace(*payload.To) == "" {
		return nil, errs.Newf(errs.CodeValidation, "generation result is missing the recipient")
	}

	draft := &ai.Draft{
		Description: strings.TrimSpace(*payload.Description),
		Tags:        payload.Tags,
		Rejected:    *payload.Rejected,
		To:          strings.TrimSpace(*payload.To),
	}

	if draft.Rejected {
		if payload.RejectedReason == nil || strings.TrimSpace(*payload.RejectedReason) == "" {
			return nil, errs.Newf(errs.CodeValidation, "rejected draft is missing a reason")
		}
		draft.RejectedReason = strings.TrimSpace(*payload.RejectedReason)
		return draft, nil
	}

	if payload.Subject == nil || strings.TrimSpace(*payload.Subject) == "" {
		return nil, errs.Newf(errs.CodeValidation, "send draft is missing the subject")
	}
	if payload.HTML == nil || strings.TrimSpace(*payload.HTML) == "" {
		return nil, errs.Newf(errs.CodeValidation, "send draft is missing the html body")
	}
	if payload.Lang == nil || (*payload.Lang != "en" && *payload.Lang != "fr") {
		return nil, errs.Newf(errs.CodeValidation, "send draft language must be en or fr")
	}

	draft.Subject = strings.TrimSpace(*payload.Subject)
	draft.HTML = *payload.HTML
	draft.Lang = *payload.Lang

	return draft, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
