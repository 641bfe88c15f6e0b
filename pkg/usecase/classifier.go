package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/prospector/pkg/domain/model"
)

//go:embed prompts/classification_system.md
var classificationSystemPrompt string

//go:embed prompts/classification_user.md
var classificationUserTemplate string

// Classifier labels contributors for sales outreach. With an LLM client it
// runs a JSON-mode session against the classification prompt; without one, or
// when the LLM fails, it falls back to rule-based classification.
type Classifier struct {
	llmClient    gollem.LLMClient
	userTemplate *template.Template
}

// NewClassifier creates a classifier. llmClient may be nil, which pins the
// classifier to the rule-based path.
func NewClassifier(llmClient gollem.LLMClient) (*Classifier, error) {
	tmpl, err := template.New("user").Parse(classificationUserTemplate)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse classification prompt template")
	}
	return &Classifier{
		llmClient:    llmClient,
		userTemplate: tmpl,
	}, nil
}

// ClassifyInput gathers every signal available to the classifier
type ClassifyInput struct {
	Contributor *model.Contributor
	Stats       model.ContributorStats
	Profile     model.SocialProfile
}

// Classify returns the verdict for one contributor
func (c *Classifier) Classify(ctx context.Context, in ClassifyInput) (*model.Classification, error) {
	if c.llmClient == nil {
		return ruleClassify(in), nil
	}

	logger := ctxlog.From(ctx)

	result, err := c.llmClassify(ctx, in)
	if err != nil {
		logger.Warn("LLM classification failed, falling back to rules",
			"username", in.Contributor.Username,
			"error", err)
		return ruleClassify(in), nil
	}
	return result, nil
}

func (c *Classifier) llmClassify(ctx context.Context, in ClassifyInput) (*model.Classification, error) {
	var buf bytes.Buffer
	if err := c.userTemplate.Execute(&buf, map[string]any{
		"Name":           in.Contributor.FullName,
		"Username":       in.Contributor.Username,
		"Company":        in.Contributor.Company,
		"Bio":            in.Contributor.Bio,
		"Followers":      in.Contributor.Followers,
		"TotalCommits":   in.Stats.TotalCommits,
		"Commits3Months": in.Stats.Commits3Months,
		"PullRequests":   in.Stats.PullRequests,
		"IsMaintainer":   in.Stats.IsMaintainer,
		"Position":       in.Profile.Position,
		"ProfileCompany": in.Profile.Company,
		"Headline":       in.Profile.Headline,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute classification prompt template")
	}

	session, err := c.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionSystemPrompt(classificationSystemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(buf.String()))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate LLM content")
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.New("no response from LLM")
	}

	var result model.Classification
	text := stripCodeFence(resp.Texts[0])
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, goerr.Wrap(err, "failed to parse LLM response", goerr.V("response", text))
	}

	switch result.Label {
	case model.ClassDecisionMaker, model.ClassKeyContributor, model.ClassHighImpact:
	default:
		result.Label = model.ClassHighImpact
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}

// stripCodeFence removes a markdown code block wrapper some models emit even
// in JSON mode
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

var decisionMakerTerms = []string{
	"ceo", "cto", "cfo", "coo", "vp", "vice president", "director", "head of", "chief",
}

// ruleClassify is the deterministic fallback: seniority keywords beat
// contribution volume beats recent activity
func ruleClassify(in ClassifyInput) *model.Classification {
	position := strings.ToLower(in.Profile.Position)
	for _, term := range decisionMakerTerms {
		if strings.Contains(position, term) {
			return &model.Classification{
				Label:      model.ClassDecisionMaker,
				Confidence: 0.8,
				Reasoning:  "Senior leadership position",
			}
		}
	}

	if in.Stats.IsMaintainer || in.Stats.TotalCommits > 100 {
		return &model.Classification{
			Label:      model.ClassKeyContributor,
			Confidence: 0.7,
			Reasoning:  "High contribution level and maintainer status",
		}
	}

	if in.Stats.Commits3Months >= 10 {
		return &model.Classification{
			Label:      model.ClassHighImpact,
			Confidence: 0.6,
			Reasoning:  "Recent active contributions",
		}
	}

	return &model.Classification{
		Label:      model.ClassHighImpact,
		Confidence: 0.4,
		Reasoning:  "Active contributor",
	}
}

var positionLevelLadder = []struct {
	level string
	terms []string
}{
	{"C-Suite", []string{"ceo", "cto", "cfo", "coo", "cmo", "chief", "president", "founder"}},
	{"Director", []string{"vp", "vice president", "director", "head of"}},
	{"Manager", []string{"manager", "lead", "principal"}},
	{"Senior", []string{"senior", "sr.", "staff"}},
	{"Mid", []string{"engineer", "developer", "architect", "analyst"}},
}

// PositionLevelOf buckets a free-form job title into a seniority level
func PositionLevelOf(position string) string {
	if position == "" {
		return "Unknown"
	}
	lower := strings.ToLower(position)
	for _, rung := range positionLevelLadder {
		for _, term := range rung.terms {
			if strings.Contains(lower, term) {
				return rung.level
			}
		}
	}
	return "Entry"
}
