package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/mock"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/usecase"
)

func llmWithResponse(text string, genErr error) *mock.LLMClientMock {
	return &mock.LLMClientMock{
		NewSessionFunc: func(ctx context.Context, opts ...gollem.SessionOption) (gollem.Session, error) {
			return &mock.SessionMock{
				GenerateFunc: func(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
					if genErr != nil {
						return nil, genErr
					}
					return &gollem.Response{Texts: []string{text}}, nil
				},
			}, nil
		},
	}
}

func classifyInput() usecase.ClassifyInput {
	return usecase.ClassifyInput{
		Contributor: &model.Contributor{Username: "alice", FullName: "Alice Smith", Company: "Acme"},
		Stats:       model.ContributorStats{TotalCommits: 50, Commits3Months: 3},
	}
}

func TestClassifyWithLLM(t *testing.T) {
	llm := llmWithResponse(`{"classification":"DECISION_MAKER","confidence":0.9,"reasoning":"CTO title on profile","organization":"Acme"}`, nil)
	c := gt.R1(usecase.NewClassifier(llm)).NoError(t)

	result := gt.R1(c.Classify(context.Background(), classifyInput())).NoError(t)
	gt.Value(t, result.Label).Equal(model.ClassDecisionMaker)
	gt.Number(t, result.Confidence).Equal(0.9)
	gt.Value(t, result.Organization).Equal("Acme")
}

func TestClassifyStripsCodeFence(t *testing.T) {
	llm := llmWithResponse("```json\n{\"classification\":\"KEY_CONTRIBUTOR\",\"confidence\":0.7,\"reasoning\":\"maintainer\"}\n```", nil)
	c := gt.R1(usecase.NewClassifier(llm)).NoError(t)

	result := gt.R1(c.Classify(context.Background(), classifyInput())).NoError(t)
	gt.Value(t, result.Label).Equal(model.ClassKeyContributor)
}

func TestClassifyInvalidLabelDefaults(t *testing.T) {
	llm := llmWithResponse(`{"classification":"SUPERSTAR","confidence":1.5,"reasoning":"made up"}`, nil)
	c := gt.R1(usecase.NewClassifier(llm)).NoError(t)

	result := gt.R1(c.Classify(context.Background(), classifyInput())).NoError(t)
	gt.Value(t, result.Label).Equal(model.ClassHighImpact)
	gt.Number(t, result.Confidence).Equal(1.0)
}

func TestClassifyFallsBackOnLLMError(t *testing.T) {
	llm := llmWithResponse("", goerr.New("model unavailable"))
	c := gt.R1(usecase.NewClassifier(llm)).NoError(t)

	in := classifyInput()
	in.Stats.IsMaintainer = true
	result := gt.R1(c.Classify(context.Background(), in)).NoError(t)
	gt.Value(t, result.Label).Equal(model.ClassKeyContributor)
	gt.Number(t, result.Confidence).Equal(0.7)
}

func TestClassifyFallsBackOnGarbage(t *testing.T) {
	llm := llmWithResponse("I cannot classify this person.", nil)
	c := gt.R1(usecase.NewClassifier(llm)).NoError(t)

	result := gt.R1(c.Classify(context.Background(), classifyInput())).NoError(t)
	gt.Value(t, result.Label).Equal(model.ClassHighImpact)
	gt.Value(t, result.Reasoning).Equal("Active contributor")
}

func TestRuleClassification(t *testing.T) {
	c := gt.R1(usecase.NewClassifier(nil)).NoError(t)
	ctx := context.Background()

	cases := []struct {
		name       string
		in         usecase.ClassifyInput
		label      string
		confidence float64
	}{
		{
			name: "leadership title",
			in: usecase.ClassifyInput{
				Contributor: &model.Contributor{Username: "a"},
				Profile:     model.SocialProfile{Position: "VP of Engineering"},
			},
			label:      model.ClassDecisionMaker,
			confidence: 0.8,
		},
		{
			name: "maintainer",
			in: usecase.ClassifyInput{
				Contributor: &model.Contributor{Username: "b"},
				Stats:       model.ContributorStats{IsMaintainer: true},
			},
			label:      model.ClassKeyContributor,
			confidence: 0.7,
		},
		{
			name: "heavy committer",
			in: usecase.ClassifyInput{
				Contributor: &model.Contributor{Username: "c"},
				Stats:       model.ContributorStats{TotalCommits: 150},
			},
			label:      model.ClassKeyContributor,
			confidence: 0.7,
		},
		{
			name: "recently active",
			in: usecase.ClassifyInput{
				Contributor: &model.Contributor{Username: "d"},
				Stats:       model.ContributorStats{Commits3Months: 12},
			},
			label:      model.ClassHighImpact,
			confidence: 0.6,
		},
		{
			name: "baseline",
			in: usecase.ClassifyInput{
				Contributor: &model.Contributor{Username: "e"},
			},
			label:      model.ClassHighImpact,
			confidence: 0.4,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := gt.R1(c.Classify(ctx, tc.in)).NoError(t)
			gt.Value(t, result.Label).Equal(tc.label)
			gt.Number(t, result.Confidence).Equal(tc.confidence)
		})
	}
}

func TestPositionLevelOf(t *testing.T) {
	cases := map[string]string{
		"":                        "Unknown",
		"CTO":                     "C-Suite",
		"Co-Founder & CEO":        "C-Suite",
		"VP of Engineering":       "Director",
		"Head of Platform":        "Director",
		"Engineering Manager":     "Manager",
		"Principal Engineer":      "Manager",
		"Senior Software Engineer": "Senior",
		"Staff Engineer":          "Senior",
		"Software Engineer":       "Mid",
		"Intern":                  "Entry",
	}
	for position, want := range cases {
		gt.Value(t, usecase.PositionLevelOf(position)).Equal(want)
	}
}
