package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/prospector/pkg/domain/model"
)

// enrichmentStages builds the social_enrichment pipeline for one contributor:
// profile search, sub-signal derivation, oracle classification, persist and
// rescore.
func (x *Executor) enrichmentStages(job *model.Job) []stage {
	var (
		contrib        *model.Contributor
		hits           []model.SearchHit
		profile        model.SocialProfile
		signals        model.SubSignals
		classification *model.Classification
	)

	contribID := job.Params.Enrichment.ContributorID

	return []stage{
		{
			name: "search_social_profiles",
			run: func(ctx context.Context) (string, map[string]any, error) {
				c, err := x.store.GetContributor(ctx, contribID)
				if err != nil {
					return "", nil, err
				}
				contrib = c

				if x.search == nil {
					return "search skipped: no search provider configured", nil, nil
				}

				name := c.FullName
				if name == "" {
					name = c.Username
				}
				results, err := x.search.SearchPerson(ctx, model.PersonQuery{
					Name:     name,
					Company:  strings.TrimSpace(strings.TrimPrefix(c.Company, "@")),
					Location: c.Location,
					Username: c.Username,
				})
				if err != nil {
					return "", nil, err
				}
				hits = results
				return fmt.Sprintf("found %d search results", len(hits)), nil, nil
			},
		},
		{
			name: "derive_signals",
			run: func(ctx context.Context) (string, map[string]any, error) {
				profile = extractProfile(hits)
				signals = deriveSignals(contrib, profile, hits)

				level := PositionLevelOf(profile.Position)
				msg := "no external profile found"
				if profile.URL != "" {
					msg = fmt.Sprintf("extracted profile, position level %s", level)
				}
				return msg, map[string]any{
					"profile_found":  profile.URL != "",
					"position_level": level,
				}, nil
			},
		},
		{
			name: "classify_contributor",
			run: func(ctx context.Context) (string, map[string]any, error) {
				rows, err := x.store.ListContributorStats(ctx, contrib.ID)
				if err != nil {
					return "", nil, err
				}

				result, err := x.classifier.Classify(ctx, ClassifyInput{
					Contributor: contrib,
					Stats:       aggregateStats(rows),
					Profile:     profile,
				})
				if err != nil {
					return "", nil, err
				}
				classification = result

				return fmt.Sprintf("classified as %s", result.Label), map[string]any{
					"classification": result.Label,
					"confidence":     result.Confidence,
				}, nil
			},
		},
		{
			name: "persist_and_rescore",
			run: func(ctx context.Context) (string, map[string]any, error) {
				company := classification.Organization
				if company == "" {
					company = profile.Company
				}

				sc := &model.SocialContext{
					ContributorID: contrib.ID,
					Profile:       profile,
					PositionLevel: PositionLevelOf(profile.Position),
					Industry:      classification.Industry,
					Label:         classification.Label,
					Confidence:    classification.Confidence,
					Reasoning:     classification.Reasoning,
					Signals:       signals,
					EnrichedAt:    x.now(),
				}
				if company != "" {
					sc.Profile.Company = company
				}
				if err := x.store.UpsertSocialContext(ctx, sc); err != nil {
					return "", nil, err
				}
				if err := x.rescore(ctx, job.ProjectID, contrib); err != nil {
					return "", nil, err
				}

				ctxlog.From(ctx).Info("contributor enriched",
					"contributor_id", contrib.ID,
					"username", contrib.Username,
					"classification", classification.Label,
				)
				return "enrichment completed", nil, nil
			},
		},
	}
}

// extractProfile pulls profile fields from the first professional-network hit.
// A "Title - Company" result title splits into position and company; the
// snippet becomes the headline.
func extractProfile(hits []model.SearchHit) model.SocialProfile {
	var profile model.SocialProfile

	for _, hit := range hits {
		if !strings.Contains(hit.Link, "linkedin.com/in/") {
			continue
		}
		profile.URL = hit.Link
		profile.PhotoURL = hit.Image

		if parts := strings.SplitN(hit.Title, " - ", 3); len(parts) >= 2 {
			profile.Position = strings.TrimSpace(parts[0])
			profile.Company = strings.TrimSpace(parts[1])
		}
		if hit.Snippet != "" {
			headline := hit.Snippet
			if len(headline) > 200 {
				headline = headline[:200]
			}
			profile.Headline = headline
		}
		break
	}
	return profile
}

var (
	connectionsPattern = regexp.MustCompile(`(\d+)\+?\s+connections?`)
	emailPattern       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

var careerKeywords = []struct {
	signal string
	terms  []string
}{
	{"c-level", []string{"ceo", "cto", "cfo", "coo", "chief"}},
	{"vp", []string{"vice president", "vp "}},
	{"director", []string{"director", "head of"}},
	{"senior", []string{"senior", "principal", "staff"}},
	{"mid", []string{"engineer", "manager", "lead"}},
}

// deriveSignals scans the raw search hits for secondary signal: a connection
// count mention, a seniority keyword, contact candidates and the company
func deriveSignals(contrib *model.Contributor, profile model.SocialProfile, hits []model.SearchHit) model.SubSignals {
	var signals model.SubSignals
	signals.SearchHits = hits

	var combined strings.Builder
	for i, hit := range hits {
		if i >= 5 {
			break
		}
		combined.WriteString(strings.ToLower(hit.Snippet))
		combined.WriteString(" ")
	}
	text := combined.String()

	if m := connectionsPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			signals.NetworkEstimate = n
		}
	}

	for _, kw := range careerKeywords {
		for _, term := range kw.terms {
			if strings.Contains(text, term) {
				signals.CareerSignal = kw.signal
				break
			}
		}
		if signals.CareerSignal != "" {
			break
		}
	}

	seen := map[string]bool{}
	nameParts := strings.Fields(strings.ToLower(contrib.FullName + " " + contrib.Username))
	for _, email := range emailPattern.FindAllString(text, -1) {
		lower := strings.ToLower(email)
		for _, part := range nameParts {
			if part != "" && strings.Contains(lower, part) && !seen[lower] {
				seen[lower] = true
				signals.ContactCandidates = append(signals.ContactCandidates, email)
				break
			}
		}
	}
	if contrib.Email != "" && !seen[strings.ToLower(contrib.Email)] {
		signals.ContactCandidates = append(signals.ContactCandidates, contrib.Email)
	}

	if profile.Company != "" {
		signals.CompanySignal = profile.Company
	} else if contrib.Company != "" {
		signals.CompanySignal = strings.TrimSpace(strings.TrimPrefix(contrib.Company, "@"))
	}

	return signals
}
