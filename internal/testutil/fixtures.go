package testutil

import (
	"strings"

	"github.com/roach88/vhmesh/internal/schema"
)

// Fixtures return minimal valid artifacts. Callers mutate the copy they get.

func StoryBundle(storyID, topicID string, createdAt float64) schema.StoryBundle {
	return schema.StoryBundle{
		SchemaVersion:      schema.StoryBundleVersion,
		StoryID:            storyID,
		TopicID:            topicID,
		Headline:           "Council approves transit plan",
		ClusterWindowStart: createdAt - 1000,
		ClusterWindowEnd:   createdAt,
		Sources: []schema.StorySource{{
			SourceID:  "src-1",
			Publisher: "Daily Ledger",
			URL:       "https://ledger.example/transit",
			URLHash:   "urlhash-1",
			Title:     "Transit plan passes",
		}},
		ClusterFeatures: schema.ClusterFeatures{
			EntityKeys:        []string{"council", "transit"},
			TimeBucket:        "2024-01-01T00",
			SemanticSignature: "sig-1",
		},
		ProvenanceHash: "prov-" + storyID,
		CreatedAt:      createdAt,
	}
}

func CandidateSynthesis(topicID string, epoch int, candidateID string) schema.CandidateSynthesis {
	return schema.CandidateSynthesis{
		CandidateID:   candidateID,
		TopicID:       topicID,
		Epoch:         epoch,
		CritiqueNotes: []string{},
		FactsSummary:  "The council voted 7-2.",
		Frames:        []schema.Frame{{Frame: "Progress", Reframe: "Cost overrun"}},
		Provider:      schema.Provider{ProviderID: "prov-a", ModelID: "model-a", Kind: "local"},
		CreatedAt:     DefaultEpoch,
	}
}

func TopicSynthesis(topicID string, epoch int, synthesisID string) schema.TopicSynthesis {
	return schema.TopicSynthesis{
		SchemaVersion: schema.TopicSynthesisVersion,
		TopicID:       topicID,
		Epoch:         epoch,
		SynthesisID:   synthesisID,
		Inputs:        schema.SynthesisInputs{StoryBundleIDs: []string{"story-1"}},
		Quorum: schema.Quorum{
			Required:      2,
			Received:      2,
			ReachedAt:     DefaultEpoch,
			SelectionRule: "deterministic",
		},
		FactsSummary: "The council voted 7-2.",
		Frames:       []schema.Frame{{Frame: "Progress", Reframe: "Cost overrun"}},
		DivergenceMetrics: schema.DivergenceMetrics{
			DisagreementScore: 0.25,
			SourceDispersion:  0.5,
			CandidateCount:    2,
		},
		Provenance: schema.SynthesisProvenance{
			CandidateIDs: []string{"cand-a", "cand-b"},
			ProviderMix:  []schema.ProviderCount{{ProviderID: "prov-a", Count: 2}},
		},
		CreatedAt: DefaultEpoch,
	}
}

func TopicDigest(topicID, digestID string) schema.TopicDigest {
	return schema.TopicDigest{
		DigestID:                 digestID,
		TopicID:                  topicID,
		WindowStart:              DefaultEpoch,
		WindowEnd:                DefaultEpoch + 3600_000,
		VerifiedCommentCount:     12,
		UniqueVerifiedPrincipals: 5,
		KeyClaims:                []string{"fares stay flat"},
	}
}

func StoryAnalysis(storyID, analysisKey, createdAt string) schema.StoryAnalysis {
	return schema.StoryAnalysis{
		SchemaVersion:   schema.StoryAnalysisVersion,
		StoryID:         storyID,
		TopicID:         "topic-1",
		ProvenanceHash:  "prov-" + storyID,
		AnalysisKey:     analysisKey,
		PipelineVersion: "pipe-v1",
		ModelScope:      "model-a",
		Summary:         "Coverage leans optimistic.",
		Frames:          []schema.Frame{{Frame: "Progress", Reframe: "Cost overrun"}},
		Analyses: []schema.SourceAnalysis{{
			SourceID:  "src-1",
			Publisher: "Daily Ledger",
			URL:       "https://ledger.example/transit",
			Summary:   "Upbeat framing.",
			Biases:    []string{"optimism"},
		}},
		Provider:  schema.AnalysisProvider{ProviderID: "prov-a", Model: "model-a"},
		CreatedAt: createdAt,
	}
}

func ConstituencyProof(nullifier string) schema.ConstituencyProof {
	return schema.ConstituencyProof{
		DistrictHash: "district-1",
		Nullifier:    nullifier,
		MerkleRoot:   "root-1",
	}
}

func SentimentEvent(topicID, pointID string, emittedAt int64) schema.SentimentEvent {
	return schema.SentimentEvent{
		TopicID:           topicID,
		SynthesisID:       "syn-1",
		Epoch:             1,
		PointID:           pointID,
		Agreement:         1,
		Weight:            1,
		ConstituencyProof: ConstituencyProof("null-1"),
		EmittedAt:         emittedAt,
	}
}

func CivicAction(id string) schema.CivicAction {
	return schema.CivicAction{
		ID:                id,
		SchemaVersion:     schema.CivicActionVersion,
		Author:            "author-1",
		SourceTopicID:     "topic-1",
		SourceSynthesisID: "syn-1",
		SourceEpoch:       1,
		SourceArtifactID:  "artifact-1",
		RepresentativeID:  "rep-1",
		Topic:             "Transit",
		Stance:            "support",
		Subject:           "Please fund the transit plan",
		Body:              strings.Repeat("Fund the transit plan this session. ", 3),
		Intent:            "email",
		ConstituencyProof: ConstituencyProof("null-1"),
		Status:            "draft",
		CreatedAt:         DefaultEpoch,
	}
}

func ForumThread(id string, timestamp int64) schema.ForumThread {
	return schema.ForumThread{
		ID:            id,
		SchemaVersion: schema.ForumThreadVersion,
		Title:         "Transit plan discussion",
		Content:       "What do we think?",
		Author:        "author-1",
		Timestamp:     timestamp,
		Tags:          []string{"transit"},
	}
}

func ForumComment(threadID, id string, timestamp int64) schema.ForumComment {
	return schema.ForumComment{
		ID:            id,
		SchemaVersion: schema.ForumCommentVersion,
		ThreadID:      threadID,
		Content:       "Agreed.",
		Author:        "author-2",
		Timestamp:     timestamp,
		Stance:        "concur",
	}
}

func Document(id, owner string) schema.Document {
	return schema.Document{
		ID:             id,
		SchemaVersion:  schema.DocumentVersion,
		Title:          "Letter to the council",
		Type:           "letter",
		Owner:          owner,
		CreatedAt:      DefaultEpoch,
		LastModifiedAt: DefaultEpoch,
		LastModifiedBy: owner,
	}
}
