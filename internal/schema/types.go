package schema

// Schema versions stamped on artifacts that carry one.
const (
	StoryBundleVersion      = "story-bundle-v0"
	TopicSynthesisVersion   = "topic-synthesis-v2"
	StoryAnalysisVersion    = "story-analysis-v1"
	CivicActionVersion      = "hermes-action-v1"
	DeliveryReceiptVersion  = "hermes-receipt-v1"
	ForumThreadVersion      = "hermes-thread-v0"
	ForumCommentVersion     = "hermes-comment-v1"
	ForumCommentV0Version   = "hermes-comment-v0"
	HermesMessageVersion    = "hermes-message-v0"
	DirectoryEntryVersion   = "hermes-directory-v0"
	DocumentVersion         = "hermes-document-v0"
	DocumentOpVersion       = "hermes-doc-op-v0"
	DocumentKeyShareVersion = "hermes-doc-key-v0"
)

// Frame is a framing of a topic and its counter-framing.
type Frame struct {
	Frame   string `json:"frame"`
	Reframe string `json:"reframe"`
}

// ConstituencyProof ties an action or vote to a verified district.
type ConstituencyProof struct {
	DistrictHash string `json:"district_hash"`
	Nullifier    string `json:"nullifier"`
	MerkleRoot   string `json:"merkle_root"`
}

// News

type StorySource struct {
	SourceID    string `json:"source_id"`
	Publisher   string `json:"publisher"`
	URL         string `json:"url"`
	URLHash     string `json:"url_hash"`
	PublishedAt int64  `json:"published_at,omitempty"`
	Title       string `json:"title"`
}

type ClusterFeatures struct {
	EntityKeys        []string `json:"entity_keys"`
	TimeBucket        string   `json:"time_bucket"`
	SemanticSignature string   `json:"semantic_signature"`
}

// StoryBundle is a cluster of source articles about one story.
type StoryBundle struct {
	SchemaVersion      string          `json:"schemaVersion"`
	StoryID            string          `json:"story_id"`
	TopicID            string          `json:"topic_id"`
	Headline           string          `json:"headline"`
	SummaryHint        string          `json:"summary_hint,omitempty"`
	ClusterWindowStart float64         `json:"cluster_window_start"`
	ClusterWindowEnd   float64         `json:"cluster_window_end"`
	Sources            []StorySource   `json:"sources"`
	ClusterFeatures    ClusterFeatures `json:"cluster_features"`
	ProvenanceHash     string          `json:"provenance_hash"`
	CreatedAt          float64         `json:"created_at"`
}

// NewsRemoval marks a source URL as withdrawn from the feed.
type NewsRemoval struct {
	URLHash   string `json:"url_hash"`
	StoryID   string `json:"story_id,omitempty"`
	Reason    string `json:"reason"`
	RemovedAt int64  `json:"removed_at"`
	RemovedBy string `json:"removed_by,omitempty"`
}

// Synthesis

type Provider struct {
	ProviderID string `json:"provider_id"`
	ModelID    string `json:"model_id"`
	Kind       string `json:"kind"`
}

// CandidateSynthesis is one provider's proposal for a topic epoch.
type CandidateSynthesis struct {
	CandidateID       string   `json:"candidate_id"`
	TopicID           string   `json:"topic_id"`
	Epoch             int      `json:"epoch"`
	BasedOnPriorEpoch *int     `json:"based_on_prior_epoch,omitempty"`
	CritiqueNotes     []string `json:"critique_notes,omitempty"`
	FactsSummary      string   `json:"facts_summary"`
	Frames            []Frame  `json:"frames,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
	DivergenceHints   []string `json:"divergence_hints,omitempty"`
	Provider          Provider `json:"provider"`
	CreatedAt         int64    `json:"created_at"`
}

type SynthesisInputs struct {
	StoryBundleIDs []string `json:"story_bundle_ids,omitempty"`
	TopicDigestIDs []string `json:"topic_digest_ids,omitempty"`
	TopicSeedID    string   `json:"topic_seed_id,omitempty"`
}

type Quorum struct {
	Required      int    `json:"required"`
	Received      int    `json:"received"`
	ReachedAt     int64  `json:"reached_at"`
	TimedOut      bool   `json:"timed_out"`
	SelectionRule string `json:"selection_rule"`
}

type DivergenceMetrics struct {
	DisagreementScore float64 `json:"disagreement_score"`
	SourceDispersion  float64 `json:"source_dispersion"`
	CandidateCount    int     `json:"candidate_count"`
}

type ProviderCount struct {
	ProviderID string `json:"provider_id"`
	Count      int    `json:"count"`
}

type SynthesisProvenance struct {
	CandidateIDs []string        `json:"candidate_ids,omitempty"`
	ProviderMix  []ProviderCount `json:"provider_mix,omitempty"`
}

// TopicSynthesis is the accepted synthesis for a topic epoch.
type TopicSynthesis struct {
	SchemaVersion     string              `json:"schemaVersion"`
	TopicID           string              `json:"topic_id"`
	Epoch             int                 `json:"epoch"`
	SynthesisID       string              `json:"synthesis_id"`
	Inputs            SynthesisInputs     `json:"inputs"`
	Quorum            Quorum              `json:"quorum"`
	FactsSummary      string              `json:"facts_summary"`
	Frames            []Frame             `json:"frames,omitempty"`
	Warnings          []string            `json:"warnings,omitempty"`
	DivergenceMetrics DivergenceMetrics   `json:"divergence_metrics"`
	Provenance        SynthesisProvenance `json:"provenance"`
	CreatedAt         int64               `json:"created_at"`
}

// TopicDigest summarizes verified discussion of a topic over a window.
type TopicDigest struct {
	DigestID                 string   `json:"digest_id"`
	TopicID                  string   `json:"topic_id"`
	WindowStart              int64    `json:"window_start"`
	WindowEnd                int64    `json:"window_end"`
	VerifiedCommentCount     int      `json:"verified_comment_count"`
	UniqueVerifiedPrincipals int      `json:"unique_verified_principals"`
	KeyClaims                []string `json:"key_claims,omitempty"`
	SalientCounterclaims     []string `json:"salient_counterclaims,omitempty"`
	RepresentativeQuotes     []string `json:"representative_quotes,omitempty"`
}

// Article is a published document attached to a topic.
type Article struct {
	ArticleID   string `json:"article_id"`
	TopicID     string `json:"topic_id"`
	DocID       string `json:"doc_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	SynthesisID string `json:"synthesis_id,omitempty"`
	Epoch       *int   `json:"epoch,omitempty"`
	ThreadID    string `json:"thread_id,omitempty"`
	PublishedAt int64  `json:"published_at"`
}

// Analysis

type SourceAnalysis struct {
	SourceID          string   `json:"source_id"`
	Publisher         string   `json:"publisher"`
	URL               string   `json:"url"`
	Summary           string   `json:"summary"`
	Biases            []string `json:"biases,omitempty"`
	Counterpoints     []string `json:"counterpoints,omitempty"`
	BiasClaimQuotes   []string `json:"biasClaimQuotes,omitempty"`
	JustifyBiasClaims []string `json:"justifyBiasClaims,omitempty"`
	ProviderID        string   `json:"provider_id,omitempty"`
	ModelID           string   `json:"model_id,omitempty"`
}

type AnalysisProvider struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
	Timestamp  int64  `json:"timestamp,omitempty"`
}

// StoryAnalysis is a bias analysis of one story bundle.
type StoryAnalysis struct {
	SchemaVersion   string           `json:"schemaVersion"`
	StoryID         string           `json:"story_id"`
	TopicID         string           `json:"topic_id"`
	ProvenanceHash  string           `json:"provenance_hash"`
	AnalysisKey     string           `json:"analysisKey"`
	PipelineVersion string           `json:"pipeline_version"`
	ModelScope      string           `json:"model_scope"`
	Summary         string           `json:"summary"`
	Frames          []Frame          `json:"frames,omitempty"`
	Analyses        []SourceAnalysis `json:"analyses,omitempty"`
	Provider        AnalysisProvider `json:"provider"`
	CreatedAt       string           `json:"created_at"`
}

// AnalysisLatest points at the newest analysis of a story.
type AnalysisLatest struct {
	AnalysisKey    string `json:"analysisKey"`
	ProvenanceHash string `json:"provenance_hash"`
	ModelScope     string `json:"model_scope"`
	CreatedAt      string `json:"created_at"`
}

// Aggregates and sentiment

// SentimentEvent is one user's vote on a synthesis point.
type SentimentEvent struct {
	TopicID           string            `json:"topic_id"`
	SynthesisID       string            `json:"synthesis_id"`
	Epoch             int               `json:"epoch"`
	PointID           string            `json:"point_id"`
	Agreement         int               `json:"agreement"`
	Weight            float64           `json:"weight"`
	ConstituencyProof ConstituencyProof `json:"constituency_proof"`
	EmittedAt         int64             `json:"emitted_at"`
}

// AggregateVoter is the public, anonymized projection of a vote.
type AggregateVoter struct {
	PointID   string  `json:"point_id"`
	Agreement int     `json:"agreement"`
	Weight    float64 `json:"weight"`
	UpdatedAt string  `json:"updated_at"`
}

// Bridge

// CivicAction is a drafted message to a representative.
type CivicAction struct {
	ID                string            `json:"id"`
	SchemaVersion     string            `json:"schemaVersion"`
	Author            string            `json:"author"`
	SourceTopicID     string            `json:"sourceTopicId"`
	SourceSynthesisID string            `json:"sourceSynthesisId"`
	SourceEpoch       int               `json:"sourceEpoch"`
	SourceArtifactID  string            `json:"sourceArtifactId"`
	SourceDocID       string            `json:"sourceDocId,omitempty"`
	SourceThreadID    string            `json:"sourceThreadId,omitempty"`
	RepresentativeID  string            `json:"representativeId"`
	Topic             string            `json:"topic"`
	Stance            string            `json:"stance"`
	Subject           string            `json:"subject"`
	Body              string            `json:"body"`
	Intent            string            `json:"intent"`
	ConstituencyProof ConstituencyProof `json:"constituencyProof"`
	Status            string            `json:"status"`
	CreatedAt         int64             `json:"createdAt"`
	SentAt            int64             `json:"sentAt,omitempty"`
	Attempts          int               `json:"attempts"`
	LastError         string            `json:"lastError,omitempty"`
	LastErrorCode     string            `json:"lastErrorCode,omitempty"`
}

// DeliveryReceipt records one delivery attempt of a civic action.
type DeliveryReceipt struct {
	ID                string `json:"id"`
	SchemaVersion     string `json:"schemaVersion"`
	ActionID          string `json:"actionId"`
	RepresentativeID  string `json:"representativeId"`
	Status            string `json:"status"`
	Timestamp         int64  `json:"timestamp"`
	Intent            string `json:"intent"`
	UserAttested      bool   `json:"userAttested"`
	RetryCount        int    `json:"retryCount"`
	ErrorMessage      string `json:"errorMessage,omitempty"`
	ErrorCode         string `json:"errorCode,omitempty"`
	PreviousReceiptID string `json:"previousReceiptId,omitempty"`
}

// BridgeReport records a generated report for an action.
type BridgeReport struct {
	ReportID    string `json:"reportId"`
	Checksum    string `json:"checksum"`
	ActionID    string `json:"actionId"`
	GeneratedAt int64  `json:"generatedAt"`
}

// RepStats counts civic actions addressed to a representative.
type RepStats struct {
	Count        int   `json:"count"`
	LastActivity int64 `json:"lastActivity"`
}

// Forum

type ForumThread struct {
	ID               string   `json:"id"`
	SchemaVersion    string   `json:"schemaVersion"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Author           string   `json:"author"`
	Timestamp        int64    `json:"timestamp"`
	Tags             []string `json:"tags,omitempty"`
	SourceAnalysisID string   `json:"sourceAnalysisId,omitempty"`
	Upvotes          int      `json:"upvotes"`
	Downvotes        int      `json:"downvotes"`
	Score            float64  `json:"score"`
}

// ForumComment is a reply or counterpoint in a thread. ParentID is nil
// for top-level comments.
type ForumComment struct {
	ID            string  `json:"id"`
	SchemaVersion string  `json:"schemaVersion"`
	ThreadID      string  `json:"threadId"`
	ParentID      *string `json:"parentId"`
	Content       string  `json:"content"`
	Author        string  `json:"author"`
	Timestamp     int64   `json:"timestamp"`
	Stance        string  `json:"stance"`
	Type          string  `json:"type,omitempty"`
	TargetID      string  `json:"targetId,omitempty"`
	Upvotes       int     `json:"upvotes"`
	Downvotes     int     `json:"downvotes"`
}

// Hermes messaging and directory

type HermesMessage struct {
	ID              string `json:"id"`
	SchemaVersion   string `json:"schemaVersion"`
	ChannelID       string `json:"channelId"`
	Sender          string `json:"sender"`
	Recipient       string `json:"recipient"`
	Timestamp       int64  `json:"timestamp"`
	Content         string `json:"content"`
	Type            string `json:"type"`
	Signature       string `json:"signature"`
	SenderDevicePub string `json:"senderDevicePub"`
	DeviceID        string `json:"deviceId"`

	// RecipientDevicePub lets the sender reopen its own copy.
	RecipientDevicePub string `json:"recipientDevicePub,omitempty"`
}

// DirectoryEntry publishes how to reach a verified principal.
type DirectoryEntry struct {
	SchemaVersion string `json:"schemaVersion"`
	Nullifier     string `json:"nullifier"`
	DevicePub     string `json:"devicePub"`
	EPub          string `json:"epub"`
	DisplayName   string `json:"displayName,omitempty"`
	RegisteredAt  int64  `json:"registeredAt"`
	LastSeenAt    int64  `json:"lastSeenAt"`
}

// LinkedDevice is written under the user graph when a device is linked.
type LinkedDevice struct {
	LinkedAt int64 `json:"linkedAt"`
}

// Docs

type Document struct {
	ID                 string   `json:"id"`
	SchemaVersion      string   `json:"schemaVersion"`
	Title              string   `json:"title"`
	Type               string   `json:"type"`
	Owner              string   `json:"owner"`
	Collaborators      []string `json:"collaborators,omitempty"`
	Viewers            []string `json:"viewers,omitempty"`
	EncryptedContent   string   `json:"encryptedContent"`
	CreatedAt          int64    `json:"createdAt"`
	LastModifiedAt     int64    `json:"lastModifiedAt"`
	LastModifiedBy     string   `json:"lastModifiedBy"`
	SourceTopicID      string   `json:"sourceTopicId,omitempty"`
	SourceSynthesisID  string   `json:"sourceSynthesisId,omitempty"`
	SourceEpoch        *int     `json:"sourceEpoch,omitempty"`
	SourceThreadID     string   `json:"sourceThreadId,omitempty"`
	PublishedArticleID string   `json:"publishedArticleId,omitempty"`
	PublishedAt        int64    `json:"publishedAt,omitempty"`
}

// DocumentOp is one encrypted edit of a document.
type DocumentOp struct {
	ID             string           `json:"id"`
	SchemaVersion  string           `json:"schemaVersion"`
	DocID          string           `json:"docId"`
	EncryptedDelta string           `json:"encryptedDelta"`
	Author         string           `json:"author"`
	Via            string           `json:"via,omitempty"`
	Timestamp      int64            `json:"timestamp"`
	VectorClock    map[string]int64 `json:"vectorClock,omitempty"`
}

// DocumentKeyShare delivers a document key to a collaborator.
type DocumentKeyShare struct {
	SchemaVersion         string `json:"schemaVersion"`
	DocID                 string `json:"docId"`
	EncryptedKey          string `json:"encryptedKey"`
	OwnerNullifier        string `json:"ownerNullifier"`
	CollaboratorNullifier string `json:"collaboratorNullifier"`
	SharedAt              int64  `json:"sharedAt"`
}
