package topology

// DefaultRules returns the rule table every client uses unless configured
// otherwise. Order matters: the first matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "vh/directory/", Class: Public, AllowIdentityFields: true},
		{Pattern: "vh/news/stories/", Class: Public},
		{Pattern: "vh/news/index/latest/", Class: Public},
		{Pattern: "vh/news/removed/", Class: Public},
		{Pattern: "vh/topics/", Class: Public},
		{Pattern: "vh/aggregates/topics/", Class: Public},
		{Pattern: "vh/discovery/", Class: Public},
		{Pattern: "vh/forum/threads/", Class: Public},
		{Pattern: "vh/bridge/stats/", Class: Public},
		{Pattern: "vh/public/", Class: Public},
		{Pattern: "vh/user/", Class: Public},
		{Pattern: "vh/hermes/inbox/*/", Class: Sensitive},
		{Pattern: "vh/sensitive/", Class: Sensitive},
		{Pattern: "vh/chat/", Class: Sensitive},
		{Pattern: "vh/outbox/", Class: Sensitive},
		{Pattern: "vh/local/", Class: Local},
		{Pattern: "~*/hermes/outbox/", Class: Sensitive},
		{Pattern: "~*/hermes/chats/", Class: Sensitive},
		{Pattern: "~*/hermes/docs/", Class: Sensitive},
		{Pattern: "~*/hermes/docKeys/", Class: Sensitive},
		{Pattern: "~*/hermes/bridge/", Class: Sensitive},
		{Pattern: "~*/docs/", Class: Sensitive},
		{Pattern: "~*/outbox/sentiment/", Class: Sensitive},
		{Pattern: "~*/devices/", Class: Public},
	}
}

// PathTemplate documents one concrete adapter path. Placeholders are written
// as {name}; "~{pub}" is the user's own graph root.
type PathTemplate struct {
	Name     string         `json:"name" yaml:"name"`
	Template string         `json:"template" yaml:"template"`
	Class    Classification `json:"class" yaml:"class"`
}

// Catalogue returns the path vocabulary shared by the adapters. Entries are
// appended as new paths appear; existing names keep their meaning.
func Catalogue() []PathTemplate {
	return []PathTemplate{
		{Name: "story", Template: "vh/news/stories/{storyId}/", Class: Public},
		{Name: "stories", Template: "vh/news/stories/", Class: Public},
		{Name: "latest-index", Template: "vh/news/index/latest/{storyId}/", Class: Public},
		{Name: "removal", Template: "vh/news/removed/{urlHash}/", Class: Public},
		{Name: "analysis", Template: "vh/news/stories/{storyId}/analysis/{analysisKey}/", Class: Public},
		{Name: "analysis-latest", Template: "vh/news/stories/{storyId}/analysis_latest/", Class: Public},
		{Name: "candidate", Template: "vh/topics/{topicId}/epochs/{epoch}/candidates/{candidateId}/", Class: Public},
		{Name: "candidates", Template: "vh/topics/{topicId}/epochs/{epoch}/candidates/", Class: Public},
		{Name: "synthesis", Template: "vh/topics/{topicId}/epochs/{epoch}/synthesis/", Class: Public},
		{Name: "synthesis-latest", Template: "vh/topics/{topicId}/latest/", Class: Public},
		{Name: "digest", Template: "vh/topics/{topicId}/digests/{digestId}/", Class: Public},
		{Name: "article", Template: "vh/topics/{topicId}/articles/{articleId}/", Class: Public},
		{Name: "aggregate-voters", Template: "vh/aggregates/topics/{topicId}/syntheses/{synthesisId}/epochs/{epoch}/voters/", Class: Public},
		{Name: "aggregate-voter-point", Template: "vh/aggregates/topics/{topicId}/syntheses/{synthesisId}/epochs/{epoch}/voters/{voterId}/{pointId}/", Class: Public},
		{Name: "sentiment-outbox", Template: "~{pub}/outbox/sentiment/{eventId}/", Class: Sensitive},
		{Name: "civic-action", Template: "~{pub}/hermes/bridge/actions/{actionId}/", Class: Sensitive},
		{Name: "receipt", Template: "~{pub}/hermes/bridge/receipts/{receiptId}/", Class: Sensitive},
		{Name: "report", Template: "~{pub}/hermes/bridge/reports/{reportId}/", Class: Sensitive},
		{Name: "rep-stats", Template: "vh/bridge/stats/{repId}/", Class: Public},
		{Name: "forum-thread", Template: "vh/forum/threads/{threadId}/", Class: Public},
		{Name: "forum-comment", Template: "vh/forum/threads/{threadId}/comments/{commentId}/", Class: Public},
		{Name: "hermes-inbox", Template: "vh/hermes/inbox/{recipientDevice}/{messageId}/", Class: Sensitive},
		{Name: "hermes-outbox", Template: "~{pub}/hermes/outbox/{messageId}/", Class: Sensitive},
		{Name: "hermes-chat", Template: "~{pub}/hermes/chats/{channelId}/{messageId}/", Class: Sensitive},
		{Name: "directory", Template: "vh/directory/{nullifier}/", Class: Public},
		{Name: "doc", Template: "~{pub}/hermes/docs/{docId}/", Class: Sensitive},
		{Name: "docs", Template: "~{pub}/hermes/docs/", Class: Sensitive},
		{Name: "doc-ops", Template: "~{pub}/docs/{docId}/ops/{opId}/", Class: Sensitive},
		{Name: "doc-keys", Template: "~{pub}/hermes/docKeys/{docId}/", Class: Sensitive},
		{Name: "device", Template: "~{pub}/devices/{deviceKey}/", Class: Public},
	}
}

// Template looks a catalogue entry up by name.
func Template(name string) (PathTemplate, bool) {
	for _, pt := range Catalogue() {
		if pt.Name == name {
			return pt, true
		}
	}
	return PathTemplate{}, false
}
