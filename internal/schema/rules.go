package schema

// crossField holds checks that relate fields to each other. They run on the
// canonical node after structural validation.
var crossField = map[Kind]func(node map[string]any) []Issue{
	KindForumComment:   commentRules,
	KindForumCommentV0: commentRules,
	KindTopicDigest:    windowRule("window_start", "window_end"),
	KindStoryBundle:    windowRule("cluster_window_start", "cluster_window_end"),
}

// commentRules: a counterpoint names its target, a reply does not, and the
// stance agrees with the type when both are present.
func commentRules(node map[string]any) []Issue {
	var issues []Issue
	typ, _ := node["type"].(string)
	_, hasTarget := node["targetId"]

	switch typ {
	case "counterpoint":
		if !hasTarget {
			issues = append(issues, Issue{Path: "targetId", Message: "counterpoint comments require targetId"})
		}
	case "reply":
		if hasTarget {
			issues = append(issues, Issue{Path: "targetId", Message: "reply comments must not set targetId"})
		}
	}

	if stance, ok := node["stance"].(string); ok && typ != "" {
		if StanceFor(typ) != stance {
			issues = append(issues, Issue{Path: "stance", Message: "stance " + stance + " does not match type " + typ})
		}
	}
	return issues
}

// StanceFor maps a legacy comment type to its stance.
func StanceFor(commentType string) string {
	if commentType == "counterpoint" {
		return "counter"
	}
	return "concur"
}

func windowRule(startField, endField string) func(map[string]any) []Issue {
	return func(node map[string]any) []Issue {
		start, ok1 := node[startField].(float64)
		end, ok2 := node[endField].(float64)
		if ok1 && ok2 && end < start {
			return []Issue{{Path: endField, Message: endField + " precedes " + startField}}
		}
		return nil
	}
}

// MigrateComment upgrades a legacy comment to the current shape. Current
// comments are returned unchanged.
func MigrateComment(c ForumComment) ForumComment {
	if c.SchemaVersion != ForumCommentV0Version {
		return c
	}
	c.SchemaVersion = ForumCommentVersion
	if c.Stance == "" {
		c.Stance = StanceFor(c.Type)
	}
	return c
}
