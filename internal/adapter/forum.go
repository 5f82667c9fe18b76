package adapter

import (
	"context"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/ids"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
)

func threadsChain(c *client.Client) *chain.Guarded {
	return c.Mesh().Child("forum").Child("threads")
}

func threadChain(c *client.Client, threadID string) (*chain.Guarded, error) {
	id, err := mesh.RequireID(threadID, "threadId")
	if err != nil {
		return nil, err
	}
	return threadsChain(c).Child(id), nil
}

func commentsChain(c *client.Client, threadID string) (*chain.Guarded, error) {
	thread, err := threadChain(c, threadID)
	if err != nil {
		return nil, err
	}
	return thread.Child("comments"), nil
}

// WriteThread writes a thread to vh/forum/threads/<id>/. An empty id is
// derived from the author, timestamp and title; an empty schema version
// is filled in.
func WriteThread(ctx context.Context, c *client.Client, thread schema.ForumThread) (*schema.ForumThread, error) {
	if thread.SchemaVersion == "" {
		thread.SchemaVersion = schema.ForumThreadVersion
	}
	if thread.ID == "" {
		thread.ID = ids.ThreadID(thread.Author, thread.Timestamp, thread.Title)
	}
	return write(ctx, c, schema.KindForumThread, mesh.ForumPolicy, thread, func(v *schema.ForumThread) (chain.Chain, error) {
		return threadChain(c, v.ID)
	})
}

// ReadThread returns a thread, or nil.
func ReadThread(ctx context.Context, c *client.Client, threadID string) *schema.ForumThread {
	node, err := threadChain(c, threadID)
	if err != nil {
		return nil
	}
	return decodeThread(c, c.Env().ReadRaw(ctx, node))
}

// ListThreads returns every valid thread, newest first with ties broken
// by id.
func ListThreads(ctx context.Context, c *client.Client) []schema.ForumThread {
	children := c.Env().Children(ctx, threadsChain(c))
	out := make([]schema.ForumThread, 0, len(children))
	for _, key := range mesh.SortedKeys(children) {
		if th := decodeThread(c, children[key]); th != nil {
			out = append(out, *th)
		}
	}
	sortStable(out, func(a, b schema.ForumThread) bool {
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		return a.ID < b.ID
	})
	return out
}

// decodeThread judges a thread on its own fields. The comments nested
// under it are checked when they are read.
func decodeThread(c *client.Client, raw any) *schema.ForumThread {
	if m, ok := raw.(map[string]any); ok {
		if _, nested := m["comments"]; nested {
			body := make(map[string]any, len(m))
			for k, v := range m {
				if k != "comments" {
					body[k] = v
				}
			}
			raw = body
		}
	}
	var th schema.ForumThread
	if !c.Env().Decode(raw, schema.KindForumThread, mesh.ForumPolicy, &th) {
		return nil
	}
	return &th
}

// WriteComment writes a comment under its thread. An empty id is derived
// from the thread, author, timestamp and content. An empty stance is taken
// from the comment type.
func WriteComment(ctx context.Context, c *client.Client, comment schema.ForumComment) (*schema.ForumComment, error) {
	if comment.SchemaVersion == "" {
		comment.SchemaVersion = schema.ForumCommentVersion
	}
	if comment.Stance == "" {
		comment.Stance = schema.StanceFor(comment.Type)
	}
	if comment.ID == "" {
		comment.ID = ids.CommentID(comment.ThreadID, comment.Author, comment.Timestamp, comment.Content)
	}
	return write(ctx, c, schema.KindForumComment, mesh.ForumPolicy, comment, func(v *schema.ForumComment) (chain.Chain, error) {
		parent, err := commentsChain(c, v.ThreadID)
		if err != nil {
			return nil, err
		}
		id, err := mesh.RequireID(v.ID, "commentId")
		if err != nil {
			return nil, err
		}
		return parent.Child(id), nil
	})
}

// ReadComment returns a comment, or nil. Legacy comments are migrated.
func ReadComment(ctx context.Context, c *client.Client, threadID, commentID string) *schema.ForumComment {
	parent, err := commentsChain(c, threadID)
	if err != nil {
		return nil
	}
	id, err := mesh.RequireID(commentID, "commentId")
	if err != nil {
		return nil
	}
	return decodeComment(c, c.Env().ReadRaw(ctx, parent.Child(id)))
}

// ListComments returns every valid comment of a thread, oldest first with
// ties broken by id.
func ListComments(ctx context.Context, c *client.Client, threadID string) []schema.ForumComment {
	parent, err := commentsChain(c, threadID)
	if err != nil {
		return []schema.ForumComment{}
	}
	children := c.Env().Children(ctx, parent)
	out := make([]schema.ForumComment, 0, len(children))
	for _, key := range mesh.SortedKeys(children) {
		if cm := decodeComment(c, children[key]); cm != nil {
			out = append(out, *cm)
		}
	}
	sortStable(out, func(a, b schema.ForumComment) bool {
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.ID < b.ID
	})
	return out
}

func decodeComment(c *client.Client, raw any) *schema.ForumComment {
	if raw == nil {
		return nil
	}
	env := c.Env()
	var cm schema.ForumComment
	if env.Decode(raw, schema.KindForumComment, mesh.ForumPolicy, &cm) {
		return &cm
	}
	if env.Decode(raw, schema.KindForumCommentV0, mesh.ForumPolicy, &cm) {
		migrated := schema.MigrateComment(cm)
		return &migrated
	}
	return nil
}
