package adapter_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vhmesh/internal/adapter"
	"github.com/roach88/vhmesh/internal/client/clienttest"
	"github.com/roach88/vhmesh/internal/ids"
	"github.com/roach88/vhmesh/internal/schema"
	"github.com/roach88/vhmesh/internal/testutil"
)

func TestDocument_EncryptedContent(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	doc := testutil.Document("doc-1", "author-1")
	written, err := adapter.WriteDocument(ctx, c, doc, []byte("Dear council,"))
	require.NoError(t, err)
	assert.NotEmpty(t, written.EncryptedContent)
	assert.NotContains(t, written.EncryptedContent, "council")

	read := adapter.ReadDocument(ctx, c, "doc-1")
	require.NotNil(t, read)
	assert.Equal(t, *written, *read)

	content, err := adapter.OpenDocument(c, read)
	require.NoError(t, err)
	assert.Equal(t, "Dear council,", string(content))

	assert.Nil(t, adapter.ReadDocument(ctx, c, "doc-2"))
}

func TestListDocuments_Order(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	for _, d := range []struct {
		id       string
		modified int64
	}{{"doc-b", 10}, {"doc-c", 30}, {"doc-a", 10}} {
		doc := testutil.Document(d.id, "author-1")
		doc.LastModifiedAt = d.modified
		_, err := adapter.WriteDocument(ctx, c, doc, nil)
		require.NoError(t, err)
	}

	var got []string
	for _, d := range adapter.ListDocuments(ctx, c) {
		got = append(got, d.ID)
	}
	assert.Equal(t, []string{"doc-c", "doc-a", "doc-b"}, got)
}

func TestDocumentOps(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()
	key, err := adapter.DocumentKey(c, "doc-1")
	require.NoError(t, err)

	op := schema.DocumentOp{
		DocID:       "doc-1",
		Author:      "author-1",
		Timestamp:   200,
		VectorClock: map[string]int64{"author-1": 3},
	}
	first, err := adapter.WriteDocumentOp(ctx, c, op, []byte(`{"insert":"Dear"}`), key)
	require.NoError(t, err)
	assert.Equal(t, ids.DocumentOpID("doc-1", "author-1", 3), first.ID)

	op.VectorClock = nil
	op.Timestamp = 100
	second, err := adapter.WriteDocumentOp(ctx, c, op, []byte(`{"insert":" council"}`), key)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(second.ID, "op-"))

	_, err = adapter.WriteDocumentOp(ctx, c, op, []byte("x"), nil)
	assert.ErrorIs(t, err, adapter.ErrNoDocumentKey)

	ops := adapter.ListDocumentOps(ctx, c, "doc-1")
	require.Len(t, ops, 2)
	assert.Equal(t, second.ID, ops[0].ID, "oldest first")

	delta, err := adapter.DecryptDocContent(key, ops[1].EncryptedDelta)
	require.NoError(t, err)
	assert.JSONEq(t, `{"insert":"Dear"}`, string(delta))
}

func TestDocumentKeyShare_Collaborator(t *testing.T) {
	alice, bob := peers(t)
	ctx := context.Background()

	aliceEntry, err := adapter.PublishDirectoryEntry(ctx, alice, "null-alice", "Alice")
	require.NoError(t, err)
	bobEntry, err := adapter.PublishDirectoryEntry(ctx, bob, "null-bob", "Bob")
	require.NoError(t, err)

	doc, err := adapter.WriteDocument(ctx, alice, testutil.Document("doc-1", "null-alice"), []byte("shared draft"))
	require.NoError(t, err)

	share, err := adapter.WriteDocumentKeyShare(ctx, alice, "doc-1", *aliceEntry, *bobEntry)
	require.NoError(t, err)
	assert.Equal(t, "null-bob", share.CollaboratorNullifier)

	got := adapter.ReadDocumentKeyShare(ctx, bob, alice.Pair().Pub(), "doc-1")
	require.NotNil(t, got)
	assert.Equal(t, *share, *got)

	key, err := adapter.OpenDocumentKeyShare(bob, got, aliceEntry.EPub)
	require.NoError(t, err)
	content, err := adapter.DecryptDocContent(key, doc.EncryptedContent)
	require.NoError(t, err)
	assert.Equal(t, "shared draft", string(content))

	assert.Nil(t, adapter.ReadDocument(ctx, bob, "doc-1"), "the document itself stays with its owner")
	assert.Nil(t, adapter.ReadDocumentKeyShare(ctx, alice, alice.Pair().Pub(), "doc-1"), "no share was left for the owner")
}

func TestPublishArticle_MarksDocument(t *testing.T) {
	c := clienttest.New(t)
	ctx := context.Background()

	_, err := adapter.WriteDocument(ctx, c, testutil.Document("doc-1", "author-1"), []byte("body"))
	require.NoError(t, err)

	article := schema.Article{
		ArticleID:   "article-1",
		TopicID:     "topic-1",
		DocID:       "doc-1",
		Title:       "Fund the transit plan",
		Body:        "Here is why.",
		PublishedAt: testutil.DefaultEpoch + 5,
	}
	_, err = adapter.PublishArticle(ctx, c, article)
	require.NoError(t, err)

	got := adapter.ReadArticle(ctx, c, "topic-1", "article-1")
	require.NotNil(t, got)
	assert.Equal(t, article, *got)

	doc := adapter.ReadDocument(ctx, c, "doc-1")
	require.NotNil(t, doc)
	assert.Equal(t, "article-1", doc.PublishedArticleID)
	assert.Equal(t, article.PublishedAt, doc.PublishedAt)

	content, err := adapter.OpenDocument(c, doc)
	require.NoError(t, err)
	assert.Equal(t, "body", string(content), "publishing keeps the content")

	other := article
	other.ArticleID = "article-2"
	other.DocID = "doc-elsewhere"
	_, err = adapter.PublishArticle(ctx, c, other)
	require.NoError(t, err, "articles from documents on other devices publish as-is")
}
