package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/vhmesh/internal/chain"
	"github.com/roach88/vhmesh/internal/client"
	"github.com/roach88/vhmesh/internal/ids"
	"github.com/roach88/vhmesh/internal/mesh"
	"github.com/roach88/vhmesh/internal/schema"
	"github.com/roach88/vhmesh/internal/seal"
)

// ErrNoDocumentKey is returned when document content is written without a
// key to encrypt it.
var ErrNoDocumentKey = errors.New("docs: document key is required")

func docsChain(c *client.Client) *chain.Guarded {
	return c.User().Child("hermes").Child("docs")
}

func docChain(c *client.Client, docID string) (*chain.Guarded, error) {
	id, err := mesh.RequireID(docID, "docId")
	if err != nil {
		return nil, err
	}
	return docsChain(c).Child(id), nil
}

func docOpsChain(c *client.Client, docID string) (*chain.Guarded, error) {
	id, err := mesh.RequireID(docID, "docId")
	if err != nil {
		return nil, err
	}
	return c.User().Child("docs").Child(id).Child("ops"), nil
}

func docKeyChain(root *chain.Guarded, docID, collaboratorPub string) (*chain.Guarded, error) {
	id, err := mesh.RequireID(docID, "docId")
	if err != nil {
		return nil, err
	}
	pub, err := mesh.RequireID(collaboratorPub, "collaboratorPub")
	if err != nil {
		return nil, err
	}
	return root.Child("hermes").Child("docKeys").Child(id).Child(pub), nil
}

func articleChain(c *client.Client, topicID, articleID string) (*chain.Guarded, error) {
	topic, err := topicChain(c, topicID)
	if err != nil {
		return nil, err
	}
	id, err := mesh.RequireID(articleID, "articleId")
	if err != nil {
		return nil, err
	}
	return topic.Child("articles").Child(id), nil
}

// DocumentKey derives this device's key for a document it owns.
func DocumentKey(c *client.Client, docID string) ([]byte, error) {
	return seal.DeriveDocumentKey(docID, c.Pair())
}

// EncryptDocContent encrypts document state under a document key.
func EncryptDocContent(docKey, state []byte) (string, error) {
	sealer, err := seal.NewSealer(docKey)
	if err != nil {
		return "", err
	}
	env, err := sealer.SealBytes(state)
	if err != nil {
		return "", err
	}
	return env.Ciphertext, nil
}

// DecryptDocContent reverses EncryptDocContent.
func DecryptDocContent(docKey []byte, content string) ([]byte, error) {
	sealer, err := seal.NewSealer(docKey)
	if err != nil {
		return nil, err
	}
	return sealer.OpenBytes(seal.Envelope{Encrypted: true, Ciphertext: content})
}

// WriteDocument seals doc into ~<pub>/hermes/docs/<id>/. When content is
// non-nil it is first encrypted with the owner's document key into
// encryptedContent.
func WriteDocument(ctx context.Context, c *client.Client, doc schema.Document, content []byte) (*schema.Document, error) {
	if doc.SchemaVersion == "" {
		doc.SchemaVersion = schema.DocumentVersion
	}
	if content != nil {
		key, err := DocumentKey(c, doc.ID)
		if err != nil {
			return nil, err
		}
		if doc.EncryptedContent, err = EncryptDocContent(key, content); err != nil {
			return nil, fmt.Errorf("write document: %w", err)
		}
	}
	return writeSealed(ctx, c, schema.KindDocument, nil, doc, func(v *schema.Document) (chain.Chain, error) {
		return docChain(c, v.ID)
	})
}

// ReadDocument returns one of this user's documents, or nil.
func ReadDocument(ctx context.Context, c *client.Client, docID string) *schema.Document {
	node, err := docChain(c, docID)
	if err != nil {
		return nil
	}
	return readSealed[schema.Document](ctx, c, node, schema.KindDocument, nil)
}

// OpenDocument decrypts the content of a document this device owns.
func OpenDocument(c *client.Client, doc *schema.Document) ([]byte, error) {
	key, err := DocumentKey(c, doc.ID)
	if err != nil {
		return nil, err
	}
	return DecryptDocContent(key, doc.EncryptedContent)
}

// ListDocuments returns this user's documents, most recently modified
// first with ties broken by id.
func ListDocuments(ctx context.Context, c *client.Client) []schema.Document {
	docs := listSealed[schema.Document](ctx, c, docsChain(c), schema.KindDocument, nil)
	sortStable(docs, func(a, b schema.Document) bool {
		if a.LastModifiedAt != b.LastModifiedAt {
			return a.LastModifiedAt > b.LastModifiedAt
		}
		return a.ID < b.ID
	})
	return docs
}

// WriteDocumentOp seals an edit into ~<pub>/docs/<docId>/ops/<id>/. When
// delta is non-nil it is encrypted under docKey. An op without an id gets
// one derived from its author's vector clock entry, or a random one when
// the clock has none.
func WriteDocumentOp(ctx context.Context, c *client.Client, op schema.DocumentOp, delta, docKey []byte) (*schema.DocumentOp, error) {
	if op.SchemaVersion == "" {
		op.SchemaVersion = schema.DocumentOpVersion
	}
	if op.ID == "" {
		if seq, ok := op.VectorClock[op.Author]; ok {
			op.ID = ids.DocumentOpID(op.DocID, op.Author, seq)
		} else {
			op.ID = "op-" + uuid.NewString()
		}
	}
	if delta != nil {
		if docKey == nil {
			return nil, ErrNoDocumentKey
		}
		var err error
		if op.EncryptedDelta, err = EncryptDocContent(docKey, delta); err != nil {
			return nil, fmt.Errorf("write document op: %w", err)
		}
	}
	return writeSealed(ctx, c, schema.KindDocumentOp, nil, op, func(v *schema.DocumentOp) (chain.Chain, error) {
		parent, err := docOpsChain(c, v.DocID)
		if err != nil {
			return nil, err
		}
		id, err := mesh.RequireID(v.ID, "opId")
		if err != nil {
			return nil, err
		}
		return parent.Child(id), nil
	})
}

// ListDocumentOps returns the ops of a document, oldest first with ties
// broken by id.
func ListDocumentOps(ctx context.Context, c *client.Client, docID string) []schema.DocumentOp {
	node, err := docOpsChain(c, docID)
	if err != nil {
		return []schema.DocumentOp{}
	}
	ops := listSealed[schema.DocumentOp](ctx, c, node, schema.KindDocumentOp, nil)
	sortStable(ops, func(a, b schema.DocumentOp) bool {
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.ID < b.ID
	})
	return ops
}

// WriteDocumentKeyShare shares the owner's key for docID with a
// collaborator. The share is written under
// ~<pub>/hermes/docKeys/<docId>/<collaborator devicePub>/; the key itself
// is boxed for the collaborator's epub.
func WriteDocumentKeyShare(ctx context.Context, c *client.Client, docID string, owner, collaborator schema.DirectoryEntry) (*schema.DocumentKeyShare, error) {
	key, err := DocumentKey(c, docID)
	if err != nil {
		return nil, err
	}
	boxed, err := seal.ShareDocumentKey(key, collaborator.EPub, c.Pair())
	if err != nil {
		return nil, fmt.Errorf("share document key: %w", err)
	}
	share := schema.DocumentKeyShare{
		SchemaVersion:         schema.DocumentKeyShareVersion,
		DocID:                 docID,
		EncryptedKey:          boxed,
		OwnerNullifier:        owner.Nullifier,
		CollaboratorNullifier: collaborator.Nullifier,
		SharedAt:              c.Now().UnixMilli(),
	}

	var out schema.DocumentKeyShare
	node, err := c.Env().Sanitize(schema.KindDocumentKeyShare, nil, share, &out)
	if err != nil {
		return nil, err
	}
	node[seal.EncryptedFlag] = true

	target, err := docKeyChain(c.User(), out.DocID, collaborator.DevicePub)
	if err != nil {
		return nil, err
	}
	if err := put(ctx, c, target, node); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReadDocumentKeyShare reads the share ownerPub left for this device, or
// nil.
func ReadDocumentKeyShare(ctx context.Context, c *client.Client, ownerPub, docID string) *schema.DocumentKeyShare {
	owner, err := mesh.RequireID(ownerPub, "ownerPub")
	if err != nil {
		return nil
	}
	node, err := docKeyChain(c.UserOf(owner), docID, c.Pair().Pub())
	if err != nil {
		return nil
	}
	return read[schema.DocumentKeyShare](ctx, c, node, schema.KindDocumentKeyShare, nil)
}

// OpenDocumentKeyShare recovers the document key from a share written by
// the holder of ownerEPub.
func OpenDocumentKeyShare(c *client.Client, share *schema.DocumentKeyShare, ownerEPub string) ([]byte, error) {
	return seal.ReceiveDocumentKey(share.EncryptedKey, ownerEPub, c.Pair())
}

// PublishArticle writes article to vh/topics/<topic_id>/articles/<article_id>/.
// When the source document is one of this user's, it is marked published.
func PublishArticle(ctx context.Context, c *client.Client, article any) (*schema.Article, error) {
	a, err := write(ctx, c, schema.KindArticle, mesh.SynthesisPolicy, article, func(v *schema.Article) (chain.Chain, error) {
		return articleChain(c, v.TopicID, v.ArticleID)
	})
	if err != nil {
		return nil, err
	}

	if doc := ReadDocument(ctx, c, a.DocID); doc != nil {
		doc.PublishedArticleID = a.ArticleID
		doc.PublishedAt = a.PublishedAt
		if _, err := WriteDocument(ctx, c, *doc, nil); err != nil {
			return nil, fmt.Errorf("mark document published: %w", err)
		}
	}
	return a, nil
}

// ReadArticle returns a published article, or nil.
func ReadArticle(ctx context.Context, c *client.Client, topicID, articleID string) *schema.Article {
	node, err := articleChain(c, topicID, articleID)
	if err != nil {
		return nil
	}
	return read[schema.Article](ctx, c, node, schema.KindArticle, mesh.SynthesisPolicy)
}
