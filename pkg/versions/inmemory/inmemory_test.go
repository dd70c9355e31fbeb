package inmemory_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/fingerprint"
	"github.com/papercomputeco/strata/pkg/versions"
	"github.com/papercomputeco/strata/pkg/versions/inmemory"
)

func TestInMemoryStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "InMemory Version Store Suite")
}

// mkChunk builds a chunk with a properly derived content-addressed id.
func mkChunk(docID string, position int, text string) versions.Chunk {
	fp := fingerprint.Text(text)
	return versions.Chunk{
		ID:          fingerprint.ChunkID(docID, position, fp),
		DocumentID:  docID,
		Position:    position,
		StartOffset: 0,
		EndOffset:   len(text),
		Fingerprint: fp,
		Text:        text,
	}
}

func mkVersion(docID string, number int64, texts ...string) *versions.Version {
	chunks := make([]versions.Chunk, 0, len(texts))
	all := ""
	for i, txt := range texts {
		chunks = append(chunks, mkChunk(docID, i, txt))
		all += txt
	}
	return &versions.Version{
		DocumentID:  docID,
		Number:      number,
		ContentHash: fingerprint.Text(all),
		CreatedAt:   time.Now().UTC(),
		Chunks:      chunks,
	}
}

var _ = Describe("InMemory Store", func() {
	var (
		ctx   context.Context
		store *inmemory.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
	})

	Describe("CreateVersion", func() {
		It("accepts version 1 for a new document", func() {
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 1, "alpha", "beta"))).To(Succeed())

			latest, err := store.Latest(ctx, "doc-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Number).To(Equal(int64(1)))
			Expect(latest.Chunks).To(HaveLen(2))
			Expect(latest.Synced).To(BeFalse())
		})

		It("rejects a first version other than 1", func() {
			err := store.CreateVersion(ctx, mkVersion("doc-a", 2, "alpha"))
			Expect(err).To(MatchError(versions.ErrOutOfOrderCommit))
		})

		It("rejects duplicate version numbers", func() {
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 1, "alpha"))).To(Succeed())

			err := store.CreateVersion(ctx, mkVersion("doc-a", 1, "changed"))
			Expect(err).To(MatchError(versions.ErrOutOfOrderCommit))
		})

		It("rejects gaps in version numbers", func() {
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 1, "alpha"))).To(Succeed())

			err := store.CreateVersion(ctx, mkVersion("doc-a", 3, "gamma"))
			Expect(err).To(MatchError(versions.ErrOutOfOrderCommit))
		})

		It("advances strictly by one", func() {
			for n := int64(1); n <= 5; n++ {
				Expect(store.CreateVersion(ctx, mkVersion("doc-a", n, "text"))).To(Succeed())
			}
			latest, err := store.Latest(ctx, "doc-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Number).To(Equal(int64(5)))
		})

		It("keeps stored versions immutable against caller mutation", func() {
			v := mkVersion("doc-a", 1, "alpha")
			Expect(store.CreateVersion(ctx, v)).To(Succeed())

			v.Chunks[0].Text = "mutated after commit"

			latest, err := store.Latest(ctx, "doc-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Chunks[0].Text).To(Equal("alpha"))
		})
	})

	Describe("Latest and GetVersion", func() {
		It("returns ErrDocumentNotFound for unknown documents", func() {
			_, err := store.Latest(ctx, "nope")
			Expect(err).To(MatchError(versions.ErrDocumentNotFound))

			_, err = store.GetVersion(ctx, "nope", 1)
			Expect(err).To(MatchError(versions.ErrDocumentNotFound))
		})

		It("returns ErrVersionNotFound for a missing number", func() {
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 1, "alpha"))).To(Succeed())

			_, err := store.GetVersion(ctx, "doc-a", 9)
			Expect(err).To(MatchError(versions.ErrVersionNotFound))
		})

		It("keeps superseded versions readable", func() {
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 1, "alpha"))).To(Succeed())
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 2, "beta"))).To(Succeed())

			v1, err := store.GetVersion(ctx, "doc-a", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(v1.Chunks[0].Text).To(Equal("alpha"))

			latest, err := store.Latest(ctx, "doc-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(latest.Number).To(Equal(int64(2)))
		})
	})

	Describe("sync bookkeeping", func() {
		BeforeEach(func() {
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 1, "alpha"))).To(Succeed())
			Expect(store.CreateVersion(ctx, mkVersion("doc-b", 1, "bravo"))).To(Succeed())
		})

		It("reports unsynced documents until marked", func() {
			ids, err := store.UnsyncedDocuments(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{"doc-a", "doc-b"}))

			Expect(store.MarkSynced(ctx, "doc-a", 1)).To(Succeed())

			ids, err = store.UnsyncedDocuments(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{"doc-b"}))
		})

		It("tracks the highest synced version", func() {
			last, err := store.LastSynced(ctx, "doc-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(last).To(BeZero())

			Expect(store.MarkSynced(ctx, "doc-a", 1)).To(Succeed())
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 2, "alpha2"))).To(Succeed())

			last, err = store.LastSynced(ctx, "doc-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(last).To(Equal(int64(1)))

			Expect(store.MarkSynced(ctx, "doc-a", 2)).To(Succeed())
			last, err = store.LastSynced(ctx, "doc-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(last).To(Equal(int64(2)))
		})

		It("rejects marking unknown versions", func() {
			Expect(store.MarkSynced(ctx, "doc-a", 7)).To(MatchError(versions.ErrVersionNotFound))
			Expect(store.MarkSynced(ctx, "ghost", 1)).To(MatchError(versions.ErrDocumentNotFound))
		})
	})

	Describe("ChunkIDsInRange", func() {
		It("unions distinct chunk ids over the range", func() {
			v1 := mkVersion("doc-a", 1, "one", "two")
			v2 := mkVersion("doc-a", 2, "one", "2b")
			v3 := mkVersion("doc-a", 3, "one", "2c")
			Expect(store.CreateVersion(ctx, v1)).To(Succeed())
			Expect(store.CreateVersion(ctx, v2)).To(Succeed())
			Expect(store.CreateVersion(ctx, v3)).To(Succeed())

			ids, err := store.ChunkIDsInRange(ctx, "doc-a", 0, 2)
			Expect(err).NotTo(HaveOccurred())
			// "one" keeps the same id in both versions; position 1 differs.
			Expect(ids).To(ConsistOf(v1.Chunks[0].ID, v1.Chunks[1].ID, v2.Chunks[1].ID))

			ids, err = store.ChunkIDsInRange(ctx, "doc-a", 2, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf(v3.Chunks[0].ID, v3.Chunks[1].ID))
		})

		It("returns nothing for an empty range", func() {
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 1, "one"))).To(Succeed())

			ids, err := store.ChunkIDsInRange(ctx, "doc-a", 1, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty())
		})
	})

	Describe("ResolveCurrent", func() {
		It("drops ids that are not in their document's latest version", func() {
			v1 := mkVersion("doc-a", 1, "old content", "shared")
			v2 := mkVersion("doc-a", 2, "new content", "shared")
			Expect(store.CreateVersion(ctx, v1)).To(Succeed())
			Expect(store.CreateVersion(ctx, v2)).To(Succeed())

			resolved, err := store.ResolveCurrent(ctx, []string{
				v1.Chunks[0].ID, // superseded
				v2.Chunks[0].ID, // current
				v2.Chunks[1].ID, // current, same id as v1.Chunks[1]
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resolved).To(HaveLen(2))
			Expect(resolved[0].ID).To(Equal(v2.Chunks[0].ID))
			Expect(resolved[1].ID).To(Equal(v2.Chunks[1].ID))
		})

		It("preserves input order and ignores unknown ids", func() {
			v1 := mkVersion("doc-a", 1, "one", "two")
			Expect(store.CreateVersion(ctx, v1)).To(Succeed())

			resolved, err := store.ResolveCurrent(ctx, []string{
				v1.Chunks[1].ID, "no-such-id", v1.Chunks[0].ID,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resolved).To(HaveLen(2))
			Expect(resolved[0].ID).To(Equal(v1.Chunks[1].ID))
			Expect(resolved[1].ID).To(Equal(v1.Chunks[0].ID))
		})
	})

	Describe("ListDocuments", func() {
		It("projects the head state of every document", func() {
			Expect(store.CreateVersion(ctx, mkVersion("doc-b", 1, "b1", "b2"))).To(Succeed())
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 1, "a1"))).To(Succeed())
			Expect(store.CreateVersion(ctx, mkVersion("doc-a", 2, "a1", "a2", "a3"))).To(Succeed())
			Expect(store.MarkSynced(ctx, "doc-b", 1)).To(Succeed())

			statuses, err := store.ListDocuments(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(statuses).To(HaveLen(2))

			Expect(statuses[0].ID).To(Equal("doc-a"))
			Expect(statuses[0].LatestVersion).To(Equal(int64(2)))
			Expect(statuses[0].ChunkCount).To(Equal(3))
			Expect(statuses[0].Synced).To(BeFalse())

			Expect(statuses[1].ID).To(Equal("doc-b"))
			Expect(statuses[1].Synced).To(BeTrue())
		})
	})
})
