package indexer_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/chunker"
	"github.com/papercomputeco/strata/pkg/indexer"
	"github.com/papercomputeco/strata/pkg/logger"
	"github.com/papercomputeco/strata/pkg/reconciler"
	"github.com/papercomputeco/strata/pkg/versions"
	versionsmem "github.com/papercomputeco/strata/pkg/versions/inmemory"
	vectormem "github.com/papercomputeco/strata/pkg/vector/inmemory"
)

var _ = Describe("Diff", func() {
	var (
		ctx context.Context
		ix  *indexer.Indexer
	)

	BeforeEach(func() {
		ctx = context.Background()
		store := versionsmem.NewStore()

		ch, err := chunker.New(chunker.Config{Size: 10})
		Expect(err).NotTo(HaveOccurred())

		rec, err := reconciler.New(store, vectormem.NewIndex(), &stubEmbedder{}, reconciler.Config{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		ix, err = indexer.New(store, ch, rec, nil, logger.Nop())
		Expect(err).NotTo(HaveOccurred())

		_, err = ix.Ingest(ctx, "doc-a", textABC)
		Expect(err).NotTo(HaveOccurred())
		_, err = ix.Ingest(ctx, "doc-a", textAXC)
		Expect(err).NotTo(HaveOccurred())
	})

	It("classifies added, removed, and unchanged chunks by id", func() {
		diff, err := ix.Diff(ctx, "doc-a", 1, 2)
		Expect(err).NotTo(HaveOccurred())

		Expect(diff.DocumentID).To(Equal("doc-a"))
		Expect(diff.FromVersion).To(Equal(int64(1)))
		Expect(diff.ToVersion).To(Equal(int64(2)))

		Expect(diff.Added).To(HaveLen(1))
		Expect(diff.Added[0].Text).To(Equal(strings.Repeat("x", 10)))
		Expect(diff.Removed).To(HaveLen(1))
		Expect(diff.Removed[0].Text).To(Equal(strings.Repeat("b", 10)))
		Expect(diff.Unchanged).To(HaveLen(2))
	})

	It("walks positions and renders unified text diffs", func() {
		diff, err := ix.Diff(ctx, "doc-a", 1, 2)
		Expect(err).NotTo(HaveOccurred())

		Expect(diff.Changes).To(HaveLen(3))

		Expect(diff.Changes[0].Status).To(Equal(indexer.ChangeUnchanged))
		Expect(diff.Changes[0].TextDiff).To(BeEmpty())

		Expect(diff.Changes[1].Status).To(Equal(indexer.ChangeChanged))
		Expect(diff.Changes[1].Old).NotTo(BeNil())
		Expect(diff.Changes[1].New).NotTo(BeNil())
		Expect(diff.Changes[1].TextDiff).To(ContainSubstring("-" + strings.Repeat("b", 10)))
		Expect(diff.Changes[1].TextDiff).To(ContainSubstring("+" + strings.Repeat("x", 10)))

		Expect(diff.Changes[2].Status).To(Equal(indexer.ChangeUnchanged))

		Expect(diff.Unified).To(ContainSubstring("-" + strings.Repeat("b", 10)))
		Expect(diff.Unified).To(ContainSubstring("+" + strings.Repeat("x", 10)))
	})

	It("marks grown positions as added", func() {
		_, err := ix.Ingest(ctx, "doc-a", textAXC+strings.Repeat("d", 10))
		Expect(err).NotTo(HaveOccurred())

		diff, err := ix.Diff(ctx, "doc-a", 2, 3)
		Expect(err).NotTo(HaveOccurred())

		Expect(diff.Changes).To(HaveLen(4))
		Expect(diff.Changes[3].Status).To(Equal(indexer.ChangeAdded))
		Expect(diff.Changes[3].Old).To(BeNil())
		Expect(diff.Changes[3].TextDiff).To(ContainSubstring("+" + strings.Repeat("d", 10)))
	})

	It("marks shrunk positions as removed", func() {
		_, err := ix.Ingest(ctx, "doc-a", strings.Repeat("a", 10))
		Expect(err).NotTo(HaveOccurred())

		diff, err := ix.Diff(ctx, "doc-a", 2, 3)
		Expect(err).NotTo(HaveOccurred())

		Expect(diff.Changes).To(HaveLen(3))
		Expect(diff.Changes[0].Status).To(Equal(indexer.ChangeUnchanged))
		Expect(diff.Changes[1].Status).To(Equal(indexer.ChangeRemoved))
		Expect(diff.Changes[1].New).To(BeNil())
		Expect(diff.Changes[2].Status).To(Equal(indexer.ChangeRemoved))
	})

	It("works in either direction", func() {
		diff, err := ix.Diff(ctx, "doc-a", 2, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(diff.Added).To(HaveLen(1))
		Expect(diff.Added[0].Text).To(Equal(strings.Repeat("b", 10)))
		Expect(diff.Removed[0].Text).To(Equal(strings.Repeat("x", 10)))
	})

	It("fails with ErrVersionNotFound for unknown versions", func() {
		_, err := ix.Diff(ctx, "doc-a", 1, 9)
		Expect(err).To(MatchError(versions.ErrVersionNotFound))
	})

	It("fails with ErrDocumentNotFound for unknown documents", func() {
		_, err := ix.Diff(ctx, "ghost", 1, 2)
		Expect(err).To(MatchError(versions.ErrDocumentNotFound))
	})
})
