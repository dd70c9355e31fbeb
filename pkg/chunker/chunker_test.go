package chunker_test

import (
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/chunker"
)

func TestChunker(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Chunker Suite")
}

var _ = Describe("Chunker", func() {
	Describe("New", func() {
		It("applies defaults for a zero config", func() {
			c, err := chunker.New(chunker.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Size()).To(Equal(chunker.DefaultSize))
			Expect(c.Overlap()).To(Equal(chunker.DefaultOverlap))
		})

		It("rejects overlap >= size", func() {
			_, err := chunker.New(chunker.Config{Size: 10, Overlap: 10})
			Expect(err).To(HaveOccurred())

			_, err = chunker.New(chunker.Config{Size: 10, Overlap: 20})
			Expect(err).To(HaveOccurred())
		})

		It("rejects negative values", func() {
			_, err := chunker.New(chunker.Config{Size: -1})
			Expect(err).To(HaveOccurred())

			_, err = chunker.New(chunker.Config{Size: 10, Overlap: -1})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Split", func() {
		It("returns nothing for empty or whitespace text", func() {
			c, err := chunker.New(chunker.Config{})
			Expect(err).NotTo(HaveOccurred())

			Expect(c.Split("")).To(BeEmpty())
			Expect(c.Split("   \n\t  ")).To(BeEmpty())
		})

		It("returns a single chunk for text shorter than one window", func() {
			c, err := chunker.New(chunker.Config{Size: 100, Overlap: 20})
			Expect(err).NotTo(HaveOccurred())

			chunks := c.Split("short document")
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0].Position).To(Equal(0))
			Expect(chunks[0].Start).To(Equal(0))
			Expect(chunks[0].End).To(Equal(len("short document")))
			Expect(chunks[0].Text).To(Equal("short document"))
		})

		It("produces overlapping windows in document order", func() {
			c, err := chunker.New(chunker.Config{Size: 10, Overlap: 4})
			Expect(err).NotTo(HaveOccurred())

			text := "abcdefghijklmnopqrstuvwxyz"
			chunks := c.Split(text)

			Expect(chunks).To(HaveLen(4))
			Expect(chunks[0].Text).To(Equal("abcdefghij"))
			Expect(chunks[1].Text).To(Equal("ghijklmnop"))
			Expect(chunks[2].Text).To(Equal("mnopqrstuv"))
			Expect(chunks[3].Text).To(Equal("stuvwxyz"))

			for i, ch := range chunks {
				Expect(ch.Position).To(Equal(i))
				Expect(text[ch.Start:ch.End]).To(Equal(ch.Text))
			}
		})

		It("keeps offsets addressable on multi-byte text", func() {
			c, err := chunker.New(chunker.Config{Size: 5, Overlap: 2})
			Expect(err).NotTo(HaveOccurred())

			text := "héllo wörld ünïcode"
			chunks := c.Split(text)
			Expect(chunks).NotTo(BeEmpty())

			var rebuilt strings.Builder
			lastEnd := 0
			for _, ch := range chunks {
				Expect(text[ch.Start:ch.End]).To(Equal(ch.Text))
				Expect(ch.Start).To(BeNumerically("<", ch.End))
				// Windows overlap, so each chunk starts before the
				// previous one ends but never before it starts.
				Expect(ch.Start).To(BeNumerically("<=", lastEnd))
				rebuilt.WriteString(ch.Text[max(0, lastEnd-ch.Start):])
				lastEnd = ch.End
			}
			Expect(rebuilt.String()).To(Equal(text))
		})

		It("covers the full document with no gaps", func() {
			c, err := chunker.New(chunker.Config{Size: 50, Overlap: 10})
			Expect(err).NotTo(HaveOccurred())

			text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 40)
			chunks := c.Split(text)
			Expect(len(chunks)).To(BeNumerically(">", 1))

			Expect(chunks[0].Start).To(Equal(0))
			Expect(chunks[len(chunks)-1].End).To(Equal(len(text)))
			for i := 1; i < len(chunks); i++ {
				Expect(chunks[i].Start).To(BeNumerically("<=", chunks[i-1].End),
					"window %d must not leave a gap", i)
			}
		})

		It("is deterministic for identical input", func() {
			c, err := chunker.New(chunker.Config{Size: 30, Overlap: 5})
			Expect(err).NotTo(HaveOccurred())

			text := strings.Repeat("determinism matters for chunk ids. ", 10)
			first := c.Split(text)
			second := c.Split(text)
			Expect(second).To(Equal(first))
		})
	})
})
