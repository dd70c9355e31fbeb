package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/dotdir"
)

var _ = Describe("dotdir.Manager corpus", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadCorpusState", func() {
		It("returns nil when no corpus file exists", func() {
			state, err := m.LoadCorpusState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).To(BeNil())
		})

		It("loads a valid corpus state", func() {
			data := `{"root":"/srv/docs","last_scan":"2026-08-01T12:00:00Z","documents":42,"chunks":130}`
			err := os.WriteFile(filepath.Join(tmpDir, "corpus.json"), []byte(data), 0o644)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadCorpusState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(state).NotTo(BeNil())
			Expect(state.Root).To(Equal("/srv/docs"))
			Expect(state.Documents).To(Equal(42))
			Expect(state.Chunks).To(Equal(130))
			Expect(state.LastScan.Year()).To(Equal(2026))
		})

		It("returns error for invalid JSON", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "corpus.json"), []byte("not json"), 0o644)
			Expect(err).NotTo(HaveOccurred())

			state, err := m.LoadCorpusState(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(state).To(BeNil())
		})
	})

	Describe("SaveCorpus", func() {
		It("persists corpus state to disk", func() {
			state := &dotdir.CorpusState{
				Root:      "/srv/docs",
				LastScan:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
				Documents: 7,
				Chunks:    21,
			}

			err := m.SaveCorpus(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = os.Stat(filepath.Join(tmpDir, "corpus.json"))
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadCorpusState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Root).To(Equal("/srv/docs"))
			Expect(loaded.Documents).To(Equal(7))
			Expect(loaded.Chunks).To(Equal(21))
		})

		It("returns error for nil state", func() {
			err := m.SaveCorpus(nil, tmpDir)
			Expect(err).To(HaveOccurred())
		})

		It("overwrites existing corpus state", func() {
			first := &dotdir.CorpusState{Root: "/srv/first", Documents: 1}
			second := &dotdir.CorpusState{Root: "/srv/second", Documents: 2}

			err := m.SaveCorpus(first, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = m.SaveCorpus(second, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadCorpusState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.Root).To(Equal("/srv/second"))
			Expect(loaded.Documents).To(Equal(2))
		})
	})

	Describe("ClearCorpus", func() {
		It("removes the corpus file", func() {
			state := &dotdir.CorpusState{Root: "/srv/docs"}
			err := m.SaveCorpus(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			err = m.ClearCorpus(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadCorpusState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(BeNil())
		})

		It("succeeds when no corpus file exists", func() {
			err := m.ClearCorpus(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("round-trip", func() {
		It("saves and loads corpus state correctly", func() {
			state := &dotdir.CorpusState{
				Root:      "/home/dev/notes",
				LastScan:  time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
				Documents: 128,
				Chunks:    512,
			}

			err := m.SaveCorpus(state, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := m.LoadCorpusState(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(state))
		})
	})
})
