package versions_test

import (
	"errors"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/strata/pkg/versions"
)

func TestVersions(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Versions Suite")
}

var _ = Describe("NotFoundError", func() {
	It("matches ErrDocumentNotFound when no version is set", func() {
		err := &versions.NotFoundError{DocumentID: "guides/setup.md"}
		Expect(errors.Is(err, versions.ErrDocumentNotFound)).To(BeTrue())
		Expect(errors.Is(err, versions.ErrVersionNotFound)).To(BeFalse())
		Expect(err.Error()).To(ContainSubstring("guides/setup.md"))
	})

	It("matches ErrVersionNotFound when a version is set", func() {
		err := &versions.NotFoundError{DocumentID: "guides/setup.md", Version: 4}
		Expect(errors.Is(err, versions.ErrVersionNotFound)).To(BeTrue())
		Expect(errors.Is(err, versions.ErrDocumentNotFound)).To(BeFalse())
		Expect(err.Error()).To(ContainSubstring("4"))
	})

	It("survives wrapping", func() {
		inner := &versions.NotFoundError{DocumentID: "a"}
		wrapped := fmt.Errorf("loading latest: %w", inner)

		Expect(versions.IsNotFound(wrapped)).To(BeTrue())

		var nfe *versions.NotFoundError
		Expect(errors.As(wrapped, &nfe)).To(BeTrue())
		Expect(nfe.DocumentID).To(Equal("a"))
	})

	It("reports not-found for both sentinels", func() {
		Expect(versions.IsNotFound(versions.ErrDocumentNotFound)).To(BeTrue())
		Expect(versions.IsNotFound(versions.ErrVersionNotFound)).To(BeTrue())
		Expect(versions.IsNotFound(errors.New("other"))).To(BeFalse())
	})
})
