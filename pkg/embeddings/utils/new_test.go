package embeddingutils_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wcagrag/pkg/embeddings"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/hash"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/ollama"
	embeddingutils "github.com/papercomputeco/wcagrag/pkg/embeddings/utils"
)

var _ = Describe("NewEmbedder", func() {
	ctx := context.Background()

	It("builds the hash embedder with the configured size", func() {
		e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
			ProviderType: embeddingutils.ProviderHash,
			Dimensions:   32,
		})
		Expect(err).NotTo(HaveOccurred())
		h, ok := e.(*hash.Embedder)
		Expect(ok).To(BeTrue())
		Expect(h.Dimensions()).To(Equal(32))
	})

	It("builds ollama without credentials", func() {
		e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
			ProviderType: embeddingutils.ProviderOllama,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))
	})

	It("wraps providers when throttling is enabled", func() {
		e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{
			ProviderType:      embeddingutils.ProviderHash,
			RequestsPerSecond: 5,
		})
		Expect(err).NotTo(HaveOccurred())
		_, isHash := e.(*hash.Embedder)
		Expect(isHash).To(BeFalse())
	})

	DescribeTable("reports missing credentials as configuration errors",
		func(provider string) {
			_, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: provider})
			Expect(errors.Is(err, embeddings.ErrConfiguration)).To(BeTrue())
		},
		Entry("openai", embeddingutils.ProviderOpenAI),
		Entry("gemini", embeddingutils.ProviderGemini),
		Entry("unknown", "carrier-pigeon"),
	)
})
