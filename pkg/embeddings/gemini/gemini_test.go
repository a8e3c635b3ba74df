package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wcagrag/pkg/embeddings"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/gemini"
)

var _ = Describe("Embedder", func() {
	It("requires an API key", func() {
		_, err := gemini.NewEmbedder(context.Background(), gemini.EmbedderConfig{})
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, embeddings.ErrConfiguration)).To(BeTrue())
	})

	Context("against a fake endpoint", func() {
		var (
			server *httptest.Server
			path   string
		)

		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				var req struct {
					Requests []json.RawMessage `json:"requests"`
				}
				_ = json.NewDecoder(r.Body).Decode(&req)

				embs := make([]map[string]any, len(req.Requests))
				for i := range embs {
					embs[i] = map[string]any{"values": []float32{float32(i), 0.5}}
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": embs})
			}))
		})

		AfterEach(func() {
			server.Close()
		})

		It("embeds a batch through batchEmbedContents", func() {
			e, err := gemini.NewEmbedder(context.Background(), gemini.EmbedderConfig{
				APIKey:  "test-key",
				BaseURL: server.URL,
			})
			Expect(err).NotTo(HaveOccurred())

			out, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(HaveLen(3))
			Expect(out[2]).To(Equal([]float32{2, 0.5}))
			Expect(strings.HasSuffix(path, ":batchEmbedContents")).To(BeTrue())
		})
	})
})
