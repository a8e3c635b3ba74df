package retriever_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wcagrag/pkg/chunker"
	"github.com/papercomputeco/wcagrag/pkg/embeddings"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/hash"
	"github.com/papercomputeco/wcagrag/pkg/guideline"
	"github.com/papercomputeco/wcagrag/pkg/index"
	"github.com/papercomputeco/wcagrag/pkg/logger"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
	testutils "github.com/papercomputeco/wcagrag/pkg/utils/test"
	"github.com/papercomputeco/wcagrag/pkg/vector"
)

const corpus = `{"guidelines": [
	{
		"name": "1.1.1 Non-text Content",
		"description": "All non-text content that is presented to the user has a text alternative that serves the equivalent purpose.",
		"techniques": ["G94: Providing short text alternative for non-text content", "H37: Using alt attributes on img elements"],
		"failures": ["F65: Failure due to omitting the alt attribute on img elements"]
	},
	{
		"name": "2.1.1 Keyboard",
		"description": "All functionality of the content is operable through a keyboard interface without requiring specific timings for individual keystrokes.",
		"techniques": ["G202: Ensuring keyboard control for all functionality"],
		"failures": ["F54: Failure due to using only pointing-device-specific event handlers"]
	}
]}`

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("%w: quota exceeded", embeddings.ErrEmbedding)
}

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: quota exceeded", embeddings.ErrEmbedding)
}

func (failingEmbedder) Close() error { return nil }

// flakyEmbedder fails the first failures EmbedBatch calls.
type flakyEmbedder struct {
	embeddings.Embedder

	mu       sync.Mutex
	failures int
}

func (f *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	fail := f.failures > 0
	if fail {
		f.failures--
	}
	f.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("%w: 429 rate limited", embeddings.ErrEmbedding)
	}
	return f.Embedder.EmbedBatch(ctx, texts)
}

// gatedEmbedder blocks EmbedBatch until open is called. entered is closed
// when the first batch arrives. Embed is never blocked.
type gatedEmbedder struct {
	embeddings.Embedder

	entered   chan struct{}
	release   chan struct{}
	enterOnce sync.Once
	openOnce  sync.Once
}

func newGatedEmbedder(e embeddings.Embedder) *gatedEmbedder {
	return &gatedEmbedder{
		Embedder: e,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
}

func (g *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	g.enterOnce.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Embedder.EmbedBatch(ctx, texts)
}

func (g *gatedEmbedder) open() {
	g.openOnce.Do(func() { close(g.release) })
}

var _ = Describe("Retriever", func() {
	var (
		ctx        context.Context
		driver     *testutils.MockVectorDriver
		embedder   embeddings.Embedder
		splitter   *chunker.Splitter
		corpusPath string
	)

	newRetriever := func() *retriever.Retriever {
		b, err := index.NewBuilder(&index.Config{
			Driver:     driver,
			Embedder:   embedder,
			Splitter:   splitter,
			Collection: "guidelines",
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		r, err := retriever.New(&retriever.Config{
			Driver:     driver,
			Embedder:   embedder,
			Builder:    b,
			CorpusPath: corpusPath,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return r
	}

	writeCorpus := func() {
		Expect(os.WriteFile(corpusPath, []byte(corpus), 0o644)).To(Succeed())
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = testutils.NewMockVectorDriver()
		embedder = hash.NewEmbedder(1024)
		splitter = chunker.NewDefault()
		corpusPath = filepath.Join(GinkgoT().TempDir(), "wcag.json")
	})

	Describe("New", func() {
		It("requires a driver, an embedder and a builder", func() {
			_, err := retriever.New(&retriever.Config{Embedder: embedder})
			Expect(err).To(HaveOccurred())

			_, err = retriever.New(&retriever.Config{Driver: driver})
			Expect(err).To(HaveOccurred())

			_, err = retriever.New(&retriever.Config{Driver: driver, Embedder: embedder})
			Expect(err).To(HaveOccurred())
		})

		It("starts uninitialized", func() {
			r := newRetriever()
			Expect(r.State()).To(Equal(retriever.Uninitialized))
			Expect(r.State().String()).To(Equal("uninitialized"))
			Expect(r.Collection()).To(Equal("guidelines"))
		})
	})

	Context("when the collection is missing", func() {
		It("builds the index once from the corpus", func() {
			writeCorpus()
			r := newRetriever()

			results, err := r.QuerySimilar(ctx, "keyboard interface", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeEmpty())
			Expect(r.State()).To(Equal(retriever.Ready))
			Expect(driver.CreatedCount()).To(Equal(1))

			_, err = r.QuerySimilar(ctx, "alt text", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.CreatedCount()).To(Equal(1))
		})

		It("builds once when first queries race", func() {
			writeCorpus()
			r := newRetriever()

			var wg sync.WaitGroup
			errs := make([]error, 8)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					defer GinkgoRecover()
					_, errs[i] = r.QuerySimilar(ctx, "keyboard", 1)
				}(i)
			}
			wg.Wait()

			for _, err := range errs {
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(driver.CreatedCount()).To(Equal(1))
		})

		It("tries the build again after a failed one", func() {
			r := newRetriever()

			_, err := r.QuerySimilar(ctx, "keyboard", 1)
			Expect(errors.Is(err, retriever.ErrIndexUnavailable)).To(BeTrue())
			Expect(errors.Is(err, index.ErrCorpus)).To(BeTrue())
			Expect(r.State()).To(Equal(retriever.Failed))

			st, err := r.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.State).To(Equal(retriever.Failed))
			Expect(st.Error).To(ContainSubstring("building index"))

			writeCorpus()
			results, err := r.QuerySimilar(ctx, "keyboard", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(r.State()).To(Equal(retriever.Ready))

			st, err = r.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.Error).To(BeEmpty())
		})

		It("recovers from a transient embedding failure", func() {
			writeCorpus()
			flaky := &flakyEmbedder{Embedder: hash.NewEmbedder(1024), failures: 1}
			embedder = flaky
			r := newRetriever()

			_, err := r.QuerySimilar(ctx, "keyboard", 1)
			Expect(errors.Is(err, retriever.ErrIndexUnavailable)).To(BeTrue())
			Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
			Expect(r.State()).To(Equal(retriever.Failed))

			results, err := r.QuerySimilar(ctx, "keyboard interface keystrokes", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Guideline.RefID).To(Equal("2.1.1"))
			Expect(r.State()).To(Equal(retriever.Ready))
			Expect(driver.CreatedCount()).To(Equal(1))
		})

		It("lets waiters leave a running build when their context ends", func() {
			writeCorpus()
			gated := newGatedEmbedder(hash.NewEmbedder(1024))
			embedder = gated
			r := newRetriever()

			leader := make(chan error, 1)
			go func() {
				leader <- r.EnsureReady(ctx)
			}()
			Eventually(gated.entered).Should(BeClosed())

			waitCtx, cancel := context.WithCancel(ctx)
			cancel()
			err := r.EnsureReady(waitCtx)
			Expect(errors.Is(err, retriever.ErrIndexUnavailable)).To(BeTrue())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())

			gated.open()
			Eventually(leader).Should(Receive(BeNil()))
			Expect(r.State()).To(Equal(retriever.Ready))
			Expect(driver.CreatedCount()).To(Equal(1))
		})

		It("reports a failed existence check without failing permanently", func() {
			driver.FailHas = errors.New("connection refused")
			r := newRetriever()

			err := r.EnsureReady(ctx)
			Expect(errors.Is(err, retriever.ErrIndexUnavailable)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("connection refused")))
			Expect(r.State()).To(Equal(retriever.Uninitialized))
		})
	})

	Context("when the collection exists", func() {
		var r *retriever.Retriever

		BeforeEach(func() {
			r = newRetriever()
			c, err := guideline.DecodeCorpus(strings.NewReader(corpus))
			Expect(err).NotTo(HaveOccurred())
			_, err = r.Initialize(ctx, c.Guidelines)
			Expect(err).NotTo(HaveOccurred())
		})

		It("does not rebuild it", func() {
			fresh := newRetriever()
			Expect(fresh.EnsureReady(ctx)).To(Succeed())
			Expect(fresh.State()).To(Equal(retriever.Ready))
			Expect(driver.CreatedCount()).To(Equal(1))
		})

		It("returns a single guideline with its metadata", func() {
			results, err := r.QuerySimilar(ctx, "keyboard interface keystrokes", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))

			g := results[0].Guideline
			Expect(g.RefID).To(Equal("2.1.1"))
			Expect(g.Title).To(Equal("Keyboard"))
			Expect(g.URL).To(Equal("https://www.w3.org/WAI/WCAG22/Understanding/2.1.1.html"))
			Expect(g.Techniques).To(Equal([]string{"G202: Ensuring keyboard control for all functionality"}))
			Expect(g.Description).To(Equal(results[0].Text))
			Expect(results[0].Text).To(HavePrefix("WCAG 2.2 Success Criterion 2.1.1: Keyboard"))
		})

		It("ranks the matching guideline first in ascending distance", func() {
			results, err := r.QuerySimilar(ctx, "alt attributes on img elements text alternative", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Guideline.RefID).To(Equal("1.1.1"))
			Expect(results[0].Score).To(BeNumerically("<=", results[1].Score))
		})

		It("defaults k to three", func() {
			_, err := r.QuerySimilar(ctx, "keyboard", 0)
			Expect(err).NotTo(HaveOccurred())
			// Two guidelines in one chunk each; asking for three returns both.
			records, err := r.Query(ctx, "keyboard", -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
		})

		It("surfaces embedding failures", func() {
			embedder = failingEmbedder{}
			broken := newRetriever()

			_, err := broken.QuerySimilar(ctx, "keyboard", 1)
			Expect(errors.Is(err, embeddings.ErrEmbedding)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("quota exceeded")))
		})

		It("reports the collection status", func() {
			st, err := r.Status(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(st.State).To(Equal(retriever.Ready))
			Expect(st.Collection).To(Equal("guidelines"))
			Expect(st.Documents).To(Equal(2))
		})

		It("serves queries from the live collection during a rebuild", func() {
			gated := newGatedEmbedder(hash.NewEmbedder(1024))
			embedder = gated
			rebuilding := newRetriever()
			Expect(rebuilding.EnsureReady(ctx)).To(Succeed())

			rebuilt := make(chan error, 1)
			go func() {
				c, err := guideline.DecodeCorpus(strings.NewReader(corpus))
				if err != nil {
					rebuilt <- err
					return
				}
				_, err = rebuilding.Initialize(ctx, c.Guidelines)
				rebuilt <- err
			}()
			Eventually(gated.entered).Should(BeClosed())

			queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			results, err := rebuilding.QuerySimilar(queryCtx, "keyboard interface keystrokes", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Guideline.RefID).To(Equal("2.1.1"))
			Expect(rebuilt).NotTo(Receive())

			gated.open()
			Eventually(rebuilt).Should(Receive(BeNil()))
			Expect(rebuilding.State()).To(Equal(retriever.Ready))
		})

		It("rejects documents without a ref id", func() {
			emb, err := embedder.Embed(ctx, "keyboard")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Add(ctx, "guidelines", []vector.Document{{
				ID:        "stray",
				Content:   "keyboard",
				Embedding: emb,
				Metadata:  map[string]string{},
			}})).To(Succeed())

			_, err = r.QuerySimilar(ctx, "keyboard", 3)
			Expect(errors.Is(err, retriever.ErrCorruptDocument)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("stray")))
		})

		It("recovers when the collection is dropped", func() {
			writeCorpus()
			Expect(driver.DropCollection(ctx, "guidelines")).To(Succeed())

			_, err := r.QuerySimilar(ctx, "keyboard", 1)
			Expect(errors.Is(err, retriever.ErrIndexUnavailable)).To(BeTrue())
			Expect(r.State()).To(Equal(retriever.Uninitialized))

			results, err := r.QuerySimilar(ctx, "keyboard", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})
	})

	Context("with guidelines split into several chunks", func() {
		BeforeEach(func() {
			var err error
			splitter, err = chunker.New(120, 20)
			Expect(err).NotTo(HaveOccurred())
			writeCorpus()
		})

		It("keeps only the closest chunk per guideline", func() {
			r := newRetriever()
			Expect(r.EnsureReady(ctx)).To(Succeed())

			n, err := driver.Count(ctx, "guidelines")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">", 2))

			results, err := r.QuerySimilar(ctx, "keyboard", n)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Guideline.RefID).NotTo(Equal(results[1].Guideline.RefID))
			Expect(results[0].Score).To(BeNumerically("<=", results[1].Score))
		})

		It("returns the same guidelines after a rebuild", func() {
			r := newRetriever()
			before, err := r.Query(ctx, "keyboard", 4)
			Expect(err).NotTo(HaveOccurred())

			_, err = r.InitializeFile(ctx, corpusPath)
			Expect(err).NotTo(HaveOccurred())
			after, err := r.Query(ctx, "keyboard", 4)
			Expect(err).NotTo(HaveOccurred())

			Expect(after).To(Equal(before))
		})
	})
})
