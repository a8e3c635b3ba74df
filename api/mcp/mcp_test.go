package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wcagrag/api/mcp"
	"github.com/papercomputeco/wcagrag/pkg/describe"
	"github.com/papercomputeco/wcagrag/pkg/embeddings/hash"
	"github.com/papercomputeco/wcagrag/pkg/index"
	"github.com/papercomputeco/wcagrag/pkg/logger"
	"github.com/papercomputeco/wcagrag/pkg/retriever"
	"github.com/papercomputeco/wcagrag/pkg/review"
	testutils "github.com/papercomputeco/wcagrag/pkg/utils/test"
)

const corpus = `{"guidelines": [
	{
		"name": "1.1.1 Non-text Content",
		"description": "All non-text content that is presented to the user has a text alternative that serves the equivalent purpose.",
		"techniques": ["H37: Using alt attributes on img elements"],
		"failures": ["F65: Failure due to omitting the alt attribute on img elements"]
	},
	{
		"name": "2.1.1 Keyboard",
		"description": "All functionality of the content is operable through a keyboard interface without requiring specific timings for individual keystrokes.",
		"techniques": ["G202: Ensuring keyboard control for all functionality"]
	}
]}`

var _ = Describe("MCP Server", func() {
	var (
		ctx        context.Context
		rtr        *retriever.Retriever
		reviewer   *review.Service
		summarizer *testutils.MockSummarizer
	)

	BeforeEach(func() {
		ctx = context.Background()
		corpusPath := filepath.Join(GinkgoT().TempDir(), "wcag.json")
		Expect(os.WriteFile(corpusPath, []byte(corpus), 0o644)).To(Succeed())

		driver := testutils.NewMockVectorDriver()
		embedder := hash.NewEmbedder(1024)
		b, err := index.NewBuilder(&index.Config{
			Driver:     driver,
			Embedder:   embedder,
			Collection: "guidelines",
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		rtr, err = retriever.New(&retriever.Config{
			Driver:     driver,
			Embedder:   embedder,
			Builder:    b,
			CorpusPath: corpusPath,
			Logger:     logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())

		summarizer = testutils.NewMockSummarizer("The img element gains an alt attribute providing a text alternative.")
		reviewer, err = review.NewService(&review.Config{
			Retriever: rtr,
			Describer: describe.NewGenerator(summarizer, logger.Nop()),
			Logger:    logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	// connect wires an in-memory client session to the server.
	connect := func(server *mcp.Server) *sdkmcp.ClientSession {
		ct, st := sdkmcp.NewInMemoryTransports()
		ss, err := server.MCPServer().Connect(ctx, st, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = ss.Close() })

		client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
		cs, err := client.Connect(ctx, ct, nil)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { _ = cs.Close() })
		return cs
	}

	textOf := func(res *sdkmcp.CallToolResult) string {
		Expect(res.Content).To(HaveLen(1))
		tc, ok := res.Content[0].(*sdkmcp.TextContent)
		Expect(ok).To(BeTrue())
		return tc.Text
	}

	Describe("NewServer", func() {
		It("returns an error when retriever is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Logger: logger.Nop()})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("retriever is required"))
		})

		It("returns an error when logger is nil", func() {
			_, err := mcp.NewServer(mcp.Config{Retriever: rtr})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("logger is required"))
		})

		It("builds an empty server in noop mode", func() {
			server, err := mcp.NewServer(mcp.Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("tools", func() {
		It("lists the review tool only when a reviewer is configured", func() {
			server, err := mcp.NewServer(mcp.Config{Retriever: rtr, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			res, err := connect(server).ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			names := []string{}
			for _, t := range res.Tools {
				names = append(names, t.Name)
			}
			Expect(names).To(ConsistOf("search_guidelines", "index_status"))

			server, err = mcp.NewServer(mcp.Config{Retriever: rtr, Reviewer: reviewer, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			res, err = connect(server).ListTools(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Tools).To(HaveLen(3))
		})
	})

	Describe("search_guidelines", func() {
		var cs *sdkmcp.ClientSession

		BeforeEach(func() {
			server, err := mcp.NewServer(mcp.Config{Retriever: rtr, Reviewer: reviewer, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			cs = connect(server)
		})

		It("returns the closest guideline", func() {
			res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "search_guidelines",
				Arguments: map[string]any{"query": "keyboard interface keystrokes", "k": 1},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.SearchOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].RefID).To(Equal("2.1.1"))
			Expect(out.Results[0].Techniques).To(ContainElement(ContainSubstring("G202")))
		})

		It("reports an empty query as a tool error", func() {
			res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "search_guidelines",
				Arguments: map[string]any{"query": "  "},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("query is required"))
		})

		It("rejects k above the request limit", func() {
			res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "search_guidelines",
				Arguments: map[string]any{"query": "keyboard", "k": 1000000},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(textOf(res)).To(ContainSubstring("k must be between 1 and 50"))
		})
	})

	Describe("review_diff", func() {
		var cs *sdkmcp.ClientSession

		BeforeEach(func() {
			server, err := mcp.NewServer(mcp.Config{Retriever: rtr, Reviewer: reviewer, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			cs = connect(server)
		})

		It("describes the diff and returns matching guidelines", func() {
			res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
				Name: "review_diff",
				Arguments: map[string]any{
					"diff":      "+<img src=\"logo.png\" alt=\"Company logo\">",
					"file_name": "index.html",
					"k":         1,
				},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			var out mcp.ReviewOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.FileName).To(Equal("index.html"))
			Expect(out.Description).To(Equal(summarizer.Response))
			Expect(out.Results).To(HaveLen(1))
			Expect(out.Results[0].RefID).To(Equal("1.1.1"))
			Expect(summarizer.LastPrompt()).To(ContainSubstring("index.html"))
		})

		It("reports a missing diff as a tool error", func() {
			res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "review_diff",
				Arguments: map[string]any{"file_name": "index.html"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})

		It("rejects a negative k", func() {
			res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
				Name:      "review_diff",
				Arguments: map[string]any{"diff": "+<img src=\"a.png\">", "k": -1},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(summarizer.LastPrompt()).To(BeEmpty())
		})
	})

	Describe("index_status", func() {
		It("reports a ready index after a search", func() {
			server, err := mcp.NewServer(mcp.Config{Retriever: rtr, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			cs := connect(server)

			Expect(rtr.EnsureReady(ctx)).To(Succeed())

			res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{Name: "index_status", Arguments: map[string]any{}})
			Expect(err).NotTo(HaveOccurred())

			var out mcp.StatusOutput
			Expect(json.Unmarshal([]byte(textOf(res)), &out)).To(Succeed())
			Expect(out.State).To(Equal("ready"))
			Expect(out.Collection).To(Equal("guidelines"))
			Expect(out.Documents).To(BeNumerically(">=", 2))
		})
	})
})
