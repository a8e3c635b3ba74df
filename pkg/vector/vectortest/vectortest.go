// Package vectortest holds shared Ginkgo specs that every vector.Driver
// implementation must pass.
package vectortest

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wcagrag/pkg/vector"
)

// Docs returns three small documents in a 3-dimensional space.
func Docs() []vector.Document {
	return []vector.Document{
		{
			ID:        "guideline_0_chunk_0",
			Content:   "alt text",
			Embedding: []float32{1, 0, 0},
			Metadata:  map[string]string{"ref_id": "1.1.1", "techniques": "G94|H37"},
		},
		{
			ID:        "guideline_1_chunk_0",
			Content:   "keyboard",
			Embedding: []float32{0, 1, 0},
			Metadata:  map[string]string{"ref_id": "2.1.1", "techniques": ""},
		},
		{
			ID:        "guideline_0_chunk_1",
			Content:   "image descriptions",
			Embedding: []float32{0.9, 0.1, 0},
			Metadata:  map[string]string{"ref_id": "1.1.1", "techniques": "G94|H37"},
		},
	}
}

// DescribeDriver registers the conformance specs. newDriver is called before
// each spec; the returned driver is closed after it.
func DescribeDriver(newDriver func() vector.Driver) {
	Describe("vector.Driver conformance", func() {
		var (
			ctx context.Context
			d   vector.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			d = newDriver()
		})

		AfterEach(func() {
			if d != nil {
				Expect(d.Close()).To(Succeed())
				d = nil
			}
		})

		It("creates and reports collections", func() {
			ok, err := d.HasCollection(ctx, "guidelines")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			Expect(d.CreateCollection(ctx, "guidelines", 3)).To(Succeed())

			ok, err = d.HasCollection(ctx, "guidelines")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			err = d.CreateCollection(ctx, "guidelines", 3)
			Expect(errors.Is(err, vector.ErrCollectionExists)).To(BeTrue())
		})

		It("returns nearest documents in ascending cosine distance", func() {
			Expect(d.CreateCollection(ctx, "guidelines", 3)).To(Succeed())
			Expect(d.Add(ctx, "guidelines", Docs())).To(Succeed())

			results, err := d.Query(ctx, "guidelines", []float32{1, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))

			Expect(results[0].ID).To(Equal("guideline_0_chunk_0"))
			Expect(results[0].Distance).To(BeNumerically("~", 0, 1e-4))
			Expect(results[0].Content).To(Equal("alt text"))
			Expect(results[0].Metadata).To(HaveKeyWithValue("ref_id", "1.1.1"))
			Expect(results[0].Metadata).To(HaveKeyWithValue("techniques", "G94|H37"))

			Expect(results[1].ID).To(Equal("guideline_0_chunk_1"))
			Expect(results[2].ID).To(Equal("guideline_1_chunk_0"))
			Expect(results[2].Distance).To(BeNumerically("~", 1, 1e-4))

			for i := 1; i < len(results); i++ {
				Expect(results[i].Distance).To(BeNumerically(">=", results[i-1].Distance))
			}
		})

		It("limits results to topK", func() {
			Expect(d.CreateCollection(ctx, "guidelines", 3)).To(Succeed())
			Expect(d.Add(ctx, "guidelines", Docs())).To(Succeed())

			results, err := d.Query(ctx, "guidelines", []float32{0, 1, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("guideline_1_chunk_0"))
		})

		It("overwrites documents with the same id", func() {
			Expect(d.CreateCollection(ctx, "guidelines", 3)).To(Succeed())
			Expect(d.Add(ctx, "guidelines", Docs())).To(Succeed())

			updated := Docs()[1]
			updated.Content = "keyboard updated"
			Expect(d.Add(ctx, "guidelines", []vector.Document{updated})).To(Succeed())

			n, err := d.Count(ctx, "guidelines")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))

			docs, err := d.Get(ctx, "guidelines", []string{"guideline_1_chunk_0", "missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Content).To(Equal("keyboard updated"))
			Expect(docs[0].Embedding).To(HaveLen(3))
		})

		It("rejects embeddings of the wrong size", func() {
			Expect(d.CreateCollection(ctx, "guidelines", 3)).To(Succeed())
			err := d.Add(ctx, "guidelines", []vector.Document{{ID: "x", Embedding: []float32{1, 0}}})
			Expect(errors.Is(err, vector.ErrDimensionMismatch)).To(BeTrue())
		})

		It("reports missing collections", func() {
			_, err := d.Query(ctx, "absent", []float32{1, 0, 0}, 3)
			Expect(errors.Is(err, vector.ErrCollectionNotFound)).To(BeTrue())

			_, err = d.Count(ctx, "absent")
			Expect(errors.Is(err, vector.ErrCollectionNotFound)).To(BeTrue())

			err = d.Add(ctx, "absent", Docs())
			Expect(errors.Is(err, vector.ErrCollectionNotFound)).To(BeTrue())
		})

		It("drops collections idempotently", func() {
			Expect(d.CreateCollection(ctx, "guidelines", 3)).To(Succeed())
			Expect(d.DropCollection(ctx, "guidelines")).To(Succeed())
			Expect(d.DropCollection(ctx, "guidelines")).To(Succeed())

			ok, err := d.HasCollection(ctx, "guidelines")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("promotes a staging collection over an existing one", func() {
			Expect(d.CreateCollection(ctx, "guidelines", 3)).To(Succeed())
			Expect(d.Add(ctx, "guidelines", Docs()[:1])).To(Succeed())

			Expect(d.CreateCollection(ctx, "guidelines__staging", 3)).To(Succeed())
			Expect(d.Add(ctx, "guidelines__staging", Docs())).To(Succeed())

			Expect(d.Promote(ctx, "guidelines__staging", "guidelines")).To(Succeed())

			n, err := d.Count(ctx, "guidelines")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))

			ok, err := d.HasCollection(ctx, "guidelines__staging")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())

			results, err := d.Query(ctx, "guidelines", []float32{0, 1, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].ID).To(Equal("guideline_1_chunk_0"))
		})

		It("promotes when no collection exists yet", func() {
			Expect(d.CreateCollection(ctx, "guidelines__staging", 3)).To(Succeed())
			Expect(d.Add(ctx, "guidelines__staging", Docs())).To(Succeed())
			Expect(d.Promote(ctx, "guidelines__staging", "guidelines")).To(Succeed())

			ok, err := d.HasCollection(ctx, "guidelines")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("fails to promote a missing staging collection", func() {
			err := d.Promote(ctx, "nope", "guidelines")
			Expect(errors.Is(err, vector.ErrCollectionNotFound)).To(BeTrue())
		})
	})
}
