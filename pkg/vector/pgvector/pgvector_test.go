package pgvector_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/wcagrag/pkg/logger"
	"github.com/papercomputeco/wcagrag/pkg/vector"
	"github.com/papercomputeco/wcagrag/pkg/vector/pgvector"
	"github.com/papercomputeco/wcagrag/pkg/vector/vectortest"
)

var _ = Describe("Driver", func() {
	It("should require a connection string", func() {
		_, err := pgvector.NewDriver(context.Background(), "", logger.Nop())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("connection string is required"))
	})

	Describe("vector literals", func() {
		It("formats and parses pgvector text", func() {
			Expect(pgvector.FormatVector([]float32{1, 0.5, -2})).To(Equal("[1,0.5,-2]"))

			v, err := pgvector.ParseVector("[1,0.5,-2]")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal([]float32{1, 0.5, -2}))
		})

		It("rejects malformed text", func() {
			_, err := pgvector.ParseVector("1,2")
			Expect(err).To(HaveOccurred())

			_, err = pgvector.ParseVector("[1,x]")
			Expect(err).To(HaveOccurred())
		})
	})

	// Runs against a live database when WCAGRAG_TEST_POSTGRES_DSN is set.
	Describe("Against PostgreSQL", func() {
		dsn := os.Getenv("WCAGRAG_TEST_POSTGRES_DSN")

		BeforeEach(func() {
			if dsn == "" {
				Skip("WCAGRAG_TEST_POSTGRES_DSN not set")
			}
		})

		vectortest.DescribeDriver(func() vector.Driver {
			ctx := context.Background()
			driver, err := pgvector.NewDriver(ctx, dsn, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			for _, name := range []string{"guidelines", "guidelines__staging", "nope"} {
				Expect(driver.DropCollection(ctx, name)).To(Succeed())
			}
			return driver
		})
	})
})
