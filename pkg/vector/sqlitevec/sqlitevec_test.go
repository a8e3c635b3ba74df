package sqlitevec_test

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/wcagrag/pkg/logger"
	"github.com/papercomputeco/wcagrag/pkg/vector"
	"github.com/papercomputeco/wcagrag/pkg/vector/sqlitevec"
	"github.com/papercomputeco/wcagrag/pkg/vector/vectortest"
)

var _ = Describe("SQLiteVecDriver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	Describe("NewSQLiteVecDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})

		It("should refuse collections without dimensions", func() {
			driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			Expect(driver.CreateCollection(context.Background(), "c", 0)).NotTo(Succeed())
		})
	})

	vectortest.DescribeDriver(func() vector.Driver {
		driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: ":memory:"}, log)
		Expect(err).NotTo(HaveOccurred())
		return driver
	})

	Describe("Persistence", func() {
		It("should keep promoted collections across reopen", func() {
			ctx := context.Background()
			path := filepath.Join(GinkgoT().TempDir(), "nested", "index.db")

			driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: path}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.CreateCollection(ctx, "staging", 3)).To(Succeed())
			Expect(driver.Add(ctx, "staging", vectortest.Docs())).To(Succeed())
			Expect(driver.Promote(ctx, "staging", "guidelines")).To(Succeed())
			Expect(driver.Close()).To(Succeed())

			driver, err = sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: path}, log)
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			n, err := driver.Count(ctx, "guidelines")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(3))

			results, err := driver.Query(ctx, "guidelines", []float32{1, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Metadata).To(HaveKeyWithValue("ref_id", "1.1.1"))
		})

		It("should report corrupt metadata instead of dropping it", func() {
			ctx := context.Background()
			path := filepath.Join(GinkgoT().TempDir(), "index.db")

			driver, err := sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: path}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.CreateCollection(ctx, "guidelines", 3)).To(Succeed())
			Expect(driver.Add(ctx, "guidelines", vectortest.Docs())).To(Succeed())
			Expect(driver.Close()).To(Succeed())

			db, err := sql.Open("sqlite3", path)
			Expect(err).NotTo(HaveOccurred())
			var table string
			Expect(db.QueryRowContext(ctx,
				`SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'vec_docs_%'`,
			).Scan(&table)).To(Succeed())
			_, err = db.ExecContext(ctx, `UPDATE `+table+` SET metadata = '{"ref_id": 7'`)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Close()).To(Succeed())

			driver, err = sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{DBPath: path}, log)
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			_, err = driver.Query(ctx, "guidelines", []float32{1, 0, 0}, 1)
			Expect(err).To(MatchError(ContainSubstring("decoding metadata")))

			_, err = driver.Get(ctx, "guidelines", []string{vectortest.Docs()[0].ID})
			Expect(err).To(MatchError(ContainSubstring("decoding metadata")))
		})
	})
})
