package indexcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	indexcmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/index"
	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	"github.com/papercomputeco/wcagrag/pkg/dotdir"
)

const corpus = `{"guidelines": [
	{"name": "1.1.1 Non-text Content", "description": "All non-text content that is presented to the user has a text alternative."},
	{"name": "2.1.1 Keyboard", "description": "All functionality of the content is operable through a keyboard interface."}
]}`

var _ = Describe("index command", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	run := func(extra ...string) error {
		root := &cobra.Command{Use: "wcagrag", SilenceUsage: true, SilenceErrors: true}
		stack.AddPersistentFlags(root)
		root.AddCommand(indexcmder.NewIndexCmd())
		root.SetOut(out)

		args := []string{
			"index",
			"--config-dir", dir,
			"--corpus", filepath.Join(dir, "wcag.json"),
			"--vector-store-provider", "sqlite",
			"--vector-store-path", filepath.Join(dir, "vectors.db"),
			"--embedding-provider", "hash",
			"--embedding-dimensions", "64",
		}
		root.SetArgs(append(args, extra...))
		return root.Execute()
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
		Expect(os.WriteFile(filepath.Join(dir, "wcag.json"), []byte(corpus), 0o644)).To(Succeed())
	})

	It("builds the collection and records the build", func() {
		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("2 guidelines"))

		lb, err := dotdir.NewManager().LoadLastBuild(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(lb).NotTo(BeNil())
		Expect(lb.Guidelines).To(Equal(2))
		Expect(lb.Dimensions).To(Equal(64))
		Expect(lb.VectorStore).To(Equal("sqlite"))
	})

	It("leaves an existing collection alone without --force", func() {
		Expect(run()).To(Succeed())
		out.Reset()

		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("already exists"))
	})

	It("rebuilds with --force", func() {
		Expect(run()).To(Succeed())
		out.Reset()

		Expect(run("--force")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("2 guidelines"))
	})

	It("drops the collection and forgets the recorded build", func() {
		Expect(run()).To(Succeed())
		out.Reset()

		Expect(run("--drop")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Dropped"))

		lb, err := dotdir.NewManager().LoadLastBuild(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(lb).To(BeNil())

		out.Reset()
		Expect(run()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("2 guidelines"))
	})

	It("refuses --force together with --drop", func() {
		Expect(run("--force", "--drop")).To(HaveOccurred())
	})

	It("fails on a missing corpus", func() {
		Expect(os.Remove(filepath.Join(dir, "wcag.json"))).To(Succeed())
		Expect(run()).To(HaveOccurred())
	})
})
