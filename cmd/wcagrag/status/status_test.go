package statuscmder_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	indexcmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/index"
	"github.com/papercomputeco/wcagrag/cmd/wcagrag/stack"
	statuscmder "github.com/papercomputeco/wcagrag/cmd/wcagrag/status"
)

const corpus = `{"guidelines": [
	{"name": "1.1.1 Non-text Content", "description": "All non-text content that is presented to the user has a text alternative."},
	{"name": "2.1.1 Keyboard", "description": "All functionality of the content is operable through a keyboard interface."}
]}`

var _ = Describe("status command", func() {
	var (
		dir string
		out *bytes.Buffer
	)

	run := func(args ...string) error {
		root := &cobra.Command{Use: "wcagrag", SilenceUsage: true, SilenceErrors: true}
		stack.AddPersistentFlags(root)
		root.AddCommand(statuscmder.NewStatusCmd(), indexcmder.NewIndexCmd())
		root.SetOut(out)

		root.SetArgs(append(args,
			"--config-dir", dir,
			"--corpus", filepath.Join(dir, "wcag.json"),
			"--vector-store-provider", "sqlite",
			"--vector-store-path", filepath.Join(dir, "vectors.db"),
			"--embedding-provider", "hash",
			"--embedding-dimensions", "64",
		))
		return root.Execute()
	}

	report := func() map[string]any {
		var r map[string]any
		Expect(json.Unmarshal(out.Bytes(), &r)).To(Succeed())
		return r
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
		Expect(os.WriteFile(filepath.Join(dir, "wcag.json"), []byte(corpus), 0o644)).To(Succeed())
	})

	It("reports an unbuilt index without building it", func() {
		Expect(run("status", "--json")).To(Succeed())

		r := report()
		index := r["index"].(map[string]any)
		Expect(index["state"]).To(Equal("uninitialized"))
		Expect(index["documents"]).To(BeNumerically("==", 0))
		Expect(r).NotTo(HaveKey("last_build"))
		Expect(r["vector_store"]).To(ContainSubstring("sqlite"))
	})

	It("reports documents and the last build after indexing", func() {
		Expect(run("index")).To(Succeed())
		out.Reset()

		Expect(run("status", "--json")).To(Succeed())

		r := report()
		index := r["index"].(map[string]any)
		Expect(index["documents"]).To(BeNumerically(">=", 2))
		Expect(r["last_build"]).To(HaveKeyWithValue("guidelines", BeNumerically("==", 2)))
	})

	It("prints a readable summary", func() {
		Expect(run("status")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Collection"))
		Expect(out.String()).To(ContainSubstring("never"))
	})
})
