package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/wcagrag/internal/dagger"
)

// Build and return directory of go binaries
func (w *Wcagrag) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// sqlite-vec needs cgo, so each architecture builds natively on its own
	// platform instead of cross compiling.
	platforms := []dagger.Platform{"linux/amd64", "linux/arm64"}

	outputs := dag.Directory()

	for _, platform := range platforms {
		path := strings.ReplaceAll(string(platform), "/", "-") + "/"

		build := dag.Container(dagger.ContainerOpts{Platform: platform}).
			From("golang:1.25-bookworm").
			WithExec([]string{"apt-get", "update"}).
			WithExec([]string{"apt-get", "install", "-y", "gcc", "libsqlite3-dev"}).
			WithEnvVariable("CGO_ENABLED", "1").
			WithMountedCache("/go/pkg/mod", dag.CacheVolume("go-mod-"+path)).
			WithMountedCache("/root/.cache/go-build", dag.CacheVolume("go-build-"+path)).
			WithDirectory("/src", w.Source).
			WithWorkdir("/src").
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/wcagrag"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (w *Wcagrag) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/wcagrag/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/wcagrag/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/wcagrag/pkg/utils.Buildtime=%s'", buildtime),
	}

	return w.Build(ctx, strings.Join(ldflags, " "))
}
