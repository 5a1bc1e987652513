// Command viewer drives the full client pipeline against a running
// Rockly API: upload a photo, request 3D generation, wait for the
// geometry check, assemble the mesh and report what the viewport would
// show.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rockly/rockly/internal/mesh"
	"github.com/rockly/rockly/internal/pipeline"
	"github.com/rockly/rockly/internal/viewer"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8000", "Rockly API base URL")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: viewer [-server URL] <image-file>")
	}
	path := flag.Arg(0)

	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open image: %v", err)
	}
	defer f.Close()

	api := pipeline.NewAPIClient(*serverURL, nil)
	p := pipeline.NewPipeline(api)
	defer p.Close()

	settled := make(chan pipeline.Snapshot, 1)
	p.OnChange(func(snap pipeline.Snapshot) {
		log.Printf("Pipeline state: %s", snap.State)
		switch snap.State {
		case pipeline.StateReady:
			if snap.Validated {
				settled <- snap
			}
		case pipeline.StateUploadError, pipeline.StateGenerationError:
			settled <- snap
		}
	})

	ctx := context.Background()

	log.Printf("Uploading %s...", path)
	if err := p.Upload(ctx, pipeline.File{Name: filepath.Base(path), Content: f}); err != nil {
		report(p.Snapshot())
		os.Exit(1)
	}

	upload := p.Snapshot().Upload
	log.Printf("Uploaded: file_id=%s size=%d", upload.FileID, upload.Size)

	log.Println("Requesting 3D generation...")
	if err := p.Generate(ctx); err != nil {
		report(p.Snapshot())
		os.Exit(1)
	}

	// Wait out the validation delay.
	var final pipeline.Snapshot
	select {
	case final = <-settled:
	case <-time.After(30 * time.Second):
		log.Fatalf("Timed out waiting for geometry validation")
	}

	report(final)
	if final.State != pipeline.StateReady {
		os.Exit(1)
	}
}

// report assembles the mesh (when one is available) and prints what the
// viewport would display.
func report(snap pipeline.Snapshot) {
	shell := viewer.NewShell()

	var m *mesh.Mesh
	if snap.Validated && snap.Generation != nil {
		assembled, err := mesh.Assemble(&snap.Generation.ModelData)
		if err != nil {
			log.Printf("Mesh assembly failed: %v", err)
		} else {
			m = assembled
		}
	}

	loading := snap.State == pipeline.StateUploading ||
		snap.State == pipeline.StateGenerating ||
		snap.State == pipeline.StateValidating
	shell.Update(loading, snap.Err, m)

	switch shell.View() {
	case viewer.ViewModel:
		summary := snap.Generation.Summary
		log.Printf("Viewport: model view")
		log.Printf("  vertices: %d, triangles: %d", m.VertexCount(), m.TriangleCount())
		log.Printf("  vertex colors: %v, UVs: %v", m.VertexColors, len(m.UVs) > 0)
		log.Printf("  bbox: %v .. %v", summary.BBoxMin, summary.BBoxMax)
		log.Printf("  quality: %.3f (%s)", snap.Generation.QualityMetrics.OverallScore, summary.MeshQuality)
		log.Printf("  camera distance: %.1f (bounds %.1f..%.1f)",
			shell.Camera.Radius(), viewer.MinOrbitRadius, viewer.MaxOrbitRadius)
	case viewer.ViewError:
		log.Printf("Viewport: error view: %s", shell.ErrorMessage())
	default:
		log.Printf("Viewport: loading view")
	}
}
