package main

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vkngwrapper/vulkray/vulkan"
)

// Assets is everything read from disk before the device exists.
type Assets struct {
	Shaders vulkan.Shaders
	Mesh    Mesh
}

// LoadAssets reads both shader stages and the mesh concurrently. Without a
// mesh path the test cube is used.
func LoadAssets(ctx context.Context, cfg Config) (Assets, error) {
	var assets Assets
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		assets.Shaders.Vertex, err = readFile(ctx, cfg.VertexShader)
		return err
	})
	g.Go(func() error {
		var err error
		assets.Shaders.Fragment, err = readFile(ctx, cfg.FragmentShader)
		return err
	})
	g.Go(func() error {
		if cfg.Mesh == "" {
			assets.Mesh = Cube()
			return nil
		}
		var err error
		assets.Mesh, err = loadMesh(cfg.Mesh, cfg.Material)
		return err
	})

	if err := g.Wait(); err != nil {
		return Assets{}, err
	}
	return assets, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

func loadMesh(meshPath, mtlPath string) (Mesh, error) {
	meshFile, err := os.Open(meshPath)
	if err != nil {
		return Mesh{}, errors.Wrap(err, "open mesh")
	}
	defer meshFile.Close()

	var mtl io.Reader
	if mtlPath != "" {
		matFile, err := os.Open(mtlPath)
		if err != nil {
			return Mesh{}, errors.Wrap(err, "open material")
		}
		defer matFile.Close()
		mtl = matFile
	}

	mesh, err := DecodeMesh(meshFile, mtl)
	if err != nil {
		return Mesh{}, errors.Wrapf(err, "load %s", meshPath)
	}
	return mesh, nil
}
