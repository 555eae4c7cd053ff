package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zunkfs/zunkdb/chunk"
)

func putCommand(env *cliEnv) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "put FILE...",
		Short: "split files into chunks, store them, and print one digest per chunk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				workers = 1
			}
			for _, path := range args {
				digests, err := putFile(cmd.Context(), env, path, workers)
				if err != nil {
					return err
				}
				for i, digest := range digests {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/%d\n", digest, path, i)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "chunk uploads in flight per file")
	return cmd
}

func putFile(ctx context.Context, env *cliEnv, path string, workers int) ([]chunk.Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	// Chunks are fixed size on the wire; a short trailing chunk is zero
	// padded.
	n := (len(data) + chunk.Size - 1) / chunk.Size
	padded := make([]byte, n*chunk.Size)
	copy(padded, data)

	digests := make([]chunk.Digest, n)
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	for i := 0; i < n; i++ {
		i := i
		piece := padded[i*chunk.Size : (i+1)*chunk.Size]
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			digest := chunk.Sum(piece)
			if err := env.client.WriteChunk(gctx, piece, digest); err != nil {
				return fmt.Errorf("%s chunk %d: %w", path, i, err)
			}
			digests[i] = digest
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}
