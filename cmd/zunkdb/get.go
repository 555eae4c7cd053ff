package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zunkfs/zunkdb/chunk"
)

func getCommand(env *cliEnv) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get DIGEST...",
		Short: "fetch chunks by digest and write their raw bytes in argument order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := io.Writer(os.Stdout)
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			for _, arg := range args {
				digest, err := chunk.ParseDigest(arg)
				if err != nil {
					return err
				}
				data, err := env.client.ReadChunk(cmd.Context(), digest)
				if err != nil {
					return err
				}
				if _, err := out.Write(data); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write chunk data to this file instead of stdout")
	return cmd
}
