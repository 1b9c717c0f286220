package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/postdeck/internal/model"
	"github.com/debemdeboas/postdeck/internal/variant"
)

func newRenderCommand(cc *commandContext) *cobra.Command {
	var width, height int
	var cropFlag string
	var random bool
	var seed uint64

	cmd := &cobra.Command{
		Use:   "render <source-image> <output.jpg>",
		Short: "Render one image variant without touching the session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			if width <= 0 {
				width = cfg.Variant.Width
			}
			if height <= 0 {
				height = cfg.Variant.Height
			}

			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			settings := model.EditSettings{}
			if cropFlag != "" {
				if settings.Crop, err = parseCrop(cropFlag); err != nil {
					return err
				}
			}

			pipeline := variant.New(width, height)
			if random {
				r := newRand(cmd, seed)
				settings.Adjustments = variant.RandomAdjustments(r)
				pipeline.Rand = r
			}

			out, err := pipeline.Render(src, settings)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d variant to %s\n", width, height, args[1])
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Output width (default variant.width)")
	cmd.Flags().IntVar(&height, "height", 0, "Output height (default variant.height)")
	cmd.Flags().StringVar(&cropFlag, "crop", "", "Crop rectangle x,y,width,height in source pixels")
	cmd.Flags().BoolVar(&random, "random", false, "Apply random adjustments")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for --random")
	return cmd
}
