package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/debemdeboas/postdeck/internal/model"
)

func newSessionCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and edit the draft session",
	}

	cmd.AddCommand(
		newSessionShowCommand(cc),
		newSessionNewCommand(cc),
		newSessionOpenCommand(cc),
		newSessionTitleCommand(cc),
		newSessionDescriptionCommand(cc),
		newSessionAddCommand(cc),
		newSessionReplaceCommand(cc),
		newSessionCropCommand(cc),
		newSessionThumbnailCommand(cc),
		newSessionRemoveCommand(cc),
		newSessionReorderCommand(cc),
		newSessionRandomizeCommand(cc),
		newSessionValidateCommand(cc),
		newSessionSaveCommand(cc),
		newSessionClearCommand(cc),
	)
	return cmd
}

func newSessionShowCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the open draft and its assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			post := a.Store.Post()
			out := cmd.OutOrStdout()
			if post == nil {
				fmt.Fprintln(out, "No draft open")
				return nil
			}

			fmt.Fprintf(out, "Post:        %s (%s)\n", post.ID, post.Status)
			fmt.Fprintf(out, "Title:       %s\n", post.Title)
			fmt.Fprintf(out, "Description: %s\n", post.Description)
			fmt.Fprintf(out, "Pending:     %s\n", yesNo(hasPendingChanges(post)))

			active := post.ActiveAssets()
			if len(active) == 0 {
				fmt.Fprintln(out, "No assets")
			} else {
				rows := make([][]string, 0, len(active))
				for _, asset := range active {
					rows = append(rows, []string{
						strconv.Itoa(asset.SortOrder),
						string(asset.ID),
						string(asset.Type),
						asset.Status.String(),
						yesNo(asset.EditSettings != nil),
						asset.URL,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "ID", "Type", "Status", "Edited", "URL"},
					rows,
					[]columnAlignment{alignRight},
				))
			}

			if deleted := len(post.Assets) - len(active); deleted > 0 {
				fmt.Fprintf(out, "%d asset(s) pending deletion\n", deleted)
			}
			return nil
		},
	}
}

func newSessionNewCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start an empty draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			if err := cc.checkDiscard(a.Store.Post()); err != nil {
				return err
			}
			ok, err := a.Store.CreateNewPost()
			if err != nil {
				return err
			}
			if !ok {
				return errDiscardDeclined
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Started a new draft")
			return nil
		},
	}
}

func newSessionOpenCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open <post-id>",
		Short: "Open a saved post for editing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			post, err := a.Metadata.GetPost(cmd.Context(), model.PostID(args[0]))
			if err != nil {
				return err
			}
			if current := a.Store.Post(); current == nil || current.ID != post.ID {
				if err := cc.checkDiscard(current); err != nil {
					return err
				}
			}
			ok, err := a.Store.SetPost(post)
			if err != nil {
				return err
			}
			if !ok {
				return errDiscardDeclined
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s with %d asset(s)\n", post.ID, len(post.Assets))
			return nil
		},
	}
}

func newSessionTitleCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "title <text>",
		Short: "Set the draft title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			return a.Store.UpdateTitle(args[0])
		},
	}
}

func newSessionDescriptionCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "description <text>",
		Short: "Set the draft description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			return a.Store.UpdateDescription(args[0])
		},
	}
}

func newSessionAddCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Attach images or a video to the draft",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			blobs := make([]model.Blob, 0, len(args))
			for _, path := range args {
				blob, err := readBlob(path)
				if err != nil {
					return err
				}
				blobs = append(blobs, blob)
			}

			ids, err := a.Store.AddAssets(blobs...)
			if err != nil {
				return err
			}
			for i, id := range ids {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, blobs[i].Name)
			}
			return nil
		},
	}
}

func newSessionReplaceCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "replace <asset-id> <file>",
		Short: "Replace the content of an asset and reset its edits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			blob, err := readBlob(args[1])
			if err != nil {
				return err
			}
			return a.Store.UpdateAssetFile(model.AssetID(args[0]), blob, nil)
		},
	}
}

func newSessionCropCommand(cc *commandContext) *cobra.Command {
	var zoom float64

	cmd := &cobra.Command{
		Use:   "crop <asset-id> <x,y,width,height>",
		Short: "Set the crop rectangle of an image, in source pixels",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			crop, err := parseCrop(args[1])
			if err != nil {
				return err
			}
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}

			id := model.AssetID(args[0])
			settings := model.EditSettings{}
			if post := a.Store.Post(); post != nil {
				if asset, _ := post.Asset(id); asset != nil && asset.EditSettings != nil {
					settings = asset.EditSettings.Clone()
				}
			}
			settings.Crop = crop
			settings.DisplayWidth, settings.DisplayHeight = 0, 0
			if zoom > 0 {
				settings.Zoom = zoom
			}
			return a.Store.UpdateEditSettings(id, settings)
		},
	}

	cmd.Flags().Float64Var(&zoom, "zoom", 0, "Zoom factor recorded with the crop")
	return cmd
}

func newSessionThumbnailCommand(cc *commandContext) *cobra.Command {
	var offset float64

	cmd := &cobra.Command{
		Use:   "thumbnail <video-asset-id> <image>",
		Short: "Set the thumbnail of a video asset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			blob, err := readBlob(args[1])
			if err != nil {
				return err
			}
			return a.Store.SetVideoThumbnail(model.AssetID(args[0]), blob, offset)
		},
	}

	cmd.Flags().Float64Var(&offset, "offset", 0, "Offset in seconds of the frame the thumbnail shows")
	return cmd
}

func newSessionRemoveCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <asset-id>",
		Short: "Remove an asset from the draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			return a.Store.RemoveAsset(model.AssetID(args[0]))
		},
	}
}

func newSessionReorderCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <asset-id>...",
		Short: "Set the display order; every active asset must be listed once",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			ids := make([]model.AssetID, len(args))
			for i, arg := range args {
				ids[i] = model.AssetID(arg)
			}
			return a.Store.ReorderAssets(ids)
		},
	}
}

func newSessionRandomizeCommand(cc *commandContext) *cobra.Command {
	var seed uint64

	cmd := &cobra.Command{
		Use:   "randomize [asset-id]",
		Short: "Draw random adjustments for one image, or for every image",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			r := newRand(cmd, seed)

			if len(args) == 1 {
				return a.Store.RandomizeAsset(model.AssetID(args[0]), r)
			}
			n, err := a.Store.RandomizeAll(r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Randomized %d image(s)\n", n)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for reproducible adjustments")
	return cmd
}

func newSessionValidateCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that the draft can be published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			if err := a.Store.ValidateForPublish(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Draft is ready to publish")
			return nil
		},
	}
}

func newSessionSaveCommand(cc *commandContext) *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Sync the draft to storage and the metadata store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			saved, err := a.Reconciler.Save(cmd.Context(), a.Store, model.UserID(owner))
			if err != nil {
				return fmt.Errorf("save draft: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved post %s with %d asset(s)\n", saved.ID, len(saved.Assets))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner recorded on a newly created post")
	return cmd
}

func newSessionClearCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Close the draft and delete its persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cc.ensureApp(cmd)
			if err != nil {
				return err
			}
			if err := cc.checkDiscard(a.Store.Post()); err != nil {
				return err
			}
			return a.Store.Clear(cmd.Context())
		},
	}
}

// hasPendingChanges reports whether post holds work that only exists in the
// session: an unsaved post with content, or assets that differ from storage.
// A reloaded Store is never dirty, so this is what guards discards across
// invocations.
func hasPendingChanges(post *model.DraftPost) bool {
	if post == nil {
		return false
	}
	if !post.IsSaved() && (post.Title != "" || post.Description != "" || len(post.Assets) > 0) {
		return true
	}
	for _, a := range post.Assets {
		if a.Status != model.StatusUnchanged {
			return true
		}
	}
	return false
}

// checkDiscard refuses to drop pending changes unless --force was given.
func (c *commandContext) checkDiscard(post *model.DraftPost) error {
	if hasPendingChanges(post) && !*c.force {
		return errDiscardDeclined
	}
	return nil
}

// newRand seeds from --seed when given, otherwise from the process generator.
func newRand(cmd *cobra.Command, seed uint64) *rand.Rand {
	if !cmd.Flags().Changed("seed") {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func parseCrop(s string) (*model.Crop, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid crop %q: want x,y,width,height", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid crop %q: %w", s, err)
		}
		v[i] = f
	}
	if v[2] <= 0 || v[3] <= 0 {
		return nil, fmt.Errorf("invalid crop %q: width and height must be positive", s)
	}
	return &model.Crop{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}
