package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rescale/imghub/internal/localfs"
	"github.com/rescale/imghub/internal/progress"
	"github.com/rescale/imghub/internal/util/filter"
)

func newUploadCmd() *cobra.Command {
	var (
		progressMode string
		output       string
		recursive    bool
		include      string
		exclude      string
	)

	cmd := &cobra.Command{
		Use:   "upload <image> [image...]",
		Short: "Submit images for analysis in a single request",
		Long: `Select the given images and submit them in one multipart request.

Directory arguments are expanded to the files they contain; pass
--recursive to descend into subdirectories and --include/--exclude to
filter by name. Non-image files are skipped. The outcome, success or failure, is recorded
in history. A failed submission exits non-zero.

Examples:
  imghub upload front.jpg side.jpg
  imghub upload --progress files -o json *.png
  imghub upload -r --include "*.jpg,*.png" --exclude "thumb_*" ./shots`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validFormat(output); err != nil {
				return err
			}
			if err := validProgressMode(progressMode); err != nil {
				return err
			}

			a, err := newApp(appOptions{
				withOrchestrator: true,
				progressMode:     progress.Mode(progressMode),
				notifyOut:        cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer a.Close()

			opts := localfs.CollectOptions{
				Recursive: recursive,
				Filter: filter.Config{
					Include: filter.ParsePatternList(include),
					Exclude: filter.ParsePatternList(exclude),
				},
			}
			added := addPaths(a.orch.Selection(), args, opts, cmd.ErrOrStderr())
			if len(added) == 0 {
				return errors.New("no images to upload")
			}

			outcome, err := a.orch.Submit(GetContext(cmd))
			if err != nil {
				return err
			}
			if err := renderOutcome(cmd.OutOrStdout(), output, outcome.Result, outcome.Entries, a.resolver); err != nil {
				return err
			}
			if !outcome.Result.OK() {
				return fmt.Errorf("upload failed: %s", outcome.Result.Reason)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&progressMode, "progress", string(progress.ModeAuto), "Progress display: auto, bar, files, events, none")
	cmd.Flags().StringVarP(&output, "output", "o", formatText, "Output format: text, json, yaml")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories of directory arguments")
	cmd.Flags().StringVar(&include, "include", "", "Comma-separated name patterns to include from directories (e.g. \"*.jpg,*.png\")")
	cmd.Flags().StringVar(&exclude, "exclude", "", "Comma-separated name patterns to exclude from directories")

	return cmd
}

func validProgressMode(m string) error {
	switch progress.Mode(m) {
	case progress.ModeAuto, progress.ModeBar, progress.ModeFiles, progress.ModeEvents, progress.ModeNone:
		return nil
	}
	return fmt.Errorf("unknown progress mode %q", m)
}
