package cli

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

func newGenerateCmd() *cobra.Command {
	var (
		prompt     string
		imagePath  string
		framework  string
		quality    string
		responsive bool
		accessible bool
		darkMode   bool
		userID     string
		outFile    string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate component code",
		Long:  `Generate component code from a text prompt, a design image, or both`,
		Example: `  # Generate a React component from a prompt
  pixelforge generate --prompt "a login form with two fields"

  # Generate Vue code from a design screenshot
  pixelforge generate --image mockup.png --framework vue

  # Write the generated code to a file
  pixelforge generate --prompt "a pricing table" --out pricing.jsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prompt == "" && imagePath == "" {
				return errors.Newf(errors.CodeRequestInvalid, errors.ErrorTypeValidation, 400,
					"either --prompt or --image is required")
			}

			req := types.GenerationRequest{
				Prompt:                prompt,
				Framework:             framework,
				Quality:               quality,
				ResponsiveDesign:      responsive,
				AccessibilityFeatures: accessible,
				DarkModeSupport:       darkMode,
				UserID:                userID,
			}

			if imagePath != "" {
				raw, err := os.ReadFile(imagePath)
				if err != nil {
					return errors.Wrap(err, errors.CodeRequestInvalid, "read image file")
				}
				req.ImageData = base64.StdEncoding.EncodeToString(raw)
			}

			var result types.GenerationResult
			if err := postJSON("/api/v1/generate", &req, &result); err != nil {
				return err
			}

			if outputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), result)
			}

			if outFile != "" {
				if err := os.WriteFile(outFile, []byte(result.Code), 0o644); err != nil {
					return errors.Wrap(err, errors.CodeInternal, "write output file")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (model %s, quality %.2f, cached %v)\n",
					outFile, result.ModelID, result.QualityScore, result.Cached)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Code)
			return nil
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "natural-language description of the component")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to a design screenshot or mockup")
	cmd.Flags().StringVarP(&framework, "framework", "f", "react", "target framework (react|vue|svelte|html)")
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "quality tier (draft|standard|premium)")
	cmd.Flags().BoolVar(&responsive, "responsive", false, "require a responsive layout")
	cmd.Flags().BoolVar(&accessible, "accessible", false, "require ARIA attributes and semantic markup")
	cmd.Flags().BoolVar(&darkMode, "dark-mode", false, "require light and dark color scheme support")
	cmd.Flags().StringVar(&userID, "user", "", "user id for rate limiting")
	cmd.Flags().StringVar(&outFile, "out", "", "write generated code to this file")

	return cmd
}
