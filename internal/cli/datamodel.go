package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vbsocial/vbsocial/internal/generate"
)

func (a *App) datamodelCmd() *cobra.Command {
	var (
		problemFile  string
		solutionFile string
		language     string
		output       string
		refFile      string
		refLanguage  string
	)

	cmd := &cobra.Command{
		Use:   "datamodel [problem text]",
		Short: "Generate a physics data model in a target language from a problem statement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			problem := ""
			if len(args) > 0 {
				problem = args[0]
			}
			if problemFile != "" {
				if problem != "" {
					return fmt.Errorf("pass either a problem argument or --file, not both")
				}
				data, err := os.ReadFile(problemFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", problemFile, err)
				}
				problem = string(data)
			}
			if strings.TrimSpace(problem) == "" {
				return fmt.Errorf("a problem statement is required, pass it as an argument or with --file")
			}

			req := generate.Request{
				Problem:  problem,
				Language: language,
			}
			if solutionFile != "" {
				data, err := os.ReadFile(solutionFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", solutionFile, err)
				}
				req.Solution = string(data)
			}
			if refFile != "" {
				data, err := os.ReadFile(refFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", refFile, err)
				}
				req.ReferenceCode = string(data)
				req.ReferenceLanguage = refLanguage
			}

			client := generate.New(a.http, generate.Options{
				APIKey:  a.cfg.OpenAIAPIKey,
				BaseURL: a.cfg.OpenAIBaseURL,
				Model:   a.cfg.OpenAIModel,
			})

			a.info("Generating " + language + " data model...")
			code, err := client.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}

			if output == "" {
				a.println(code)
				return nil
			}
			if err := os.WriteFile(output, []byte(code+"\n"), 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}

			a.success("wrote " + output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&problemFile, "file", "f", "", "read the problem statement from a file")
	cmd.Flags().StringVarP(&solutionFile, "solution", "s", "", "file with the worked solution, for context")
	cmd.Flags().StringVarP(&language, "language", "l", "rust", "target language: "+strings.Join(generate.SupportedLanguages(), ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, default stdout")
	cmd.Flags().StringVar(&refFile, "reference", "", "file with an existing model to keep naming consistent with")
	cmd.Flags().StringVar(&refLanguage, "reference-language", "", "language of the reference file")
	return cmd
}
