package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reservadesk/reservadesk/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		baseURL    string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI document",
		Long:  "Print the OpenAPI 3 document describing the login and reservation endpoints.",
		Example: `  reservadesk openapi                           # print to stdout
  reservadesk openapi -o openapi.json           # write to file
  reservadesk openapi --base-url https://api.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := openapi.Generate(baseURL, versionString())
			jsonBytes, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("encode openapi document: %w", err)
			}
			if outputFile == "" {
				fmt.Println(string(jsonBytes))
				return nil
			}
			if err := os.WriteFile(outputFile, append(jsonBytes, '\n'), 0644); err != nil {
				return fmt.Errorf("write %s: %w", outputFile, err)
			}
			fmt.Printf("Wrote %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "Server URL advertised in the document")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write document to file instead of stdout")

	return cmd
}
