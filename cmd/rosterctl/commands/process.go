package commands

import (
	"fmt"
	"os"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/rosterhq/roster/internal/cli/output"
	"github.com/rosterhq/roster/internal/cli/prompt"
	"github.com/rosterhq/roster/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	processName        string
	processMappings    []string
	processInteractive bool
)

var processCmd = &cobra.Command{
	Use:   "process <storage-key>",
	Short: "Start ingesting an uploaded file",
	Long: `Create an ingestion job for an uploaded file.

The mapping decides which source columns land in which candidate fields.
Columns without a mapping are ignored; at least one mapping is required.
Target fields: ` + fieldListHelp() + `

The job runs in the background on the server. Use 'rosterctl jobs status'
to follow it, 'rosterctl jobs pause' to pause it.

Examples:
  # Map two columns and start ingestion
  rosterctl process uploads/dev/0001_candidates.csv \
    --map "Full Name=fullName" --map "E-Mail=email"

  # Build the mapping interactively from the detected columns
  rosterctl process uploads/dev/0001_candidates.csv --interactive

  # Give the job a friendlier display name
  rosterctl process uploads/dev/0001_candidates.csv \
    --name q3-outreach.csv --map "Email=email"`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&processName, "name", "", "Display name for the job (default: file name from the storage key)")
	processCmd.Flags().StringArrayVar(&processMappings, "map", nil, "Column mapping 'Source Column=targetField' (repeatable)")
	processCmd.Flags().BoolVarP(&processInteractive, "interactive", "i", false, "Pick target fields for each detected column interactively")
}

func fieldListHelp() string {
	s := ""
	for i, f := range apiclient.CandidateFields {
		if i > 0 {
			s += ", "
		}
		s += f
	}
	return s
}

func runProcess(cmd *cobra.Command, args []string) error {
	storageKey := args[0]

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	var mapping map[string]string
	if processInteractive {
		mapping, err = buildMappingInteractive(client, storageKey)
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
	} else {
		mapping, err = cmdutil.ParseMappingArgs(processMappings)
		if err != nil {
			return err
		}
	}

	if len(mapping) == 0 {
		return fmt.Errorf("no column mapping given\n\n" +
			"Map at least one column:\n" +
			"  rosterctl process <storage-key> --map \"Email=email\"\n\n" +
			"Or build the mapping interactively:\n" +
			"  rosterctl process <storage-key> --interactive")
	}

	jobID, err := client.Process(&apiclient.ProcessRequest{
		FilePath: storageKey,
		FileName: processName,
		Mapping:  mapping,
	})
	if err != nil {
		return fmt.Errorf("failed to start ingestion: %w", err)
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, map[string]string{"jobId": jobID})
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, map[string]string{"jobId": jobID})
	default:
		fmt.Printf("Ingestion started: job %s\n", jobID)
		fmt.Println()
		fmt.Println("Follow it with:")
		fmt.Printf("  rosterctl jobs status %s --watch\n", jobID)
		return nil
	}
}

// buildMappingInteractive fetches the detected columns and asks for a
// target field per column. Skipped columns stay unmapped.
func buildMappingInteractive(client *apiclient.Client, storageKey string) (map[string]string, error) {
	detected, err := client.Headers(storageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to detect headers: %w", err)
	}
	if len(detected.Headers) == 0 {
		return nil, fmt.Errorf("no columns detected in %s", storageKey)
	}

	const skip = "(skip)"
	options := make([]prompt.SelectOption, 0, len(apiclient.CandidateFields)+1)
	options = append(options, prompt.SelectOption{Label: skip, Value: ""})
	for _, f := range apiclient.CandidateFields {
		options = append(options, prompt.SelectOption{Label: f, Value: f})
	}

	mapping := make(map[string]string)
	for _, column := range detected.Headers {
		field, err := prompt.Select(fmt.Sprintf("Map column %q to", column), options)
		if err != nil {
			return nil, err
		}
		if field != "" {
			mapping[column] = field
		}
	}

	return mapping, nil
}
