package commands

import (
	"fmt"
	"os"

	"github.com/rosterhq/roster/cmd/rosterctl/cmdutil"
	"github.com/rosterhq/roster/internal/bytesize"
	"github.com/rosterhq/roster/internal/cli/output"
	"github.com/rosterhq/roster/pkg/apiclient"
	"github.com/spf13/cobra"
)

var uploadChunkSize string

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a candidate list",
	Long: `Upload a CSV or TSV candidate list to the Roster server.

The file is sent in ordered chunks so large lists survive flaky
connections: if the upload dies, re-running the same command continues
from the first chunk the server has not acknowledged.

When the last chunk lands the server detects the delimiter and header
row and answers with the column names and the storage key to pass to
'rosterctl process'.

Examples:
  # Upload a file
  rosterctl upload ./candidates.csv

  # Upload with a custom chunk size
  rosterctl upload ./candidates.csv --chunk-size 16Mi

  # Machine-readable result
  rosterctl upload ./candidates.csv -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadChunkSize, "chunk-size", "", "Chunk size (e.g. 8Mi, 16MB); default 8Mi")
}

// UploadResult is the upload outcome for display.
type UploadResult struct {
	FilePath string   `json:"filePath" yaml:"filePath"`
	Headers  []string `json:"headers" yaml:"headers"`
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]

	var chunkSize int64
	if uploadChunkSize != "" {
		size, err := bytesize.ParseByteSize(uploadChunkSize)
		if err != nil {
			return fmt.Errorf("invalid chunk size: %w", err)
		}
		chunkSize = int64(size)
	}

	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}

	// Progress goes to stderr so JSON/YAML output stays clean.
	progress := func(p apiclient.UploadProgress) {
		pct := int(p.BytesSent * 100 / p.TotalBytes)
		fmt.Fprintf(os.Stderr, "\rUploading %s: chunk %d/%d (%d%%)",
			path, p.ChunkIndex+1, p.TotalChunks, pct)
		if p.ChunkIndex+1 == p.TotalChunks {
			fmt.Fprintln(os.Stderr)
		}
	}

	result, err := client.UploadFile(path, chunkSize, progress)
	if err != nil {
		fmt.Fprintln(os.Stderr)
		return fmt.Errorf("upload failed: %w", err)
	}

	res := UploadResult{
		FilePath: result.FilePath,
		Headers:  result.Headers,
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, res)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, res)
	default:
		fmt.Println("Upload complete.")
		fmt.Println()
		fmt.Printf("  Storage key: %s\n", res.FilePath)
		fmt.Printf("  Columns:     %d detected\n", len(res.Headers))
		for _, h := range res.Headers {
			fmt.Printf("    - %s\n", h)
		}
		fmt.Println()
		fmt.Println("Start ingestion with:")
		fmt.Printf("  rosterctl process %q --map \"<column>=<field>\" ...\n", res.FilePath)
		return nil
	}
}
