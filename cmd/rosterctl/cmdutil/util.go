// Package cmdutil provides shared utilities for rosterctl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rosterhq/roster/internal/cli/credentials"
	"github.com/rosterhq/roster/internal/cli/output"
	"github.com/rosterhq/roster/internal/cli/prompt"
	"github.com/rosterhq/roster/pkg/apiclient"
)

// Flags carries the persistent flag values; the root command binds them
// before any subcommand runs.
var Flags = &GlobalFlags{}

// GlobalFlags is the set of flags shared by every rosterctl subcommand.
type GlobalFlags struct {
	ServerURL string
	Token     string
	User      string
	Output    string
	NoColor   bool
	Verbose   bool
}

// GetClient returns an API client configured from the current context.
// The --server, --token and --user flags override stored context values.
// Tokens are minted by the fronting identity provider; when the server
// runs with auth disabled the user id is sent as a plain header instead.
func GetClient() (*apiclient.Client, error) {
	url, token, user := Flags.ServerURL, Flags.Token, Flags.User

	if url == "" || (token == "" && user == "") {
		stored, err := storedContext()
		if err != nil {
			return nil, err
		}
		if stored != nil {
			if url == "" {
				url = stored.ServerURL
			}
			if token == "" {
				token = stored.Token
			}
			if user == "" {
				user = stored.UserID
			}
		}
	}

	if url == "" {
		return nil, errNoServer(true)
	}

	client := apiclient.New(url)
	switch {
	case token != "":
		return client.WithToken(token), nil
	case user != "":
		return client.WithUser(user), nil
	default:
		// No identity configured: the server assigns its development identity.
		return client, nil
	}
}

// GetServerURL resolves the server URL the same way GetClient does, for
// commands that talk to unauthenticated endpoints.
func GetServerURL() (string, error) {
	if Flags.ServerURL != "" {
		return Flags.ServerURL, nil
	}
	stored, err := storedContext()
	if err != nil {
		return "", err
	}
	if stored == nil || stored.ServerURL == "" {
		return "", errNoServer(false)
	}
	return stored.ServerURL, nil
}

// storedContext loads the current credentials context. A missing context
// is not an error; it returns nil so flag values alone can suffice.
func storedContext() (*credentials.Context, error) {
	store, err := credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize context store: %w", err)
	}
	ctx, err := store.GetCurrentContext()
	if err != nil {
		return nil, nil
	}
	return ctx, nil
}

func errNoServer(withFlagHint bool) error {
	msg := "no server configured\n\n" +
		"Save a server context first:\n" +
		"  rosterctl context set local --server http://localhost:8080"
	if withFlagHint {
		msg += "\n\nOr pass the server directly:\n" +
			"  rosterctl --server http://localhost:8080 <command>"
	}
	return fmt.Errorf("%s", msg)
}

// GetOutputFormat returns the raw --output flag value.
func GetOutputFormat() string { return Flags.Output }

// GetOutputFormatParsed validates and parses the --output flag.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled reports whether --no-color was given.
func IsColorDisabled() bool { return Flags.NoColor }

// IsVerbose reports whether --verbose was given.
func IsVerbose() bool { return Flags.Verbose }

// printStructured emits data as JSON or YAML. The third return is false
// when the format is table and the caller should render it instead.
func printStructured(w io.Writer, data any) (bool, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return true, err
	}
	switch format {
	case output.FormatJSON:
		return true, output.PrintJSON(w, data)
	case output.FormatYAML:
		return true, output.PrintYAML(w, data)
	default:
		return false, nil
	}
}

// PrintOutput renders a listing: JSON/YAML as-is, tables via the
// renderer, with emptyMsg replacing an empty table.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	if done, err := printStructured(w, data); done {
		return err
	}
	if isEmpty {
		_, _ = fmt.Fprintln(w, emptyMsg)
		return nil
	}
	return output.PrintTable(w, tableRenderer)
}

// PrintSuccess prints a success message, but only in table mode so JSON
// and YAML output stay machine-parseable.
func PrintSuccess(msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	output.Successln(os.Stdout, !IsColorDisabled(), msg)
}

// PrintResource renders a single resource in the selected format.
func PrintResource(w io.Writer, data any, tableRenderer output.TableRenderer) error {
	if done, err := printStructured(w, data); done {
		return err
	}
	return output.PrintTable(w, tableRenderer)
}

// PrintResourceWithSuccess suits create/update commands: structured
// formats get the resource, table mode gets a success line.
func PrintResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	if done, err := printStructured(w, data); done {
		return err
	}
	PrintSuccess(successMsg)
	return nil
}

// ParseMappingArgs parses repeated "source=field" mapping flags into a map.
func ParseMappingArgs(pairs []string) (map[string]string, error) {
	mapping := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		source, field, ok := strings.Cut(pair, "=")
		source = strings.TrimSpace(source)
		field = strings.TrimSpace(field)
		if !ok || source == "" || field == "" {
			return nil, fmt.Errorf("invalid mapping %q (expected 'Source Column=target_field')", pair)
		}
		if existing, dup := mapping[source]; dup {
			return nil, fmt.Errorf("column %q mapped twice (%s and %s)", source, existing, field)
		}
		mapping[source] = field
	}
	return mapping, nil
}

// BoolToYesNo renders a boolean as "yes" or "no" for table cells.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr substitutes fallback for an empty value, so blank table cells
// can show "-".
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Truncate shortens a string to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 3 {
		n = 4
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// HandleAbort turns a prompt abort (Ctrl+C) into a friendly message and a
// nil error; any other error passes through.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
