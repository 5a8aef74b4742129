package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rosterhq/roster/pkg/config"
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail server logs",
	Long: `Display and optionally follow the Roster server logs.

Reads the log file named by 'logging.output' in the configuration. When the
server logs to stdout or stderr there is no file to read and the command
explains how to enable file logging instead.

Examples:
  rosterd logs                                 # last 100 lines
  rosterd logs -n 50                           # last 50 lines
  rosterd logs -f                              # stream new lines
  rosterd logs --since 2024-01-15T10:00:00Z    # skip older entries
  rosterd logs -f -n 20`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Stream new lines as they are written")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "How many trailing lines to print")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Only print entries at or after this RFC3339 timestamp")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logFile := cfg.Logging.Output
	switch logFile {
	case "stdout", "stderr":
		return fmt.Errorf("server is configured to log to %s, not a file\nConfigure 'logging.output' in config to a file path to use this command", logFile)
	}
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s\nThe server may not have started yet or is logging elsewhere", logFile)
	}

	var since time.Time
	if logsSince != "" {
		since, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("--since must be an RFC3339 timestamp: %w", err)
		}
	}

	if err := printTail(logFile, logsLines, since); err != nil {
		return err
	}
	if !logsFollow {
		return nil
	}
	return followLog(logFile)
}

// printTail writes the last n lines of the file, dropping lines whose
// timestamp precedes since. Lines without a recognizable timestamp are
// always kept.
func printTail(logFile string, n int, since time.Time) error {
	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Whole-file scan keeps the code simple; log files the daemon writes
	// are rotated before they get large enough for this to matter.
	var kept []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() {
			if ts := lineTimestamp(line); !ts.IsZero() && ts.Before(since) {
				continue
			}
		}
		kept = append(kept, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading log file: %w", err)
	}

	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	for _, line := range kept {
		fmt.Println(line)
	}
	return nil
}

// followLog streams appended lines until interrupted.
func followLog(logFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(logFile); err != nil {
		return fmt.Errorf("watching %s: %w", logFile, err)
	}

	file, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seeking to end of %s: %w", logFile, err)
	}
	reader := bufio.NewReader(file)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Streaming %s, Ctrl+C to stop\n", logFile)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) {
				continue
			}
			for {
				line, err := reader.ReadString('\n')
				if err != nil {
					break
				}
				fmt.Print(line)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// lineTimestamp pulls a timestamp out of a log line. It understands the
// text handler's leading RFC 3339 prefix and the JSON handler's "time"
// field; anything else yields the zero time.
func lineTimestamp(line string) time.Time {
	for _, width := range []int{25, 20} {
		if len(line) >= width {
			if t, err := time.Parse(time.RFC3339, line[:width]); err == nil {
				return t
			}
		}
	}

	const key = `"time":"`
	idx := strings.Index(line, key)
	if idx < 0 {
		return time.Time{}
	}
	rest := line[idx+len(key):]
	if end := strings.IndexByte(rest, '"'); end > 0 {
		if t, err := time.Parse(time.RFC3339Nano, rest[:end]); err == nil {
			return t
		}
	}
	return time.Time{}
}
