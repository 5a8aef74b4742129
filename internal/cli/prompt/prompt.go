// Package prompt wraps promptui for rosterctl's interactive flows:
// yes/no confirmation and list selection. Ctrl+C anywhere surfaces as
// ErrAborted so commands can exit quietly instead of printing a stack of
// wrapped interrupt errors.
package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// ErrAborted reports that the user backed out of a prompt.
var ErrAborted = errors.New("aborted")

// IsAborted reports whether err came from the user declining or
// interrupting a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) ||
		errors.Is(err, promptui.ErrInterrupt) ||
		errors.Is(err, promptui.ErrAbort)
}

func normalize(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// Confirm asks a yes/no question. Answering "n" returns false with no
// error; Ctrl+C returns ErrAborted.
func Confirm(label string) (bool, error) {
	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [y/N]", label),
		IsConfirm: true,
	}
	_, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, normalize(err)
	}
	return true, nil
}

// ConfirmWithForce skips the prompt when force is set, for --force flags.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label)
}

// SelectOption is one entry in a selection list. Value is returned on
// pick; Label is what the user sees.
type SelectOption struct {
	Label string
	Value string
}

// Select shows a scrollable picker and returns the chosen option's value.
func Select(label string, options []SelectOption) (string, error) {
	p := promptui.Select{
		Label: label,
		Items: options,
		Size:  10,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ .Label | cyan }}",
			Inactive: "  {{ .Label }}",
			Selected: "* {{ .Label | green }}",
		},
	}
	i, _, err := p.Run()
	if err != nil {
		return "", normalize(err)
	}
	return options[i].Value, nil
}
