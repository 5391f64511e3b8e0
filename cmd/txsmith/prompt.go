// Copyright (C) 2025 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNotInteractive defines that input is required but stdin is not a terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD700")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Width(14).
			Foreground(lipgloss.Color("#8A8A8A"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))
)

// interactive returns true if stdin is a terminal.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ask prompts for a value until validate accepts it, empty input returns def.
func ask(label, def string, validate func(string) error) (string, error) {
	if !interactive() {
		return "", fmt.Errorf("%w: %s is required", ErrNotInteractive, strings.ToLower(label))
	}

	prompt := promptui.Prompt{
		Label:   label,
		Default: def,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				if def != "" {
					return nil
				}

				return errors.New("value can not be empty")
			}

			return validate(input)
		},
	}

	value, err := prompt.Run()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return def, nil
	}

	return strings.TrimSpace(value), nil
}

// askSecret reads a value without echo.
func askSecret(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: %s is required", ErrNotInteractive, strings.ToLower(label))
	}

	fmt.Fprintf(os.Stderr, "%s: ", label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(secret)), nil
}

// confirm asks yes/no question, default is no.
func confirm(label string) (bool, error) {
	if !interactive() {
		return false, fmt.Errorf("%w: use --yes to broadcast", ErrNotInteractive)
	}

	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}

	_, err := prompt.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, err
	}
}

// chooseWallet returns the only wallet file or asks to select one.
func chooseWallet(files []string) (string, error) {
	if len(files) == 1 {
		return files[0], nil
	}

	if !interactive() {
		return "", fmt.Errorf("%w: several wallet files found, use --wallet", ErrNotInteractive)
	}

	items := make([]string, 0, len(files))
	for _, file := range files {
		items = append(items, filepath.Base(file))
	}

	prompt := promptui.Select{
		Label: "Select wallet",
		Items: items,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return files[idx], nil
}

// printSummary prints labeled rows under a header.
func printSummary(header string, rows [][2]string) {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), row[1]))
	}

	fmt.Println(headerStyle.Render(header))
	fmt.Println(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
